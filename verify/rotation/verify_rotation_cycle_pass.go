package main

import (
	"fmt"
	"net/url"
	"strings"
)

// 模拟代理规范化：host:port:user:pass 四段式转 URL 规范形。
func normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Port() == "" {
			return "", false
		}
		return raw, true
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 4 {
		return "", false
	}
	return fmt.Sprintf("http://%s:%s@%s:%s", parts[2], parts[3], parts[0], parts[1]), true
}

// 模拟单客户端的游标轮换。
type pool struct {
	proxies []string
	cursor  int
}

func (p *pool) rotate() (string, int) {
	p.cursor = (p.cursor + 1) % len(p.proxies)
	return p.proxies[p.cursor], p.cursor
}

func main() {
	fmt.Println("=== 代理轮换游标验证 ===")

	// 用例 1: 四段式规范化
	raw := "1.2.3.4:100:a:b"
	canonical, ok := normalize(raw)
	fmt.Printf("用例 1: %s -> %s\n", raw, canonical)
	if ok && canonical == "http://a:b@1.2.3.4:100" {
		fmt.Println("✓ 规范化正确")
	} else {
		fmt.Println("✗ 规范化错误")
	}

	fmt.Println("\n---")

	// 用例 2: 三次轮换回到起点
	p := &pool{proxies: []string{
		"http://a:b@1.2.3.4:100",
		"http://c:d@5.6.7.8:200",
		"http://e:f@9.9.9.9:300",
	}}
	fmt.Println("用例 2: 3 个代理轮换 3 次应回到索引 0")
	for i := 0; i < 3; i++ {
		proxy, idx := p.rotate()
		fmt.Printf("  第 %d 次轮换 -> index=%d proxy=%s\n", i+1, idx, proxy)
	}
	if p.cursor == 0 {
		fmt.Println("✓ 游标回到起点")
	} else {
		fmt.Printf("✗ 游标错误: %d\n", p.cursor)
	}

	fmt.Println("\n---")

	// 用例 3: 非法输入被拒绝
	bad := []string{"", "host:port", "socks5://x@y:1", "1.2.3.4:100:a:b:extra"}
	fmt.Println("用例 3: 非法代理形状全部拒绝")
	allRejected := true
	for _, raw := range bad {
		if _, ok := normalize(raw); ok {
			fmt.Printf("✗ 不应接受: %q\n", raw)
			allRejected = false
		}
	}
	if allRejected {
		fmt.Println("✓ 全部拒绝")
	}
}
