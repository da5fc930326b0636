package rotator

import (
	"crypto/subtle"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// clientEntry 保存单个客户端的凭证、代理池和轮换游标。
// 游标是进程内状态，不参与持久化。
type clientEntry struct {
	mu      sync.Mutex
	secret  string
	proxies []string // 规范形式，保持插入顺序
	cursor  int
}

// Registry 是客户端表的唯一事实来源。
// 表级 RWMutex 只保护 name -> entry 映射；每个 entry 自带互斥锁，
// 因此不同客户端的操作互不阻塞，同一客户端的游标变更严格串行。
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*clientEntry
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*clientEntry)}
}

// Selection 描述一次 current/rotate 查询选中的代理。
type Selection struct {
	Proxy string
	Index int
	Total int
}

// ClientInfo 管理端列表用的摘要，密码已脱敏。
type ClientInfo struct {
	Name       string
	Secret     string
	ProxyCount int
	Cursor     int
}

// CreateClient 原子地创建客户端。批次中任何一条代理非法（含批内重复）
// 都会整体拒绝并返回非法列表，不落任何状态。
func (r *Registry) CreateClient(name, secret string, proxies []string) (valid []string, invalid []string, err error) {
	name = strings.TrimSpace(name)
	if name == "" || secret == "" {
		return nil, nil, fmt.Errorf("%w: name and secret required", ErrInvalidProxy)
	}

	seen := make(map[string]struct{}, len(proxies))
	for _, raw := range proxies {
		canonical, perr := NormalizeProxy(raw)
		if perr != nil {
			invalid = append(invalid, raw)
			continue
		}
		if _, dup := seen[canonical]; dup {
			invalid = append(invalid, raw)
			continue
		}
		seen[canonical] = struct{}{}
		valid = append(valid, canonical)
	}
	if len(invalid) > 0 {
		return nil, invalid, ErrInvalidProxy
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[name]; ok {
		return nil, nil, ErrClientExists
	}
	r.clients[name] = &clientEntry{secret: secret, proxies: valid}
	return valid, nil, nil
}

// DeleteClient 删除客户端并级联丢弃其游标，返回被删除的代理数量。
func (r *Registry) DeleteClient(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.clients[name]
	if !ok {
		return 0, ErrClientNotFound
	}
	entry.mu.Lock()
	count := len(entry.proxies)
	entry.mu.Unlock()
	delete(r.clients, name)
	return count, nil
}

func (r *Registry) lookup(name string) *clientEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[name]
}

// AddProxy 追加一条规范化代理，按规范形式精确去重。
func (r *Registry) AddProxy(name, raw string) (canonical string, total int, err error) {
	canonical, err = NormalizeProxy(raw)
	if err != nil {
		return "", 0, err
	}
	entry := r.lookup(name)
	if entry == nil {
		return "", 0, ErrClientNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	for _, p := range entry.proxies {
		if p == canonical {
			return "", len(entry.proxies), ErrProxyExists
		}
	}
	entry.proxies = append(entry.proxies, canonical)
	return canonical, len(entry.proxies), nil
}

// RemoveProxy 按规范形式匹配删除；也接受原始串的精确匹配，
// 方便操作员原样粘贴列表里的条目。删除后游标收拢到有效区间：
// 被删索引在游标之前则游标前移一位（当前代理不变），越界归零。
func (r *Registry) RemoveProxy(name, raw string) (removed string, total int, err error) {
	entry := r.lookup(name)
	if entry == nil {
		return "", 0, ErrClientNotFound
	}

	candidates := []string{strings.TrimSpace(raw)}
	if canonical, perr := NormalizeProxy(raw); perr == nil {
		candidates = append(candidates, canonical)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	idx := -1
	for i, p := range entry.proxies {
		for _, c := range candidates {
			if p == c {
				idx = i
				break
			}
		}
		if idx >= 0 {
			break
		}
	}
	if idx < 0 {
		return "", len(entry.proxies), ErrProxyNotFound
	}
	removed = entry.proxies[idx]
	entry.proxies = append(entry.proxies[:idx], entry.proxies[idx+1:]...)

	if len(entry.proxies) == 0 {
		entry.cursor = 0
	} else {
		if idx < entry.cursor {
			entry.cursor--
		}
		if entry.cursor >= len(entry.proxies) {
			entry.cursor = 0
		}
	}
	return removed, len(entry.proxies), nil
}

// Authenticate 校验客户端凭证，恒定时间比较，未知用户与密码错误不可区分。
func (r *Registry) Authenticate(name, secret string) bool {
	entry := r.lookup(name)
	if entry == nil {
		// 仍然执行一次比较，避免通过时延枚举用户名。
		subtle.ConstantTimeCompare([]byte(secret), []byte(secret))
		return false
	}
	entry.mu.Lock()
	expected := entry.secret
	entry.mu.Unlock()
	return subtle.ConstantTimeCompare([]byte(expected), []byte(secret)) == 1
}

// Current 返回游标处的代理，不产生任何变更。
func (r *Registry) Current(name string) (Selection, error) {
	entry := r.lookup(name)
	if entry == nil {
		return Selection{}, ErrClientNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if len(entry.proxies) == 0 {
		return Selection{}, ErrNoProxies
	}
	return Selection{Proxy: entry.proxies[entry.cursor], Index: entry.cursor, Total: len(entry.proxies)}, nil
}

// Rotate 把游标推进到 (cursor+1) mod total。entry 锁保证并发轮换
// 不会观察到同一个前置游标。
func (r *Registry) Rotate(name string) (Selection, error) {
	entry := r.lookup(name)
	if entry == nil {
		return Selection{}, ErrClientNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if len(entry.proxies) == 0 {
		return Selection{}, ErrNoProxies
	}
	entry.cursor = (entry.cursor + 1) % len(entry.proxies)
	return Selection{Proxy: entry.proxies[entry.cursor], Index: entry.cursor, Total: len(entry.proxies)}, nil
}

// List 返回按名称排序的客户端摘要。
func (r *Registry) List() []ClientInfo {
	r.mu.RLock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)

	out := make([]ClientInfo, 0, len(names))
	for _, name := range names {
		entry := r.lookup(name)
		if entry == nil {
			continue
		}
		entry.mu.Lock()
		out = append(out, ClientInfo{
			Name:       name,
			Secret:     maskSecret(entry.secret),
			ProxyCount: len(entry.proxies),
			Cursor:     entry.cursor,
		})
		entry.mu.Unlock()
	}
	return out
}

// Totals 统计客户端与代理总量，用于 /status 和首页摘要。
func (r *Registry) Totals() (clients, proxies int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.clients {
		entry.mu.Lock()
		proxies += len(entry.proxies)
		entry.mu.Unlock()
	}
	return len(r.clients), proxies
}

// OverlappingProxies 统计被多个客户端共享的代理条目数。
func (r *Registry) OverlappingProxies() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := 0
	uniq := make(map[string]struct{})
	for _, entry := range r.clients {
		entry.mu.Lock()
		for _, p := range entry.proxies {
			all++
			uniq[p] = struct{}{}
		}
		entry.mu.Unlock()
	}
	return all - len(uniq)
}

// Export 导出持久化快照：name -> (secret, proxies)。
func (r *Registry) Export() map[string]ClientRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ClientRecord, len(r.clients))
	for name, entry := range r.clients {
		entry.mu.Lock()
		proxies := make([]string, len(entry.proxies))
		copy(proxies, entry.proxies)
		out[name] = ClientRecord{Secret: entry.secret, Proxies: proxies}
		entry.mu.Unlock()
	}
	return out
}

// Import 用快照重建注册表，所有游标归零。仅在进程启动时调用。
func (r *Registry) Import(records map[string]ClientRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = make(map[string]*clientEntry, len(records))
	for name, rec := range records {
		proxies := make([]string, len(rec.Proxies))
		copy(proxies, rec.Proxies)
		r.clients[name] = &clientEntry{secret: rec.Secret, proxies: proxies}
	}
}

// ClientRecord 是注册表与持久层之间的交换格式。
type ClientRecord struct {
	Secret  string
	Proxies []string
}

func maskSecret(secret string) string {
	if len(secret) <= 2 {
		return "***"
	}
	return secret[:1] + "***" + secret[len(secret)-1:]
}
