package rotator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"proxypool/internal/store"
)

// checkEgressIP 通过选中的代理向回显端点发起出站请求，返回出口 IP。
// 调用前已在 entry 锁内读出 Selection，这里不再持有任何客户端锁，
// 慢上游不会挡住同一客户端的 current/rotate。
func (p *Server) checkEgressIP(ctx context.Context, clientName string, sel Selection) (string, error) {
	proxyURL, err := ProxyURL(sel.Proxy)
	if err != nil {
		return "", err
	}

	httpClient := &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		Timeout:   p.egressTimeout,
	}
	defer httpClient.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, p.egressTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.ipEchoURL, nil)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		p.egressFailed(clientName, sel.Proxy, err)
		return "", fmt.Errorf("egress check via %s: %w", sel.Proxy, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("egress check via %s: HTTP %d", sel.Proxy, resp.StatusCode)
		p.egressFailed(clientName, sel.Proxy, err)
		return "", err
	}

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		p.egressFailed(clientName, sel.Proxy, err)
		return "", fmt.Errorf("egress check via %s: bad response: %w", sel.Proxy, err)
	}

	p.metrics.recordEgressCheck("ok")
	p.recordEvent(clientName, store.EventEgressCheck, sel.Proxy, true,
		fmt.Sprintf("ip=%s rtt=%s", body.IP, time.Since(start).Round(time.Millisecond)))
	return body.IP, nil
}

func (p *Server) egressFailed(clientName, proxy string, cause error) {
	p.metrics.recordEgressCheck("failed")
	p.markBlocked(clientName, proxy, cause)
	p.recordEvent(clientName, store.EventEgressCheck, proxy, false, errString(cause))
}
