// Package client 是管理面 API 的 Go 客户端。
// 机器人层和 CLI 都通过它驱动服务器，从不直接触碰存储。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client 持有连接配置和底层 HTTP 客户端。
type Client struct {
	cfg  Config
	http *http.Client
}

// New 创建管理客户端。
func New(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// APIError 管理面返回的非 2xx 响应。
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &errBody)
		if errBody.Error == "" {
			errBody.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errBody.Error}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// ListClients 列出所有客户端摘要。
func (c *Client) ListClients(ctx context.Context) (*ListResponse, error) {
	var out ListResponse
	if err := c.do(ctx, http.MethodGet, "/api/clients", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddClient 创建客户端；批次里有非法代理时整体失败。
func (c *Client) AddClient(ctx context.Context, name, password string, proxies []string) (*AddClientResponse, error) {
	body := map[string]interface{}{
		"clientName": name,
		"password":   password,
		"proxies":    proxies,
	}
	var out AddClientResponse
	if err := c.do(ctx, http.MethodPost, "/api/add-client", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteClient 删除客户端及其代理池。
func (c *Client) DeleteClient(ctx context.Context, name string) (*DeleteClientResponse, error) {
	var out DeleteClientResponse
	if err := c.do(ctx, http.MethodDelete, "/api/delete-client/"+url.PathEscape(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddProxy 为客户端追加一条代理。
func (c *Client) AddProxy(ctx context.Context, name, proxy string) (*ProxyResponse, error) {
	body := map[string]string{"clientName": name, "proxy": proxy}
	var out ProxyResponse
	if err := c.do(ctx, http.MethodPost, "/api/add-proxy", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveProxy 从客户端删除一条代理。
func (c *Client) RemoveProxy(ctx context.Context, name, proxy string) (*ProxyResponse, error) {
	body := map[string]string{"clientName": name, "proxy": proxy}
	var out ProxyResponse
	if err := c.do(ctx, http.MethodDelete, "/api/remove-proxy", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RotateClient 代表客户端推进游标。
func (c *Client) RotateClient(ctx context.Context, name string) (*RotateResponse, error) {
	body := map[string]string{"clientName": name}
	var out RotateResponse
	if err := c.do(ctx, http.MethodPost, "/api/rotate-client", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status 读取无鉴权的 /status。
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
