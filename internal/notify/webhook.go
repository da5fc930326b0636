package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Channel 通知渠道需要实现的接口。
type Channel interface {
	Send(ctx context.Context, evt Event) error
}

// webhookChannel 把事件作为 JSON POST 到任意 webhook 地址。
type webhookChannel struct {
	url    string
	client *http.Client
}

// NewWebhookChannel 创建通用 webhook 渠道。
func NewWebhookChannel(url string) (Channel, error) {
	if url == "" {
		return nil, errors.New("webhook url required")
	}
	return &webhookChannel{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}, nil
}

func (w *webhookChannel) Send(ctx context.Context, evt Event) error {
	if ctx == nil {
		ctx = context.Background()
	}
	body := map[string]any{
		"event":       evt.EventType,
		"client":      evt.ClientName,
		"title":       evt.Title,
		"content":     evt.Content,
		"occurred_at": evt.OccurredAt.UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
