package notify

import (
	"context"
	"log"
	"sync"
	"time"
)

// Manager 负责异步派发通知。事件进队列由固定数量的 worker 消费，
// 相同 DedupKey 在去重窗口内只发一次。
type Manager struct {
	channels   []Channel
	cfg        ManagerConfig
	queue      chan Event
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopped    chan struct{}
	dedupMu    sync.Mutex
	lastNotify map[string]time.Time
}

// Option 自定义管理器配置。
type Option func(*ManagerConfig)

// WithQueueSize 设置队列长度。
func WithQueueSize(n int) Option {
	return func(c *ManagerConfig) {
		if n > 0 {
			c.QueueSize = n
		}
	}
}

// WithWorkerCount 设置并发消费者数量。
func WithWorkerCount(n int) Option {
	return func(c *ManagerConfig) {
		if n > 0 {
			c.WorkerCount = n
		}
	}
}

// WithDedupWindow 设置去重时间窗口。
func WithDedupWindow(d time.Duration) Option {
	return func(c *ManagerConfig) {
		if d > 0 {
			c.DedupWindow = d
		}
	}
}

// WithLogger 设置自定义日志。
func WithLogger(l Logger) Option {
	return func(c *ManagerConfig) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithSendTimeout 设置单次发送超时时间。
func WithSendTimeout(d time.Duration) Option {
	return func(c *ManagerConfig) {
		if d > 0 {
			c.SendTimeout = d
		}
	}
}

// NewManager 创建并启动通知管理器。
func NewManager(channels []Channel, opts ...Option) *Manager {
	cfg := ManagerConfig{
		QueueSize:   128,
		WorkerCount: 2,
		DedupWindow: 5 * time.Minute,
		Logger:      log.Default(),
		SendTimeout: 8 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	m := &Manager{
		channels:   channels,
		cfg:        cfg,
		queue:      make(chan Event, cfg.QueueSize),
		stopped:    make(chan struct{}),
		lastNotify: make(map[string]time.Time),
	}
	for i := 0; i < cfg.WorkerCount; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	return m
}

// Publish 将事件放入队列，若队列满则丢弃并记录日志。
func (m *Manager) Publish(evt Event) {
	if m == nil || len(m.channels) == 0 {
		return
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}
	if evt.DedupKey != "" && !m.shouldSend(evt.DedupKey) {
		return
	}
	select {
	case m.queue <- evt:
	default:
		m.cfg.Logger.Printf("notify queue full, dropping event %s", evt.EventType)
	}
}

// Stop 停止消费并等待在途事件发完。
func (m *Manager) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() {
		close(m.stopped)
		close(m.queue)
		m.wg.Wait()
	})
}

func (m *Manager) shouldSend(key string) bool {
	m.dedupMu.Lock()
	defer m.dedupMu.Unlock()
	now := time.Now()
	if last, ok := m.lastNotify[key]; ok && now.Sub(last) < m.cfg.DedupWindow {
		return false
	}
	m.lastNotify[key] = now
	return true
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for evt := range m.queue {
		for _, ch := range m.channels {
			ctx, cancel := context.WithTimeout(context.Background(), m.cfg.SendTimeout)
			if err := ch.Send(ctx, evt); err != nil {
				m.cfg.Logger.Printf("notify send failed (%s): %v", evt.EventType, err)
			}
			cancel()
		}
	}
}
