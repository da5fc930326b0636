package rotator

import (
	"log"
	"time"

	"proxypool/internal/notify"
	"proxypool/internal/store"
)

const defaultIPEchoURL = "https://api.ipify.org?format=json"

// Builder 使用流式接口构建 Server 实例。
type Builder struct {
	listenAddr    string
	configPath    string
	logger        *log.Logger
	apiUser       string
	apiPass       string
	ipEchoURL     string
	egressTimeout time.Duration
	sweepSpec     string
	history       *store.History
	notifier      *notify.Manager
}

// NewBuilder 构建带默认监听地址和日志的 Builder。
func NewBuilder() *Builder {
	return &Builder{
		listenAddr:    ":8080",
		configPath:    "clients-config.json",
		logger:        log.Default(),
		ipEchoURL:     defaultIPEchoURL,
		egressTimeout: 10 * time.Second,
	}
}

// WithListenAddr 覆盖监听地址。
func (b *Builder) WithListenAddr(addr string) *Builder {
	if addr != "" {
		b.listenAddr = addr
	}
	return b
}

// WithConfigPath 设置客户端快照文件路径。
func (b *Builder) WithConfigPath(path string) *Builder {
	if path != "" {
		b.configPath = path
	}
	return b
}

// WithLogger 注入自定义日志。
func (b *Builder) WithLogger(l *log.Logger) *Builder {
	if l != nil {
		b.logger = l
	}
	return b
}

// WithAPICredentials 设置管理面共享凭证（必填）。
func (b *Builder) WithAPICredentials(user, pass string) *Builder {
	b.apiUser = user
	b.apiPass = pass
	return b
}

// WithIPEchoURL 覆盖出口探测的回显地址，测试用。
func (b *Builder) WithIPEchoURL(u string) *Builder {
	if u != "" {
		b.ipEchoURL = u
	}
	return b
}

// WithEgressTimeout 设置出口探测超时，默认 10s。
func (b *Builder) WithEgressTimeout(d time.Duration) *Builder {
	if d > 0 {
		b.egressTimeout = d
	}
	return b
}

// WithSweepSchedule 设置定时巡检的 cron 表达式；为空则不巡检。
func (b *Builder) WithSweepSchedule(spec string) *Builder {
	b.sweepSpec = spec
	return b
}

// WithHistory 注入事件历史库（可选）。
func (b *Builder) WithHistory(h *store.History) *Builder {
	b.history = h
	return b
}

// WithNotifier 注入通知管理器（可选）。
func (b *Builder) WithNotifier(m *notify.Manager) *Builder {
	b.notifier = m
	return b
}

// Build 校验配置、加载落盘快照并组装 Server。
func (b *Builder) Build() (*Server, error) {
	if b.listenAddr == "" {
		return nil, ErrListenAddrMissing
	}
	if b.apiUser == "" || b.apiPass == "" {
		return nil, ErrAPICredsMissing
	}

	fileStore, err := store.NewFileStore(b.configPath)
	if err != nil {
		return nil, err
	}
	snap, err := fileStore.Load()
	if err != nil {
		return nil, err
	}

	registry := NewRegistry()
	records := make(map[string]ClientRecord, len(snap.Clients))
	for name, doc := range snap.Clients {
		records[name] = ClientRecord{Secret: doc.Password, Proxies: doc.Proxies}
	}
	registry.Import(records)

	p := &Server{
		registry:      registry,
		fileStore:     fileStore,
		history:       b.history,
		notifier:      b.notifier,
		listenAddr:    b.listenAddr,
		logger:        b.logger,
		apiUser:       b.apiUser,
		apiPass:       b.apiPass,
		ipEchoURL:     b.ipEchoURL,
		egressTimeout: b.egressTimeout,
		sweepSpec:     b.sweepSpec,
		startedAt:     time.Now(),
		blocked:       make(map[string]struct{}),
	}
	p.metrics = NewMetrics(registry, p.blockedCount)
	return p, nil
}
