package notify

import "time"

// 事件类型常量。
const (
	EventProxyBlocked  = "proxy.blocked"
	EventPersistFailed = "store.persist_failed"
	EventClientAdded   = "client.added"
	EventClientDeleted = "client.deleted"
)

// Event 表示一条需要发送的通知事件。
type Event struct {
	ClientName string
	EventType  string
	Title      string
	Content    string
	DedupKey   string
	OccurredAt time.Time
}

// ManagerConfig 控制通知管理器的运行参数。
type ManagerConfig struct {
	QueueSize   int
	WorkerCount int
	DedupWindow time.Duration
	Logger      Logger
	SendTimeout time.Duration
}

// Logger 抽象日志接口，兼容标准 log.Logger。
type Logger interface {
	Printf(format string, v ...interface{})
}
