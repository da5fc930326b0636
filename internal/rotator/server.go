package rotator

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"proxypool/internal/notify"
	"proxypool/internal/store"
)

// Server 负责认证客户端、维护每个客户端的代理池与轮换游标，
// 并通过 HTTP 提供管理面和客户端面。
type Server struct {
	registry  *Registry
	fileStore *store.FileStore
	history   *store.History
	notifier  *notify.Manager
	metrics   *Metrics

	listenAddr string
	logger     *log.Logger

	apiUser string
	apiPass string

	ipEchoURL     string
	egressTimeout time.Duration

	sweepSpec string
	cron      *cron.Cron

	startedAt time.Time

	// 出口探测失败的代理集合，仅作诊断，轮换从不消费它。
	blockedMu sync.Mutex
	blocked   map[string]struct{}
}

// Start 加载快照、启动巡检任务并阻塞服务 HTTP，直到监听失败。
func (p *Server) Start() error {
	clients, proxies := p.registry.Totals()

	server := &http.Server{
		Addr:         p.listenAddr,
		Handler:      p.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	p.logger.Printf("proxy pool server listening on %s", p.listenAddr)
	p.logger.Printf("configuration file: %s", p.fileStore.Path())
	if p.history != nil {
		p.logger.Printf("event history recording enabled")
	}
	if clients == 0 {
		p.logger.Printf("no clients configured - use the management API to add clients")
	} else {
		p.logger.Printf("loaded %d clients with %d total proxies", clients, proxies)
		for _, info := range p.registry.List() {
			p.logger.Printf("  - %s: %d proxies", info.Name, info.ProxyCount)
		}
	}
	if overlap := p.registry.OverlappingProxies(); overlap > 0 {
		p.logger.Printf("WARNING: %d proxies are shared between clients", overlap)
	}

	p.startSweep()
	return server.ListenAndServe()
}

// startSweep 启动定时出口巡检（可选）。巡检只记录诊断数据，
// 不改变任何轮换行为。
func (p *Server) startSweep() {
	if p.sweepSpec == "" {
		return
	}
	p.cron = cron.New()
	if _, err := p.cron.AddFunc(p.sweepSpec, p.sweepEgress); err != nil {
		p.logger.Printf("invalid sweep schedule %q: %v", p.sweepSpec, err)
		return
	}
	p.cron.Start()
	p.logger.Printf("egress sweep scheduled: %s", p.sweepSpec)
}

// StopSweep 停止巡检任务，测试用。
func (p *Server) StopSweep() {
	if p.cron != nil {
		p.cron.Stop()
	}
}

// Registry 暴露注册表，便于测试和嵌入。
func (p *Server) Registry() *Registry { return p.registry }

// markBlocked 把探测失败的代理加入诊断集合。
func (p *Server) markBlocked(clientName, proxy string, cause error) {
	p.blockedMu.Lock()
	_, already := p.blocked[proxy]
	p.blocked[proxy] = struct{}{}
	p.blockedMu.Unlock()

	if !already {
		p.logger.Printf("[%s] proxy flagged after failed egress check: %s (%v)", clientName, proxy, cause)
		p.notifier.Publish(notify.Event{
			ClientName: clientName,
			EventType:  notify.EventProxyBlocked,
			Title:      "proxy flagged",
			Content:    fmt.Sprintf("egress check failed for %s: %v", proxy, cause),
			DedupKey:   "blocked:" + proxy,
		})
	}
}

func (p *Server) blockedCount() int {
	p.blockedMu.Lock()
	defer p.blockedMu.Unlock()
	return len(p.blocked)
}

// persist 把注册表快照同步写盘。落盘失败不回滚内存状态，
// 但要把耐久性退化暴露出来：记日志、计指标、发通知，并让请求返回 500。
func (p *Server) persist() error {
	snap := store.Snapshot{SchemaVersion: store.SchemaVersion, Clients: map[string]store.ClientDoc{}}
	for name, rec := range p.registry.Export() {
		snap.Clients[name] = store.ClientDoc{Password: rec.Secret, Proxies: rec.Proxies}
	}
	if err := p.fileStore.Save(snap); err != nil {
		p.logger.Printf("ERROR: failed to persist configuration: %v (in-memory state kept, mutation may be lost on crash)", err)
		p.metrics.recordPersistFailure()
		p.notifier.Publish(notify.Event{
			EventType: notify.EventPersistFailed,
			Title:     "snapshot write failed",
			Content:   err.Error(),
			DedupKey:  "persist",
		})
		return err
	}
	return nil
}

// recordEvent 异步无害地写事件历史；历史库未配置时为空操作。
func (p *Server) recordEvent(clientName, eventType, proxy string, success bool, detail string) {
	if p.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := p.history.InsertEvent(ctx, &store.EventRecord{
		ClientName: clientName,
		EventType:  eventType,
		Proxy:      proxy,
		Success:    success,
		Detail:     detail,
	})
	if err != nil {
		p.logger.Printf("event history insert failed: %v", err)
	}
}

// sweepEgress 为每个客户端的当前代理跑一次出口探测。
func (p *Server) sweepEgress() {
	for _, info := range p.registry.List() {
		sel, err := p.registry.Current(info.Name)
		if err != nil {
			continue
		}
		if _, err := p.checkEgressIP(context.Background(), info.Name, sel); err != nil {
			p.logger.Printf("[sweep] %s proxy %d/%d failed: %v", info.Name, sel.Index, sel.Total, err)
		}
	}
}
