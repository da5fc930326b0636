package rotator

import (
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"proxypool/internal/store"
	"proxypool/internal/timeutil"
	"proxypool/internal/version"
)

// GET / — 人类可读的概览。不输出任何凭证或代理明细。
func (p *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	clients, proxies := p.registry.Totals()
	overlap := p.registry.OverlappingProxies()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Proxy Pool Rotator %s\n", version.Version)
	fmt.Fprintf(w, "Uptime: %s\n\n", timeutil.FormatDuration(time.Since(p.startedAt)))
	fmt.Fprintf(w, "Client API (HTTP Basic, client credentials):\n")
	fmt.Fprintf(w, "  GET  /current - current proxy\n")
	fmt.Fprintf(w, "  POST /rotate  - rotate proxy\n")
	fmt.Fprintf(w, "  GET  /myip    - egress IP via current proxy\n\n")
	fmt.Fprintf(w, "Management API (HTTP Basic, shared credential):\n")
	fmt.Fprintf(w, "  GET    /api/clients\n")
	fmt.Fprintf(w, "  POST   /api/add-client\n")
	fmt.Fprintf(w, "  DELETE /api/delete-client/:name\n")
	fmt.Fprintf(w, "  POST   /api/add-proxy\n")
	fmt.Fprintf(w, "  DELETE /api/remove-proxy\n")
	fmt.Fprintf(w, "  POST   /api/rotate-client\n")
	fmt.Fprintf(w, "  GET    /api/history\n\n")
	fmt.Fprintf(w, "Total clients: %d\n", clients)
	fmt.Fprintf(w, "Total proxies: %d\n", proxies)
	fmt.Fprintf(w, "Overlapping proxies: %d\n", overlap)
	fmt.Fprintf(w, "Blocked proxies: %d\n", p.blockedCount())
}

// GET /status — 机器可读的运行状态。
func (p *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	clients, proxies := p.registry.Totals()
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "running",
		"clients":      clients,
		"proxies":      proxies,
		"blocked":      p.blockedCount(),
		"uptime":       int64(time.Since(p.startedAt).Seconds()),
		"uptime_human": timeutil.FormatDuration(time.Since(p.startedAt)),
		"memory": map[string]uint64{
			"alloc":       mem.Alloc,
			"total_alloc": mem.TotalAlloc,
			"sys":         mem.Sys,
			"num_gc":      uint64(mem.NumGC),
		},
		"version": version.Version,
	})
}

// GET /version
func (p *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, version.GetVersionInfo())
}

// GET /api/history?client=&type=&limit=
func (p *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if p.history == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "events": []interface{}{}, "note": "event history disabled"})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	events, err := p.history.QueryEvents(r.Context(), store.QueryEventsParams{
		ClientName: r.URL.Query().Get("client"),
		EventType:  r.URL.Query().Get("type"),
		Limit:      limit,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": err.Error()})
		return
	}

	out := make([]map[string]interface{}, 0, len(events))
	for _, evt := range events {
		out = append(out, map[string]interface{}{
			"id":         evt.ID,
			"client":     evt.ClientName,
			"type":       evt.EventType,
			"proxy":      evt.Proxy,
			"success":    evt.Success,
			"detail":     evt.Detail,
			"created_at": timeutil.FormatUTC(evt.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "events": out, "total": len(out)})
}
