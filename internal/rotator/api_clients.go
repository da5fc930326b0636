package rotator

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"proxypool/internal/notify"
	"proxypool/internal/store"
)

// GET /api/clients
func (p *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p.logger.Printf("[API] GET /api/clients")

	clients := make(map[string]interface{})
	totalProxies := 0
	for _, info := range p.registry.List() {
		clients[info.Name] = map[string]interface{}{
			"password":     info.Secret, // 已脱敏
			"proxies":      info.ProxyCount,
			"currentIndex": info.Cursor,
		}
		totalProxies += info.ProxyCount
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"clients":      clients,
		"totalClients": len(clients),
		"totalProxies": totalProxies,
	})
}

// POST /api/add-client
// 批次里任何一条代理非法则整体拒绝，不落任何状态。
func (p *Server) handleAddClient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ClientName string   `json:"clientName"`
		Password   string   `json:"password"`
		Proxies    []string `json:"proxies"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid json"})
		return
	}
	p.logger.Printf("[API] POST /api/add-client name=%s proxies=%d", req.ClientName, len(req.Proxies))

	if strings.TrimSpace(req.ClientName) == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "clientName and password are required",
		})
		return
	}

	valid, invalid, err := p.registry.CreateClient(req.ClientName, req.Password, req.Proxies)
	if err != nil {
		switch {
		case errors.Is(err, ErrClientExists):
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"success": false,
				"error":   "Client " + req.ClientName + " already exists",
			})
		case errors.Is(err, ErrInvalidProxy):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success":     false,
				"error":       "invalid proxy entries, nothing was stored",
				"invalidList": invalid,
			})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": err.Error()})
		}
		return
	}

	if err := p.persist(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "failed to persist configuration"})
		return
	}

	totalClients, _ := p.registry.Totals()
	p.logger.Printf("added new client: %s with %d proxies", req.ClientName, len(valid))
	p.notifier.Publish(notify.Event{
		ClientName: req.ClientName,
		EventType:  notify.EventClientAdded,
		Title:      "client added",
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"message":        "Client " + req.ClientName + " added successfully",
		"clientName":     req.ClientName,
		"validProxies":   len(valid),
		"invalidProxies": 0,
		"totalClients":   totalClients,
	})
}

// DELETE /api/delete-client/:name （以及 /api/remove-client/:name 别名）
func (p *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/delete-client/")
	name = strings.TrimPrefix(name, "/api/remove-client/")
	if name == "" || strings.Contains(name, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "client name required"})
		return
	}
	p.logger.Printf("[API] DELETE /api/delete-client/%s", name)

	deleted, err := p.registry.DeleteClient(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error":   "Client " + name + " not found",
		})
		return
	}
	if err := p.persist(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "failed to persist configuration"})
		return
	}

	totalClients, _ := p.registry.Totals()
	p.logger.Printf("deleted client: %s (%d proxies)", name, deleted)
	p.notifier.Publish(notify.Event{
		ClientName: name,
		EventType:  notify.EventClientDeleted,
		Title:      "client deleted",
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"message":        "Client " + name + " deleted successfully",
		"deletedProxies": deleted,
		"totalClients":   totalClients,
	})
}

// POST /api/add-proxy
func (p *Server) handleAddProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ClientName string `json:"clientName"`
		Proxy      string `json:"proxy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid json"})
		return
	}
	p.logger.Printf("[API] POST /api/add-proxy client=%s", req.ClientName)

	if req.ClientName == "" || req.Proxy == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "clientName and proxy are required",
		})
		return
	}

	canonical, total, err := p.registry.AddProxy(req.ClientName, req.Proxy)
	if err != nil {
		switch {
		case errors.Is(err, ErrClientNotFound):
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "error": "Client " + req.ClientName + " not found"})
		case errors.Is(err, ErrInvalidProxy):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "Invalid proxy format"})
		case errors.Is(err, ErrProxyExists):
			writeJSON(w, http.StatusConflict, map[string]interface{}{"success": false, "error": "Proxy already exists for this client"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": err.Error()})
		}
		return
	}
	if err := p.persist(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "failed to persist configuration"})
		return
	}

	p.logger.Printf("added proxy to %s: %s -> %s", req.ClientName, req.Proxy, canonical)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      "Proxy added to client " + req.ClientName,
		"clientName":   req.ClientName,
		"totalProxies": total,
	})
}

// DELETE /api/remove-proxy
func (p *Server) handleRemoveProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ClientName string `json:"clientName"`
		Proxy      string `json:"proxy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid json"})
		return
	}
	p.logger.Printf("[API] DELETE /api/remove-proxy client=%s", req.ClientName)

	if req.ClientName == "" || req.Proxy == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "clientName and proxy are required",
		})
		return
	}

	removed, total, err := p.registry.RemoveProxy(req.ClientName, req.Proxy)
	if err != nil {
		switch {
		case errors.Is(err, ErrClientNotFound):
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "error": "Client " + req.ClientName + " not found"})
		case errors.Is(err, ErrProxyNotFound):
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "error": "Proxy not found for this client"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": err.Error()})
		}
		return
	}
	if err := p.persist(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "failed to persist configuration"})
		return
	}

	p.logger.Printf("removed proxy from %s: %s", req.ClientName, removed)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      "Proxy removed from client " + req.ClientName,
		"clientName":   req.ClientName,
		"removedProxy": removed,
		"totalProxies": total,
	})
}

// POST /api/rotate-client
func (p *Server) handleRotateClient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ClientName string `json:"clientName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid json"})
		return
	}
	p.logger.Printf("[API] POST /api/rotate-client client=%s", req.ClientName)

	if req.ClientName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "clientName is required",
		})
		return
	}

	sel, err := p.registry.Rotate(req.ClientName)
	if err != nil {
		switch {
		case errors.Is(err, ErrClientNotFound):
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "error": "Client " + req.ClientName + " not found"})
		case errors.Is(err, ErrNoProxies):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "Client " + req.ClientName + " has no proxies"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": err.Error()})
		}
		return
	}

	p.metrics.recordRotation(req.ClientName, "management")
	p.recordEvent(req.ClientName, store.EventRotate, sel.Proxy, true, "source=management")
	p.logger.Printf("rotated proxy for %s: index %d", req.ClientName, sel.Index)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      "Proxy rotated for client " + req.ClientName,
		"clientName":   req.ClientName,
		"currentIndex": sel.Index,
		"currentProxy": sel.Proxy,
		"totalProxies": sel.Total,
	})
}
