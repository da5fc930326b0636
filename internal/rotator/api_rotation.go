package rotator

import (
	"errors"
	"net/http"

	"proxypool/internal/store"
)

// GET /current — 只读，不推进游标。
func (p *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name := clientFromCtx(r)
	sel, err := p.registry.Current(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "No proxies available"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"client":       name,
		"currentProxy": sel.Proxy,
		"index":        sel.Index,
		"totalProxies": sel.Total,
	})
}

// POST /rotate — 游标唯一的常规变更入口，(cursor+1) mod total。
func (p *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name := clientFromCtx(r)
	sel, err := p.registry.Rotate(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "No proxies available"})
		return
	}

	p.metrics.recordRotation(name, "client")
	p.recordEvent(name, store.EventRotate, sel.Proxy, true, "source=client")
	p.logger.Printf("[%s] rotated to proxy %d: %s", name, sel.Index, sel.Proxy)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"client":       name,
		"newProxy":     sel.Proxy,
		"index":        sel.Index,
		"totalProxies": sel.Total,
	})
}

// GET /myip — 经当前代理出站取回显 IP。失败的代理只进诊断集合，
// 不影响后续轮换顺序。
func (p *Server) handleMyIP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name := clientFromCtx(r)
	sel, err := p.registry.Current(name)
	if err != nil {
		if errors.Is(err, ErrNoProxies) || errors.Is(err, ErrClientNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "No proxies available"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	ip, err := p.checkEgressIP(r.Context(), name, sel)
	if err != nil {
		p.logger.Printf("error getting IP for %s: %v", name, err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   "Failed to get IP",
			"client":  name,
			"proxy":   sel.Proxy,
			"details": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ip":     ip,
		"client": name,
		"proxy":  sel.Proxy,
		"index":  sel.Index,
	})
}
