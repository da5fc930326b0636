package rotator

import (
	"context"
	"crypto/subtle"
	"net/http"
)

type clientNameContextKey struct{}

func clientFromCtx(r *http.Request) string {
	if r == nil {
		return ""
	}
	if v := r.Context().Value(clientNameContextKey{}); v != nil {
		if name, ok := v.(string); ok {
			return name
		}
	}
	return ""
}

// requireClientAuth 客户端面鉴权：HTTP Basic，用户名对应客户端名称。
// 未知用户与密码错误返回同样的 401，避免用户名枚举。
func (p *Server) requireClientAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, secret, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Proxy Server"`)
			p.metrics.recordAuthFailure("client")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authorization required"})
			return
		}
		if !p.registry.Authenticate(name, secret) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Proxy Server"`)
			p.metrics.recordAuthFailure("client")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
			return
		}
		ctx := context.WithValue(r.Context(), clientNameContextKey{}, name)
		next(w, r.WithContext(ctx))
	}
}

// requireAPIAuth 管理面鉴权：单一共享凭证，区分机器人层和任意外部调用者。
// 失败时不带 Basic challenge 头（纯拒绝，不提示浏览器弹框）。
func (p *Server) requireAPIAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			p.metrics.recordAuthFailure("management")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "API Authorization required"})
			return
		}
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(p.apiUser)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(p.apiPass)) == 1
		if !userOK || !passOK {
			p.metrics.recordAuthFailure("management")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid API credentials"})
			return
		}
		next(w, r)
	}
}
