package rotator

import "net/http"

// Handler 暴露 HTTP 处理器，便于测试或自定义服务器。
func (p *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// 无鉴权端点
	mux.HandleFunc("/", p.handleRoot)
	mux.HandleFunc("/status", p.handleStatus)
	mux.HandleFunc("/version", p.handleVersion)
	mux.Handle("/metrics", p.metrics.Handler())

	// 管理面（共享凭证）
	mux.HandleFunc("/api/clients", p.requireAPIAuth(p.handleListClients))
	mux.HandleFunc("/api/add-client", p.requireAPIAuth(p.handleAddClient))
	mux.HandleFunc("/api/delete-client/", p.requireAPIAuth(p.handleDeleteClient))
	mux.HandleFunc("/api/remove-client/", p.requireAPIAuth(p.handleDeleteClient)) // 删除别名
	mux.HandleFunc("/api/add-proxy", p.requireAPIAuth(p.handleAddProxy))
	mux.HandleFunc("/api/remove-proxy", p.requireAPIAuth(p.handleRemoveProxy))
	mux.HandleFunc("/api/rotate-client", p.requireAPIAuth(p.handleRotateClient))
	mux.HandleFunc("/api/history", p.requireAPIAuth(p.handleHistory))

	// 客户端面（Basic 对应客户端凭证）
	mux.HandleFunc("/current", p.requireClientAuth(p.handleCurrent))
	mux.HandleFunc("/rotate", p.requireClientAuth(p.handleRotate))
	mux.HandleFunc("/myip", p.requireClientAuth(p.handleMyIP))

	return mux
}
