package client

// Config 控制管理客户端的连接参数。
type Config struct {
	BaseURL  string
	Username string
	Password string
}

// ClientSummary 服务器 /api/clients 返回的单个客户端摘要。
type ClientSummary struct {
	Password     string `json:"password"`
	Proxies      int    `json:"proxies"`
	CurrentIndex int    `json:"currentIndex"`
}

// ListResponse GET /api/clients 的响应。
type ListResponse struct {
	Success      bool                     `json:"success"`
	Clients      map[string]ClientSummary `json:"clients"`
	TotalClients int                      `json:"totalClients"`
	TotalProxies int                      `json:"totalProxies"`
}

// AddClientResponse POST /api/add-client 的响应。
type AddClientResponse struct {
	Success        bool     `json:"success"`
	Message        string   `json:"message"`
	ClientName     string   `json:"clientName"`
	ValidProxies   int      `json:"validProxies"`
	InvalidProxies int      `json:"invalidProxies"`
	InvalidList    []string `json:"invalidList,omitempty"`
	TotalClients   int      `json:"totalClients"`
}

// DeleteClientResponse DELETE /api/delete-client/:name 的响应。
type DeleteClientResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	DeletedProxies int    `json:"deletedProxies"`
	TotalClients   int    `json:"totalClients"`
}

// ProxyResponse add-proxy / remove-proxy 的响应。
type ProxyResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	ClientName   string `json:"clientName"`
	RemovedProxy string `json:"removedProxy,omitempty"`
	TotalProxies int    `json:"totalProxies"`
}

// RotateResponse POST /api/rotate-client 的响应。
type RotateResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	ClientName   string `json:"clientName"`
	CurrentIndex int    `json:"currentIndex"`
	CurrentProxy string `json:"currentProxy"`
	TotalProxies int    `json:"totalProxies"`
}

// StatusResponse GET /status 的响应。
type StatusResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
	Proxies int    `json:"proxies"`
	Blocked int    `json:"blocked"`
	Uptime  int64  `json:"uptime"`
	Version string `json:"version"`
}
