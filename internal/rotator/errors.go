package rotator

import "errors"

// ConfigError 表示构建配置问题。
type ConfigError struct{ msg string }

func (e *ConfigError) Error() string { return e.msg }

var (
	ErrListenAddrMissing = &ConfigError{"missing listen address"}
	ErrAPICredsMissing   = &ConfigError{"missing management api credentials"}
)

// 注册表操作的哨兵错误，由 HTTP 层映射为状态码。
var (
	ErrClientNotFound = errors.New("client not found")
	ErrClientExists   = errors.New("client already exists")
	ErrProxyNotFound  = errors.New("proxy not found for this client")
	ErrProxyExists    = errors.New("proxy already exists for this client")
	ErrInvalidProxy   = errors.New("invalid proxy format")
	ErrNoProxies      = errors.New("no proxies available")
)
