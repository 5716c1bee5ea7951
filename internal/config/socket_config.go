package config

import "time"

type SocketConfig interface {
	GetSocketURLTemplate() string
	GetSocketHandshakeTimeout() time.Duration
}

type Socket struct{}

var _ SocketConfig = Socket{}

func (Socket) GetSocketURLTemplate() string {
	return GetEnv("SOCKET_URL", "wss://"+TenantPlaceholder+".bingo.localhost/socket")
}

func (Socket) GetSocketHandshakeTimeout() time.Duration {
	return GetEnvDuration("SOCKET_HANDSHAKE_TIMEOUT", 10*time.Second)
}
