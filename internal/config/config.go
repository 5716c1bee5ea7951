package config

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
	SocketConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	API
	Session
	Socket
}

func New() Config {
	return mainConfig{}
}
