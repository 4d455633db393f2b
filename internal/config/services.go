package config

// AppConfig aggregates the ambient configuration of a node. Listening
// ports and the master address come from flags at construction, per the
// node startup contract.
type AppConfig struct {
	DebugMode      bool
	DispatchConfig *DispatchConfig
	WorkerConfig   *WorkerConfig
	RedisConfig    *RedisConfig
	LogConfig      *LogConfig
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:      getBoolEnv("DEBUG_MODE", false),
		DispatchConfig: NewDispatchConfig(),
		WorkerConfig:   NewWorkerConfig(),
		RedisConfig:    NewRedisConfig(),
		LogConfig:      NewLogConfig(),
	}
}
