package config

// WorkerConfig carries the worker's ambient knobs. The filter mode is a
// deploy-time property of the worker process, never a per-request one.
type WorkerConfig struct {
	// FilterMode is "light" or "heavy".
	FilterMode string
}

func NewWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		FilterMode: getEnv("FILTER_MODE", "light"),
	}
}
