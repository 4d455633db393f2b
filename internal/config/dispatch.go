package config

import "time"

// DispatchConfig carries the master's ambient dispatch knobs. The
// listening ports stay constructor arguments; only policy, janitor and
// progress-log behavior live here.
type DispatchConfig struct {
	// Policy is "round-robin" or "min-average".
	Policy string
	// SweepEnabled turns on the janitor that expires pending requests
	// whose worker never answered. Off by default.
	SweepEnabled  bool
	SweepInterval time.Duration
	SweepAfter    time.Duration
	// ProgressInterval is the cadence of the dispatch-progress log
	// line. Zero disables it.
	ProgressInterval time.Duration
}

func NewDispatchConfig() *DispatchConfig {
	return &DispatchConfig{
		Policy:           getEnv("DISPATCH_POLICY", "round-robin"),
		SweepEnabled:     getBoolEnv("DISPATCH_PENDING_SWEEP", false),
		SweepInterval:    time.Duration(getIntEnv("DISPATCH_SWEEP_INTERVAL_SEC", 30)) * time.Second,
		SweepAfter:       time.Duration(getIntEnv("DISPATCH_SWEEP_AFTER_SEC", 300)) * time.Second,
		ProgressInterval: time.Duration(getIntEnv("DISPATCH_PROGRESS_INTERVAL_SEC", 30)) * time.Second,
	}
}
