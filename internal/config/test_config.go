package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.Solver.Timeout = 2 * time.Second // Fail fast in tests
	cfg.Solver.MaxRetries = 0
	cfg.Solver.UserAgent = "scrp-test/1.0"
	cfg.Logging.Level = "off"
	return cfg
}
