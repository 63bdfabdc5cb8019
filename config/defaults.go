package config

import "time"

// DefaultConfig returns the full default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			MetricsPort:     9091,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "careline.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Session: SessionConfig{
			TTL:       30 * time.Minute,
			KeyPrefix: "careline:",
		},
		Queue: QueueConfig{
			Workers:         4,
			PromoteInterval: 30 * time.Second,
			MaxWait:         5 * time.Minute,
		},
		Routing: RoutingConfig{
			ConfidenceThreshold: 0.7,
		},
		Intent: IntentConfig{
			Threshold:         0.6,
			Timeout:           10 * time.Second,
			RequestsPerSecond: 5,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "careline",
			SampleRate:  1.0,
		},
	}
}
