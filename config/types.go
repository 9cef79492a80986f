package config

// Log controls structured logging and file rotation.
type Log struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry configures the OTLP exporters. Both signals are off by default.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}

// RPC bounds the HTTP API. Timeouts are in seconds.
type RPC struct {
	// RequestsPerMinute is enforced per client address. Zero disables
	// throttling.
	RequestsPerMinute int   `toml:"RequestsPerMinute"`
	Burst             int   `toml:"Burst"`
	ReadHeaderTimeout int   `toml:"ReadHeaderTimeout"`
	ReadTimeout       int   `toml:"ReadTimeout"`
	WriteTimeout      int   `toml:"WriteTimeout"`
	IdleTimeout       int   `toml:"IdleTimeout"`
	MaxBodyBytes      int64 `toml:"MaxBodyBytes"`
}
