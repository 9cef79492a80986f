package config

import (
	"fmt"
	"net"
	"strings"
)

var (
	MaxRequestsPerMinute = 100_000
	MaxTimeoutSeconds    = 600
)

// Validate enforces the accepted ranges for every section.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config: nil")
	}
	for name, addr := range map[string]string{"RPCAddress": c.RPCAddress, "MetricsAddress": c.MetricsAddress} {
		if addr == "" {
			if name == "RPCAddress" {
				return fmt.Errorf("node: RPCAddress required")
			}
			continue
		}
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("node: invalid %s %q: %w", name, addr, err)
		}
	}
	switch c.DBBackend {
	case "memory":
	case "leveldb", "bolt":
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("node: DataDir required for %s backend", c.DBBackend)
		}
	default:
		return fmt.Errorf("node: unknown DBBackend %q", c.DBBackend)
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", c.Log.Level)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log: rotation limits must not be negative")
	}

	if (c.Telemetry.Traces || c.Telemetry.Metrics) && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry: endpoint required when exporters are enabled")
	}

	if c.RPC.RequestsPerMinute < 0 || c.RPC.RequestsPerMinute > MaxRequestsPerMinute {
		return fmt.Errorf("rpc: RequestsPerMinute must be within [0, %d]", MaxRequestsPerMinute)
	}
	if c.RPC.RequestsPerMinute > 0 && c.RPC.Burst <= 0 {
		return fmt.Errorf("rpc: Burst must be positive when throttling is enabled")
	}
	for name, secs := range map[string]int{
		"ReadHeaderTimeout": c.RPC.ReadHeaderTimeout,
		"ReadTimeout":       c.RPC.ReadTimeout,
		"WriteTimeout":      c.RPC.WriteTimeout,
		"IdleTimeout":       c.RPC.IdleTimeout,
	} {
		if secs < 0 || secs > MaxTimeoutSeconds {
			return fmt.Errorf("rpc: %s must be within [0, %d]", name, MaxTimeoutSeconds)
		}
	}
	if c.RPC.MaxBodyBytes <= 0 {
		return fmt.Errorf("rpc: MaxBodyBytes must be positive")
	}
	return nil
}
