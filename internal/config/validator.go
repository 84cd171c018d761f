package config

import (
	"fmt"
	"strings"
)

// ValidateConfig validates configuration values and returns an error if any are invalid.
// This function should be called after viper has loaded the configuration.
func ValidateConfig() error {
	return Validate(Get())
}

// Validate checks a settings snapshot.
func Validate(s Settings) error {
	var errors []string

	for _, p := range []struct {
		key   string
		value int
	}{
		{"server.port", s.Port},
		{"terminal.port", s.TerminalPort},
	} {
		if p.value < 1 || p.value > 65535 {
			errors = append(errors, fmt.Sprintf("%s must be between 1 and 65535, got: %d", p.key, p.value))
		}
	}

	// 0 disables the dedicated metrics listener
	if s.MetricsPort < 0 || s.MetricsPort > 65535 {
		errors = append(errors, fmt.Sprintf("metrics_port must be between 0 and 65535, got: %d", s.MetricsPort))
	}

	if strings.TrimSpace(s.Prefix) == "" {
		errors = append(errors, "session.prefix must not be empty")
	}

	if s.StopGrace < 0 {
		errors = append(errors, fmt.Sprintf("runtime.stop_grace must not be negative, got: %v", s.StopGrace))
	}

	if s.WatchBackoff <= 0 {
		errors = append(errors, fmt.Sprintf("watcher.backoff must be positive, got: %v", s.WatchBackoff))
	}

	if s.HubBuffer <= 0 {
		errors = append(errors, fmt.Sprintf("hub.buffer must be positive, got: %d", s.HubBuffer))
	}

	if s.CreateScript == "" {
		errors = append(errors, "create.script must not be empty")
	}

	// If there are any errors, return them
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(errors, "\n  "))
	}

	return nil
}
