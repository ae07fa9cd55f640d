package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gotmc/tei"
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	l := cfg.Logger
	if l.WriteInterval <= 0 {
		return fmt.Errorf("logger.write_interval must be > 0, got %s", l.WriteInterval)
	}
	if l.TimeException <= 0 {
		return fmt.Errorf("logger.time_exception must be > 0, got %s", l.TimeException)
	}
	if l.FlushInterval <= 0 {
		return fmt.Errorf("logger.flush_interval must be > 0, got %s", l.FlushInterval)
	}
	if l.OutputDir == "" {
		return fmt.Errorf("logger.output_dir is required")
	}

	s := cfg.Serial
	if s.CommandDelay < 0 {
		return fmt.Errorf("serial.command_delay must be >= 0, got %s", s.CommandDelay)
	}
	if s.ReadTimeout <= 0 {
		return fmt.Errorf("serial.read_timeout must be > 0, got %s", s.ReadTimeout)
	}
	if s.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate must be > 0, got %d", s.BaudRate)
	}

	if len(cfg.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	labels := make(map[string]bool)
	addrs := make(map[byte]string)
	for i, in := range cfg.Instruments {
		if in.Label == "" || strings.ContainsAny(in.Label, "\t\r\n") {
			return fmt.Errorf("instruments[%d]: label %q must be non-empty and free of tabs/newlines", i, in.Label)
		}
		if labels[in.Label] {
			return fmt.Errorf("instruments[%d]: duplicate label %q", i, in.Label)
		}
		labels[in.Label] = true

		id, err := tei.NewIdentity(in.Address)
		if err != nil {
			return fmt.Errorf("instruments[%d] (%s): %w", i, in.Label, err)
		}
		if prev, ok := addrs[id.Address()]; ok {
			return fmt.Errorf("instruments[%d] (%s): address %s already used by %s", i, in.Label, id, prev)
		}
		addrs[id.Address()] = in.Label
	}

	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}
	if cfg.Monitor.Enabled && cfg.Monitor.Addr == "" {
		return fmt.Errorf("monitor.addr is required when monitor is enabled")
	}
	return nil
}
