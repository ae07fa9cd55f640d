package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gotmc/tei"
)

type Config struct {
	Logger      LoggerConfig       `yaml:"logger"`
	Serial      SerialConfig       `yaml:"serial"`
	Instruments []InstrumentConfig `yaml:"instruments"`
	Strict      bool               `yaml:"strict"` // unbound instrument is fatal
	Log         LogConfig          `yaml:"log"`
	Monitor     MonitorConfig      `yaml:"monitor"`
}

// ---- ACQUISITION ----

type LoggerConfig struct {
	WriteInterval time.Duration `yaml:"write_interval"`
	TimeException time.Duration `yaml:"time_exception"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	OutputDir     string        `yaml:"output_dir"`
	NewFilePath   string        `yaml:"newfile_path"` // touch to request a new file
	FilePrefix    string        `yaml:"file_prefix"`
}

// ---- SERIAL ----

type SerialConfig struct {
	CommandDelay time.Duration `yaml:"command_delay"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	BaudRate     int           `yaml:"baud_rate"`
	Ports        []string      `yaml:"ports"` // empty => enumerate
	USBOnly      bool          `yaml:"usb_only"`
}

// ---- INSTRUMENTS ----

type InstrumentConfig struct {
	Label   string `yaml:"label"`   // column prefix, e.g. CO
	Address int    `yaml:"address"` // model number (<128) or protocol address
}

// ---- AMBIENT ----

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
	File   string `yaml:"file"`
}

type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the settings the field deployment runs with.
func Default() *Config {
	return &Config{
		Logger: LoggerConfig{
			WriteInterval: 30 * time.Second,
			TimeException: 100 * time.Second,
			FlushInterval: 75 * time.Second,
			OutputDir:     "~/rep",
			NewFilePath:   "~/new_file",
			FilePrefix:    "tei-log-",
		},
		Serial: SerialConfig{
			CommandDelay: tei.DefaultCommandDelay,
			ReadTimeout:  tei.DefaultReadTimeout,
			BaudRate:     9600,
		},
		Instruments: []InstrumentConfig{
			{Label: "CO", Address: 48},
			{Label: "SO2", Address: 43},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Monitor: MonitorConfig{
			Addr: ":9100",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error; the
// second return value reports whether the file was found.
func Load(path string) (*Config, bool, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, true, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, true, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
