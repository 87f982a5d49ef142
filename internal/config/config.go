package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/rzbill/devlog/internal/entry"
	pebblestore "github.com/rzbill/devlog/internal/storage/pebble"
	logpkg "github.com/rzbill/devlog/pkg/log"
)

// Store names accepted in LogConfig.Store.
const (
	StoreConsole = "console"
	StoreMemory  = "memory"
	StoreFlash   = "flash"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// HeaderFormat selects the entry header layout: "v2" or "v3".
	HeaderFormat    string         `mapstructure:"headerFormat" json:"headerFormat"`
	ModuleLevels    bool           `mapstructure:"moduleLevels" json:"moduleLevels"`
	MaxUserModules  int            `mapstructure:"maxUserModules" json:"maxUserModules"`
	MaxEntryLen     int            `mapstructure:"maxEntryLen" json:"maxEntryLen"`
	PrintfMaxLen    int            `mapstructure:"printfMaxLen" json:"printfMaxLen"`
	Fsync           string         `mapstructure:"fsync" json:"fsync"`
	FsyncIntervalMs int            `mapstructure:"fsyncIntervalMs" json:"fsyncIntervalMs"`
	Logs            []LogConfig    `mapstructure:"logs" json:"logs"`
	Modules         []ModuleConfig `mapstructure:"modules" json:"modules"`
	Log             logpkg.Config  `mapstructure:"log" json:"log"`
}

// LogConfig declares one event log and its storage.
type LogConfig struct {
	Name  string `mapstructure:"name" json:"name"`
	Store string `mapstructure:"store" json:"store"`
	// Level is a level name or number; entries below it are dropped.
	Level string `mapstructure:"level" json:"level"`
	// Capacity is the byte budget of a memory log.
	Capacity int `mapstructure:"capacity" json:"capacity"`
	// SectorSize and Sectors shape a flash log.
	SectorSize int `mapstructure:"sectorSize" json:"sectorSize"`
	Sectors    int `mapstructure:"sectors" json:"sectors"`
	// Policy is "overwrite" or "reject" for flash logs.
	Policy   string `mapstructure:"policy" json:"policy"`
	MaxEntry int    `mapstructure:"maxEntry" json:"maxEntry"`
}

// ModuleConfig registers a user module at boot. ID 0 picks the first free id.
type ModuleConfig struct {
	ID   uint8  `mapstructure:"id" json:"id"`
	Name string `mapstructure:"name" json:"name"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HeaderFormat:    "v3",
		ModuleLevels:    true,
		MaxUserModules:  8,
		MaxEntryLen:     4096,
		PrintfMaxLen:    128,
		Fsync:           "interval",
		FsyncIntervalMs: 5,
		Logs:            defaultLogs(),
		Log:             logpkg.Config{Level: "info", Format: "text"},
	}
}

func defaultLogs() []LogConfig {
	return []LogConfig{
		{Name: "console", Store: StoreConsole, Level: "debug"},
		{Name: "app", Store: StoreMemory, Level: "debug", Capacity: 64 << 10},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("headerFormat", d.HeaderFormat)
	v.SetDefault("moduleLevels", d.ModuleLevels)
	v.SetDefault("maxUserModules", d.MaxUserModules)
	v.SetDefault("maxEntryLen", d.MaxEntryLen)
	v.SetDefault("printfMaxLen", d.PrintfMaxLen)
	v.SetDefault("fsync", d.Fsync)
	v.SetDefault("fsyncIntervalMs", d.FsyncIntervalMs)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
}

// newViper returns a viper bound to DEVLOG_* environment variables, without
// defaults.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("devlog")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from a JSON, YAML or TOML file (by extension) and
// overlays DEVLOG_* environment variables. If path is empty, defaults plus
// environment are returned.
func Load(path string) (Config, error) {
	v := newViper()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" {
			v.SetConfigType("json")
		}
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Default()
	cfg.Logs, cfg.Modules = nil, nil
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if !v.IsSet("logs") {
		cfg.Logs = defaultLogs()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects inconsistent settings.
func (c Config) Validate() error {
	if _, err := entry.ParseFormat(c.HeaderFormat); err != nil {
		return fmt.Errorf("headerFormat: %w", err)
	}
	if max := int(entry.ModuleMax-entry.ModulePerUser) + 1; c.MaxUserModules < 0 || c.MaxUserModules > max {
		return fmt.Errorf("maxUserModules must be within [0, %d], got %d", max, c.MaxUserModules)
	}
	if c.MaxEntryLen <= 0 {
		return fmt.Errorf("maxEntryLen must be positive, got %d", c.MaxEntryLen)
	}
	if c.PrintfMaxLen <= 0 {
		return fmt.Errorf("printfMaxLen must be positive, got %d", c.PrintfMaxLen)
	}
	if _, err := pebblestore.ParseFsyncMode(c.Fsync); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}

	seen := make(map[string]bool, len(c.Logs))
	for i, l := range c.Logs {
		if l.Name == "" || strings.ContainsRune(l.Name, '/') {
			return fmt.Errorf("logs[%d]: invalid name %q", i, l.Name)
		}
		if seen[l.Name] {
			return fmt.Errorf("logs[%d]: duplicate name %q", i, l.Name)
		}
		seen[l.Name] = true
		if l.Level != "" {
			if _, ok := entry.ParseLevel(l.Level); !ok {
				return fmt.Errorf("logs[%d]: invalid level %q", i, l.Level)
			}
		}
		switch l.Store {
		case StoreConsole:
		case StoreMemory:
			if l.Capacity <= 0 {
				return fmt.Errorf("logs[%d]: memory log %q needs a positive capacity", i, l.Name)
			}
		case StoreFlash:
			if l.SectorSize < 0 || l.Sectors < 0 || l.MaxEntry < 0 {
				return fmt.Errorf("logs[%d]: negative flash geometry", i)
			}
			if l.Policy != "" && l.Policy != "overwrite" && l.Policy != "reject" {
				return fmt.Errorf("logs[%d]: policy must be overwrite or reject, got %q", i, l.Policy)
			}
		default:
			return fmt.Errorf("logs[%d]: unknown store %q", i, l.Store)
		}
	}

	ids := make(map[uint8]bool, len(c.Modules))
	for i, m := range c.Modules {
		if m.Name == "" {
			return fmt.Errorf("modules[%d]: name is required", i)
		}
		if m.ID != 0 && m.ID < entry.ModulePerUser {
			return fmt.Errorf("modules[%d]: id %d is reserved", i, m.ID)
		}
		if m.ID != 0 && ids[m.ID] {
			return fmt.Errorf("modules[%d]: duplicate id %d", i, m.ID)
		}
		ids[m.ID] = true
	}
	if len(c.Modules) > c.MaxUserModules {
		return fmt.Errorf("%d modules configured, maxUserModules is %d", len(c.Modules), c.MaxUserModules)
	}
	return nil
}

// Format returns the parsed header format.
func (c Config) Format() entry.Format {
	f, _ := entry.ParseFormat(c.HeaderFormat)
	return f
}

// FsyncMode returns the parsed fsync policy.
func (c Config) FsyncMode() pebblestore.FsyncMode {
	m, _ := pebblestore.ParseFsyncMode(c.Fsync)
	return m
}

// LevelValue returns the parsed log level, 0 when unset.
func (l LogConfig) LevelValue() uint8 {
	v, _ := entry.ParseLevel(l.Level)
	return v
}

// JSON renders the configuration as an indented JSON document that Load
// accepts.
func (c Config) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
