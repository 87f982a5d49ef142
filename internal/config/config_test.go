package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rzbill/devlog/internal/entry"
	pebblestore "github.com/rzbill/devlog/internal/storage/pebble"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Format() != entry.FormatV3 || !cfg.ModuleLevels {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Logs) != 2 || cfg.Logs[1].Store != StoreMemory {
		t.Fatalf("default logs = %+v", cfg.Logs)
	}
	if cfg.FsyncMode() != pebblestore.FsyncModeInterval {
		t.Fatalf("fsync = %v", cfg.FsyncMode())
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxEntryLen != 4096 || len(cfg.Logs) != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "devlog.json", `{
		"headerFormat": "v2",
		"maxEntryLen": 512,
		"logs": [{"name": "boot", "store": "flash", "sectorSize": 1024, "sectors": 4, "policy": "reject", "level": "warn"}],
		"modules": [{"id": 70, "name": "sensor"}]
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Format() != entry.FormatV2 || cfg.MaxEntryLen != 512 {
		t.Fatalf("scalars not loaded: %+v", cfg)
	}
	if cfg.PrintfMaxLen != 128 {
		t.Fatalf("default lost: %d", cfg.PrintfMaxLen)
	}
	if len(cfg.Logs) != 1 || cfg.Logs[0].Name != "boot" || cfg.Logs[0].Sectors != 4 || cfg.Logs[0].LevelValue() != entry.LevelWarn {
		t.Fatalf("logs = %+v", cfg.Logs)
	}
	if len(cfg.Modules) != 1 || cfg.Modules[0].ID != 70 {
		t.Fatalf("modules = %+v", cfg.Modules)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "devlog.yaml", "headerFormat: v3\nmoduleLevels: false\nlog:\n  level: debug\n  format: json\nlogs:\n  - name: ring\n    store: memory\n    capacity: 2048\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ModuleLevels || cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.Logs) != 1 || cfg.Logs[0].Capacity != 2048 {
		t.Fatalf("logs = %+v", cfg.Logs)
	}
}

func TestLoadEnvOverlay(t *testing.T) {
	t.Setenv("DEVLOG_MAXENTRYLEN", "1024")
	t.Setenv("DEVLOG_LOG_LEVEL", "warn")
	path := writeFile(t, "devlog.json", `{"maxEntryLen": 512}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxEntryLen != 1024 || cfg.Log.Level != "warn" {
		t.Fatalf("env overlay not applied: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"format":       `{"headerFormat": "v9"}`,
		"store":        `{"logs": [{"name": "x", "store": "tape"}]}`,
		"capacity":     `{"logs": [{"name": "x", "store": "memory"}]}`,
		"duplicate":    `{"logs": [{"name": "x", "store": "console"}, {"name": "x", "store": "console"}]}`,
		"reserved id":  `{"modules": [{"id": 5, "name": "m"}]}`,
		"policy":       `{"logs": [{"name": "x", "store": "flash", "policy": "drop"}]}`,
		"fsync":        `{"fsync": "sometimes"}`,
		"level":        `{"logs": [{"name": "x", "store": "console", "level": "loud"}]}`,
		"slash":        `{"logs": [{"name": "a/b", "store": "console"}]}`,
		"too many mod": `{"maxUserModules": 1, "modules": [{"name": "a"}, {"name": "b"}]}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "c.json", data)); err == nil {
				t.Fatalf("expected error for %s", data)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	t.Setenv("DEVLOG_HEADERFORMAT", "v2")
	t.Setenv("DEVLOG_MODULELEVELS", "false")
	t.Setenv("DEVLOG_PRINTFMAXLEN", "64")
	FromEnv(&cfg)
	if cfg.HeaderFormat != "v2" || cfg.ModuleLevels || cfg.PrintfMaxLen != 64 {
		t.Fatalf("env overlay: %+v", cfg)
	}
	if cfg.MaxEntryLen != 4096 || !strings.EqualFold(cfg.Fsync, "interval") {
		t.Fatalf("unset keys changed: %+v", cfg)
	}
}

func TestDefaultJSONLoads(t *testing.T) {
	data, err := Default().JSON()
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	cfg, err := Load(writeFile(t, "init.json", string(data)))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Logs) != 2 || cfg.Logs[1].Capacity != 64<<10 || cfg.HeaderFormat != "v3" {
		t.Fatalf("loaded = %+v", cfg)
	}
}
