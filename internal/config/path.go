package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns the directory holding flash log storage when none
// is configured. XDG_DATA_HOME wins; otherwise the first existing platform
// location is used, then ~/.devlog. Without a home directory it is ./data.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "devlog")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./data"
	}
	candidates := []struct{ probe, dir string }{
		{"/var/lib", "/var/lib/devlog"},
		{filepath.Join(home, "Library"), filepath.Join(home, "Library", "Application Support", "Devlog")},
		{filepath.Join(home, "AppData"), filepath.Join(home, "AppData", "Local", "Devlog")},
	}
	for _, c := range candidates {
		if isDir(c.probe) {
			return c.dir
		}
	}
	return filepath.Join(home, ".devlog")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
