// Package config loads devlog runtime configuration: header format, level
// filtering capability, module table size, body limits, the set of event
// logs with their storage, and process logging. Files may be JSON, YAML or
// TOML; DEVLOG_* environment variables overlay file values.
//
// Example:
//
//	cfg, err := config.Load("/etc/devlog.yaml")
//	if err != nil { /* handle */ }
//	rt, _ := runtime.Open(runtime.Options{DataDir: config.DefaultDataDir(), Config: cfg})
//	defer rt.Close()
package config
