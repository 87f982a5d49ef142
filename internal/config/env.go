package config

// FromEnv overlays DEVLOG_* environment variables onto cfg. Keys follow the
// config field names upper-cased, with nested keys joined by '_' (for
// example DEVLOG_MAXENTRYLEN, DEVLOG_LOG_LEVEL).
func FromEnv(cfg *Config) {
	v := newViper()
	if v.IsSet("headerFormat") {
		cfg.HeaderFormat = v.GetString("headerFormat")
	}
	if v.IsSet("moduleLevels") {
		cfg.ModuleLevels = v.GetBool("moduleLevels")
	}
	if v.IsSet("maxUserModules") {
		cfg.MaxUserModules = v.GetInt("maxUserModules")
	}
	if v.IsSet("maxEntryLen") {
		cfg.MaxEntryLen = v.GetInt("maxEntryLen")
	}
	if v.IsSet("printfMaxLen") {
		cfg.PrintfMaxLen = v.GetInt("printfMaxLen")
	}
	if v.IsSet("fsync") {
		cfg.Fsync = v.GetString("fsync")
	}
	if v.IsSet("fsyncIntervalMs") {
		cfg.FsyncIntervalMs = v.GetInt("fsyncIntervalMs")
	}
	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.format") {
		cfg.Log.Format = v.GetString("log.format")
	}
	if v.IsSet("log.output") {
		cfg.Log.Output = v.GetString("log.output")
	}
}
