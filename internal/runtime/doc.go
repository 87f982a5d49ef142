// Package runtime wires storage, configuration and the event log registry
// into a single devlog instance. It opens Pebble, registers the configured
// modules, builds one handler per configured log and exposes health checks.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	l, _ := rt.Log("app")
//	_ = l.Printf(entry.ModuleDefault, entry.LevelInfo, "booted in %dms", 42)
package runtime
