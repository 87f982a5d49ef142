// Package httpserver provides a small REST gateway over the log management
// service: health, a metrics snapshot, log listing, reads, appends, clears,
// level control and an SSE tail.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Config: config.Default()})
//	s := httpserver.New(rt, nil, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
