// Package grpcserver hosts the devlog management service over gRPC. The
// service, devlog.mgmt.v1.LogManager, exchanges structpb.Struct messages and
// exposes log listing, reads with optional long-poll, text appends, clearing,
// and module and log level control. Client wraps a connection for the CLI.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Config: config.Default()})
//	s := grpcserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":50051")
package grpcserver
