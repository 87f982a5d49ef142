// Package serverrun exposes the Run entrypoint and the `server start` command
// used by the CLI to start a devlog runtime with its gRPC management server
// and optional HTTP gateway, handling lifecycle and shutdown.
//
// Example:
//
//	opts := serverrun.Options{DataDir: "./data", GRPCAddr: ":50051", HTTPAddr: ":8080", Config: config.Default()}
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, opts)
package serverrun
