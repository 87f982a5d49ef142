// Package client provides the operator commands of the `devlog` CLI.
//
// The commands talk to the devlog gRPC management service to inspect and
// control a running instance from a terminal.
//
// # Address configuration
//
// The server address comes from the --addr flag, then the DEVLOG_GRPC
// environment variable (default 127.0.0.1:50051).
//
// Usage
//
//	devlog logs
//	devlog modules
//	devlog levels
//	devlog level set sensor warn
//	devlog level log app error
//
//	devlog read app                     # everything stored in "app"
//	devlog read app --last              # newest entry only
//	devlog read app --since 1726833600000000 --index 10
//	devlog read app --follow -o text    # tail new entries
//	devlog read                         # every walkable log
//
//	devlog append app --module sensor --level warn "battery low"
//	devlog clear app
//	devlog clear --all
package client
