package serverrun

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cfgpkg "github.com/rzbill/devlog/internal/config"
	pebblestore "github.com/rzbill/devlog/internal/storage/pebble"
)

// DefaultGRPCAddr is the listen address used when neither --grpc nor
// DEVLOG_GRPC is set.
const DefaultGRPCAddr = ":50051"

// DefaultHTTPAddr is the REST gateway address used when neither --http nor
// DEVLOG_HTTP is set. An empty --http disables the gateway.
const DefaultHTTPAddr = ":8080"

// NewCommand constructs the `server` command group with its `start`
// subcommand.
func NewCommand() *cobra.Command {
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	startCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the devlog server (gRPC management API and HTTP gateway)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := optionsFromFlags(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := Run(ctx, opts); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	startCmd.Flags().String("config", os.Getenv("DEVLOG_CONFIG"), "Config file (json, yaml or toml)")
	startCmd.Flags().String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	startCmd.Flags().String("grpc", envOr("DEVLOG_GRPC", DefaultGRPCAddr), "gRPC listen address")
	startCmd.Flags().String("http", envOr("DEVLOG_HTTP", DefaultHTTPAddr), "HTTP gateway listen address (empty disables)")
	startCmd.Flags().String("fsync", "", "Fsync mode: always|interval|never (default from config)")
	startCmd.Flags().String("log-level", "", "Log level: debug|info|warn|error|critical (default from config)")
	startCmd.Flags().String("log-format", "", "Log format: text|json (default from config)")
	serverCmd.AddCommand(startCmd)
	return serverCmd
}

func optionsFromFlags(cmd *cobra.Command) (Options, error) {
	path, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	grpcAddr, _ := cmd.Flags().GetString("grpc")
	httpAddr, _ := cmd.Flags().GetString("http")
	fsync, _ := cmd.Flags().GetString("fsync")
	logLevel, _ := cmd.Flags().GetString("log-level")
	logFormat, _ := cmd.Flags().GetString("log-format")

	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return Options{}, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	mode, err := pebblestore.ParseFsyncMode(fsync)
	if err != nil {
		return Options{}, fmt.Errorf("invalid --fsync; use always|interval|never")
	}
	return Options{DataDir: dataDir, GRPCAddr: grpcAddr, HTTPAddr: httpAddr, Fsync: mode, Config: cfg}, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
