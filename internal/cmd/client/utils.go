package client

import (
	"context"
	"os"
	"strings"

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"

	grpcserver "github.com/rzbill/devlog/internal/server/grpc"
)

// grpcAddrFromEnv returns the gRPC server address from DEVLOG_GRPC or a default.
func grpcAddrFromEnv() string {
	if addr := os.Getenv("DEVLOG_GRPC"); addr != "" {
		return addr
	}
	return "127.0.0.1:50051"
}

// serverAddr prefers the --addr flag, then the environment.
func serverAddr(cmd *cobra.Command) string {
	if v, err := cmd.Flags().GetString("addr"); err == nil && v != "" {
		return v
	}
	return grpcAddrFromEnv()
}

// withClient provides a management client and ensures the connection is closed.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, cli *grpcserver.Client) error) error {
	cli, err := grpcserver.Dial(serverAddr(cmd))
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, cli)
}

// table renders '|' separated rows as aligned columns. Cells are sanitized
// so that a '|' inside a value does not split it.
func table(header string, rows [][]string) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, header)
	for _, r := range rows {
		for i := range r {
			r[i] = strings.ReplaceAll(r[i], "|", "¦")
		}
		lines = append(lines, strings.Join(r, "|"))
	}
	return columnize.SimpleFormat(lines)
}
