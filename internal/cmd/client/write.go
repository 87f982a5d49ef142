package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	grpcserver "github.com/rzbill/devlog/internal/server/grpc"
)

// NewAppendCommand constructs the `append` command.
func NewAppendCommand() *cobra.Command {
	appendCmd := &cobra.Command{
		Use:   "append <log> <text>...",
		Short: "Append a text entry",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, _ := cmd.Flags().GetString("module")
			level, _ := cmd.Flags().GetString("level")
			msg := strings.Join(args[1:], " ")
			return withClient(cmd, func(ctx context.Context, cli *grpcserver.Client) error {
				ok, err := cli.Append(ctx, args[0], module, level, msg)
				if err != nil {
					return err
				}
				if !ok {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "FILTERED")
					return nil
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
				return nil
			})
		},
	}
	appendCmd.Flags().StringP("module", "m", "", "Module name or id (default module when empty)")
	appendCmd.Flags().StringP("level", "l", "info", "Level name or number")
	return appendCmd
}

// NewClearCommand constructs the `clear` command.
func NewClearCommand() *cobra.Command {
	clearCmd := &cobra.Command{
		Use:   "clear [log]",
		Short: "Erase stored entries of a log, or of every log with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			var log string
			if len(args) == 1 {
				log = args[0]
			}
			if (log == "") == !all {
				return errors.New("give a log name or --all")
			}
			return withClient(cmd, func(ctx context.Context, cli *grpcserver.Client) error {
				cleared, err := cli.Clear(ctx, log)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "cleared:", strings.Join(cleared, ", "))
				return nil
			})
		},
	}
	clearCmd.Flags().Bool("all", false, "Clear every log that supports it")
	return clearCmd
}
