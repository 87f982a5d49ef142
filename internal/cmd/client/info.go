package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rzbill/devlog/internal/entry"
	grpcserver "github.com/rzbill/devlog/internal/server/grpc"
)

// NewLogsCommand constructs the `logs` command.
func NewLogsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "List registered logs with their storage and counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(ctx context.Context, cli *grpcserver.Client) error {
				logs, err := cli.Logs(ctx)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(logs))
				for _, l := range logs {
					rows = append(rows, []string{
						l.Name, l.Store, entry.LevelName(l.Level), l.Policy,
						strconv.FormatUint(uint64(l.NextIndex), 10),
						strconv.FormatInt(l.Appended, 10),
						strconv.FormatInt(l.Dropped, 10),
						strconv.FormatInt(l.Failed, 10),
						strconv.FormatInt(l.Bytes, 10),
					})
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), table("Name|Store|Level|Policy|Next|Appended|Dropped|Failed|Bytes", rows))
				return nil
			})
		},
	}
}

// NewModulesCommand constructs the `modules` command.
func NewModulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List registered modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(ctx context.Context, cli *grpcserver.Client) error {
				mods, err := cli.Modules(ctx)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(mods))
				for _, m := range mods {
					rows = append(rows, []string{strconv.Itoa(int(m.ID)), m.Name})
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), table("ID|Name", rows))
				return nil
			})
		},
	}
}

// NewLevelsCommand constructs the `levels` command.
func NewLevelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List per-module minimum levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(ctx context.Context, cli *grpcserver.Client) error {
				levels, enabled, err := cli.Levels(ctx)
				if err != nil {
					return err
				}
				if !enabled {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "module levels: disabled")
					return nil
				}
				rows := make([][]string, 0, len(levels))
				for _, l := range levels {
					rows = append(rows, []string{strconv.Itoa(int(l.Module)), l.Name, entry.LevelName(l.Level)})
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), table("ID|Module|Level", rows))
				return nil
			})
		},
	}
}

// NewLevelCommand constructs the `level` command group.
func NewLevelCommand() *cobra.Command {
	levelCmd := &cobra.Command{Use: "level", Short: "Change minimum levels"}

	setCmd := &cobra.Command{
		Use:   "set <module> <level>",
		Short: "Set the minimum level of a module (name or id)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, cli *grpcserver.Client) error {
				if err := cli.SetModuleLevel(ctx, args[0], args[1]); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
				return nil
			})
		},
	}

	logCmd := &cobra.Command{
		Use:   "log <log> <level>",
		Short: "Set the log-wide minimum level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, cli *grpcserver.Client) error {
				if err := cli.SetLogLevel(ctx, args[0], args[1]); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
				return nil
			})
		},
	}

	levelCmd.AddCommand(setCmd, logCmd)
	return levelCmd
}

// NewHealthCommand constructs the `health` command.
func NewHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(ctx context.Context, cli *grpcserver.Client) error {
				st, err := cli.Health(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", st)
				return nil
			})
		},
	}
}
