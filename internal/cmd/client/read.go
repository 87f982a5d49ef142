package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	grpcserver "github.com/rzbill/devlog/internal/server/grpc"
)

const followWait = 10 * time.Second

// NewReadCommand constructs the `read` command.
func NewReadCommand() *cobra.Command {
	readCmd := &cobra.Command{
		Use:   "read [log]",
		Short: "Read stored entries (all walkable logs when no log is given)",
		Long: `Read stored entries.

Selection:
  --since ts   entries with timestamp >= ts (microseconds)
  --index n    entries with index >= n
  --last       only the newest entry
  --wait d     block up to d for the next append when nothing matches
  --follow     keep reading new entries until interrupted (requires a log)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var log string
			if len(args) == 1 {
				log = args[0]
			}
			since, _ := cmd.Flags().GetInt64("since")
			index, _ := cmd.Flags().GetUint32("index")
			last, _ := cmd.Flags().GetBool("last")
			wait, _ := cmd.Flags().GetDuration("wait")
			limit, _ := cmd.Flags().GetInt("limit")
			follow, _ := cmd.Flags().GetBool("follow")
			output, _ := cmd.Flags().GetString("output")

			if last && since != 0 {
				return errors.New("--last and --since are exclusive")
			}
			if follow && log == "" {
				return errors.New("--follow requires a log")
			}
			req := grpcserver.ReadRequest{Log: log, Timestamp: since, Index: index, Limit: limit, Wait: wait}
			if last {
				req.Timestamp = -1
			}

			return withClient(cmd, func(ctx context.Context, cli *grpcserver.Client) error {
				for {
					res, err := cli.Read(ctx, req)
					if err != nil {
						if follow && ctx.Err() != nil {
							return nil
						}
						return err
					}
					if err := printEntries(cmd.OutOrStdout(), output, res.Entries, !follow); err != nil {
						return err
					}
					if !follow {
						if res.More {
							_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(more entries available; use --index to continue)")
						}
						return nil
					}
					if !res.More {
						req.Index = res.NextIndex
						req.Wait = followWait
					} else if n := len(res.Entries); n > 0 {
						req.Index = res.Entries[n-1].Index + 1
					}
					req.Timestamp = 0
				}
			})
		},
	}
	readCmd.Flags().Int64("since", 0, "Only entries at or after this timestamp (microseconds)")
	readCmd.Flags().Uint32("index", 0, "Only entries with index >= n")
	readCmd.Flags().Bool("last", false, "Only the newest entry")
	readCmd.Flags().Duration("wait", 0, "Block up to this long for a new entry when none match")
	readCmd.Flags().Int("limit", 0, "Maximum entries per request (server caps at 256)")
	readCmd.Flags().Bool("follow", false, "Keep printing new entries")
	readCmd.Flags().StringP("output", "o", "table", "Output format: table|text")
	return readCmd
}

func printEntries(w io.Writer, output string, entries []grpcserver.EntryInfo, header bool) error {
	switch output {
	case "table":
		if len(entries) == 0 {
			if header {
				_, _ = fmt.Fprintln(w, "no entries")
			}
			return nil
		}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				e.Log,
				strconv.FormatUint(uint64(e.Index), 10),
				strconv.FormatInt(e.Timestamp, 10),
				e.Module,
				e.LevelName,
				e.Type,
				oneLine(e.Msg),
			})
		}
		_, _ = fmt.Fprintln(w, table("Log|Index|TS|Module|Level|Type|Message", rows))
	case "text":
		for _, e := range entries {
			_, _ = fmt.Fprintf(w, "[ts=%d mod=%s level=%s idx=%d] %s\n", e.Timestamp, e.Module, e.LevelName, e.Index, e.Msg)
		}
	default:
		return fmt.Errorf("invalid --output %q; use table|text", output)
	}
	return nil
}

func oneLine(s string) string {
	return strings.NewReplacer("\n", `\n`, "\r", `\r`).Replace(s)
}
