package client

import (
	"github.com/spf13/cobra"
)

// AddCommands registers the client commands on root along with the
// persistent --addr flag they dial.
func AddCommands(root *cobra.Command) {
	root.PersistentFlags().String("addr", "", "devlog gRPC address (default $DEVLOG_GRPC or 127.0.0.1:50051)")
	root.AddCommand(
		NewLogsCommand(),
		NewModulesCommand(),
		NewLevelsCommand(),
		NewLevelCommand(),
		NewReadCommand(),
		NewAppendCommand(),
		NewClearCommand(),
		NewHealthCommand(),
	)
}

// NewRoot constructs a root Cobra command for the devlog client.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "devlog",
		Short: "devlog client commands",
	}
	AddCommands(root)
	return root
}
