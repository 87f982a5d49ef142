package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	clientcmd "github.com/rzbill/devlog/internal/cmd/client"
	serverrun "github.com/rzbill/devlog/internal/cmd/server"
	cfgpkg "github.com/rzbill/devlog/internal/config"
	logpkg "github.com/rzbill/devlog/pkg/log"
)

func main() {
	// Respect DEVLOG_LOG_LEVEL for CLI output.
	level := os.Getenv("DEVLOG_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.SetDefaultLogger(logger)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:          "devlog",
		Short:        "devlog structured event log CLI",
		Long:         "devlog runs a structured event log engine and manages it over gRPC and HTTP.",
		SilenceUsage: true,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Print the default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cfgpkg.Default().JSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serverrun.NewCommand())
	clientcmd.AddCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", logpkg.Err(err))
		os.Exit(1)
	}
}
