package main

import (
	"github.com/spf13/cobra"

	"github.com/smallfile-go/smallfile/internal/logging"
)

// globalFlags holds the persistent flags every subcommand shares.
type globalFlags struct {
	configPath string
	debug      bool
	pretty     bool
	metricsAddr string
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "smallfile",
		Short:         "Distributed metadata-intensive filesystem benchmark",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "YAML parameter overlay file")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable debug-level logging")
	root.PersistentFlags().BoolVar(&g.pretty, "pretty", false, "human-readable console log output instead of JSON lines")
	root.PersistentFlags().StringVar(&g.metricsAddr, "metrics-addr", "", "address to serve Prometheus /metrics on (disabled if empty)")

	root.AddCommand(
		newRunCommand(g),
		newHostCommand(g),
		newWorkerCommand(g),
		newVersionCommand(),
	)
	return root
}

func newLogger(g *globalFlags, fields map[string]string) *logging.Logger {
	return logging.New(logging.Options{
		Pretty: g.pretty,
		Debug:  g.debug,
		Fields: fields,
	})
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Printf("smallfile %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}
