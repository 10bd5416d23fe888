package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smallfile-go/smallfile/internal/coordinator"
	"github.com/smallfile-go/smallfile/internal/snapshot"
)

// newHostCommand is the entrypoint a remote slave process runs under:
// the coordinator's SSH or daemon-drop-file launcher invokes exactly
// this command with --network-dir and --as-host, and this process
// reads the parameter snapshot the coordinator already wrote rather
// than taking its own --operation, --iterations, etc. flags.
func newHostCommand(g *globalFlags) *cobra.Command {
	var networkDir, asHost string

	cmd := &cobra.Command{
		Use:    "host",
		Short:  "Run every worker thread assigned to this host (invoked remotely by the coordinator)",
		Hidden: true,
	}
	cmd.Flags().StringVar(&networkDir, "network-dir", "", "shared coordination directory written by the coordinator")
	cmd.Flags().StringVar(&asHost, "as-host", "", "this host's identity within host-set")
	_ = cmd.MarkFlagRequired("network-dir")
	_ = cmd.MarkFlagRequired("as-host")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		p, err := snapshot.ReadParams(networkDir)
		if err != nil {
			return fmt.Errorf("host: reading parameter snapshot: %w", err)
		}
		p.HostID = asHost
		p.IsSlave = true

		log := newLogger(g, map[string]string{"component": "host", "host": asHost})
		log.Infof("host %s starting %d worker(s)", asHost, p.ThreadCount)

		timeouts := coordinator.ComputeTimeouts(p, len(p.HostSet))

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		driver := &coordinator.HostDriver{
			Params:     p,
			HostID:     asHost,
			NetworkDir: networkDir,
			TmpDir:     networkDir,
			IsSlave:    true,
		}
		_, err = driver.Run(ctx, timeouts.StartupTimeout, timeouts.HostStartupTimeout)
		return err
	}
	return cmd
}
