package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smallfile-go/smallfile/internal/aggregate"
	"github.com/smallfile-go/smallfile/internal/barrier"
	"github.com/smallfile-go/smallfile/internal/capability"
	"github.com/smallfile-go/smallfile/internal/pathgen"
	"github.com/smallfile-go/smallfile/internal/report"
	"github.com/smallfile-go/smallfile/internal/snapshot"
	"github.com/smallfile-go/smallfile/internal/syncfile"
	"github.com/smallfile-go/smallfile/internal/workload"
)

// newWorkerCommand runs a single engine standalone, outside the
// multi-host coordination protocol: useful to smoke-test one operation
// against one directory without standing up a coordinator and a fleet
// of hosts. It opens its own gate immediately rather than waiting on one.
func newWorkerCommand(g *globalFlags) *cobra.Command {
	var workerID, hostID string

	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Run a single worker engine standalone, for local smoke-testing one operation",
		Hidden: true,
	}
	flagParams := bindParamFlags(cmd)
	cmd.Flags().StringVar(&workerID, "worker-id", "00", "identity embedded in generated filenames")
	cmd.Flags().StringVar(&hostID, "host-id", "local", "identity embedded in generated filenames")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		p, err := resolveParams(cmd, g, flagParams)
		if err != nil {
			return err
		}
		if err := p.Validate(); err != nil {
			return err
		}
		p.WorkerID, p.HostID = workerID, hostID

		networkDir := p.ResolvedNetworkDir()
		if err := syncfile.EnsureDir(networkDir); err != nil {
			return err
		}
		paths := barrier.Paths{NetworkDir: networkDir}
		if err := barrier.OpenGate(paths); err != nil {
			return err
		}

		layout := pathgen.Sequential
		if p.HashToDir {
			layout = pathgen.Hashed
		}
		gen := &pathgen.Generator{
			Layout:      layout,
			FilesPerDir: p.FilesPerDir,
			DirsPerDir:  p.DirsPerDir,
			Iterations:  p.Iterations,
			TopDirs:     p.TopDirs,
			Prefix:      p.Prefix,
			Suffix:      p.Suffix,
			HostID:      hostID,
			WorkerID:    workerID,
		}

		caps := capability.Default(1)
		eng := workload.New(p, gen, paths, networkDir, caps)

		result, err := eng.Run(context.Background(), 0)
		if err != nil && err != workload.ErrAborted {
			return fmt.Errorf("worker: %w", err)
		}

		summary := report.BuildSummary(p, 1, aggregate.Host([]snapshot.WorkerResult{result}), "")
		return report.WriteHuman(cmd.OutOrStdout(), summary)
	}
	return cmd
}
