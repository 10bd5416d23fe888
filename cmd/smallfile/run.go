package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smallfile-go/smallfile/internal/coordinator"
	"github.com/smallfile-go/smallfile/internal/metrics"
	"github.com/smallfile-go/smallfile/internal/report"
)

func newRunCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Coordinate a benchmark run across one or more hosts",
	}
	flagParams := bindParamFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		p, err := resolveParams(cmd, g, flagParams)
		if err != nil {
			return err
		}

		log := newLogger(g, map[string]string{"component": "coordinator"})

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if g.metricsAddr != "" {
			exp := metrics.New()
			go func() { _ = exp.Serve(ctx, g.metricsAddr) }()
		}

		m := coordinator.NewMaster(p, log)
		totals, warning, err := m.Run(ctx)
		if err != nil {
			return err
		}

		totalWorkers := p.ThreadCount
		if len(p.HostSet) > 0 {
			totalWorkers *= len(p.HostSet)
		}
		summary := report.BuildSummary(p, totalWorkers, totals, warning)

		if err := report.WriteHuman(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
		if p.OutputJSON != "" {
			f, err := os.Create(p.OutputJSON)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			if err := report.WriteJSON(f, summary); err != nil {
				return err
			}
		}
		return nil
	}
	return cmd
}
