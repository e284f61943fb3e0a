package main

import (
	"errors"
	"fmt"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/report"
	"github.com/spf13/cobra"
)

type reportOptions struct {
	table     string
	schema    string
	selection []string
	simulate  bool
}

func newReportCmd() *cobra.Command {
	var opts reportOptions
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the index analysis of one table to the terminal",
		Example: `  indexlens report --table orders
  indexlens report --table orders --select idx_orders_status,idx_orders_customer --simulate --simulator hypopg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.table, "table", "", "table to analyze")
	cmd.Flags().StringVar(&opts.schema, "schema", "", "schema of the table (resolved when omitted)")
	cmd.Flags().StringSliceVar(&opts.selection, "select", nil, "indexes to summarize as a drop selection")
	cmd.Flags().BoolVar(&opts.simulate, "simulate", false, "simulate dropping the selected indexes")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func runReport(cmd *cobra.Command, opts reportOptions) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if opts.simulate && len(opts.selection) == 0 {
		return errors.New("--simulate requires --select")
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.simulate && a.sim == nil {
		return errors.New("--simulate requires a simulator (--simulator hypopg or http)")
	}

	_, view, err := a.analysis.Analyze(ctx, opts.schema, opts.table)
	if err != nil {
		return fmt.Errorf("analyzing %s: %w", opts.table, err)
	}

	rep := report.Report{View: view, Selection: opts.selection}
	if len(opts.selection) > 0 {
		plan, _, err := a.analysis.DropPlan(view, opts.selection)
		if err != nil && !errors.Is(err, domain.ErrEmptySelection) {
			return err
		}
		rep.Plan = plan
		rep.Summary = domain.Summarize(view, opts.selection, nil)
	}

	if opts.simulate && rep.Plan != "" {
		batch, err := a.sim.Run(ctx, view, opts.selection)
		if err != nil {
			return fmt.Errorf("simulating: %w", err)
		}
		rep.Results = batch.Results
		rep.Summary = a.sim.Summary(view, opts.selection)
	}

	return report.NewConsoleReporter(cmd.OutOrStdout()).Report(rep)
}
