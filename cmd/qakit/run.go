package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/opencart-qa/internal/model"
	"github.com/nhle/opencart-qa/internal/theme"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Record test execution start and end",
	}
	cmd.AddCommand(newRunStartCmd(a), newRunFinishCmd(a), newRunListCmd(a))
	return cmd
}

func newRunStartCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Record the start of a test run and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			s, err := a.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.StartRun(cmd.Context(), name)
			if err != nil {
				return err
			}
			a.logger.Info("run started", "run_id", run.RunID, "name", run.Name)
			printRun(cmd.OutOrStdout(), run)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Run name (default OpenCart)")

	return cmd
}

func newRunFinishCmd(a *app) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "finish",
		Short: "Record the end of a test run, the latest one unless --id is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			s, err := a.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.FinishRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			a.logger.Info("run finished", "run_id", run.RunID, "duration", run.Duration())
			printRun(cmd.OutOrStdout(), run)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "id", "", "Run id to finish")

	return cmd
}

func newRunListCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent test runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			s, err := a.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tNAME\tSTARTED\tSTATUS\tDURATION")
			for _, r := range runs {
				duration := "-"
				if r.Finished() {
					duration = r.Duration().Round(time.Second).String()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					r.RunID, r.Name, r.StartedAt.Local().Format(time.DateTime), r.Status, duration)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")

	return cmd
}

func printRun(w io.Writer, r *model.Run) {
	field(w, "run_id", r.RunID)
	field(w, "name", r.Name)
	field(w, "started", r.StartedAt.Local().Format(time.DateTime))
	if r.Finished() {
		field(w, "ended", r.EndedAt.Time.Local().Format(time.DateTime))
	}
	field(w, "status", theme.OutcomeStyle(r.Status).Render(r.Status))
}
