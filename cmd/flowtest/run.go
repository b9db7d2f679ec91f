package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/marcuspmd/flow-test-sub005/internal/aggregator"
	"github.com/marcuspmd/flow-test-sub005/internal/cliutil"
	"github.com/marcuspmd/flow-test-sub005/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Discover and execute test suites",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := buildEngine()
		if err != nil {
			return err
		}
		defer e.log.Sync()

		var sink *report.EventSink
		if liveEventsFlag && !noLogFlag {
			sink, err = report.NewEventSink(e.cfg.Reporting.OutputDir)
			if err != nil {
				return fmt.Errorf("cannot open live-events sink: %w", err)
			}
			defer sink.Close()
		}

		for _, s := range e.suites {
			if sink != nil {
				sink.Emit(report.Event{Kind: report.EventDiscovered, NodeID: s.NodeID})
			}
		}

		ctx, stop := cancellableContext()
		defer stop()

		start := time.Now()
		results, runErr := runScheduled(ctx, e)
		end := time.Now()

		for _, r := range results {
			fmt.Printf("%s %s (%dms)\n", cliutil.StatusGlyph(string(r.Status)), r.SuiteName, r.DurationMs)
			if r.ErrorMessage != "" {
				fmt.Printf("    %s\n", r.ErrorMessage)
			}
		}

		agg := aggregator.Aggregate(e.cfg.ProjectName, start, end, results)
		agg.RunID = uuid.NewString()
		fmt.Printf("\n%d total, %d passed, %d failed, %d skipped (%.1f%% success)\n",
			agg.TotalTests, agg.Successful, agg.Failed, agg.Skipped, agg.SuccessRate*100)

		if !noLogFlag {
			writer, werr := report.New(e.cfg.Reporting.OutputDir)
			if werr == nil {
				if werr = writer.WriteResult(agg); werr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: cannot write report: %v\n", werr)
				}
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: cannot open report directory: %v\n", werr)
			}
		}

		if runErr != nil {
			return runErr
		}
		if agg.Failed > 0 {
			return fmt.Errorf("%d suite(s) failed", agg.Failed)
		}
		return nil
	},
}
