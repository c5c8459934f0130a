package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dublette/internal/ingest"
	"dublette/internal/pipeline"
	"dublette/internal/store"
)

var processCmd = &cobra.Command{
	Use:   "process [file]",
	Short: "Ingest one event file and rerun deduplication",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		ing, err := ingest.New(cfg, s)
		if err != nil {
			return err
		}
		res, err := ing.IngestFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Ingested %s: %d records (%d accepted, %d rejected)\n",
			res.FilePath, res.Total, res.Accepted, res.Rejected)
		for _, re := range res.Errors {
			fmt.Printf("  rejected [%d] %s: %s\n", re.Index, re.ID, re.Err)
		}
		return runPipeline(cmd, s)
	},
}

var processAllCmd = &cobra.Command{
	Use:   "process-all",
	Short: "Rerun deduplication over every stored event",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		return runPipeline(cmd, s)
	},
}

func runPipeline(cmd *cobra.Command, s *store.Store) error {
	ctx := cmd.Context()
	res, err := buildResolver(ctx, s)
	if err != nil {
		return err
	}
	p := pipeline.New(cfg, s, res)
	stats, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Pipeline complete:\n")
	fmt.Printf("  events:      %d\n", stats.Events)
	fmt.Printf("  pairs:       %d (naive %d, reduction %.1f%%)\n",
		stats.Blocking.BlockedPairs, stats.Blocking.NaivePairs, stats.Blocking.ReductionPercent)
	fmt.Printf("  matches:     %d (ambiguous %d, no-match %d)\n",
		stats.Matches, stats.Ambiguous, stats.NoMatches)
	if res != nil {
		fmt.Printf("  ai-resolved: %d (batch %s)\n", stats.Resolved, res.BatchID())
		if sum, err := s.SummarizeUsage(ctx, res.BatchID()); err == nil {
			fmt.Printf("  ai-cost:     $%.6f (%d calls, %d cache hits)\n",
				sum.TotalCostUSD, sum.Calls, sum.CacheHits)
		}
	}
	fmt.Printf("  canonicals:  %d (%d singletons, %d flagged for review)\n",
		stats.Canonicals, stats.Singletons, stats.Flagged)
	return nil
}
