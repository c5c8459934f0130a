package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database totals, review queue size, and LLM spend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		events, sources, err := s.CountEvents(ctx)
		if err != nil {
			return err
		}
		canonicals, needsReview, aiAssisted, err := s.CountCanonicals(ctx)
		if err != nil {
			return err
		}
		usage, err := s.SummarizeUsage(ctx, "")
		if err != nil {
			return err
		}

		fmt.Printf("Source events:    %d (from %d sources)\n", events, sources)
		fmt.Printf("Canonical events: %d\n", canonicals)
		fmt.Printf("  needs review:   %d\n", needsReview)
		fmt.Printf("  ai assisted:    %d\n", aiAssisted)
		if events > 0 && canonicals > 0 {
			fmt.Printf("  dedup ratio:    %.2f sources per canonical\n", float64(events)/float64(canonicals))
		}
		fmt.Printf("LLM usage:        %d ledger rows (%d cache hits), %d/%d tokens in/out, $%.4f\n",
			usage.Calls, usage.CacheHits, usage.TokensIn, usage.TokensOut, usage.TotalCostUSD)

		ingestions, err := s.ListIngestions(ctx, 5)
		if err != nil {
			return err
		}
		if len(ingestions) > 0 {
			fmt.Println("Recent ingestions:")
			for _, ing := range ingestions {
				fmt.Printf("  %s  %s (%d accepted, %d rejected)\n",
					ing.CreatedAt.Format("2006-01-02 15:04"), ing.FilePath,
					ing.RecordsAccepted, ing.RecordsRejected)
			}
		}
		return nil
	},
}
