package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dublette/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Manual curation: split, merge, dismiss",
}

var splitTarget string

var reviewSplitCmd = &cobra.Command{
	Use:   "split [canonical-id] [source-id]",
	Short: "Detach a source event from a canonical",
	Long: `Removes the source link and re-synthesizes the canonical from what
remains. The detached source becomes a new singleton canonical, or joins an
existing one when --target is given.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := review.New(s, operator).Split(cmd.Context(), args[0], args[1], splitTarget); err != nil {
			return err
		}
		fmt.Printf("Split %s off %s\n", args[1], args[0])
		return nil
	},
}

var reviewMergeCmd = &cobra.Command{
	Use:   "merge [source-canonical-id] [target-canonical-id]",
	Short: "Merge one canonical into another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := review.New(s, operator).Merge(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Merged %s into %s\n", args[0], args[1])
		return nil
	},
}

var dismissReason string

var reviewDismissCmd = &cobra.Command{
	Use:   "dismiss [canonical-id]",
	Short: "Clear the review flag on a canonical",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := review.New(s, operator).Dismiss(cmd.Context(), args[0], dismissReason); err != nil {
			return err
		}
		fmt.Printf("Dismissed review flag on %s\n", args[0])
		return nil
	},
}

var reviewQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List canonicals flagged for review",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		items, err := s.ListCanonicals(cmd.Context(), true)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("Review queue is empty")
			return nil
		}
		for _, c := range items {
			conf := "-"
			if c.MatchConfidence != nil {
				conf = fmt.Sprintf("%.2f", *c.MatchConfidence)
			}
			fmt.Printf("%s  sources=%d  confidence=%s  ai=%v  %s\n",
				c.ID, c.SourceCount, conf, c.AIAssisted, c.Title)
		}
		return nil
	},
}

func init() {
	reviewSplitCmd.Flags().StringVar(&splitTarget, "target", "", "canonical to attach the detached source to")
	reviewDismissCmd.Flags().StringVar(&dismissReason, "reason", "", "why the flag is dismissed")
	reviewCmd.AddCommand(reviewSplitCmd, reviewMergeCmd, reviewDismissCmd, reviewQueueCmd)
}
