package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dublette/internal/evaluate"
	"dublette/internal/event"
	"dublette/internal/store"
)

var (
	evalLabelsPath string
	evalCategory   string
	evalSweep      []float64
)

// labelFile is the JSON shape of a ground-truth file: an array of
// {"a": id, "b": id, "label": "same"|"different"|"ambiguous"}.
type labelFile []struct {
	A     string `json:"a"`
	B     string `json:"b"`
	Label string `json:"label"`
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate matcher quality against labeled pairs",
	Long: `Compares the stored match decisions against ground-truth labels.
Labels come from --labels (a JSON file, also persisted for later runs) or
from previously persisted ground truth.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if evalLabelsPath != "" {
			if err := importLabels(cmd, s); err != nil {
				return err
			}
		}
		stored, err := s.ListLabels(ctx)
		if err != nil {
			return err
		}
		if len(stored) == 0 {
			return fmt.Errorf("no ground-truth labels; provide --labels")
		}
		labels := make([]evaluate.LabeledPair, len(stored))
		for i, l := range stored {
			labels[i] = evaluate.LabeledPair{A: l.EventA, B: l.EventB, Label: l.Label}
		}

		if evalCategory != "" {
			records, err := s.ListEvents(ctx)
			if err != nil {
				return err
			}
			byID := make(map[string]*event.Record, len(records))
			for i := range records {
				byID[records[i].ID] = &records[i]
			}
			labels = evaluate.FilterByCategory(labels, byID, evalCategory)
			fmt.Printf("Category %q: %d labeled pairs\n", evalCategory, len(labels))
		}

		decisions, err := s.ListDecisions(ctx)
		if err != nil {
			return err
		}

		m := evaluate.Evaluate(decisions, labels)
		fmt.Printf("Labeled pairs: %d (TP %d, FP %d, FN %d, TN %d)\n",
			m.Labeled, m.TruePositives, m.FalsePositives, m.FalseNegatives, m.TrueNegatives)
		fmt.Printf("Precision: %.4f  Recall: %.4f  F1: %.4f\n", m.Precision, m.Recall, m.F1)

		if len(evalSweep) > 0 {
			fmt.Println("\nThreshold sweep:")
			points := evaluate.Sweep(decisions, labels, evalSweep, cfg.Thresholds.TitleVeto)
			for _, p := range points {
				fmt.Printf("  %.2f  P=%.4f R=%.4f F1=%.4f\n",
					p.Threshold, p.Metrics.Precision, p.Metrics.Recall, p.Metrics.F1)
			}
		}
		return nil
	},
}

func importLabels(cmd *cobra.Command, s *store.Store) error {
	data, err := os.ReadFile(evalLabelsPath)
	if err != nil {
		return fmt.Errorf("read labels: %w", err)
	}
	var lf labelFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return fmt.Errorf("parse labels: %w", err)
	}
	labels := make([]store.Label, len(lf))
	for i, l := range lf {
		labels[i] = store.Label{EventA: l.A, EventB: l.B, Label: l.Label}
	}
	if err := s.UpsertLabels(cmd.Context(), labels); err != nil {
		return err
	}
	fmt.Printf("Imported %d labels from %s\n", len(labels), evalLabelsPath)
	return nil
}

func init() {
	evalCmd.Flags().StringVar(&evalLabelsPath, "labels", "", "JSON file of labeled pairs to import")
	evalCmd.Flags().StringVar(&evalCategory, "category", "", "restrict to pairs where either event carries this category")
	evalCmd.Flags().Float64SliceVar(&evalSweep, "sweep", nil, "high thresholds to sweep, e.g. 0.65,0.70,0.75")
}
