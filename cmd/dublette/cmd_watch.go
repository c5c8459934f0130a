package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dublette/internal/ingest"
	"dublette/internal/pipeline"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and process event files as they arrive",
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

		ctx := cmd.Context()
		fmt.Printf("Watching %s (Ctrl-C to stop)\n", args[0])
		err = ingest.Watch(ctx, args[0], func(path string) {
			res, err := ing.IngestFile(ctx, path)
			if err != nil {
				logger.Error("ingest failed", zap.Error(err), zap.String("path", path))
				return
			}
			fmt.Printf("Ingested %s: %d accepted, %d rejected\n", path, res.Accepted, res.Rejected)

			resv, err := buildResolver(ctx, s)
			if err != nil {
				logger.Error("resolver setup failed", zap.Error(err))
				return
			}
			stats, err := pipeline.New(cfg, s, resv).Run(ctx)
			if err != nil {
				logger.Error("pipeline run failed", zap.Error(err))
				return
			}
			fmt.Printf("Reprocessed: %d canonicals (%d flagged)\n", stats.Canonicals, stats.Flagged)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
