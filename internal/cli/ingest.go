package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	var (
		accountFlag string
		sinceFlag   string
		threadFlag  string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Extract tasks and drafts from recent inbox threads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := resolveGmailCredentials(cfg); err != nil {
				return err
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			accountID := accountFlag
			if accountID == "" {
				if accountID, err = resolveAccountID(db, cfg); err != nil {
					return err
				}
			}
			email, err := accountEmail(cmd.Context(), db, accountID)
			if err != nil {
				return err
			}

			log := newLogger(cfg)
			pipeline := buildPipeline(db, cfg, accountID, email, log)
			ctx := cmd.Context()

			if threadFlag != "" {
				if err := pipeline.ProcessThread(ctx, threadFlag); err != nil {
					return err
				}
				fmt.Printf("Processed thread %s\n", threadFlag)
				return nil
			}

			lookback := cfg.Ingest.Lookback
			if sinceFlag != "" {
				lookback = sinceFlag
			}
			dur, err := time.ParseDuration(lookback)
			if err != nil {
				return fmt.Errorf("invalid lookback %q: %w", lookback, err)
			}

			processed, err := pipeline.IngestSince(ctx, time.Now().Add(-dur))
			if err != nil {
				return err
			}
			fmt.Printf("Processed %d threads\n", processed)
			return nil
		},
	}
	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID (defaults to config default or first account)")
	cmd.Flags().StringVar(&sinceFlag, "since", "", "lookback window, e.g. 48h (defaults to config)")
	cmd.Flags().StringVar(&threadFlag, "thread", "", "process a single thread by ID")
	return cmd
}
