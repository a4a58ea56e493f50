package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/mailboard/internal/app"
	"github.com/lu-zhengda/mailboard/internal/config"
	"github.com/lu-zhengda/mailboard/internal/store/sqlite"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage the Gmail push-notification watch",
	}
	cmd.AddCommand(newWatchInitCmd())
	cmd.AddCommand(newWatchRenewCmd())
	cmd.AddCommand(newWatchStopCmd())
	return cmd
}

// watchPipeline resolves the account and wires a pipeline for the watch
// subcommands.
func watchPipeline(cmd *cobra.Command, accountFlag string) (*app.Pipeline, *sqlite.DB, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := resolveGmailCredentials(cfg); err != nil {
		return nil, nil, nil, err
	}
	if cfg.Gmail.PubSubTopic == "" {
		return nil, nil, nil, fmt.Errorf("no Pub/Sub topic configured; set gmail.pubsub_topic or MAILBOARD_PUBSUB_TOPIC")
	}

	db, err := openDB()
	if err != nil {
		return nil, nil, nil, err
	}

	accountID := accountFlag
	if accountID == "" {
		if accountID, err = resolveAccountID(db, cfg); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
	}
	email, err := accountEmail(cmd.Context(), db, accountID)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	log := newLogger(cfg)
	return buildPipeline(db, cfg, accountID, email, log), db, cfg, nil
}

func newWatchInitCmd() *cobra.Command {
	var accountFlag string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Register the push-notification watch",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, db, _, err := watchPipeline(cmd, accountFlag)
			if err != nil {
				return err
			}
			defer db.Close()

			sub, err := pipeline.InitializeSubscription(cmd.Context())
			if err != nil {
				return err
			}
			if jsonFlag {
				return printJSON(sub)
			}
			fmt.Printf("Watch active until %s (history %d)\n",
				sub.Expiration.Format(time.RFC3339), sub.HistoryID)
			return nil
		},
	}
	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID")
	return cmd
}

func newWatchRenewCmd() *cobra.Command {
	var (
		accountFlag string
		allFlag     bool
	)

	cmd := &cobra.Command{
		Use:   "renew",
		Short: "Renew watches before they expire",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !allFlag {
				pipeline, db, _, err := watchPipeline(cmd, accountFlag)
				if err != nil {
					return err
				}
				defer db.Close()

				sub, err := pipeline.RenewSubscription(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Watch renewed until %s\n", sub.Expiration.Format(time.RFC3339))
				return nil
			}
			return renewAll(cmd)
		},
	}
	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID")
	cmd.Flags().BoolVar(&allFlag, "all", false, "renew every connected account whose watch expires soon")
	return cmd
}

// renewAll walks every connected account with a subscription inside the
// renewal window. One account's failure does not stop the rest.
func renewAll(cmd *cobra.Command) error {
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

	within, err := time.ParseDuration(cfg.Ingest.RenewWithin)
	if err != nil {
		return fmt.Errorf("invalid renew_within %q: %w", cfg.Ingest.RenewWithin, err)
	}

	log := newLogger(cfg)
	renewed, due, err := app.RenewDue(cmd.Context(), db, within,
		func(accountID, email string) *app.Pipeline {
			return buildPipeline(db, cfg, accountID, email, log)
		}, log)
	if err != nil {
		return err
	}
	fmt.Printf("Renewed %d of %d due watches\n", renewed, due)
	return nil
}

func newWatchStopCmd() *cobra.Command {
	var accountFlag string

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the push-notification watch",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, db, _, err := watchPipeline(cmd, accountFlag)
			if err != nil {
				return err
			}
			defer db.Close()

			pipeline.StopSubscription(cmd.Context())
			fmt.Println("Watch stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID")
	return cmd
}
