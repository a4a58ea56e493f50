package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lu-zhengda/mailboard/internal/app"
	"github.com/lu-zhengda/mailboard/internal/config"
	"github.com/lu-zhengda/mailboard/internal/content"
	"github.com/lu-zhengda/mailboard/internal/extract"
	"github.com/lu-zhengda/mailboard/internal/fetch"
	"github.com/lu-zhengda/mailboard/internal/genai"
	"github.com/lu-zhengda/mailboard/internal/provider/gmail"
	"github.com/lu-zhengda/mailboard/internal/store"
	"github.com/lu-zhengda/mailboard/internal/store/sqlite"
	"github.com/lu-zhengda/mailboard/internal/watch"
)

var (
	// version is set via ldflags at build time.
	version = "dev"
	cfgFile string

	// jsonFlag enables JSON output for all commands.
	jsonFlag bool
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "mailboard",
		Short:   "Email-to-task pipeline",
		Long:    "Turns Gmail threads into categorized tasks and reply drafts.",
		Version: version,
	}
	root.SetVersionTemplate(fmt.Sprintf("mailboard %s\n", version))
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	root.AddCommand(newAccountCmd())
	root.AddCommand(newIngestCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newTasksCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the process logger at the configured level.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// openDB creates the data directory and opens the SQLite database.
func openDB() (*sqlite.DB, error) {
	dataDir := config.DataDir()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "mailboard.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// loadConfig loads the application configuration from the config file.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.toml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// resolveAccountID determines which account to use based on config
// default or falls back to the first account in the database.
func resolveAccountID(db *sqlite.DB, cfg *config.Config) (string, error) {
	if cfg.Accounts.Default != "" {
		return cfg.Accounts.Default, nil
	}

	accounts, err := db.ListAccounts(context.Background())
	if err != nil {
		return "", fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return "", fmt.Errorf("no accounts configured; run 'mailboard account connect' first")
	}
	return accounts[0].ID, nil
}

// resolveGmailCredentials sets Gmail OAuth credentials using the first
// available source: config file, then environment variables.
func resolveGmailCredentials(cfg *config.Config) error {
	if cfg.Gmail.ClientID != "" && cfg.Gmail.ClientSecret != "" {
		gmail.SetCredentials(cfg.Gmail.ClientID, cfg.Gmail.ClientSecret)
		return nil
	}

	clientID := os.Getenv("GMAIL_CLIENT_ID")
	clientSecret := os.Getenv("GMAIL_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		gmail.SetCredentials(clientID, clientSecret)
		return nil
	}

	return gmail.EnsureCredentials()
}

// buildPipeline wires the full ingestion pipeline for one account.
func buildPipeline(db *sqlite.DB, cfg *config.Config, accountID, email string, log zerolog.Logger) *app.Pipeline {
	tokenStore := store.NewKeyringTokenStore()
	prov := gmail.New(accountID, cfg.Gmail.PubSubTopic, tokenStore)

	cleaner := content.NewCleaner(nil, log)
	resolver := content.NewResolver(cleaner, log)
	fetcher := fetch.New(prov, resolver, log)

	gen := genai.NewClient(genai.ClientConfig{
		BaseURL:     cfg.GenAI.BaseURL,
		APIKey:      cfg.GenAI.APIKey,
		Model:       cfg.GenAI.Model,
		MaxTokens:   cfg.GenAI.MaxTokens,
		Temperature: cfg.GenAI.Temperature,
		MaxRetries:  cfg.GenAI.MaxRetries,
	}, log)
	orch := extract.NewOrchestrator(gen, nil, log)
	mgr := watch.NewManager(db, log)

	return app.NewPipeline(db, prov, fetcher, orch, mgr, app.PipelineOptions{
		AccountID:    accountID,
		Email:        email,
		DraftReplies: cfg.Ingest.DraftReplies,
	}, log)
}

// accountEmail looks up the mailbox address for an account id.
func accountEmail(ctx context.Context, db *sqlite.DB, accountID string) (string, error) {
	acct, err := db.GetAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	return acct.Email, nil
}
