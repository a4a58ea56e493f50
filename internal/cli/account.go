package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/mailboard/internal/domain"
	"github.com/lu-zhengda/mailboard/internal/provider/gmail"
	"github.com/lu-zhengda/mailboard/internal/store"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage connected accounts",
	}
	cmd.AddCommand(newAccountConnectCmd())
	cmd.AddCommand(newAccountListCmd())
	cmd.AddCommand(newAccountRemoveCmd())
	return cmd
}

func newAccountConnectCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect a Gmail account via OAuth",
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

			tokenStore := store.NewKeyringTokenStore()

			// Use email as account ID if provided, otherwise use a
			// temporary ID replaced after OAuth once the mailbox
			// address is known.
			accountID := email
			if accountID == "" {
				accountID = fmt.Sprintf("gmail-%d", time.Now().UnixNano())
			}

			prov := gmail.New(accountID, cfg.Gmail.PubSubTopic, tokenStore)

			ctx := cmd.Context()
			fmt.Println("Starting Gmail OAuth flow...")
			if err := prov.Authenticate(ctx); err != nil {
				return fmt.Errorf("failed to authenticate: %w", err)
			}

			if email == "" {
				profileEmail, _, err := prov.GetProfile(ctx)
				if err != nil {
					return fmt.Errorf("failed to get profile email: %w", err)
				}
				email = profileEmail

				// Re-save the token under the real email as account ID
				// and clean up the temporary one.
				token, err := tokenStore.LoadToken(accountID)
				if err != nil {
					return fmt.Errorf("failed to reload token: %w", err)
				}
				if err := tokenStore.SaveToken(email, token); err != nil {
					return fmt.Errorf("failed to re-save token: %w", err)
				}
				if delErr := tokenStore.DeleteToken(accountID); delErr != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to delete temporary token: %v\n", delErr)
				}
				accountID = email
			}

			account := &domain.Account{
				ID:        accountID,
				Email:     email,
				Provider:  "gmail",
				Connected: true,
				CreatedAt: time.Now(),
			}
			if err := db.CreateAccount(ctx, account); err != nil {
				return fmt.Errorf("failed to store account: %w", err)
			}

			if jsonFlag {
				return printJSON(account)
			}
			fmt.Printf("Connected %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (detected from the profile when omitted)")
	return cmd
}

func newAccountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List connected accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			accounts, err := db.ListAccounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if jsonFlag {
				return printJSON(accounts)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tSTATE\tADDED")
			for _, a := range accounts {
				state := "connected"
				if !a.Connected {
					state = "disconnected"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Email, state, a.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}
}

func newAccountRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <account-id>",
		Short: "Remove an account and its stored token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID := args[0]

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.DeleteAccount(cmd.Context(), accountID); err != nil {
				return fmt.Errorf("failed to remove account: %w", err)
			}
			if err := store.NewKeyringTokenStore().DeleteToken(accountID); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to delete token: %v\n", err)
			}
			fmt.Printf("Removed %s\n", accountID)
			return nil
		},
	}
}
