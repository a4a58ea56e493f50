package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTasksCmd() *cobra.Command {
	var accountFlag string

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List extracted tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
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

			tasks, err := db.ListTasks(cmd.Context(), accountID)
			if err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(toJSONTasks(tasks))
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "THREAD\tCATEGORY\tPRIORITY\tDUE\tTITLE")
			for _, t := range tasks {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					t.ThreadID, t.Category, t.Priority, t.DueDate, t.Title)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID")
	return cmd
}
