package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past approval decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			if cliCtx == nil {
				return fmt.Errorf("CLI context not initialized")
			}

			db, err := cliCtx.GetStorage()
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}

			entries, err := db.ListHistory(limit)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}

			if len(entries) == 0 {
				fmt.Println("No approval decisions recorded.")
				return nil
			}

			for _, e := range entries {
				fmt.Printf("%s  %-9s %-20s %s\n",
					e.Timestamp.Local().Format("2006-01-02 15:04:05"),
					e.Outcome, e.NPCName, e.RequestID)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to show (0 for all)")

	return cmd
}
