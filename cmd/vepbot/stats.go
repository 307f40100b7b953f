package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vepbot/internal/jobs"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show job counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			counts, err := (&jobs.Repo{DB: a.db}).CountByStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			fmt.Println("--- Job Status ---")
			for _, s := range jobs.AllStatuses {
				fmt.Printf("%-10s %d\n", s, counts[s])
			}
			return nil
		},
	}
}
