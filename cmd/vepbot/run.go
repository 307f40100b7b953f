package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one scheduler pass now and print its report",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			worker, err := a.newWorker(cmd.Context())
			if err != nil {
				return err
			}

			report, err := worker.RunOnce(cmd.Context())
			if report != nil {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				_ = enc.Encode(report)
			}
			return err
		},
	}
}
