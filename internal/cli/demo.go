package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the morning baseline",
	Long:  "Replace every domain's records with the baseline fixtures and return the demo to morning_baseline.",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := NewClient(serviceURL).Reset()
		if err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
		printData(data)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show demo state and record counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := NewClient(serviceURL).Status()
		if err != nil {
			return fmt.Errorf("status failed: %w", err)
		}
		printData(data)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(statusCmd)
}
