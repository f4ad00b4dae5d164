package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Batch upload commands",
	Long:  "Send CSV files or simulated spreadsheet batches to the data service",
}

var uploadCSVCmd = &cobra.Command{
	Use:   "csv <file>",
	Short: "Upload a CSV batch",
	Long:  "Upload a single-domain CSV file. The first row must be the header.",
	Example: `  runsheetctl upload csv fleet.csv --type fleet --batch afternoon_ops
  runsheetctl upload csv orders.csv --type orders --batch evening_ops --time 17:30`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataType, _ := cmd.Flags().GetString("type")
		batchID, _ := cmd.Flags().GetString("batch")
		opTime, _ := cmd.Flags().GetString("time")

		if dataType == "" {
			return fmt.Errorf("--type is required (fleet, orders, inventory, support)")
		}
		if batchID == "" {
			return fmt.Errorf("--batch is required")
		}

		data, err := NewClient(serviceURL).UploadCSV(args[0], dataType, batchID, opTime)
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		printData(data)
		return nil
	},
}

var uploadSheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Run the simulated spreadsheet sync",
	Long:  "Apply a demo period's generated snapshot across every domain.",
	Example: `  runsheetctl upload sheets --batch afternoon_ops
  runsheetctl upload sheets --batch night_ops --time 21:30`,
	RunE: func(cmd *cobra.Command, args []string) error {
		batchID, _ := cmd.Flags().GetString("batch")
		opTime, _ := cmd.Flags().GetString("time")

		if batchID == "" {
			return fmt.Errorf("--batch is required")
		}

		data, err := NewClient(serviceURL).UploadSheets(batchID, opTime)
		if err != nil {
			return fmt.Errorf("sheets sync failed: %w", err)
		}
		printData(data)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.AddCommand(uploadCSVCmd)
	uploadCmd.AddCommand(uploadSheetsCmd)

	uploadCSVCmd.Flags().StringP("type", "t", "", "domain type (fleet, orders, inventory, support)")
	uploadCSVCmd.Flags().StringP("batch", "b", "", "batch identifier, e.g. afternoon_ops")
	uploadCSVCmd.Flags().String("time", "", "operational time HH:MM (defaults to the period's scripted time)")

	uploadSheetsCmd.Flags().StringP("batch", "b", "", "batch identifier, e.g. afternoon_ops")
	uploadSheetsCmd.Flags().String("time", "", "operational time HH:MM (defaults to the period's scripted time)")
}
