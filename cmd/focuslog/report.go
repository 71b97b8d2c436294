package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/focuslog/focuslog/internal/reporter"
	"github.com/focuslog/focuslog/internal/usage"
)

var reportJSON bool

var reportCmd = &cobra.Command{
	Use:       "report [day|week|month]",
	Short:     "Show time per window for a period",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"day", "week", "month"},
	RunE:      runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Output JSON")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	periodType := "day"
	if len(args) > 0 {
		periodType = args[0]
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	rep := reporter.New(usage.NewFileStore(cfg.Storage.Path, logger))
	report, err := rep.GenerateReport(periodType)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if reportJSON {
		jsonStr, err := rep.FormatReportJSON(report)
		if err != nil {
			return err
		}
		fmt.Println(jsonStr)
		return nil
	}

	fmt.Print(rep.FormatReportText(report))
	return nil
}
