package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/core/services"
	"github.com/jakechorley/volunteer-portal/pkg/report"
)

// orgsFromFlag expands an org flag value into the partitions to report on
func orgsFromFlag(value string) ([]model.Org, error) {
	switch org := model.ParseOrgHint(value); {
	case value == "" || org == model.OrgBoth:
		return model.Orgs, nil
	case org.IsValid():
		return []model.Org{org}, nil
	default:
		return nil, fmt.Errorf("unknown org %q (use ITECPEC, CAPEC or BOTH)", value)
	}
}

// ReportCmd creates the report command
func ReportCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarise approved volunteer hours",
		Long: `Summarise approved attendance and task minutes per volunteer.
Prints to the terminal, and optionally writes an xlsx workbook (--xlsx) or
publishes to the configured Google spreadsheet (--sheet).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orgFlag, _ := cmd.Flags().GetString("org")
			xlsxPath, _ := cmd.Flags().GetString("xlsx")
			toSheet, _ := cmd.Flags().GetBool("sheet")

			orgs, err := orgsFromFlag(orgFlag)
			if err != nil {
				return err
			}

			database, err := app.Database()
			if err != nil {
				return err
			}

			rows, err := services.BuildHoursReport(app.Ctx, database, app.Logger, orgs)
			if err != nil {
				return err
			}

			printHours(rows)

			if xlsxPath != "" {
				f, err := os.Create(xlsxPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", xlsxPath, err)
				}
				if err := report.WriteXLSX(f, rows); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("failed to write %s: %w", xlsxPath, err)
				}
				fmt.Printf("✓ Wrote %s\n", xlsxPath)
			}

			if toSheet {
				if app.Cfg.Reports.SpreadsheetID == "" {
					return fmt.Errorf("reports.spreadsheetID is not configured")
				}
				client, err := app.SheetsClient()
				if err != nil {
					return err
				}

				tab := app.Cfg.Reports.HoursTab
				if err := client.PublishTable(app.Ctx, app.Cfg.Reports.SpreadsheetID, tab, report.HeaderCells(), report.Rows(rows)); err != nil {
					return err
				}
				app.Logger.Info("Published hours report",
					zap.String("spreadsheet_id", app.Cfg.Reports.SpreadsheetID),
					zap.String("tab", tab),
					zap.Int("rows", len(rows)))
				fmt.Printf("✓ Published to tab %q\n", tab)
			}

			return nil
		},
	}

	cmd.Flags().String("org", "", "ITECPEC, CAPEC or BOTH (default BOTH)")
	cmd.Flags().String("xlsx", "", "Write the report to this xlsx file")
	cmd.Flags().Bool("sheet", false, "Publish the report to the configured spreadsheet")

	return cmd
}

func printHours(rows []services.HoursRow) {
	fmt.Printf("\n%-8s %-12s %-24s %8s %8s %8s %8s\n", "Org", "Code", "Name", "Attend", "Tasks", "Total", "Pending")
	for _, r := range rows {
		open := ""
		if r.OpenSession {
			open = " (checked in)"
		}
		fmt.Printf("%-8s %-12s %-24s %8d %8d %8d %8d%s\n",
			r.Org, r.Code, r.Name,
			r.AttendanceMinutes, r.TaskMinutes, r.TotalMinutes(),
			r.PendingSessions+r.PendingTasks, open)
	}
	fmt.Println()
}
