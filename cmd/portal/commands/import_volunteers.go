package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/core/services"
	"github.com/jakechorley/volunteer-portal/pkg/report"
	"github.com/jakechorley/volunteer-portal/pkg/roster"
)

// ImportVolunteersCmd creates the importVolunteers command
func ImportVolunteersCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "importVolunteers",
		Short: "Provision volunteers from an xlsx roster or the configured spreadsheet",
		Long: `Provision volunteers from a roster with "Unique Code", "Name", "Role" and optional "Org" columns.
Reads --xlsx when given, otherwise the rosterTab of the configured spreadsheet.
Codes that already exist in their org are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			xlsxPath, _ := cmd.Flags().GetString("xlsx")
			sheet, _ := cmd.Flags().GetString("tab")
			orgFlag, _ := cmd.Flags().GetString("org")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			defaultOrg := model.ParseOrgHint(orgFlag)
			if orgFlag != "" && !defaultOrg.IsValid() {
				return fmt.Errorf("unknown org %q (use ITECPEC or CAPEC)", orgFlag)
			}

			var raw [][]string
			var err error
			if xlsxPath != "" {
				f, openErr := os.Open(xlsxPath)
				if openErr != nil {
					return fmt.Errorf("failed to open %s: %w", xlsxPath, openErr)
				}
				raw, err = report.ReadRoster(f, sheet)
				f.Close()
			} else {
				if app.Cfg.Reports.SpreadsheetID == "" {
					return fmt.Errorf("pass --xlsx or configure reports.spreadsheetID")
				}
				client, clientErr := app.SheetsClient()
				if clientErr != nil {
					return clientErr
				}
				if sheet == "" {
					sheet = app.Cfg.Reports.RosterTab
				}
				raw, err = client.ReadRoster(app.Ctx, app.Cfg.Reports.SpreadsheetID, sheet)
			}
			if err != nil {
				return err
			}

			volunteers, err := roster.Parse(raw, defaultOrg)
			if err != nil {
				return fmt.Errorf("failed to parse roster: %w", err)
			}

			if dryRun {
				fmt.Printf("\nDry run: %d volunteers parsed\n\n", len(volunteers))
				for _, v := range volunteers {
					fmt.Printf("  %-8s %-12s %s (%s)\n", v.Org, v.UniqueCode, v.Name, v.Role)
				}
				fmt.Println()
				return nil
			}

			database, err := app.Database()
			if err != nil {
				return err
			}

			result, err := services.ImportVolunteers(app.Ctx, database, app.Logger, volunteers)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Imported %d volunteers, skipped %d existing\n\n", len(result.Created), len(result.Skipped))
			for _, v := range result.Created {
				fmt.Printf("  + %-8s %-12s %s\n", v.Org, v.UniqueCode, v.Name)
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().String("xlsx", "", "Roster workbook to import")
	cmd.Flags().String("tab", "", "Sheet/tab to read (default: first xlsx sheet or reports.rosterTab)")
	cmd.Flags().String("org", "", "Org for rows without an Org column (ITECPEC or CAPEC)")
	cmd.Flags().Bool("dry-run", false, "Parse and print without writing")

	return cmd
}
