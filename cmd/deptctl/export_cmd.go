package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/iota-identity/modules/department/domain/aggregates/department"
)

const exportSheet = "Departments"

var exportHeader = []string{
	"ID",
	"Parent ID",
	"Level",
	"Path",
	"Code",
	"Name",
	"Description",
	"Display Order",
}

var exportColumnWidths = []float64{10, 10, 8, 30, 20, 40, 50, 14}

func newExportCmd() *cobra.Command {
	var (
		tenant string
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the department tree in pre-order as xlsx or csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "xlsx" && format != "csv" {
				return withCode(exitUsage, fmt.Errorf("unsupported --format %q (expected xlsx|csv)", format))
			}
			if format == "xlsx" && output == "" {
				return withCode(exitUsage, fmt.Errorf("--output is required for xlsx"))
			}
			tenantID, err := parseTenant(tenant)
			if err != nil {
				return err
			}
			env, err := openEnv(cmd, false)
			if err != nil {
				return err
			}
			defer env.Close()

			all, err := env.service.ListAll(env.ctx, tenantID)
			if err != nil {
				return serviceCode(err)
			}
			rows := exportRows(all)

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return withCode(exitUsage, fmt.Errorf("create output: %w", err))
				}
				defer f.Close()
				w = f
			}
			switch format {
			case "xlsx":
				err = writeXLSX(w, rows)
			default:
				err = writeCSV(w, rows)
			}
			if err != nil {
				return withCode(exitDB, err)
			}
			env.log.WithField("tenant_id", tenantID.String()).WithField("rows", len(rows)).Info("deptctl.export.ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant UUID (required)")
	cmd.Flags().StringVar(&format, "format", "csv", "Output format: xlsx|csv")
	cmd.Flags().StringVar(&output, "output", "", "Output file (stdout when empty, csv only)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

// exportRows lays the departments out parents before children, one row each.
func exportRows(departments []*department.Department) [][]string {
	ordered := department.PreOrder(departments)
	rows := make([][]string, 0, len(ordered))
	for _, d := range ordered {
		rows = append(rows, []string{
			strconv.FormatInt(d.ID, 10),
			strconv.FormatInt(d.PID, 10),
			strconv.Itoa(d.Level),
			d.ParentLikeID,
			d.Code,
			d.Name,
			d.Description,
			strconv.Itoa(d.DisplayOrder),
		})
	}
	return rows
}

func writeCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
		colName, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column: %w", err)
		}
		if err := f.SetColWidth(exportSheet, colName, colName, exportColumnWidths[col]); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellStr(exportSheet, cell, value); err != nil {
				return fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
