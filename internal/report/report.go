// Package report renders a completed run's metrics into the output formats
// spec.md §6 describes: a two-table spreadsheet ("Overall Results" and
// "Metrics By Maintenance Step") and, as a supplement grounded in the
// original implementation's simulator.py:show_results, a human-readable
// terminal summary.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/xuri/excelize/v2"

	"github.com/patchwave/maintsim/internal/maintenance"
)

const (
	overallSheet = "Overall Results"
	stepSheet    = "Metrics By Maintenance Step"
)

var overallHeader = []string{
	"run_id", "strategy", "maintenance_duration", "total_vulnerability_surface",
	"total_migrations", "total_migration_duration", "mean_of_step_mean_durations",
	"max_of_step_max_durations",
}

var stepHeader = []string{
	"step", "now", "vulnerability_surface", "consolidation_rate", "occupation_rate",
	"migration_count", "migration_duration_sum", "migration_duration_min",
	"migration_duration_max", "migration_duration_mean",
}

// WriteXLSX renders result to an XLSX workbook with the two tables spec.md
// §6 requires, saving it at path.
func WriteXLSX(path, strategyName string, result maintenance.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, overallSheet, overallHeader, overallRows(strategyName, result)); err != nil {
		return err
	}
	if err := writeSheet(f, stepSheet, stepHeader, stepRows(result)); err != nil {
		return err
	}
	f.SetActiveSheet(0)
	if index, err := f.GetSheetIndex("Sheet1"); err == nil && index != -1 {
		f.DeleteSheet("Sheet1")
	}

	return f.SaveAs(path)
}

func writeSheet(f *excelize.File, name string, header []string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("creating sheet %s: %w", name, err)
	}

	for col, title := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(name, cell, title); err != nil {
			return err
		}
	}
	for rowIdx, row := range rows {
		for col, val := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err := f.SetCellValue(name, cell, val); err != nil {
				return err
			}
		}
	}
	return nil
}

func overallRows(strategyName string, result maintenance.Result) [][]any {
	o := result.Overall
	return [][]any{{
		o.RunID.String(), strategyName, o.MaintenanceDuration, o.TotalVulnerabilitySurface,
		o.TotalMigrations, o.TotalMigrationDuration, o.MeanOfStepMeanDurations,
		o.MaxOfStepMaxDurations,
	}}
}

func stepRows(result maintenance.Result) [][]any {
	rows := make([][]any, 0, len(result.Steps))
	for _, s := range result.Steps {
		rows = append(rows, []any{
			s.Step, s.Now, s.VulnerabilitySurface, s.ConsolidationRate, s.OccupationRate,
			s.MigrationCount, s.MigrationDurationSum, s.MigrationDurationMin,
			s.MigrationDurationMax, s.MigrationDurationMean,
		})
	}
	return rows
}

// WriteCSV renders only "Metrics By Maintenance Step" as CSV, for
// collaborators that want the per-step series without a spreadsheet
// dependency.
func WriteCSV(w io.Writer, result maintenance.Result) error {
	if _, err := fmt.Fprintln(w, strings.Join(stepHeader, ",")); err != nil {
		return err
	}
	for _, row := range stepRows(result) {
		fields := make([]string, len(row))
		for i, v := range row {
			fields[i] = fmt.Sprintf("%v", v)
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, ",")); err != nil {
			return err
		}
	}
	return nil
}

// Summarize renders a colorized, human-readable run summary to w, the text
// counterpart to simulator.py:show_results in the original implementation.
func Summarize(w io.Writer, strategyName string, result maintenance.Result) {
	o := result.Overall

	bold := color.New(color.Bold)
	bold.Fprintf(w, "maintenance strategy: %s\n", strategyName)
	fmt.Fprintf(w, "  run id:                     %s\n", o.RunID)
	fmt.Fprintf(w, "  maintenance duration:       %d ticks\n", o.MaintenanceDuration)
	fmt.Fprintf(w, "  total vulnerability surface: %d\n", o.TotalVulnerabilitySurface)
	fmt.Fprintf(w, "  total migrations:           %d\n", o.TotalMigrations)
	fmt.Fprintf(w, "  total migration duration:   %d\n", o.TotalMigrationDuration)
	fmt.Fprintf(w, "  mean of step mean durations: %.2f\n", o.MeanOfStepMeanDurations)
	fmt.Fprintf(w, "  max of step max durations:  %d\n", o.MaxOfStepMaxDurations)

	green := color.New(color.FgGreen)
	fmt.Fprintln(w)
	green.Fprintf(w, "%-6s %-8s %-10s %-10s %-10s %-10s\n", "step", "now", "vuln_surf", "consol%", "occup%", "migrations")
	for _, s := range result.Steps {
		fmt.Fprintf(w, "%-6d %-8d %-10d %-10.1f %-10.1f %-10d\n",
			s.Step, s.Now, s.VulnerabilitySurface, s.ConsolidationRate, s.OccupationRate, s.MigrationCount)
	}
}
