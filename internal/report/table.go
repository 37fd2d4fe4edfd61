// Package report formats the run index as plain-text tables.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tuireach/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

// RunHeaders are the column titles of RunRow.
var RunHeaders = []string{"ID", "Prefix", "Started", "Duration", "Size", "Sessions", "Trials", "Status"}

// TrialHeaders are the column titles of TrialRow.
var TrialHeaders = []string{"Session", "Trial", "Duration", "Reason", "Samples", "Rotation", "Direction", "File"}

// RunsTable formats runs, one per line after a header.
func RunsTable(runs []model.RunRecord) []string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, RunRow(r))
	}
	return formatTable(RunHeaders, rows, map[int]bool{3: true, 5: true, 6: true})
}

// TrialsTable formats the trials of one run.
func TrialsTable(trials []model.TrialRecord) []string {
	rows := make([][]string, 0, len(trials))
	for _, t := range trials {
		rows = append(rows, TrialRow(t))
	}
	return formatTable(TrialHeaders, rows, map[int]bool{0: true, 1: true, 2: true, 4: true, 5: true, 6: true})
}

// RunRow renders the cells of one run.
func RunRow(r model.RunRecord) []string {
	return []string{
		ShortID(r.ID),
		r.Prefix,
		r.StartedAt.Local().Format(timeLayout),
		runDuration(r),
		fmt.Sprintf("%.0fx%.0f", r.Width, r.Height),
		fmt.Sprintf("%d", r.Sessions),
		fmt.Sprintf("%d", r.Trials),
		r.Status,
	}
}

// TrialRow renders the cells of one trial.
func TrialRow(t model.TrialRecord) []string {
	rotation := "-"
	if t.Perturbed {
		rotation = fmt.Sprintf("%g°", t.AngleDeg)
	}
	return []string{
		fmt.Sprintf("%d", t.Session),
		fmt.Sprintf("%d", t.Trial),
		formatDuration(t.EndedAt.Sub(t.StartedAt)),
		t.Reason.String(),
		fmt.Sprintf("%d", t.Samples),
		rotation,
		fmt.Sprintf("%g°", t.TargetAngleDeg),
		t.Path,
	}
}

// DisplayWidth is the terminal column width of value.
func DisplayWidth(value string) int {
	return displayWidth(value)
}

// ShortID trims a run id to its first block.
func ShortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func runDuration(r model.RunRecord) string {
	if r.EndedAt == nil {
		return "-"
	}
	return formatDuration(r.EndedAt.Sub(r.StartedAt))
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = displayWidth(header)
	}
	for _, row := range rows {
		for i := 0; i < colCount; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if w := displayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, rightAlignCols))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	var b strings.Builder
	for i := 0; i < len(widths); i++ {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(padCell(cell, widths[i], rightAlignCols[i]))
	}
	return strings.TrimRight(b.String(), " ")
}

func padCell(value string, width int, rightAlign bool) string {
	valueWidth := displayWidth(value)
	if valueWidth >= width {
		return value
	}
	padding := width - valueWidth
	if rightAlign {
		return strings.Repeat(" ", padding) + value
	}
	return value + strings.Repeat(" ", padding)
}

func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}
