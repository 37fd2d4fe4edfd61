// Package runsui provides the Bubble Tea browser over the run index.
package runsui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuireach/internal/model"
	"github.com/verte-zerg/tuireach/internal/report"
)

const (
	viewRuns = iota
	viewTrials
)

var (
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Index is the run index the browser reads.
type Index interface {
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
	ListTrials(ctx context.Context, runID string) ([]model.TrialRecord, error)
}

// Model implements the Bubble Tea run browser.
type Model struct {
	index Index
	limit int

	runs   []model.RunRecord
	trials []model.TrialRecord
	runID  string

	view   int
	table  table.Model
	errMsg string

	width  int
	height int
}

// NewModel constructs a browser listing at most limit runs (0 for all).
func NewModel(index Index, limit int) *Model {
	m := &Model{index: index, limit: limit}
	m.table = buildTable(report.RunHeaders, nil)
	m.loadRuns()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeTable()
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			if m.view == viewRuns {
				m.openSelectedRun()
			}
			return m, nil
		case "esc", "backspace":
			if m.view == viewTrials {
				m.view = viewRuns
				m.errMsg = ""
				m.rebuildTable()
			}
			return m, nil
		case "r":
			m.reload()
			return m, nil
		case "g", "home":
			m.table.GotoTop()
			return m, nil
		case "G", "end":
			m.table.GotoBottom()
			return m, nil
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) reload() {
	if m.view == viewTrials {
		m.loadTrials(m.runID)
		return
	}
	m.loadRuns()
}

func (m *Model) loadRuns() {
	runs, err := m.index.ListRuns(context.Background(), m.limit)
	if err != nil {
		m.errMsg = fmt.Sprintf("failed to load runs: %v", err)
		return
	}
	m.errMsg = ""
	m.runs = runs
	m.view = viewRuns
	m.rebuildTable()
}

func (m *Model) loadTrials(runID string) {
	trials, err := m.index.ListTrials(context.Background(), runID)
	if err != nil {
		m.errMsg = fmt.Sprintf("failed to load trials: %v", err)
		return
	}
	m.errMsg = ""
	m.runID = runID
	m.trials = trials
	m.view = viewTrials
	m.rebuildTable()
}

func (m *Model) openSelectedRun() {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.runs) {
		return
	}
	m.loadTrials(m.runs[idx].ID)
}

func (m *Model) rebuildTable() {
	var headers []string
	var rows []table.Row
	switch m.view {
	case viewTrials:
		headers = report.TrialHeaders
		for _, t := range m.trials {
			rows = append(rows, report.TrialRow(t))
		}
	default:
		headers = report.RunHeaders
		for _, r := range m.runs {
			rows = append(rows, report.RunRow(r))
		}
	}
	m.table = buildTable(headers, rows)
	m.resizeTable()
}

func (m *Model) resizeTable() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.table.SetWidth(m.width)
	m.table.SetHeight(maxInt(1, bodyHeight-1))
}

func buildTable(headers []string, rows []table.Row) table.Model {
	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		width := report.DisplayWidth(h)
		for _, row := range rows {
			if i < len(row) {
				width = maxInt(width, report.DisplayWidth(row[i]))
			}
		}
		columns[i] = table.Column{Title: h, Width: width}
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
	)
	t.SetStyles(tableStyles())
	return t
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) renderHeader() string {
	title := fmt.Sprintf("Runs (%d)", len(m.runs))
	if m.view == viewTrials {
		title = fmt.Sprintf("Run %s · %d trials", report.ShortID(m.runID), len(m.trials))
	}
	return titleStyle.Render(truncateLine(title, m.width))
}

func (m *Model) renderBody() string {
	switch {
	case m.view == viewRuns && len(m.runs) == 0:
		return "No runs recorded yet."
	case m.view == viewTrials && len(m.trials) == 0:
		return "No trials saved for this run."
	default:
		return tableMutedStyle.Render(m.table.View())
	}
}

func (m *Model) renderFooter() string {
	help := "Scroll: up/down  Open: enter  Reload: r  Quit: q"
	if m.view == viewTrials {
		help = "Scroll: up/down  Back: esc  Reload: r  Quit: q"
	}
	out := headerStyle.Render(truncateLine(help, m.width))
	if m.errMsg != "" {
		out += "\n" + errorStyle.Render(truncateLine(m.errMsg, m.width))
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
