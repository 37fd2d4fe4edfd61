// Package tui provides the Bubble Tea experiment screen: it feeds mouse
// motion to the controller and draws the controller's markers on the cell
// grid.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/tuireach/internal/controller"
	"github.com/verte-zerg/tuireach/internal/geometry"
	"github.com/verte-zerg/tuireach/internal/model"
)

const frameInterval = time.Second / 60

// Experiment is the controller surface the screen drives.
type Experiment interface {
	Initialize(size geometry.Size)
	MouseMove(raw geometry.Point)
	BeginExperiment()
	Abort()
	Frame() controller.Snapshot
}

type frameMsg time.Time

// Model implements the Bubble Tea experiment UI.
type Model struct {
	exp     Experiment
	display model.DisplayConfig
	log     *zap.Logger

	keys keyMap
	help help.Model

	width  int
	height int
	canvas canvas
	snap   controller.Snapshot
}

var (
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

// NewModel constructs the experiment screen for exp.
func NewModel(exp Experiment, display model.DisplayConfig, log *zap.Logger) *Model {
	if log == nil {
		log = zap.NewNop()
	}
	return &Model{
		exp:     exp,
		display: display,
		log:     log.Named("tui"),
		keys:    defaultKeyMap(),
		help:    help.New(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return frameTick()
}

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.MouseMsg:
		if m.canvas.cols > 0 {
			m.exp.MouseMove(m.canvas.toPixel(msg.X, msg.Y))
		}
		return m, nil
	case frameMsg:
		m.snap = m.exp.Frame()
		return m, frameTick()
	case tea.KeyMsg:
		if m.snap.State == controller.StateFinished {
			return m, tea.Quit
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.exp.Abort()
			m.log.Info("aborted from keyboard")
			return m, tea.Quit
		case key.Matches(msg, m.keys.Begin):
			m.exp.BeginExperiment()
			return m, nil
		}
	}
	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width
	rows := height - 1
	if rows < 1 {
		rows = 1
	}
	m.canvas = canvas{
		cols:  width,
		rows:  rows,
		cellW: m.display.CellWidthPx,
		cellH: m.display.CellHeightPx,
	}
	m.exp.Initialize(m.canvas.size())
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.snap.State == controller.StateFinished {
		msg := doneStyle.Render("Experiment finished. Press any key to exit.")
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, msg)
	}
	lines := render(paint(m.snap.Markers, m.canvas))
	footer := lipgloss.Place(m.width, 1, lipgloss.Left, lipgloss.Center, m.renderFooter())
	return strings.Join(lines, "\n") + "\n" + footer
}

func (m *Model) renderFooter() string {
	status := statusStyle.Render(statusLine(m.snap))
	return status + "  " + footerStyle.Render(m.help.View(m.keys))
}

func statusLine(s controller.Snapshot) string {
	progress := fmt.Sprintf("Session %d/%d · Trial %d/%d", s.Session, s.Sessions, s.Trial, s.Trials)
	switch {
	case !s.Started:
		return progress + " · press space to begin"
	case s.State == controller.StateResting:
		return fmt.Sprintf("%s · rest %.1fs", progress, s.RestRemaining.Seconds())
	case s.State == controller.StateRecording:
		return progress + " · recording"
	default:
		return progress + " · move to the origin"
	}
}
