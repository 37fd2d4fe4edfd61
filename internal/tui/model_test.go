package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tuireach/internal/controller"
	"github.com/verte-zerg/tuireach/internal/geometry"
	"github.com/verte-zerg/tuireach/internal/model"
)

type fakeExperiment struct {
	sizes  []geometry.Size
	moves  []geometry.Point
	begun  int
	aborts int
	snap   controller.Snapshot
}

func (f *fakeExperiment) Initialize(size geometry.Size) { f.sizes = append(f.sizes, size) }
func (f *fakeExperiment) MouseMove(p geometry.Point)    { f.moves = append(f.moves, p) }
func (f *fakeExperiment) BeginExperiment()              { f.begun++ }
func (f *fakeExperiment) Abort()                        { f.aborts++ }
func (f *fakeExperiment) Frame() controller.Snapshot    { return f.snap }

func testDisplay() model.DisplayConfig {
	return model.DisplayConfig{CellWidthPx: 8, CellHeightPx: 16}
}

func TestWindowSizeInitializesPixelSpace(t *testing.T) {
	exp := &fakeExperiment{}
	m := NewModel(exp, testDisplay(), nil)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	if len(exp.sizes) != 1 {
		t.Fatalf("expected one Initialize call, got %d", len(exp.sizes))
	}
	want := geometry.Size{Width: 640, Height: 368}
	if exp.sizes[0] != want {
		t.Fatalf("expected %v, got %v", want, exp.sizes[0])
	}
}

func TestMouseMapsCellCenters(t *testing.T) {
	exp := &fakeExperiment{}
	m := NewModel(exp, testDisplay(), nil)
	m.Update(tea.MouseMsg{X: 1, Y: 1})
	if len(exp.moves) != 0 {
		t.Fatalf("mouse before first size should be ignored")
	}

	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m.Update(tea.MouseMsg{X: 10, Y: 5, Action: tea.MouseActionMotion})
	if len(exp.moves) != 1 {
		t.Fatalf("expected one move, got %d", len(exp.moves))
	}
	want := geometry.Point{X: 84, Y: 88}
	if exp.moves[0] != want {
		t.Fatalf("expected %v, got %v", want, exp.moves[0])
	}
}

func TestKeys(t *testing.T) {
	exp := &fakeExperiment{}
	m := NewModel(exp, testDisplay(), nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if exp.begun != 1 || cmd != nil {
		t.Fatalf("space should begin the experiment (begun=%d)", exp.begun)
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if exp.aborts != 1 {
		t.Fatalf("q should abort, got %d aborts", exp.aborts)
	}
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestFinishedAnyKeyExits(t *testing.T) {
	exp := &fakeExperiment{snap: controller.Snapshot{State: controller.StateFinished}}
	m := NewModel(exp, testDisplay(), nil)
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 10})
	m.Update(frameMsg(time.Now()))

	if !strings.Contains(m.View(), "Experiment finished") {
		t.Fatalf("expected completion message")
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
	if exp.aborts != 0 {
		t.Fatalf("finished run should not abort")
	}
}

func TestStatusLine(t *testing.T) {
	base := controller.Snapshot{Session: 1, Sessions: 2, Trial: 3, Trials: 30}

	cases := []struct {
		name string
		snap func(s controller.Snapshot) controller.Snapshot
		want string
	}{
		{"not started", func(s controller.Snapshot) controller.Snapshot { return s }, "press space"},
		{"waiting", func(s controller.Snapshot) controller.Snapshot { s.Started = true; return s }, "move to the origin"},
		{"recording", func(s controller.Snapshot) controller.Snapshot {
			s.Started = true
			s.State = controller.StateRecording
			return s
		}, "recording"},
		{"resting", func(s controller.Snapshot) controller.Snapshot {
			s.Started = true
			s.State = controller.StateResting
			s.RestRemaining = 400 * time.Millisecond
			return s
		}, "rest 0.4s"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := statusLine(tc.snap(base))
			if !strings.Contains(out, "Session 1/2 · Trial 3/30") {
				t.Fatalf("missing progress: %s", out)
			}
			if !strings.Contains(out, tc.want) {
				t.Fatalf("expected %q in %s", tc.want, out)
			}
		})
	}
}
