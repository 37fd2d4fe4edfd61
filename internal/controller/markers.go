package controller

import (
	"time"

	"github.com/verte-zerg/tuireach/internal/geometry"
)

const syncPatchHalf = 25

// Snapshot is what the renderer needs for one frame.
type Snapshot struct {
	State         State
	Started       bool
	Session       int
	Sessions      int
	Trial         int
	Trials        int
	RestRemaining time.Duration
	SyncActive    bool
	Markers       []geometry.Marker
}

// snapshot builds the marker list in draw order. Caller holds mu.
func (c *Controller) snapshot(now time.Time) Snapshot {
	phase := c.phase()
	snap := Snapshot{
		State:    phase,
		Started:  c.state.started,
		Session:  c.state.session,
		Sessions: c.plan.Sessions(),
		Trial:    c.state.trial + 1,
		Trials:   c.plan.TrialsIn(c.state.session),
	}
	if phase == StateResting {
		snap.RestRemaining = c.restUntil.Sub(now)
	}
	if !c.initialized || phase == StateFinished {
		return snap
	}

	markers := make([]geometry.Marker, 0, 5)
	markers = append(markers, *c.origin, *c.target)
	if c.display.ShowRawCursor {
		markers = append(markers, c.rawMarker())
	}
	if c.feedbackVisible(phase) {
		markers = append(markers, c.feedbackMarker())
	}
	if c.display.SyncMarker {
		snap.SyncActive = c.syncLit(now)
		color := geometry.ColorSyncOff
		if snap.SyncActive {
			color = geometry.ColorSyncOn
		}
		markers = append(markers, geometry.Marker{
			Center:     geometry.Point{X: syncPatchHalf, Y: c.size.Height - syncPatchHalf},
			HalfWidth:  syncPatchHalf,
			HalfHeight: syncPatchHalf,
			Shape:      geometry.Rectangle,
			Color:      color,
		})
	}
	snap.Markers = markers
	return snap
}

// syncLit reports whether the sync patch is flashing. Caller holds mu.
func (c *Controller) syncLit(now time.Time) bool {
	return c.display.SyncMarker && now.Before(c.syncUntil)
}

// feedbackVisible decides whether the feedback marker is drawn. While
// resting it follows the flag of the session whose trial just ended.
func (c *Controller) feedbackVisible(phase State) bool {
	switch phase {
	case StateWaitingAtOrigin, StateResting:
		return c.feedbackArmed
	case StateRecording:
		return c.plan.FeedbackVisible(c.state.session)
	default:
		return false
	}
}
