package controller

import (
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/tuireach/internal/geometry"
	"github.com/verte-zerg/tuireach/internal/model"
)

// transition collects the side effects of a state change so they can run
// after the lock is released.
type transition struct {
	events   []Event
	trial    *model.Trial
	finished bool
}

// evaluate applies at most one transition rule. Caller holds mu.
func (c *Controller) evaluate(now time.Time) *transition {
	if !c.initialized || c.state.finished {
		return nil
	}
	feedback := c.feedbackMarker()
	switch {
	case c.phase() == StateWaitingAtOrigin && c.state.started && geometry.OverlapsCenter(&feedback, c.origin):
		return c.startRecording(now)
	case c.state.recording && geometry.OverlapsCenter(&feedback, c.target):
		return c.stopRecording(now, model.StopTarget)
	case c.state.recording && c.rec.Stationary(c.plan.StationarityTolerance()) && !c.rawOverlapsOrigin():
		return c.stopRecording(now, model.StopStationary)
	}
	return nil
}

func (c *Controller) startRecording(now time.Time) *transition {
	c.state.recording = true
	c.cursor.transform.Enabled = c.plan.Perturbed(c.state.session)
	c.updateFeedback()
	c.rec.Reset()
	c.recordStart = now
	if c.display.SyncMarker && c.display.SyncFlash > 0 {
		c.syncUntil = now.Add(c.display.SyncFlash)
	}
	return &transition{events: []Event{{
		Kind:    EventStart,
		At:      now,
		Session: c.state.session,
		Trial:   c.state.trial + 1,
	}}}
}

// stopRecording ends the active trial and, unless aborted, advances the
// schedule. Caller holds mu.
func (c *Controller) stopRecording(now time.Time, reason model.StopReason) *transition {
	c.state.recording = false
	samples := c.rec.Drain()
	c.rec.Reset()

	perturbed := c.cursor.transform.Enabled
	c.cursor.transform.Enabled = false
	c.updateFeedback()
	angle := 0.0
	if perturbed {
		angle = c.plan.Degree()
	}
	trial := &model.Trial{
		Session:        c.state.session,
		Trial:          c.state.trial + 1,
		Samples:        samples,
		StartedAt:      c.recordStart,
		EndedAt:        now,
		Reason:         reason,
		Perturbed:      perturbed,
		AngleDeg:       angle,
		TargetAngleDeg: c.plan.TargetAngle(c.state.session, c.state.trial),
	}
	tr := &transition{
		events: []Event{{
			Kind:    EventStop,
			At:      now,
			Session: trial.Session,
			Trial:   trial.Trial,
		}},
		trial: trial,
	}
	if reason != model.StopAborted {
		tr.finished = c.advance(now)
	}
	return tr
}

// advance moves to the next trial and reports whether the schedule is
// exhausted. Caller holds mu.
func (c *Controller) advance(now time.Time) bool {
	visible := c.plan.FeedbackVisible(c.state.session)
	c.state.trial++
	if c.state.trial >= c.plan.TrialsIn(c.state.session) {
		c.state.trial = 0
		c.state.session++
	}
	if c.state.session > c.plan.Sessions() {
		c.state.finished = true
		return true
	}
	c.placeTarget()
	if rest := c.plan.RestInterval(); rest > 0 {
		c.state.resting = true
		c.restUntil = now.Add(rest)
		c.feedbackArmed = visible
	}
	return false
}

// expireRest ends the rest period once its deadline has passed. Caller holds mu.
func (c *Controller) expireRest(now time.Time) {
	if !c.state.resting || now.Before(c.restUntil) {
		return
	}
	c.state.resting = false
	c.feedbackArmed = true
}

func (c *Controller) feedbackMarker() geometry.Marker {
	return geometry.Circle(c.cursor.feedback, c.display.CursorRadius, geometry.ColorFeedback)
}

func (c *Controller) rawMarker() geometry.Marker {
	return geometry.Circle(c.cursor.raw, c.display.CursorRadius, geometry.ColorRawCursor)
}

func (c *Controller) rawOverlapsOrigin() bool {
	raw := c.rawMarker()
	return geometry.Overlaps(&raw, c.origin)
}

// apply runs persistence and listeners for tr. Must be called without mu.
func (c *Controller) apply(now time.Time, tr *transition) {
	if tr == nil {
		return
	}
	c.emit(tr.events...)
	if tr.trial != nil {
		var err error
		if c.persist != nil {
			err = c.persist.WriteTrial(*tr.trial)
		}
		if err != nil {
			c.log.Warn("trial not written",
				zap.Int("session", tr.trial.Session),
				zap.Int("trial", tr.trial.Trial),
				zap.Error(err))
		}
		c.log.Info("trial saved",
			zap.Int("session", tr.trial.Session),
			zap.Int("trial", tr.trial.Trial),
			zap.Stringer("reason", tr.trial.Reason),
			zap.Int("samples", len(tr.trial.Samples)))
		c.emit(Event{
			Kind:    EventTrialSaved,
			At:      now,
			Session: tr.trial.Session,
			Trial:   tr.trial.Trial,
			Saved:   tr.trial,
			Err:     err,
		})
	}
	if tr.finished {
		c.log.Info("experiment finished")
		c.emit(Event{Kind: EventFinished, At: now})
	}
}
