// Package controller runs the reaching experiment state machine: it perturbs
// the live pointer, gates trial start and stop on marker collisions, samples
// the trajectory at a fixed rate and advances the session schedule.
package controller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/tuireach/internal/clock"
	"github.com/verte-zerg/tuireach/internal/geometry"
	"github.com/verte-zerg/tuireach/internal/model"
	"github.com/verte-zerg/tuireach/internal/perturbation"
	"github.com/verte-zerg/tuireach/internal/plan"
	"github.com/verte-zerg/tuireach/internal/recorder"
)

// State is the phase of the experiment.
type State int

const (
	StateWaitingAtOrigin State = iota
	StateRecording
	StateResting
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateWaitingAtOrigin:
		return "waiting"
	case StateRecording:
		return "recording"
	case StateResting:
		return "resting"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Persister stores run metadata and completed trials.
type Persister interface {
	WriteHeader(h model.Header) error
	WriteTrial(t model.Trial) error
}

// Options configures a Controller.
type Options struct {
	Display   model.DisplayConfig
	Persister Persister
	Clock     clock.Clock
	Logger    *zap.Logger
}

type cursorState struct {
	raw       geometry.Point
	feedback  geometry.Point
	transform perturbation.Transform
}

type experimentState struct {
	session   int
	trial     int
	recording bool
	resting   bool
	started   bool
	finished  bool
}

// Controller owns the cursor and experiment state. All of it is guarded by mu;
// persistence and listeners run after mu is released.
type Controller struct {
	plan    *plan.Plan
	display model.DisplayConfig
	persist Persister
	clock   clock.Clock
	log     *zap.Logger

	listenersMu sync.RWMutex
	listeners   []Listener

	mu            sync.Mutex
	initialized   bool
	size          geometry.Size
	cursor        cursorState
	state         experimentState
	origin        *geometry.Marker
	target        *geometry.Marker
	rec           *recorder.Recorder
	recordStart   time.Time
	restUntil     time.Time
	syncUntil     time.Time
	feedbackArmed bool
}

// New builds a controller for p. Markers and cursor state are created by
// Initialize.
func New(p *plan.Plan, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	capacity := p.SamplingHz() * 10
	return &Controller{
		plan:          p,
		display:       opts.Display,
		persist:       opts.Persister,
		clock:         opts.Clock,
		log:           opts.Logger.Named("controller"),
		rec:           recorder.New(p.StationarityWindow(), capacity),
		state:         experimentState{session: 1},
		feedbackArmed: true,
	}
}

// Initialize places the origin and first target on a display of the given
// size and writes the run header. Later calls are ignored.
func (c *Controller) Initialize(size geometry.Size) {
	c.mu.Lock()
	if c.initialized || size.Empty() {
		c.mu.Unlock()
		return
	}
	c.initialized = true
	c.size = size
	c.placeMarkers()
	c.cursor.raw = size.Center()
	c.cursor.transform = perturbation.NewTransform(c.origin.Center, c.plan.Degree(), false)
	c.cursor.feedback = c.cursor.raw
	header := c.header()
	c.mu.Unlock()

	c.log.Info("experiment initialized",
		zap.Float64("width", size.Width),
		zap.Float64("height", size.Height),
		zap.Int("sessions", c.plan.Sessions()),
		zap.Int("trials", c.plan.TotalTrials()))
	if c.persist == nil {
		return
	}
	if err := c.persist.WriteHeader(header); err != nil {
		c.log.Warn("header not written", zap.Error(err))
	}
}

// MouseMove updates the raw pointer position and the derived feedback
// position, clamped to the display.
func (c *Controller) MouseMove(raw geometry.Point) {
	c.mu.Lock()
	c.cursor.raw = raw
	c.updateFeedback()
	c.mu.Unlock()
}

// Tick is the periodic sampling step. It appends the feedback position and
// the sync patch state to the trial buffer and the raw position to the
// stationarity window while recording.
func (c *Controller) Tick() {
	now := c.clock.Now()
	c.mu.Lock()
	c.expireRest(now)
	if c.state.recording {
		c.rec.Record(model.Sample{
			X:       c.cursor.feedback.X,
			Y:       c.cursor.feedback.Y,
			Elapsed: now.Sub(c.recordStart),
			Sync:    c.syncLit(now),
		})
		c.rec.Observe(c.cursor.raw)
	}
	c.mu.Unlock()
}

// BeginExperiment arms the controller. Until it is called no trial starts.
func (c *Controller) BeginExperiment() {
	c.mu.Lock()
	already := c.state.started
	c.state.started = true
	c.mu.Unlock()
	if !already {
		c.log.Info("experiment armed")
	}
}

// Abort ends the experiment. A trial in progress is saved as aborted.
func (c *Controller) Abort() {
	now := c.clock.Now()
	c.mu.Lock()
	if c.state.finished {
		c.mu.Unlock()
		return
	}
	var tr *transition
	if c.state.recording {
		tr = c.stopRecording(now, model.StopAborted)
	} else {
		tr = &transition{}
	}
	c.state.finished = true
	c.state.resting = false
	tr.finished = true
	c.mu.Unlock()

	c.log.Info("experiment aborted")
	c.apply(now, tr)
}

// Frame evaluates the transition rules once and returns the drawable
// snapshot for this frame.
func (c *Controller) Frame() Snapshot {
	now := c.clock.Now()
	c.mu.Lock()
	c.expireRest(now)
	tr := c.evaluate(now)
	snap := c.snapshot(now)
	c.mu.Unlock()

	c.apply(now, tr)
	return snap
}

// Run drives Tick at the plan's sampling frequency until ctx is done. The
// ticker is stopped before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	ticker := c.clock.NewTicker(c.plan.SampleInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			c.Tick()
		}
	}
}

// State returns the current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase()
}

// Progress returns the 1-based session and 0-based trial index.
func (c *Controller) Progress() (session, trial int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.session, c.state.trial
}

// Cursor returns the raw and feedback positions.
func (c *Controller) Cursor() (raw, feedback geometry.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor.raw, c.cursor.feedback
}

// Buffered returns the number of samples in the active trial.
func (c *Controller) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.Len()
}

// Targets returns copies of the origin and target markers, nil before
// Initialize.
func (c *Controller) Targets() (origin, target *geometry.Marker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.origin != nil {
		o := *c.origin
		origin = &o
	}
	if c.target != nil {
		t := *c.target
		target = &t
	}
	return origin, target
}

func (c *Controller) phase() State {
	switch {
	case c.state.finished:
		return StateFinished
	case c.state.recording:
		return StateRecording
	case c.state.resting:
		return StateResting
	default:
		return StateWaitingAtOrigin
	}
}

func (c *Controller) updateFeedback() {
	fb := c.cursor.transform.Apply(c.cursor.raw)
	if c.initialized {
		fb = geometry.Clamp(fb, c.size)
	}
	c.cursor.feedback = fb
}

// placeMarkers lays out the origin. With a single direction the origin sits
// TargetDistance before the screen center and the target as far past it.
// With several directions the origin is the screen center and targets sit
// TargetDistance around it.
func (c *Controller) placeMarkers() {
	center := c.size.Center()
	originCenter := center
	if c.singleDirection() {
		first := c.plan.TargetAngles()[0]
		originCenter = center.Sub(direction(first, c.display.TargetDistance))
	}
	origin := geometry.Circle(originCenter, c.display.TargetRadius, geometry.ColorOrigin)
	c.origin = &origin
	c.placeTarget()
}

func (c *Controller) placeTarget() {
	reach := c.display.TargetDistance
	if c.singleDirection() {
		reach *= 2
	}
	angle := c.plan.TargetAngle(c.state.session, c.state.trial)
	center := c.origin.Center.Add(direction(angle, reach))
	if geometry.Clamp(center, c.size) != center {
		c.log.Warn("target outside display",
			zap.Float64("angle", angle),
			zap.Float64("x", center.X),
			zap.Float64("y", center.Y))
	}
	target := geometry.Circle(center, c.display.TargetRadius, geometry.ColorTarget)
	c.target = &target
}

// singleDirection reports whether every configured target angle is the same.
func (c *Controller) singleDirection() bool {
	angles := c.plan.TargetAngles()
	for _, a := range angles[1:] {
		if a != angles[0] {
			return false
		}
	}
	return true
}

// direction is a screen vector of length r at deg counter-clockwise from the
// positive X axis.
func direction(deg, r float64) geometry.Point {
	return perturbation.Rotate(geometry.Point{X: r}, geometry.Point{}, -perturbation.DegToRad(deg))
}

func (c *Controller) header() model.Header {
	return model.Header{
		CreatedAt:          c.clock.Now(),
		SamplingHz:         c.plan.SamplingHz(),
		MonitorWidth:       c.size.Width,
		MonitorHeight:      c.size.Height,
		TrialsPerSession:   c.plan.TrialsPerSession(),
		Perturbation:       c.plan.PerturbationSchedule(),
		Feedback:           c.plan.FeedbackSchedule(),
		PerturbationDegree: c.plan.Degree(),
		OriginX:            c.origin.Center.X,
		OriginY:            c.origin.Center.Y,
		TargetX:            c.target.Center.X,
		TargetY:            c.target.Center.Y,
		TargetRadius:       c.display.TargetRadius,
		CursorRadius:       c.display.CursorRadius,
		RestInterval:       c.plan.RestInterval(),
		StationarityWindow: c.plan.StationarityWindow(),
		StationarityTolPx:  c.plan.StationarityTolerance(),
		TargetAnglesDeg:    c.plan.TargetAngles(),
	}
}
