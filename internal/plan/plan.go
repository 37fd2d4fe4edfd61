// Package plan builds the immutable session schedule of an experiment.
package plan

import (
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/tuireach/internal/generator"
	"github.com/verte-zerg/tuireach/internal/model"
)

// ErrInvalid marks configuration errors detected while building a plan.
var ErrInvalid = errors.New("invalid session plan")

// Plan is the precomputed schedule. It is never mutated after Build.
type Plan struct {
	numberOfSessions  int
	trialsPerSession  []int
	perturbation      []bool
	feedbackVisible   []bool
	targetAngles      [][]float64
	degree            float64
	samplingHz        int
	restInterval      time.Duration
	windowSize        int
	tolerancePx       float64
	distinctAnglesDeg []float64
}

// Build validates cfg and returns the session plan.
func Build(cfg model.Config) (*Plan, error) {
	sessions := len(cfg.TrialsPerSession)
	if sessions == 0 {
		return nil, fmt.Errorf("%w: at least one session is required", ErrInvalid)
	}
	feedback := cfg.FeedbackSessions
	if len(feedback) == 0 {
		feedback = make([]bool, sessions)
		for i := range feedback {
			feedback[i] = true
		}
	}
	if len(cfg.PerturbationSessions) != sessions {
		return nil, fmt.Errorf("%w: %d perturbation flags for %d sessions", ErrInvalid, len(cfg.PerturbationSessions), sessions)
	}
	if len(feedback) != sessions {
		return nil, fmt.Errorf("%w: %d feedback flags for %d sessions", ErrInvalid, len(feedback), sessions)
	}
	for i, n := range cfg.TrialsPerSession {
		if n <= 0 {
			return nil, fmt.Errorf("%w: session %d has %d trials", ErrInvalid, i+1, n)
		}
	}
	if cfg.SamplingHz <= 0 {
		return nil, fmt.Errorf("%w: sampling frequency must be > 0", ErrInvalid)
	}
	if cfg.StationarityWindow < 2 {
		return nil, fmt.Errorf("%w: stationarity window must be >= 2", ErrInvalid)
	}
	if cfg.StationarityTolPx < 0 {
		return nil, fmt.Errorf("%w: stationarity tolerance must be >= 0", ErrInvalid)
	}
	if cfg.RestInterval < 0 {
		return nil, fmt.Errorf("%w: rest interval must be >= 0", ErrInvalid)
	}
	angles := cfg.TargetAnglesDeg
	if len(angles) == 0 {
		return nil, fmt.Errorf("%w: at least one target angle is required", ErrInvalid)
	}

	gen := generator.New(cfg.Seed)
	targets := make([][]float64, sessions)
	for i, n := range cfg.TrialsPerSession {
		if cfg.ShuffleTargets {
			targets[i] = gen.Shuffled(angles, n)
		} else {
			targets[i] = gen.Cycle(angles, n)
		}
	}

	return &Plan{
		numberOfSessions:  sessions,
		trialsPerSession:  append([]int(nil), cfg.TrialsPerSession...),
		perturbation:      append([]bool(nil), cfg.PerturbationSessions...),
		feedbackVisible:   append([]bool(nil), feedback...),
		targetAngles:      targets,
		degree:            cfg.PerturbationDegree,
		samplingHz:        cfg.SamplingHz,
		restInterval:      cfg.RestInterval,
		windowSize:        cfg.StationarityWindow,
		tolerancePx:       cfg.StationarityTolPx,
		distinctAnglesDeg: append([]float64(nil), angles...),
	}, nil
}

// Sessions returns the number of sessions.
func (p *Plan) Sessions() int { return p.numberOfSessions }

// TrialsIn returns the trial count of a 1-based session, or 0 when out of range.
func (p *Plan) TrialsIn(session int) int {
	if !p.valid(session) {
		return 0
	}
	return p.trialsPerSession[session-1]
}

// Perturbed reports whether a 1-based session applies the rotation.
func (p *Plan) Perturbed(session int) bool {
	return p.valid(session) && p.perturbation[session-1]
}

// FeedbackVisible reports whether feedback is shown while recording.
func (p *Plan) FeedbackVisible(session int) bool {
	return p.valid(session) && p.feedbackVisible[session-1]
}

// TargetAngle returns the target direction in degrees for a 1-based session
// and 0-based trial index.
func (p *Plan) TargetAngle(session, trial int) float64 {
	if !p.valid(session) {
		return 0
	}
	seq := p.targetAngles[session-1]
	if trial < 0 || trial >= len(seq) {
		return 0
	}
	return seq[trial]
}

// TotalTrials sums trials over all sessions.
func (p *Plan) TotalTrials() int {
	total := 0
	for _, n := range p.trialsPerSession {
		total += n
	}
	return total
}

func (p *Plan) Degree() float64                { return p.degree }
func (p *Plan) SamplingHz() int                { return p.samplingHz }
func (p *Plan) RestInterval() time.Duration    { return p.restInterval }
func (p *Plan) StationarityWindow() int        { return p.windowSize }
func (p *Plan) StationarityTolerance() float64 { return p.tolerancePx }

// SampleInterval is the sampling period.
func (p *Plan) SampleInterval() time.Duration {
	return time.Second / time.Duration(p.samplingHz)
}

// TrialsPerSession returns a copy of the per-session trial counts.
func (p *Plan) TrialsPerSession() []int {
	return append([]int(nil), p.trialsPerSession...)
}

// PerturbationSchedule returns a copy of the per-session perturbation flags.
func (p *Plan) PerturbationSchedule() []bool {
	return append([]bool(nil), p.perturbation...)
}

// FeedbackSchedule returns a copy of the per-session feedback flags.
func (p *Plan) FeedbackSchedule() []bool {
	return append([]bool(nil), p.feedbackVisible...)
}

// TargetAngles returns the configured target directions.
func (p *Plan) TargetAngles() []float64 {
	return append([]float64(nil), p.distinctAnglesDeg...)
}

func (p *Plan) valid(session int) bool {
	return session >= 1 && session <= p.numberOfSessions
}
