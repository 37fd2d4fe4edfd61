// Package model defines shared data structures.
package model

import "time"

// Config holds the resolved experiment settings.
type Config struct {
	SamplingHz           int
	TrialsPerSession     []int
	PerturbationSessions []bool
	FeedbackSessions     []bool
	PerturbationDegree   float64
	RestInterval         time.Duration
	StationarityWindow   int
	StationarityTolPx    float64
	TargetAnglesDeg      []float64
	ShuffleTargets       bool
	Seed                 int64

	Display DisplayConfig
	Output  OutputConfig
	Trigger TriggerConfig
}

// DisplayConfig describes marker geometry and the terminal cell scale.
type DisplayConfig struct {
	TargetDistance float64
	TargetRadius   float64
	CursorRadius   float64
	CellWidthPx    float64
	CellHeightPx   float64
	ShowRawCursor  bool
	SyncMarker     bool
	SyncFlash      time.Duration
}

// OutputConfig controls where trial files go.
type OutputConfig struct {
	Dir        string
	Prefix     string
	Timestamps bool
	SyncColumn bool
}

// TriggerConfig describes the optional serial trigger line.
type TriggerConfig struct {
	Device    string
	Baud      int
	StartCode byte
	StopCode  byte
}

// StopReason records why a trial ended.
type StopReason int

const (
	StopTarget StopReason = iota + 1
	StopStationary
	StopAborted
)

func (r StopReason) String() string {
	switch r {
	case StopTarget:
		return "target"
	case StopStationary:
		return "stationary"
	case StopAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ParseStopReason is the inverse of StopReason.String.
func ParseStopReason(s string) StopReason {
	switch s {
	case "target":
		return StopTarget
	case "stationary":
		return StopStationary
	case "aborted":
		return StopAborted
	default:
		return 0
	}
}

// Sample is one recorded feedback position. Sync reports whether the sync
// patch was lit when the sample was taken.
type Sample struct {
	X       float64
	Y       float64
	Elapsed time.Duration
	Sync    bool
}

// Trial is a completed trial handed to persistence.
type Trial struct {
	Session        int
	Trial          int
	Samples        []Sample
	StartedAt      time.Time
	EndedAt        time.Time
	Reason         StopReason
	Perturbed      bool
	AngleDeg       float64
	TargetAngleDeg float64
}

// Header is the run metadata written before the first trial.
type Header struct {
	CreatedAt          time.Time
	SamplingHz         int
	MonitorWidth       float64
	MonitorHeight      float64
	TrialsPerSession   []int
	Perturbation       []bool
	Feedback           []bool
	PerturbationDegree float64
	OriginX            float64
	OriginY            float64
	TargetX            float64
	TargetY            float64
	TargetRadius       float64
	CursorRadius       float64
	RestInterval       time.Duration
	StationarityWindow int
	StationarityTolPx  float64
	TargetAnglesDeg    []float64
}

// RunRecord summarizes a stored run.
type RunRecord struct {
	ID        string
	Prefix    string
	StartedAt time.Time
	EndedAt   *time.Time
	Width     float64
	Height    float64
	Sessions  int
	Status    string
	Trials    int
}

// TrialRecord is the stored index entry for a trial file.
type TrialRecord struct {
	RunID          string
	Session        int
	Trial          int
	StartedAt      time.Time
	EndedAt        time.Time
	Reason         StopReason
	Samples        int
	Perturbed      bool
	AngleDeg       float64
	TargetAngleDeg float64
	Path           string
}
