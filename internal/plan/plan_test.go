package plan

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tuireach/internal/model"
)

func baseConfig() model.Config {
	return model.Config{
		SamplingHz:           500,
		TrialsPerSession:     []int{2, 3},
		PerturbationSessions: []bool{false, true},
		FeedbackSessions:     []bool{true, false},
		PerturbationDegree:   20,
		RestInterval:         time.Second,
		StationarityWindow:   10,
		StationarityTolPx:    1,
		TargetAnglesDeg:      []float64{0, 90},
		Seed:                 3,
	}
}

func TestBuildCopiesSchedule(t *testing.T) {
	p, err := Build(baseConfig())
	require.NoError(t, err)

	assert.Equal(t, 2, p.Sessions())
	assert.Equal(t, 2, p.TrialsIn(1))
	assert.Equal(t, 3, p.TrialsIn(2))
	assert.Equal(t, 0, p.TrialsIn(3))
	assert.False(t, p.Perturbed(1))
	assert.True(t, p.Perturbed(2))
	assert.True(t, p.FeedbackVisible(1))
	assert.False(t, p.FeedbackVisible(2))
	assert.False(t, p.FeedbackVisible(0))
	assert.Equal(t, 5, p.TotalTrials())
	assert.Equal(t, 2*time.Millisecond, p.SampleInterval())
	assert.Equal(t, []float64{0, 90, 0}, []float64{p.TargetAngle(2, 0), p.TargetAngle(2, 1), p.TargetAngle(2, 2)})
}

func TestBuildIsImmutable(t *testing.T) {
	cfg := baseConfig()
	p, err := Build(cfg)
	require.NoError(t, err)

	cfg.TrialsPerSession[0] = 99
	cfg.PerturbationSessions[0] = true
	schedule := p.TrialsPerSession()
	schedule[1] = 42

	assert.Equal(t, 2, p.TrialsIn(1))
	assert.False(t, p.Perturbed(1))
	assert.Equal(t, 3, p.TrialsIn(2))
}

func TestBuildDefaultsFeedbackToVisible(t *testing.T) {
	cfg := baseConfig()
	cfg.FeedbackSessions = nil
	p, err := Build(cfg)
	require.NoError(t, err)
	assert.True(t, p.FeedbackVisible(1))
	assert.True(t, p.FeedbackVisible(2))
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cases := map[string]func(*model.Config){
		"no sessions":          func(c *model.Config) { c.TrialsPerSession = nil },
		"perturbation length":  func(c *model.Config) { c.PerturbationSessions = []bool{true} },
		"feedback length":      func(c *model.Config) { c.FeedbackSessions = []bool{true, true, true} },
		"zero trials":          func(c *model.Config) { c.TrialsPerSession = []int{2, 0} },
		"zero sampling":        func(c *model.Config) { c.SamplingHz = 0 },
		"window too small":     func(c *model.Config) { c.StationarityWindow = 1 },
		"negative tolerance":   func(c *model.Config) { c.StationarityTolPx = -1 },
		"negative rest":        func(c *model.Config) { c.RestInterval = -time.Millisecond },
		"missing target angle": func(c *model.Config) { c.TargetAnglesDeg = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := baseConfig()
			mutate(&cfg)
			p, err := Build(cfg)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestShuffledTargetsUseEveryAngle(t *testing.T) {
	cfg := baseConfig()
	cfg.TrialsPerSession = []int{4}
	cfg.PerturbationSessions = []bool{true}
	cfg.FeedbackSessions = nil
	cfg.ShuffleTargets = true
	p, err := Build(cfg)
	require.NoError(t, err)

	seen := map[float64]int{}
	for i := 0; i < 4; i++ {
		seen[p.TargetAngle(1, i)]++
	}
	assert.Equal(t, map[float64]int{0: 2, 90: 2}, seen)
	assert.Equal(t, 0.0, p.TargetAngle(1, 4))
}
