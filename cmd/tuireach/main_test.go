package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/verte-zerg/tuireach/internal/config"
	"github.com/verte-zerg/tuireach/internal/model"
	"github.com/verte-zerg/tuireach/internal/plan"
)

func validConfig() model.Config {
	return model.Config{
		SamplingHz:           500,
		TrialsPerSession:     []int{30},
		PerturbationSessions: []bool{true},
		PerturbationDegree:   20,
		RestInterval:         time.Second,
		StationarityWindow:   250,
		StationarityTolPx:    1,
		TargetAnglesDeg:      []float64{0},
		Display: model.DisplayConfig{
			TargetDistance: 300,
			TargetRadius:   30,
			CursorRadius:   15,
			CellWidthPx:    8,
			CellHeightPx:   16,
		},
		Output: model.OutputConfig{Prefix: "subject1"},
	}
}

func TestValidateConfig(t *testing.T) {
	if err := validateConfig(validConfig()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*model.Config)
		want   string
	}{
		{"sampling", func(c *model.Config) { c.SamplingHz = 0 }, "--sampling-hz"},
		{"no sessions", func(c *model.Config) { c.TrialsPerSession = nil }, "--sessions"},
		{"zero trials", func(c *model.Config) { c.TrialsPerSession = []int{0} }, "--sessions"},
		{"perturbation length", func(c *model.Config) { c.PerturbationSessions = []bool{true, false} }, "--perturbation"},
		{"feedback length", func(c *model.Config) { c.FeedbackSessions = []bool{true, true} }, "--feedback"},
		{"degree", func(c *model.Config) { c.PerturbationDegree = 270 }, "--degree"},
		{"rest", func(c *model.Config) { c.RestInterval = -time.Millisecond }, "--rest-ms"},
		{"window", func(c *model.Config) { c.StationarityWindow = 1 }, "--stationarity-window"},
		{"tolerance", func(c *model.Config) { c.StationarityTolPx = -1 }, "--stationarity-tolerance"},
		{"angles", func(c *model.Config) { c.TargetAnglesDeg = nil }, "--target-angles"},
		{"distance", func(c *model.Config) { c.Display.TargetDistance = 0 }, "--target-distance"},
		{"cell", func(c *model.Config) { c.Display.CellHeightPx = 0 }, "--cell-height"},
		{"prefix", func(c *model.Config) { c.Output.Prefix = " " }, "--prefix"},
		{"prefix separator", func(c *model.Config) { c.Output.Prefix = "a/b" }, "path separators"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := validateConfig(cfg)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateTriggerCodes(t *testing.T) {
	if err := validateTriggerCodes(0, 255); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := validateTriggerCodes(256, 1); err == nil {
		t.Fatalf("expected start code error")
	}
	if err := validateTriggerCodes(1, -1); err == nil {
		t.Fatalf("expected stop code error")
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	var cfg config.FileConfig
	md, err := toml.Decode(defaultConfigTemplate(), &cfg)
	if err != nil {
		t.Fatalf("template does not decode: %v", err)
	}
	if len(md.Keys()) != 5 {
		t.Fatalf("expected only section headers, got %v", md.Keys())
	}

	lines := strings.Split(defaultConfigTemplate(), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimPrefix(line, "# ")
		if strings.HasPrefix(line, "tuireach") || strings.HasPrefix(line, "Uncomment") {
			continue
		}
		kept = append(kept, line)
	}
	if _, err := toml.Decode(strings.Join(kept, "\n"), &cfg); err != nil {
		t.Fatalf("uncommented template does not decode: %v", err)
	}
	if cfg.Experiment.SamplingHz == nil || *cfg.Experiment.SamplingHz != defaultSamplingHz {
		t.Fatalf("sampling-hz not in template")
	}
	if cfg.Trigger.StopCode == nil || *cfg.Trigger.StopCode != defaultStopCode {
		t.Fatalf("stop-code not in template")
	}
}

func TestResolveConfigDefaultsBuildPlan(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	cmd := newRootCmd()

	cfg, err := resolveConfig(cmd)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Output.Dir != config.DefaultOutputDir() {
		t.Fatalf("expected default output dir, got %s", cfg.Output.Dir)
	}
	p, err := plan.Build(cfg)
	if err != nil {
		t.Fatalf("defaults do not build a plan: %v", err)
	}
	if p.TotalTrials() != defaultTrials || p.SamplingHz() != defaultSamplingHz {
		t.Fatalf("unexpected plan: %d trials at %d Hz", p.TotalTrials(), p.SamplingHz())
	}
}

func TestResolveConfigFileUnderFlags(t *testing.T) {
	cfgHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfgHome)
	path := filepath.Join(cfgHome, "tuireach", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data := "[experiment]\nsessions = [5, 5]\nperturbation = [false, true]\ndegree = 30.0\n[output]\nprefix = \"p02\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newRootCmd()
	if err := cmd.Flags().Set("degree", "-15"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(cfg.TrialsPerSession) != 2 || cfg.TrialsPerSession[1] != 5 {
		t.Fatalf("sessions from file not applied: %v", cfg.TrialsPerSession)
	}
	if cfg.PerturbationDegree != -15 {
		t.Fatalf("flag should win over file, got %v", cfg.PerturbationDegree)
	}
	if cfg.Output.Prefix != "p02" {
		t.Fatalf("prefix from file not applied: %s", cfg.Output.Prefix)
	}
}

type failingSyncer struct{}

func (failingSyncer) Write(p []byte) (int, error) { return len(p), nil }
func (failingSyncer) Sync() error                 { return errors.New("sync refused") }

func TestSyncLogReportsFlushFailure(t *testing.T) {
	var buf bytes.Buffer
	prev := errOut
	errOut = &buf
	t.Cleanup(func() { errOut = prev })

	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), failingSyncer{}, zapcore.InfoLevel)
	syncLog(zap.New(core))
	if !strings.Contains(buf.String(), "failed to flush log: sync refused") {
		t.Fatalf("expected flush failure on stderr, got %q", buf.String())
	}

	buf.Reset()
	syncLog(zap.NewNop())
	if buf.Len() != 0 {
		t.Fatalf("expected no output for a clean sync, got %q", buf.String())
	}
}
