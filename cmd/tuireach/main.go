// Package main provides the CLI entrypoint for tuireach.
package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/tuireach/internal/config"
	"github.com/verte-zerg/tuireach/internal/model"
)

const (
	defaultSamplingHz     = 500
	defaultTrials         = 30
	defaultDegree         = 20.0
	defaultRestMs         = 1000
	defaultWindow         = 250
	defaultTolerance      = 1.0
	defaultTargetDistance = 300.0
	defaultTargetRadius   = 30.0
	defaultCursorRadius   = 15.0
	defaultCellWidth      = 8.0
	defaultCellHeight     = 16.0
	defaultSyncFlashMs    = 100
	defaultPrefix         = "subject1"
	defaultBaud           = 9600
	defaultStartCode      = 1
	defaultStopCode       = 2
)

var (
	expSamplingHz   int
	expSessions     []int
	expPerturbation []bool
	expFeedback     []bool
	expDegree       float64
	expRestMs       int
	expWindow       int
	expTolerance    float64
	expAngles       []float64
	expShuffle      bool
	expSeed         int64

	displayDistance     float64
	displayTargetRadius float64
	displayCursorRadius float64
	displayCellWidth    float64
	displayCellHeight   float64
	displayRawCursor    bool
	displaySyncMarker   bool
	displaySyncFlashMs  int

	outputDir        string
	outputPrefix     string
	outputTimestamps bool
	outputSyncColumn bool

	triggerDevice    string
	triggerBaud      int
	triggerStartCode int
	triggerStopCode  int

	logPath  string
	logDebug bool

	runsLimit int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tuireach",
		Short:         "Terminal visuomotor rotation reaching experiment",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runExperimentCmd,
	}
	addExperimentFlags(rootCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the experiment (default)",
		Args:  cobra.NoArgs,
		RunE:  runExperimentCmd,
	}
	addExperimentFlags(runCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newTrialsCmd())
	rootCmd.AddCommand(newPortsCmd())

	return rootCmd
}

func addExperimentFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&expSamplingHz, "sampling-hz", defaultSamplingHz, "trajectory sampling frequency")
	f.IntSliceVar(&expSessions, "sessions", []int{defaultTrials}, "trials per session, one value per session")
	f.BoolSliceVar(&expPerturbation, "perturbation", []bool{true}, "rotation on/off per session")
	f.BoolSliceVar(&expFeedback, "feedback", nil, "feedback visible per session (default: all visible)")
	f.Float64Var(&expDegree, "degree", defaultDegree, "rotation in degrees, positive is counter-clockwise")
	f.IntVar(&expRestMs, "rest-ms", defaultRestMs, "rest between trials in milliseconds")
	f.IntVar(&expWindow, "stationarity-window", defaultWindow, "samples in the stationarity window")
	f.Float64Var(&expTolerance, "stationarity-tolerance", defaultTolerance, "stationarity tolerance in pixels")
	f.Float64SliceVar(&expAngles, "target-angles", []float64{0}, "target directions in degrees")
	f.BoolVar(&expShuffle, "shuffle-targets", false, "shuffle target directions within each block")
	f.Int64Var(&expSeed, "seed", 0, "random seed for shuffled targets (0: time based)")

	f.Float64Var(&displayDistance, "target-distance", defaultTargetDistance, "target distance from the screen center or origin in pixels")
	f.Float64Var(&displayTargetRadius, "target-radius", defaultTargetRadius, "origin and target radius in pixels")
	f.Float64Var(&displayCursorRadius, "cursor-radius", defaultCursorRadius, "cursor radius in pixels")
	f.Float64Var(&displayCellWidth, "cell-width", defaultCellWidth, "terminal cell width in pixels")
	f.Float64Var(&displayCellHeight, "cell-height", defaultCellHeight, "terminal cell height in pixels")
	f.BoolVar(&displayRawCursor, "show-raw-cursor", false, "also draw the unrotated pointer")
	f.BoolVar(&displaySyncMarker, "sync-marker", false, "draw a sync patch that flashes at trial start")
	f.IntVar(&displaySyncFlashMs, "sync-flash-ms", defaultSyncFlashMs, "sync patch flash length in milliseconds")

	f.StringVar(&outputDir, "out", "", "output directory (default: XDG data dir)")
	f.StringVar(&outputPrefix, "prefix", defaultPrefix, "file name prefix")
	f.BoolVar(&outputTimestamps, "timestamps", false, "add elapsed milliseconds to trial files")
	f.BoolVar(&outputSyncColumn, "sync-column", false, "add the sync patch state (0/1) to trial files")

	f.StringVar(&triggerDevice, "trigger-device", "", "serial device for start/stop trigger codes")
	f.IntVar(&triggerBaud, "trigger-baud", defaultBaud, "trigger baud rate")
	f.IntVar(&triggerStartCode, "trigger-start-code", defaultStartCode, "byte sent when recording starts")
	f.IntVar(&triggerStopCode, "trigger-stop-code", defaultStopCode, "byte sent when recording stops")

	f.StringVar(&logPath, "log", "", "log file (default: XDG state dir)")
	f.BoolVar(&logDebug, "debug", false, "debug logging")
}

// resolveConfig merges the config file under the flags and returns the
// experiment configuration.
func resolveConfig(cmd *cobra.Command) (model.Config, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	exp := fileCfg.Experiment
	applyIntConfig(cmd, "sampling-hz", &expSamplingHz, exp.SamplingHz)
	applyIntSliceConfig(cmd, "sessions", &expSessions, exp.Sessions)
	applyBoolSliceConfig(cmd, "perturbation", &expPerturbation, exp.Perturbation)
	applyBoolSliceConfig(cmd, "feedback", &expFeedback, exp.Feedback)
	applyFloatConfig(cmd, "degree", &expDegree, exp.Degree)
	applyIntConfig(cmd, "rest-ms", &expRestMs, exp.RestMs)
	applyIntConfig(cmd, "stationarity-window", &expWindow, exp.StationarityWindow)
	applyFloatConfig(cmd, "stationarity-tolerance", &expTolerance, exp.StationarityTolerance)
	applyFloatSliceConfig(cmd, "target-angles", &expAngles, exp.TargetAngles)
	applyBoolConfig(cmd, "shuffle-targets", &expShuffle, exp.ShuffleTargets)
	applyInt64Config(cmd, "seed", &expSeed, exp.Seed)

	disp := fileCfg.Display
	applyFloatConfig(cmd, "target-distance", &displayDistance, disp.TargetDistance)
	applyFloatConfig(cmd, "target-radius", &displayTargetRadius, disp.TargetRadius)
	applyFloatConfig(cmd, "cursor-radius", &displayCursorRadius, disp.CursorRadius)
	applyFloatConfig(cmd, "cell-width", &displayCellWidth, disp.CellWidth)
	applyFloatConfig(cmd, "cell-height", &displayCellHeight, disp.CellHeight)
	applyBoolConfig(cmd, "show-raw-cursor", &displayRawCursor, disp.ShowRawCursor)
	applyBoolConfig(cmd, "sync-marker", &displaySyncMarker, disp.SyncMarker)
	applyIntConfig(cmd, "sync-flash-ms", &displaySyncFlashMs, disp.SyncFlashMs)

	applyStringConfig(cmd, "out", &outputDir, fileCfg.Output.Dir)
	applyStringConfig(cmd, "prefix", &outputPrefix, fileCfg.Output.Prefix)
	applyBoolConfig(cmd, "timestamps", &outputTimestamps, fileCfg.Output.Timestamps)
	applyBoolConfig(cmd, "sync-column", &outputSyncColumn, fileCfg.Output.SyncColumn)

	applyStringConfig(cmd, "trigger-device", &triggerDevice, fileCfg.Trigger.Device)
	applyIntConfig(cmd, "trigger-baud", &triggerBaud, fileCfg.Trigger.Baud)
	applyIntConfig(cmd, "trigger-start-code", &triggerStartCode, fileCfg.Trigger.StartCode)
	applyIntConfig(cmd, "trigger-stop-code", &triggerStopCode, fileCfg.Trigger.StopCode)

	applyStringConfig(cmd, "log", &logPath, fileCfg.Log.Path)
	applyBoolConfig(cmd, "debug", &logDebug, fileCfg.Log.Debug)

	if err := validateTriggerCodes(triggerStartCode, triggerStopCode); err != nil {
		return model.Config{}, err
	}
	dir := outputDir
	if dir == "" {
		dir = config.DefaultOutputDir()
	}
	cfg := model.Config{
		SamplingHz:           expSamplingHz,
		TrialsPerSession:     append([]int(nil), expSessions...),
		PerturbationSessions: append([]bool(nil), expPerturbation...),
		FeedbackSessions:     append([]bool(nil), expFeedback...),
		PerturbationDegree:   expDegree,
		RestInterval:         time.Duration(expRestMs) * time.Millisecond,
		StationarityWindow:   expWindow,
		StationarityTolPx:    expTolerance,
		TargetAnglesDeg:      append([]float64(nil), expAngles...),
		ShuffleTargets:       expShuffle,
		Seed:                 expSeed,
		Display: model.DisplayConfig{
			TargetDistance: displayDistance,
			TargetRadius:   displayTargetRadius,
			CursorRadius:   displayCursorRadius,
			CellWidthPx:    displayCellWidth,
			CellHeightPx:   displayCellHeight,
			ShowRawCursor:  displayRawCursor,
			SyncMarker:     displaySyncMarker,
			SyncFlash:      time.Duration(displaySyncFlashMs) * time.Millisecond,
		},
		Output: model.OutputConfig{
			Dir:        dir,
			Prefix:     outputPrefix,
			Timestamps: outputTimestamps,
			SyncColumn: outputSyncColumn,
		},
		Trigger: model.TriggerConfig{
			Device:    triggerDevice,
			Baud:      triggerBaud,
			StartCode: byte(triggerStartCode),
			StopCode:  byte(triggerStopCode),
		},
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntSliceConfig(cmd *cobra.Command, name string, target *[]int, value []int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func applyBoolSliceConfig(cmd *cobra.Command, name string, target *[]bool, value []bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func applyFloatSliceConfig(cmd *cobra.Command, name string, target *[]float64, value []float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tuireach configuration
# Uncomment a value to enable it. CLI flags override config values.

[experiment]
# sampling-hz = %d             # Trajectory sampling frequency
# sessions = [%d]               # Trials per session, one entry per session
# perturbation = [true]         # Rotation on/off per session
# feedback = [true]             # Feedback visible while recording, per session
# degree = %.1f                 # Rotation in degrees, positive is counter-clockwise
# rest-ms = %d                # Rest between trials
# stationarity-window = %d     # Samples in the stationarity window
# stationarity-tolerance = %.1f # Stationarity tolerance in pixels
# target-angles = [0.0]         # Target directions in degrees
# shuffle-targets = false       # Shuffle directions within each block
# seed = 0                      # Random seed for shuffling (0: time based)

[display]
# target-distance = %.1f        # Target distance from center or origin (pixels)
# target-radius = %.1f           # Origin and target radius in pixels
# cursor-radius = %.1f           # Cursor radius in pixels
# cell-width = %.1f               # Terminal cell width in pixels
# cell-height = %.1f             # Terminal cell height in pixels
# show-raw-cursor = false       # Also draw the unrotated pointer
# sync-marker = false           # Sync patch in the bottom-left corner
# sync-flash-ms = %d           # Sync patch flash length

[output]
# dir = ""                      # Output directory (default: XDG data dir)
# prefix = %q           # File name prefix
# timestamps = false            # Add elapsed milliseconds to trial files
# sync-column = false           # Add the sync patch state (0/1) to trial files

[trigger]
# device = "/dev/ttyUSB0"       # Serial device; unset disables the trigger
# baud = %d
# start-code = %d
# stop-code = %d

[log]
# path = ""                     # Log file (default: XDG state dir)
# debug = false
`,
		defaultSamplingHz,
		defaultTrials,
		defaultDegree,
		defaultRestMs,
		defaultWindow,
		defaultTolerance,
		defaultTargetDistance,
		defaultTargetRadius,
		defaultCursorRadius,
		defaultCellWidth,
		defaultCellHeight,
		defaultSyncFlashMs,
		defaultPrefix,
		defaultBaud,
		defaultStartCode,
		defaultStopCode,
	)
}

func validateTriggerCodes(start, stop int) error {
	if start < 0 || start > 255 {
		return fmt.Errorf("--trigger-start-code must be between 0 and 255")
	}
	if stop < 0 || stop > 255 {
		return fmt.Errorf("--trigger-stop-code must be between 0 and 255")
	}
	return nil
}

func validateConfig(cfg model.Config) error {
	if cfg.SamplingHz <= 0 {
		return fmt.Errorf("--sampling-hz must be > 0")
	}
	if len(cfg.TrialsPerSession) == 0 {
		return fmt.Errorf("--sessions must list at least one session")
	}
	for _, n := range cfg.TrialsPerSession {
		if n <= 0 {
			return fmt.Errorf("--sessions values must be > 0")
		}
	}
	if len(cfg.PerturbationSessions) != len(cfg.TrialsPerSession) {
		return fmt.Errorf("--perturbation needs one value per session (%d)", len(cfg.TrialsPerSession))
	}
	if len(cfg.FeedbackSessions) != 0 && len(cfg.FeedbackSessions) != len(cfg.TrialsPerSession) {
		return fmt.Errorf("--feedback needs one value per session (%d)", len(cfg.TrialsPerSession))
	}
	if cfg.PerturbationDegree < -180 || cfg.PerturbationDegree > 180 {
		return fmt.Errorf("--degree must be between -180 and 180")
	}
	if cfg.RestInterval < 0 {
		return fmt.Errorf("--rest-ms must be >= 0")
	}
	if cfg.StationarityWindow < 2 {
		return fmt.Errorf("--stationarity-window must be >= 2")
	}
	if cfg.StationarityTolPx < 0 {
		return fmt.Errorf("--stationarity-tolerance must be >= 0")
	}
	if len(cfg.TargetAnglesDeg) == 0 {
		return fmt.Errorf("--target-angles must not be empty")
	}
	d := cfg.Display
	if d.TargetDistance <= 0 {
		return fmt.Errorf("--target-distance must be > 0")
	}
	if d.TargetRadius <= 0 {
		return fmt.Errorf("--target-radius must be > 0")
	}
	if d.CursorRadius <= 0 {
		return fmt.Errorf("--cursor-radius must be > 0")
	}
	if d.CellWidthPx <= 0 || d.CellHeightPx <= 0 {
		return fmt.Errorf("--cell-width and --cell-height must be > 0")
	}
	if d.SyncFlash < 0 {
		return fmt.Errorf("--sync-flash-ms must be >= 0")
	}
	prefix := cfg.Output.Prefix
	if strings.TrimSpace(prefix) == "" {
		return fmt.Errorf("--prefix must not be empty")
	}
	if strings.ContainsAny(prefix, `/\`) {
		return fmt.Errorf("--prefix must not contain path separators")
	}
	if cfg.Trigger.Baud < 0 {
		return fmt.Errorf("--trigger-baud must be >= 0")
	}
	return nil
}

var errOut io.Writer = os.Stderr

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(errOut, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
