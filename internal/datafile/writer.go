package datafile

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/verte-zerg/tuireach/internal/model"
)

const rule = "---------------------------------------------"

// Writer persists the run header and completed trials as text files named
// after the configured prefix.
type Writer struct {
	sink       *Sink
	dir        string
	prefix     string
	timestamps bool
	syncColumn bool
	log        *zap.Logger
}

// NewWriter returns a writer for cfg. A nil opener writes into cfg.Dir.
func NewWriter(cfg model.OutputConfig, opener Opener, log *zap.Logger) *Writer {
	if opener == nil {
		opener = DirOpener{Dir: cfg.Dir}
	}
	if log == nil {
		log = zap.NewNop()
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "subject"
	}
	return &Writer{
		sink:       NewSink(opener),
		dir:        cfg.Dir,
		prefix:     prefix,
		timestamps: cfg.Timestamps,
		syncColumn: cfg.SyncColumn,
		log:        log.Named("datafile"),
	}
}

// HeaderName is the file name of the run header.
func (w *Writer) HeaderName() string {
	return w.prefix + "_header.txt"
}

// TrialName is the file name of a trial, both numbers 1-based.
func (w *Writer) TrialName(session, trial int) string {
	return fmt.Sprintf("%s_data_%d_%d.txt", w.prefix, session, trial)
}

// TrialPath joins TrialName with the output directory.
func (w *Writer) TrialPath(session, trial int) string {
	return filepath.Join(w.dir, w.TrialName(session, trial))
}

// WriteHeader writes the run header file.
func (w *Writer) WriteHeader(h model.Header) error {
	return w.writeFile(w.HeaderName(), headerLines(h))
}

// WriteTrial writes one line per sample: x and y with two decimals, then
// optionally the elapsed milliseconds since recording start and the sync
// patch state as 1/0.
func (w *Writer) WriteTrial(t model.Trial) error {
	lines := make([]string, len(t.Samples))
	for i, s := range t.Samples {
		line := fmt.Sprintf("%.2f\t%.2f", s.X, s.Y)
		if w.timestamps {
			line += fmt.Sprintf("\t%.3f", float64(s.Elapsed.Microseconds())/1000)
		}
		if w.syncColumn {
			line += "\t" + formatBool(s.Sync)
		}
		lines[i] = line
	}
	return w.writeFile(w.TrialName(t.Session, t.Trial), lines)
}

func (w *Writer) writeFile(name string, lines []string) error {
	if err := w.sink.Open(name); err != nil {
		w.log.Warn("output file not opened", zap.String("file", name), zap.Error(err))
		return err
	}
	for _, line := range lines {
		if err := w.sink.WriteLine(line); err != nil {
			if cerr := w.sink.Close(); cerr != nil {
				// Best-effort close after a failed write.
				_ = cerr
			}
			return err
		}
	}
	if err := w.sink.Close(); err != nil {
		return err
	}
	w.log.Debug("output file written", zap.String("file", name), zap.Int("lines", len(lines)))
	return nil
}

func headerLines(h model.Header) []string {
	return []string{
		"Sensorimotor Adaptation Task",
		"Reaching experiment run",
		rule,
		"Date: " + h.CreatedAt.Format("02/01/2006"),
		"Time: " + h.CreatedAt.Format("15:04:05"),
		rule,
		"Details of the experimental protocol",
		"Sampling frequency (Hz): " + strconv.Itoa(h.SamplingHz),
		"Monitor width (pixels): " + formatFloat(h.MonitorWidth),
		"Monitor height (pixels): " + formatFloat(h.MonitorHeight),
		"Number of sessions: " + strconv.Itoa(len(h.TrialsPerSession)),
		"Trials per session: " + joinInts(h.TrialsPerSession),
		"Perturbation per session: " + joinBools(h.Perturbation),
		"Feedback per session: " + joinBools(h.Feedback),
		"Perturbation (degrees): " + formatFloat(h.PerturbationDegree),
		rule,
		"Task parameters",
		"Center of origin in X: " + formatFloat(h.OriginX),
		"Center of origin in Y: " + formatFloat(h.OriginY),
		"Center of target in X: " + formatFloat(h.TargetX),
		"Center of target in Y: " + formatFloat(h.TargetY),
		"Target radius (pixels): " + formatFloat(h.TargetRadius),
		"Cursor radius (pixels): " + formatFloat(h.CursorRadius),
		"Target directions (degrees): " + joinFloats(h.TargetAnglesDeg),
		"Rest interval (ms): " + strconv.FormatInt(h.RestInterval.Milliseconds(), 10),
		"Stationarity window (samples): " + strconv.Itoa(h.StationarityWindow),
		"Stationarity tolerance (pixels): " + formatFloat(h.StationarityTolPx),
		rule,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}

func joinBools(values []bool) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatBool(v)
	}
	return strings.Join(parts, " ")
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, " ")
}

func formatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
