package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/tuireach/internal/clock"
	"github.com/verte-zerg/tuireach/internal/config"
	"github.com/verte-zerg/tuireach/internal/controller"
	"github.com/verte-zerg/tuireach/internal/datafile"
	"github.com/verte-zerg/tuireach/internal/logging"
	"github.com/verte-zerg/tuireach/internal/model"
	"github.com/verte-zerg/tuireach/internal/plan"
	"github.com/verte-zerg/tuireach/internal/store"
	"github.com/verte-zerg/tuireach/internal/trigger"
	"github.com/verte-zerg/tuireach/internal/tui"
)

func runExperimentCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	p, err := plan.Build(cfg)
	if err != nil {
		return err
	}
	if !isTerminal(os.Stdout) || !isTerminal(os.Stdin) {
		return fmt.Errorf("tuireach needs an interactive terminal")
	}

	path := logPath
	if path == "" {
		path = config.DefaultLogPath()
	}
	log, err := logging.New(path, logDebug)
	if err != nil {
		return err
	}
	defer syncLog(log)

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	runID, err := st.InsertRun(ctx, model.RunRecord{
		Prefix:    cfg.Output.Prefix,
		StartedAt: time.Now(),
		Sessions:  p.Sessions(),
	})
	if err != nil {
		return fmt.Errorf("failed to register run: %w", err)
	}
	log = log.With(zap.String("run", runID))
	log.Info("run started",
		zap.String("output", cfg.Output.Dir),
		zap.String("prefix", cfg.Output.Prefix),
		zap.Ints("sessions", p.TrialsPerSession()))

	persist := &indexedWriter{
		Writer: datafile.NewWriter(cfg.Output, nil, log),
		store:  st,
		runID:  runID,
		log:    log,
	}
	ctrl := controller.New(p, controller.Options{
		Display:   cfg.Display,
		Persister: persist,
		Clock:     clock.Real{},
		Logger:    log,
	})
	ctrl.Subscribe(persist.listener())

	if cfg.Trigger.Device != "" {
		trg, err := trigger.Open(cfg.Trigger, log)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := trg.Close(); cerr != nil {
				log.Warn("trigger not closed", zap.Error(cerr))
			}
		}()
		ctrl.Subscribe(trg.Listener())
	}

	runErr := runSession(ctx, cancel, ctrl, cfg.Display, log)

	status := store.StatusAborted
	if ctrl.State() == controller.StateFinished {
		if session, _ := ctrl.Progress(); session > p.Sessions() {
			status = store.StatusFinished
		}
	}
	if err := st.FinishRun(context.Background(), runID, time.Now(), status); err != nil {
		log.Warn("run not closed in index", zap.Error(err))
	}
	log.Info("run ended", zap.String("status", status))
	if runErr != nil {
		return runErr
	}
	logErrf("run %s %s, files in %s\n", runID, status, cfg.Output.Dir)
	return nil
}

// runSession runs the sampling loop and the screen together. The sampler is
// stopped and joined before it returns.
func runSession(ctx context.Context, cancel context.CancelFunc, ctrl *controller.Controller, display model.DisplayConfig, log *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		program := tea.NewProgram(
			tui.NewModel(ctrl, display, log),
			tea.WithAltScreen(),
			tea.WithMouseAllMotion(),
			tea.WithContext(gctx),
		)
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("failed to run TUI: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// indexedWriter writes the run files and mirrors them into the run index.
type indexedWriter struct {
	*datafile.Writer
	store *store.Store
	runID string
	log   *zap.Logger
}

func (w *indexedWriter) WriteHeader(h model.Header) error {
	if err := w.store.UpdateRunSize(context.Background(), w.runID, h.MonitorWidth, h.MonitorHeight); err != nil {
		w.log.Warn("run size not indexed", zap.Error(err))
	}
	return w.Writer.WriteHeader(h)
}

// listener indexes every trial whose file was written.
func (w *indexedWriter) listener() controller.Listener {
	return func(ev controller.Event) {
		if ev.Kind != controller.EventTrialSaved || ev.Saved == nil || ev.Err != nil {
			return
		}
		t := ev.Saved
		err := w.store.InsertTrial(context.Background(), model.TrialRecord{
			RunID:          w.runID,
			Session:        t.Session,
			Trial:          t.Trial,
			StartedAt:      t.StartedAt,
			EndedAt:        t.EndedAt,
			Reason:         t.Reason,
			Samples:        len(t.Samples),
			Perturbed:      t.Perturbed,
			AngleDeg:       t.AngleDeg,
			TargetAngleDeg: t.TargetAngleDeg,
			Path:           w.TrialPath(t.Session, t.Trial),
		})
		if err != nil {
			w.log.Warn("trial not indexed",
				zap.Int("session", t.Session),
				zap.Int("trial", t.Trial),
				zap.Error(err))
		}
	}
}

func syncLog(log *zap.Logger) {
	if err := log.Sync(); err != nil {
		logErrf("failed to flush log: %v\n", err)
	}
}
