package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/tuireach/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "tuireach.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return st
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	started := time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC)

	id, err := st.InsertRun(ctx, model.RunRecord{Prefix: "subject1", StartedAt: started, Sessions: 2})
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("run id %q is not a uuid: %v", id, err)
	}
	if err := st.UpdateRunSize(ctx, id, 1600, 880); err != nil {
		t.Fatalf("update size: %v", err)
	}

	for trial := 1; trial <= 2; trial++ {
		err := st.InsertTrial(ctx, model.TrialRecord{
			RunID:          id,
			Session:        1,
			Trial:          trial,
			StartedAt:      started.Add(time.Duration(trial) * time.Second),
			EndedAt:        started.Add(time.Duration(trial)*time.Second + 800*time.Millisecond),
			Reason:         model.StopTarget,
			Samples:        400,
			Perturbed:      trial == 2,
			AngleDeg:       20,
			TargetAngleDeg: 0,
			Path:           fmt.Sprintf("/tmp/subject1_data_1_%d.txt", trial),
		})
		if err != nil {
			t.Fatalf("insert trial %d: %v", trial, err)
		}
	}

	ended := started.Add(time.Minute)
	if err := st.FinishRun(ctx, id, ended, StatusFinished); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	runs, err := st.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != id || run.Prefix != "subject1" || run.Status != StatusFinished || run.Trials != 2 {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.Width != 1600 || run.Height != 880 {
		t.Fatalf("unexpected size %vx%v", run.Width, run.Height)
	}
	if run.EndedAt == nil || !run.EndedAt.Equal(ended) {
		t.Fatalf("unexpected ended_at %v", run.EndedAt)
	}

	trials, err := st.ListTrials(ctx, id[:8])
	if err != nil {
		t.Fatalf("list trials: %v", err)
	}
	if len(trials) != 2 {
		t.Fatalf("expected 2 trials, got %d", len(trials))
	}
	if trials[0].Trial != 1 || trials[1].Trial != 2 {
		t.Fatalf("trials out of order: %+v", trials)
	}
	if trials[0].Perturbed || !trials[1].Perturbed {
		t.Fatalf("perturbed flags not preserved: %+v", trials)
	}
	if trials[1].Reason != model.StopTarget || trials[1].Samples != 400 {
		t.Fatalf("unexpected trial: %+v", trials[1])
	}
}

func TestListRunsOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := st.InsertRun(ctx, model.RunRecord{Prefix: "s", StartedAt: base.Add(time.Duration(i) * time.Hour), Sessions: 1})
		if err != nil {
			t.Fatalf("insert run: %v", err)
		}
		ids = append(ids, id)
	}

	runs, err := st.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Fatalf("runs not newest first: %v %v", runs[0].ID, runs[1].ID)
	}
	if runs[0].Status != StatusRunning || runs[0].EndedAt != nil {
		t.Fatalf("unexpected open run: %+v", runs[0])
	}
}

func TestUnknownRun(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	missing := uuid.NewString()

	if err := st.FinishRun(ctx, missing, time.Now(), StatusAborted); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("finish: expected ErrRunNotFound, got %v", err)
	}
	if err := st.InsertTrial(ctx, model.TrialRecord{RunID: missing, Session: 1, Trial: 1}); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("insert trial: expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.ListTrials(ctx, missing); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("list trials: expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.InsertRun(ctx, model.RunRecord{ID: "not-a-uuid"}); err == nil {
		t.Fatalf("expected invalid id error")
	}
}
