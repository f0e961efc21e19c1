package reconcile

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/dispatch"
	"github.com/hoyun5295-ctrl/TargetupAI-sub001/internal/domain"
)

func TestReduce(t *testing.T) {
	run := &domain.CampaignRun{ID: "r1", CampaignID: "c1", RunNo: 1, TargetCount: 40}

	cases := []struct {
		name string
		snap dispatch.Snapshot
		want Decision
	}{
		{
			name: "still draining",
			snap: dispatch.Snapshot{Pending: 10, Success: 25, Fail: 5},
			want: Decision{Success: 25, Fail: 5, Pending: 10,
				RunStatus: domain.RunDispatched, CampaignStatus: domain.CampaignSending},
		},
		{
			name: "drained with mixed outcomes",
			snap: dispatch.Snapshot{Success: 38, Fail: 2},
			want: Decision{Success: 38, Fail: 2,
				RunStatus: domain.RunCompleted, CampaignStatus: domain.CampaignCompleted, Terminal: true},
		},
		{
			name: "drained with only failures",
			snap: dispatch.Snapshot{Fail: 40},
			want: Decision{Fail: 40,
				RunStatus: domain.RunFailed, CampaignStatus: domain.CampaignFailed, Terminal: true},
		},
		{
			name: "queue purged externally",
			snap: dispatch.Snapshot{},
			want: Decision{
				RunStatus: domain.RunCompleted, CampaignStatus: domain.CampaignCompleted, Terminal: true},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Reduce(run, tc.snap); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Reduce = %+v, want %+v", got, tc.want)
			}
		})
	}
}

// ----- fakes -----

type fakeRuns struct {
	open    []domain.CampaignRun
	applied map[string]Decision
}

func (f *fakeRuns) ListOpen(context.Context) ([]domain.CampaignRun, error) {
	return f.open, nil
}

func (f *fakeRuns) ApplyCounts(_ context.Context, id string, success, fail, pending int, status domain.RunStatus, completedAt *time.Time) error {
	f.applied[id] = Decision{Success: success, Fail: fail, Pending: pending,
		RunStatus: status, Terminal: completedAt != nil}
	return nil
}

type fakeCampaigns struct {
	due      int
	results  map[string]domain.CampaignStatus
	counters map[string][2]int
}

func (f *fakeCampaigns) MarkDueSending(context.Context, time.Time) (int, error) {
	return f.due, nil
}

func (f *fakeCampaigns) ApplyRunResult(_ context.Context, id string, success, fail int, status domain.CampaignStatus, _ *time.Time) error {
	f.results[id] = status
	f.counters[id] = [2]int{success, fail}
	return nil
}

func (f *fakeCampaigns) UpdateCounters(_ context.Context, id string, success, fail int) error {
	f.counters[id] = [2]int{success, fail}
	return nil
}

type fakeQueue struct {
	byTag map[string]dispatch.Snapshot
}

func (f *fakeQueue) CountByTag(_ context.Context, tag string) (dispatch.Snapshot, error) {
	return f.byTag[tag], nil
}

func newReconciler(runs []domain.CampaignRun, byTag map[string]dispatch.Snapshot) (*Reconciler, *fakeRuns, *fakeCampaigns) {
	fr := &fakeRuns{open: runs, applied: map[string]Decision{}}
	fc := &fakeCampaigns{results: map[string]domain.CampaignStatus{}, counters: map[string][2]int{}}
	fq := &fakeQueue{byTag: byTag}
	r := New(fr, fc, fq)
	r.SetClock(func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) })
	return r, fr, fc
}

func TestRunFoldsSnapshots(t *testing.T) {
	runs := []domain.CampaignRun{
		{ID: "r1", CampaignID: "c1", RunNo: 1},
		{ID: "r2", CampaignID: "c2", RunNo: 1},
	}
	r, fr, fc := newReconciler(runs, map[string]dispatch.Snapshot{
		"c1:1": {Success: 38, Fail: 2},
		"c2:1": {Pending: 100, Success: 900},
	})

	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Reconciled != 2 || sum.Completed != 1 || sum.Failed != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if !fr.applied["r1"].Terminal || fr.applied["r1"].Success != 38 {
		t.Fatalf("r1 applied = %+v", fr.applied["r1"])
	}
	if fr.applied["r2"].Terminal || fr.applied["r2"].Pending != 100 {
		t.Fatalf("r2 applied = %+v", fr.applied["r2"])
	}
	if fc.results["c1"] != domain.CampaignCompleted {
		t.Fatalf("c1 status = %s", fc.results["c1"])
	}
	if _, ok := fc.results["c2"]; ok {
		t.Fatal("non-terminal run must not change campaign status")
	}
	if fc.counters["c2"] != [2]int{900, 0} {
		t.Fatalf("c2 counters = %v", fc.counters["c2"])
	}
}

func TestRunIsIdempotent(t *testing.T) {
	runs := []domain.CampaignRun{{ID: "r1", CampaignID: "c1", RunNo: 2}}
	r, fr, fc := newReconciler(runs, map[string]dispatch.Snapshot{
		"c1:2": {Fail: 5},
	})

	for i := 0; i < 2; i++ {
		if _, err := r.Run(context.Background()); err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
	}
	// Absolute writes: the second pass lands on identical state.
	if got := fr.applied["r1"]; got.Fail != 5 || got.RunStatus != domain.RunFailed {
		t.Fatalf("r1 applied = %+v", got)
	}
	if fc.results["c1"] != domain.CampaignFailed {
		t.Fatalf("c1 status = %s", fc.results["c1"])
	}
}
