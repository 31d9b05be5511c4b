package services

import (
	"context"
	"testing"
	"time"

	"github.com/the-medo/swu-collection/backend/internal/models"
)

func TestAggregateWorkerRunOnce(t *testing.T) {
	db := newTestDB(t)
	v := newTestValuation(db, refTime)
	w := NewAggregateWorker(v, time.Minute)

	seedCollection(t, db, refTime.Add(-1*time.Hour))
	seedDeck(t, db, refTime.Add(-1*time.Hour))
	seedDeck(t, db, refTime.Add(-2*time.Hour))

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	status := w.GetStatus()
	if status.Interval != "1m0s" {
		t.Errorf("interval = %s, want 1m0s", status.Interval)
	}
	if status.LastUpdateTime.IsZero() || !status.NextUpdateTime.Equal(status.LastUpdateTime.Add(time.Minute)) {
		t.Errorf("unexpected update times %v / %v", status.LastUpdateTime, status.NextUpdateTime)
	}
	if len(status.Kinds) != 2 {
		t.Fatalf("expected status for 2 kinds, got %d", len(status.Kinds))
	}

	want := map[models.EntityKind]int{models.EntityCollection: 1, models.EntityDeck: 2}
	for _, k := range status.Kinds {
		if k.LastSelected != want[k.Kind] {
			t.Errorf("%s selected = %d, want %d", k.Kind, k.LastSelected, want[k.Kind])
		}
		if k.LastUpserted != want[k.Kind]*len(models.DefaultSourceTypes()) {
			t.Errorf("%s upserted = %d", k.Kind, k.LastUpserted)
		}
		if k.RunsToday != 1 || k.LastRunID == "" || k.LastError != "" {
			t.Errorf("%s status = %+v", k.Kind, k)
		}
	}
}

func TestAggregateWorkerDefaultInterval(t *testing.T) {
	w := NewAggregateWorker(newTestValuation(newTestDB(t), refTime), 0)
	if w.updateInterval != defaultAggregateInterval {
		t.Errorf("interval = %v, want %v", w.updateInterval, defaultAggregateInterval)
	}
	if got := w.GetStatus().Kinds[1].BatchSize; got != DeckPolicy.BatchSize {
		t.Errorf("deck batch size = %d, want %d", got, DeckPolicy.BatchSize)
	}
}

func TestAggregateWorkerStartStopsOnCancel(t *testing.T) {
	w := NewAggregateWorker(newTestValuation(newTestDB(t), refTime), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
