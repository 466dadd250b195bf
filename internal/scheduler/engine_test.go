package scheduler

import (
	"testing"
	"time"
)

func TestEngineEmitsInTriggerOrder(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now().UTC()
	if err := engine.Schedule(Intent{ID: "later", Kind: KindArchiveSweep, TriggerAt: now.Add(80 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule later: %v", err)
	}
	if err := engine.Schedule(Intent{ID: "sooner", Kind: KindRefresh, TriggerAt: now.Add(20 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule sooner: %v", err)
	}

	first := waitIntent(t, engine.C(), time.Second)
	second := waitIntent(t, engine.C(), time.Second)
	if first.ID != "sooner" || second.ID != "later" {
		t.Fatalf("unexpected order: first=%s second=%s", first.ID, second.ID)
	}
}

func TestEngineRecurringIntentRearms(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	if err := engine.ScheduleEvery("refresh", KindRefresh, 30*time.Millisecond); err != nil {
		t.Fatalf("schedule recurring: %v", err)
	}

	first := waitIntent(t, engine.C(), time.Second)
	second := waitIntent(t, engine.C(), time.Second)
	if first.Kind != KindRefresh || second.Kind != KindRefresh {
		t.Fatalf("unexpected kinds: %s %s", first.Kind, second.Kind)
	}
	if second.TriggerAt.Before(first.TriggerAt) {
		t.Fatal("re-armed intent must trigger after the first firing")
	}
}

func TestEngineNonBlockingDropsWhenConsumerIsSlow(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	defer engine.Stop()

	now := time.Now().UTC().Add(20 * time.Millisecond)
	for i := 0; i < 25; i++ {
		if err := engine.Schedule(Intent{
			ID:        "refresh",
			Kind:      KindRefresh,
			TriggerAt: now,
		}); err != nil {
			t.Fatalf("schedule intent: %v", err)
		}
	}

	time.Sleep(120 * time.Millisecond)
	if engine.Dropped() == 0 {
		t.Fatalf("expected dropped intents > 0, got %d", engine.Dropped())
	}
}

func TestScheduleValidatesTriggerTime(t *testing.T) {
	engine := NewEngine(1)
	if err := engine.Schedule(Intent{ID: "bad"}); err != ErrInvalidTriggerTime {
		t.Fatalf("expected ErrInvalidTriggerTime, got %v", err)
	}
	if err := engine.ScheduleEvery("bad", KindRefresh, 0); err != ErrInvalidTriggerTime {
		t.Fatalf("expected ErrInvalidTriggerTime for zero period, got %v", err)
	}
}

func waitIntent(t *testing.T, ch <-chan Intent, timeout time.Duration) Intent {
	t.Helper()
	select {
	case in := <-ch:
		return in
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for intent")
		return Intent{}
	}
}
