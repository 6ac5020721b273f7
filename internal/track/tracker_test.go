package track

import (
	"context"
	"errors"
	"testing"
	"time"

	"focal/internal/cache"
	"focal/internal/categorize"
	"focal/internal/classify"
	"focal/internal/store"
)

type stubSampler struct {
	snap *Snapshot
	err  error
}

func (s *stubSampler) Sample(ctx context.Context) (*Snapshot, error) {
	return s.snap, s.err
}

type stubClassifier struct{}

func (stubClassifier) Classify(ctx context.Context, req classify.Request) (*classify.Categorization, error) {
	return &classify.Categorization{
		ProjectName:       "Dispute Platform",
		ProjectRole:       "Work",
		WorkCategory:      "creating",
		Confidence:        0.9,
		Reasoning:         "editing a dispute ticket",
		SuggestedPatterns: []string{},
	}, nil
}

func newTestTracker(t *testing.T, sampler Sampler) (*Tracker, *store.Store) {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	c := cache.New(s, 30*24*time.Hour, 1000, 0.8)
	categorizer := categorize.New(s, stubClassifier{}, c, categorize.Config{})
	return New(s, sampler, categorizer, time.Minute), s
}

func TestTickOpensAndCategorizes(t *testing.T) {
	sampler := &stubSampler{snap: &Snapshot{
		Image: []byte("png"), AppName: "Xcode", WindowTitle: "DISP-42: fix crash",
	}}
	tracker, s := newTestTracker(t, sampler)

	tracker.tick(context.Background())

	session, err := s.ActiveSession()
	if err != nil {
		t.Fatal(err)
	}
	if session == nil || session.AppName != "Xcode" {
		t.Fatalf("expected an open Xcode session, got %+v", session)
	}
	if session.ScreenshotCount != 1 {
		t.Fatalf("first tick records one screenshot, got %d", session.ScreenshotCount)
	}
	if !session.AICategorized {
		t.Fatal("confident classification should land on the session")
	}
}

func TestTickSameAppKeepsSession(t *testing.T) {
	sampler := &stubSampler{snap: &Snapshot{AppName: "Xcode", WindowTitle: "DISP-42"}}
	tracker, s := newTestTracker(t, sampler)

	tracker.tick(context.Background())
	first, _ := s.ActiveSession()

	sampler.snap = &Snapshot{AppName: "Xcode", WindowTitle: "DISP-43: next ticket"}
	tracker.tick(context.Background())

	current, _ := s.ActiveSession()
	if current.ID != first.ID {
		t.Fatal("same app must not roll the session")
	}
	if current.ScreenshotCount != 2 {
		t.Fatalf("expected 2 ticks recorded, got %d", current.ScreenshotCount)
	}
	if current.WindowTitle != "DISP-43: next ticket" {
		t.Fatalf("window title should track the latest observation, got %q", current.WindowTitle)
	}
}

func TestTickRollsSessionOnAppChange(t *testing.T) {
	sampler := &stubSampler{snap: &Snapshot{AppName: "Xcode", WindowTitle: "DISP-42"}}
	tracker, s := newTestTracker(t, sampler)

	tracker.tick(context.Background())
	first, _ := s.ActiveSession()

	sampler.snap = &Snapshot{AppName: "Slack", WindowTitle: "general"}
	tracker.tick(context.Background())

	closed, _ := s.GetSession(first.ID)
	if closed.Active || closed.EndTime == nil {
		t.Fatal("previous session should close when focus moves")
	}
	current, _ := s.ActiveSession()
	if current == nil || current.AppName != "Slack" || current.ID == first.ID {
		t.Fatalf("expected a fresh Slack session, got %+v", current)
	}
}

func TestTickRecoversFromExternallyClosedSession(t *testing.T) {
	sampler := &stubSampler{snap: &Snapshot{AppName: "Xcode", WindowTitle: "DISP-42"}}
	tracker, s := newTestTracker(t, sampler)

	tracker.tick(context.Background())
	first, _ := s.ActiveSession()
	if err := s.CloseSession(first.ID, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	tracker.tick(context.Background())
	current, _ := s.ActiveSession()
	if current == nil || current.ID == first.ID {
		t.Fatalf("expected a new session after external close, got %+v", current)
	}
}

func TestSamplerErrorSkipsCycle(t *testing.T) {
	tracker, s := newTestTracker(t, &stubSampler{err: errors.New("screen locked")})

	tracker.tick(context.Background())

	session, err := s.ActiveSession()
	if err != nil {
		t.Fatal(err)
	}
	if session != nil {
		t.Fatal("failed capture must not open a session")
	}
	if tracker.LastError() == nil {
		t.Fatal("sampler failure should surface via LastError")
	}
}

func TestLastErrorClearsOnCleanCycle(t *testing.T) {
	sampler := &stubSampler{err: errors.New("screen locked")}
	tracker, _ := newTestTracker(t, sampler)

	tracker.tick(context.Background())
	if tracker.LastError() == nil {
		t.Fatal("expected the failed cycle to be recorded")
	}

	sampler.err = nil
	sampler.snap = &Snapshot{AppName: "Xcode", WindowTitle: "DISP-42"}
	tracker.tick(context.Background())
	if err := tracker.LastError(); err != nil {
		t.Fatalf("clean cycle should clear the error, got %v", err)
	}
}

func TestStopClosesSession(t *testing.T) {
	sampler := &stubSampler{snap: &Snapshot{AppName: "Xcode", WindowTitle: "DISP-42"}}
	tracker, s := newTestTracker(t, sampler)

	tracker.tick(context.Background())
	if err := tracker.Stop(); err != nil {
		t.Fatal(err)
	}

	session, _ := s.ActiveSession()
	if session != nil {
		t.Fatalf("stop should close the open session, got %+v", session)
	}
	// Idempotent once nothing is open.
	if err := tracker.Stop(); err != nil {
		t.Fatal(err)
	}
}
