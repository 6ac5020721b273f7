// Package track runs the capture loop: sample focus at a fixed interval,
// keep the open session current, and hand screenshots to the categorizer.
// Capture itself is an external collaborator behind the Sampler interface.
package track

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"focal/internal/categorize"
	"focal/internal/store"
)

// Snapshot is one observation from the capture collaborator.
type Snapshot struct {
	Image       []byte
	AppName     string
	WindowTitle string
	BundleID    string
}

// Sampler produces a screenshot plus focus context for each tick.
type Sampler interface {
	Sample(ctx context.Context) (*Snapshot, error)
}

type Tracker struct {
	store       *store.Store
	sampler     Sampler
	categorizer *categorize.Categorizer
	interval    time.Duration

	// busy enforces at most one capture+categorize cycle in flight; a slow
	// classification call makes the loop skip ticks, never overlap them.
	busy atomic.Bool

	mu        sync.Mutex
	sessionID int64
	started   time.Time
	ticks     int
	lastErr   error
}

func New(s *store.Store, sampler Sampler, c *categorize.Categorizer, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Tracker{
		store:       s,
		sampler:     sampler,
		categorizer: c,
		interval:    interval,
	}
}

// Run drives the tick loop until ctx is cancelled, then stops tracking
// cleanly. In-flight cycles complete on their own; their result is applied
// only if the session is still resolvable.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return t.Stop()
		case <-ticker.C:
			if !t.busy.CompareAndSwap(false, true) {
				continue // previous cycle still outstanding
			}
			go func() {
				defer t.busy.Store(false)
				t.tick(ctx)
			}()
		}
	}
}

func (t *Tracker) tick(ctx context.Context) {
	snap, err := t.sampler.Sample(ctx)
	if err != nil {
		t.setErr(err)
		return
	}
	if snap == nil {
		return
	}

	session, err := t.ensureSession(snap)
	if err != nil {
		t.setErr(err)
		return
	}

	t.mu.Lock()
	t.ticks++
	duration := int64(time.Since(t.started).Seconds())
	ticks := t.ticks
	t.mu.Unlock()

	if err := t.store.TickSession(session.ID, duration, ticks, snap.WindowTitle); err != nil {
		t.setErr(err)
		return
	}

	current, err := t.store.GetSession(session.ID)
	if err != nil {
		t.setErr(err)
		return
	}
	if !current.Active {
		// Session closed or deleted since the cycle began; discard.
		return
	}
	// Classification failures have their own fallback path and are not
	// capture failures.
	_, _ = t.categorizer.Categorize(ctx, snap.Image, current)
	t.setErr(nil)
}

func (t *Tracker) setErr(err error) {
	t.mu.Lock()
	t.lastErr = err
	t.mu.Unlock()
}

// LastError reports the most recent failed capture cycle. A clean cycle
// clears it.
func (t *Tracker) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// ensureSession opens a session on the first tick and rolls to a new one
// when focus moves to a different app.
func (t *Tracker) ensureSession(snap *Snapshot) (*store.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sessionID != 0 {
		session, err := t.store.GetSession(t.sessionID)
		if err == nil && session.Active && session.AppName == snap.AppName {
			return session, nil
		}
		if err == nil && session.Active {
			if cerr := t.store.CloseSession(session.ID, time.Now().UTC()); cerr != nil {
				return nil, cerr
			}
		}
		t.sessionID = 0
	}

	now := time.Now().UTC()
	session, err := t.store.StartSession(snap.AppName, snap.WindowTitle, snap.BundleID, now)
	if err != nil {
		return nil, err
	}
	t.sessionID = session.ID
	t.started = now
	t.ticks = 0
	return session, nil
}

// Stop closes the open session, if any.
func (t *Tracker) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sessionID == 0 {
		return nil
	}
	err := t.store.CloseSession(t.sessionID, time.Now().UTC())
	t.sessionID = 0
	return err
}
