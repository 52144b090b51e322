package chat

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/chatkit-ai/chatkit/internal/logging"
	"github.com/chatkit-ai/chatkit/internal/storage"
	"github.com/chatkit-ai/chatkit/pkg/types"
)

// Persister writes session snapshots to the store on a debounced
// schedule. One trailing-edge timer covers all sessions: the first
// schedule after an idle period arms it, further schedules within the
// delay only widen the dirty set, and the flush snapshots whatever is
// dirty when the timer fires. Snapshots are taken at flush time, never
// at schedule time, so the write always reflects the latest state.
type Persister struct {
	store *storage.Store
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
	dirty map[string]*Session
	stop  chan struct{}
}

// NewPersister creates a persister flushing at most once per delay.
func NewPersister(store *storage.Store, delay time.Duration) *Persister {
	return &Persister{
		store: store,
		delay: delay,
		dirty: make(map[string]*Session),
		stop:  make(chan struct{}),
	}
}

// Schedule marks a session dirty and arms the flush timer if idle.
func (p *Persister) Schedule(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-p.stop:
		return
	default:
	}

	p.dirty[s.ID()] = s
	if p.timer == nil {
		p.timer = time.AfterFunc(p.delay, p.flushDirty)
	}
}

// flushDirty is the timer callback. It drains the dirty set and writes
// each snapshot with bounded retries.
func (p *Persister) flushDirty() {
	p.mu.Lock()
	sessions := p.dirty
	p.dirty = make(map[string]*Session)
	p.timer = nil
	p.mu.Unlock()

	for _, s := range sessions {
		p.persistNow(context.Background(), s)
	}
}

// persistNow writes one session snapshot, retrying transient failures.
func (p *Persister) persistNow(ctx context.Context, s *Session) {
	snap := s.Snapshot()
	op := func() error {
		return p.store.Put(ctx, s.ID(), snap)
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		logging.Error().Err(err).Str("sessionID", s.ID()).Msg("failed to persist session")
	}
}

// Flush cancels any pending timer and writes all dirty sessions now.
func (p *Persister) Flush(ctx context.Context) {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	sessions := p.dirty
	p.dirty = make(map[string]*Session)
	p.mu.Unlock()

	for _, s := range sessions {
		p.persistNow(ctx, s)
	}
}

// Delete removes a session's persisted snapshot and forgets any pending
// write for it.
func (p *Persister) Delete(ctx context.Context, sessionID string) error {
	p.mu.Lock()
	delete(p.dirty, sessionID)
	p.mu.Unlock()

	return p.store.Delete(ctx, sessionID)
}

// LoadAll reads every persisted session snapshot. Snapshots that fail to
// decode are logged and skipped so one corrupt file never blocks
// startup.
func (p *Persister) LoadAll(ctx context.Context) ([]types.SessionSnapshot, error) {
	keys, err := p.store.List(ctx)
	if err != nil {
		return nil, err
	}

	var snaps []types.SessionSnapshot
	for _, key := range keys {
		var snap types.SessionSnapshot
		if err := p.store.Get(ctx, key, &snap); err != nil {
			logging.Warn().Err(err).Str("sessionID", key).Msg("skipping unreadable session snapshot")
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// Close flushes pending writes and stops accepting schedules.
func (p *Persister) Close(ctx context.Context) {
	p.mu.Lock()
	select {
	case <-p.stop:
		p.mu.Unlock()
		return
	default:
	}
	close(p.stop)
	p.mu.Unlock()

	p.Flush(ctx)
}
