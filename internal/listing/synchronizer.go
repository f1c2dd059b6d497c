package listing

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/vitrine/internal/catalog"
	"github.com/five82/vitrine/internal/logger"
	"github.com/five82/vitrine/internal/query"
)

const defaultFetchTimeout = 5 * time.Second

// Ticket identifies one issued sync. Results carrying an older generation
// than the latest ticket are discarded.
type Ticket struct {
	Generation uint64
	Query      query.State
}

// Result is the raw outcome of Fetch before reconciliation.
type Result struct {
	Ticket
	Records []catalog.Product
	Total   int64
	Err     error
	Elapsed time.Duration
}

// Synchronizer turns query states into snapshots. It is the only writer of
// its snapshot; readers always receive copies.
type Synchronizer struct {
	lister  catalog.Lister
	log     logger.Logger
	timeout time.Duration
	now     func() time.Time

	mu         sync.RWMutex
	generation uint64
	revision   uint64
	snapshot   Snapshot
}

// Option customizes a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger used for sync outcomes.
func WithLogger(log logger.Logger) Option {
	return func(s *Synchronizer) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTimeout bounds each Fetch. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock overrides time.Now for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a Synchronizer reading from lister. The initial snapshot is idle.
func New(lister catalog.Lister, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		lister:  lister,
		log:     logger.Nop(),
		timeout: defaultFetchTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshot = Snapshot{Status: StatusIdle, Query: query.New(query.DefaultPageSize)}
	return s
}

// Snapshot returns a copy of the current snapshot.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.clone()
}

// Generation returns the latest issued generation.
func (s *Synchronizer) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Sync issues list and stats fetches for q and applies the result if no newer
// sync was started meanwhile. It returns the current snapshot and whether
// this call's result was the one applied.
func (s *Synchronizer) Sync(ctx context.Context, q query.State) (Snapshot, bool) {
	ticket := s.Begin(q)
	return s.Apply(s.Fetch(ctx, ticket))
}

// Begin starts a new generation for q and publishes a loading snapshot.
func (s *Synchronizer) Begin(q query.State) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.revision++
	s.snapshot = Snapshot{
		Status:     StatusLoading,
		Query:      q,
		Generation: s.generation,
		Revision:   s.revision,
		UpdatedAt:  s.snapshot.UpdatedAt,
	}
	return Ticket{Generation: s.generation, Query: q}
}

// Fetch performs the list and stats requests for t concurrently. It touches
// no synchronizer state, so callers may run it on any goroutine.
func (s *Synchronizer) Fetch(ctx context.Context, t Ticket) Result {
	started := s.now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		records []catalog.Product
		stats   catalog.Stats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.lister.ListProducts(gctx, t.Query)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.lister.FetchStats(gctx, t.Query)
		return err
	})
	err := g.Wait()

	res := Result{Ticket: t, Elapsed: s.now().Sub(started)}
	if err != nil {
		res.Err = err
		return res
	}
	res.Records = records
	res.Total = stats.TotalProducts
	return res
}

// Apply reconciles r into a new snapshot when r belongs to the latest
// generation. Stale results are dropped and the current snapshot is returned
// with applied=false.
func (s *Synchronizer) Apply(r Result) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With(
		logger.Uint64("generation", r.Generation),
		logger.Int("page", r.Query.Page()),
		logger.Duration("elapsed", r.Elapsed))

	if r.Generation != s.generation {
		log.Debug("discarding stale sync result", logger.Uint64("latest", s.generation))
		return s.snapshot.clone(), false
	}

	s.revision++
	next := Snapshot{
		Query:      r.Query,
		Generation: r.Generation,
		Revision:   s.revision,
		UpdatedAt:  s.now(),
	}
	if r.Err != nil {
		// Records are cleared so a stale list is never shown next to a
		// count it does not match.
		next.Status = StatusError
		next.Err = r.Err
		log.Warn("sync failed", logger.Error(r.Err))
	} else {
		next.Status = StatusLoaded
		next.Records = cloneRecords(r.Records)
		next.TotalCount = r.Total
		log.Debug("sync applied",
			logger.Int("records", len(r.Records)),
			logger.Int64("total", r.Total))
	}
	s.snapshot = next
	return next.clone(), true
}

// Amend applies fn to the current snapshot if it still belongs to generation.
// It returns the snapshots before and after the edit.
func (s *Synchronizer) Amend(generation uint64, fn func(Snapshot) Snapshot) (before, after Snapshot, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return s.snapshot.clone(), s.snapshot.clone(), false
	}
	before = s.snapshot.clone()
	next := fn(s.snapshot.clone())
	s.revision++
	next.Generation = s.generation
	next.Revision = s.revision
	s.snapshot = next.clone()
	return before, next, true
}

// CompareAndSwap replaces the snapshot with next only while the current
// revision equals revision. next keeps its own records but receives a fresh
// revision number.
func (s *Synchronizer) CompareAndSwap(revision uint64, next Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot.Revision != revision || next.Generation != s.generation {
		return false
	}
	s.revision++
	next = next.clone()
	next.Revision = s.revision
	s.snapshot = next
	return true
}
