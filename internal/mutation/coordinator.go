package mutation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/five82/vitrine/internal/catalog"
	"github.com/five82/vitrine/internal/listing"
	"github.com/five82/vitrine/internal/logger"
)

var (
	// ErrAlreadyPending is returned when a mutation for the same product is
	// still in flight. No request is sent.
	ErrAlreadyPending = errors.New("mutation already pending")
	// ErrDeclined means the confirmation gate said no.
	ErrDeclined = errors.New("mutation declined")
	// ErrNotFound means the product is not in the snapshot.
	ErrNotFound = errors.New("product not in snapshot")
	// ErrStaleSnapshot means the list was re-fetched since the caller read it.
	ErrStaleSnapshot = errors.New("snapshot is out of date")
	// ErrInvalidInput wraps local validation failures for creates.
	ErrInvalidInput = errors.New("invalid product")
)

const defaultTimeout = 5 * time.Second

// State is the lifecycle of a Pending mutation.
type State int

const (
	StatePending State = iota
	StateConfirmed
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateConfirmed:
		return "confirmed"
	case StateRolledBack:
		return "rolled-back"
	default:
		return "pending"
	}
}

// Confirmer is the synchronous yes/no gate consulted before anything is sent.
type Confirmer interface {
	Confirm(p catalog.Product) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(catalog.Product) bool

func (f ConfirmFunc) Confirm(p catalog.Product) bool { return f(p) }

// Confirmed approves every request. Use it when the caller already asked.
var Confirmed Confirmer = ConfirmFunc(func(catalog.Product) bool { return true })

// Store is the part of listing.Synchronizer the coordinator writes through.
type Store interface {
	Snapshot() listing.Snapshot
	Amend(generation uint64, fn func(listing.Snapshot) listing.Snapshot) (before, after listing.Snapshot, ok bool)
	CompareAndSwap(revision uint64, next listing.Snapshot) bool
}

var _ Store = (*listing.Synchronizer)(nil)

// Pending tracks one in-flight mutation. For creates, ID and Product are
// filled in before Done is closed.
type Pending struct {
	Op      Op
	ID      int64
	Product catalog.Product

	index      int
	origin     listing.Snapshot
	optimistic listing.Snapshot

	mu    sync.Mutex
	state State
	err   error
	done  chan struct{}
}

// Origin is the snapshot as it was before the optimistic edit.
func (p *Pending) Origin() listing.Snapshot { return p.origin }

// Done is closed once the backend answered.
func (p *Pending) Done() <-chan struct{} { return p.done }

// State reports the current lifecycle state.
func (p *Pending) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err is the backend error for a rolled-back mutation.
func (p *Pending) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Wait blocks until the mutation settles or ctx ends.
func (p *Pending) Wait(ctx context.Context) (State, error) {
	select {
	case <-p.done:
		return p.State(), p.Err()
	case <-ctx.Done():
		return StatePending, ctx.Err()
	}
}

func (p *Pending) settle(state State, err error) {
	p.mu.Lock()
	p.state = state
	p.err = err
	p.mu.Unlock()
	close(p.done)
}

// Coordinator runs the confirm, optimistic update, request, reconcile cycle
// for every mutating action.
type Coordinator struct {
	store    Store
	mutator  catalog.Mutator
	notifier Notifier
	log      logger.Logger
	timeout  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pending map[int64]*Pending
	wg      sync.WaitGroup
}

// Options configure a Coordinator. Zero values use defaults.
type Options struct {
	Notifier Notifier
	Logger   logger.Logger
	Timeout  time.Duration
}

// NewCoordinator builds a Coordinator writing optimistic edits to store.
func NewCoordinator(store Store, mutator catalog.Mutator, opts Options) *Coordinator {
	c := &Coordinator{
		store:    store,
		mutator:  mutator,
		notifier: opts.Notifier,
		log:      opts.Logger,
		timeout:  opts.Timeout,
		now:      time.Now,
		pending:  make(map[int64]*Pending),
	}
	if c.notifier == nil {
		c.notifier = NotifierFunc(func(Notification) {})
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	return c
}

// IsPending reports whether a mutation for id is in flight.
func (c *Coordinator) IsPending(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[id]
	return ok
}

// InFlight returns the number of unsettled deletes.
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Wait blocks until every issued mutation has settled.
func (c *Coordinator) Wait() { c.wg.Wait() }

// RequestDelete removes id from snap optimistically and deletes it on the
// backend in the background. The returned snapshot is the optimistic one.
func (c *Coordinator) RequestDelete(ctx context.Context, id int64, snap listing.Snapshot, confirm Confirmer) (*Pending, listing.Snapshot, error) {
	log := c.log.With(logger.Int64("product_id", id))

	if !c.reserve(id) {
		log.Debug("delete rejected, already pending")
		return nil, snap, fmt.Errorf("delete product %d: %w", id, ErrAlreadyPending)
	}

	idx := snap.IndexOf(id)
	if idx < 0 {
		c.release(id)
		return nil, snap, fmt.Errorf("delete product %d: %w", id, ErrNotFound)
	}
	product := snap.Records[idx]

	if confirm == nil || !confirm.Confirm(product) {
		c.release(id)
		return nil, snap, fmt.Errorf("delete product %d: %w", id, ErrDeclined)
	}

	found := false
	before, after, ok := c.store.Amend(snap.Generation, func(cur listing.Snapshot) listing.Snapshot {
		if cur.IndexOf(id) < 0 {
			return cur
		}
		found = true
		idx = cur.IndexOf(id)
		next, _ := cur.Without(id)
		return next
	})
	if !ok {
		c.release(id)
		return nil, c.store.Snapshot(), fmt.Errorf("delete product %d: %w", id, ErrStaleSnapshot)
	}
	if !found {
		c.release(id)
		return nil, after, fmt.Errorf("delete product %d: %w", id, ErrNotFound)
	}

	p := &Pending{
		Op:         OpDelete,
		ID:         id,
		Product:    product,
		index:      idx,
		origin:     before,
		optimistic: after,
		done:       make(chan struct{}),
	}
	c.mu.Lock()
	c.pending[id] = p
	c.mu.Unlock()

	log.Info("optimistic delete applied",
		logger.Int("remaining", len(after.Records)),
		logger.Int64("total", after.TotalCount))

	c.wg.Add(1)
	go c.runDelete(ctx, p)
	return p, after, nil
}

func (c *Coordinator) runDelete(ctx context.Context, p *Pending) {
	defer c.wg.Done()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	log := c.log.With(logger.Int64("product_id", p.ID))
	err := c.mutator.DeleteProduct(ctx, p.ID)

	var backendErr *catalog.BackendError
	if errors.As(err, &backendErr) && backendErr.NotFound() {
		// Gone either way; keep the optimistic removal.
		log.Info("delete target already gone on backend")
		err = nil
	}

	if err == nil {
		c.release(p.ID)
		log.Info("delete confirmed")
		p.settle(StateConfirmed, nil)
		c.notify(KindSuccess, OpDelete, p.ID, "Product deleted successfully")
		return
	}

	restored := c.rollback(p)
	c.release(p.ID)
	log.Warn("delete failed, rolled back", logger.Error(err), logger.String("restore", restored))
	p.settle(StateRolledBack, err)
	c.notify(KindError, OpDelete, p.ID, "Failed to delete product: "+catalog.Describe(err))
}

// rollback restores the pre-delete snapshot when nothing else was written
// since the optimistic edit. Otherwise the record is re-inserted into the
// current snapshot of the same generation. A newer generation already shows
// the backend's view and is left alone.
func (c *Coordinator) rollback(p *Pending) string {
	if c.store.CompareAndSwap(p.optimistic.Revision, p.origin) {
		return "snapshot"
	}
	_, _, ok := c.store.Amend(p.origin.Generation, func(cur listing.Snapshot) listing.Snapshot {
		if cur.IndexOf(p.ID) >= 0 {
			return cur
		}
		return cur.WithInserted(p.index, p.Product)
	})
	if ok {
		return "reinsert"
	}
	return "none"
}

// RequestCreate validates in and creates it on the backend in the
// background. Nothing is inserted locally; callers re-sync on success.
func (c *Coordinator) RequestCreate(ctx context.Context, in catalog.ProductInput) (*Pending, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	p := &Pending{Op: OpCreate, done: make(chan struct{})}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		created, err := c.mutator.CreateProduct(ctx, in)
		if err != nil {
			c.log.Warn("create failed", logger.String("title", in.Title), logger.Error(err))
			p.settle(StateRolledBack, err)
			c.notify(KindError, OpCreate, 0, "Failed to create product: "+catalog.Describe(err))
			return
		}
		p.ID = created.ID
		p.Product = created
		c.log.Info("product created", logger.Int64("product_id", created.ID))
		p.settle(StateConfirmed, nil)
		c.notify(KindSuccess, OpCreate, created.ID, fmt.Sprintf("Product %d created", created.ID))
	}()
	return p, nil
}

func (c *Coordinator) reserve(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[id]; ok {
		return false
	}
	c.pending[id] = nil
	return true
}

func (c *Coordinator) release(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Coordinator) notify(kind Kind, op Op, id int64, msg string) {
	c.notifier.Notify(Notification{Kind: kind, Op: op, ProductID: id, Message: msg, At: c.now()})
}
