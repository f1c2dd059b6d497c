package listing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/vitrine/internal/catalog"
	"github.com/five82/vitrine/internal/query"
)

type fakeLister struct {
	mu      sync.Mutex
	records []catalog.Product
	total   int64
	listErr error
	// gate, when set, blocks ListProducts for the given title filter until
	// the channel is closed.
	gate  map[string]chan struct{}
	calls int32
}

func (f *fakeLister) ListProducts(ctx context.Context, q query.State) ([]catalog.Product, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	ch := f.gate[q.Filter(query.KeyTitle)]
	f.mu.Unlock()
	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []catalog.Product
	for _, p := range f.records {
		if title := q.Filter(query.KeyTitle); title == "" || p.Title == title {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeLister) FetchStats(ctx context.Context, q query.State) (catalog.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q.Filter(query.KeyTitle) != "" {
		var n int64
		for _, p := range f.records {
			if p.Title == q.Filter(query.KeyTitle) {
				n++
			}
		}
		return catalog.Stats{TotalProducts: n}, nil
	}
	return catalog.Stats{TotalProducts: f.total}, nil
}

func products(n int) []catalog.Product {
	out := make([]catalog.Product, n)
	for i := range out {
		out[i] = catalog.Product{ID: int64(i + 1), Title: fmt.Sprintf("item %d", i+1), Price: float64(i + 1)}
	}
	return out
}

func TestSync_InitialSnapshotIsIdle(t *testing.T) {
	s := New(&fakeLister{})
	snap := s.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.Records)
	assert.Zero(t, s.Generation())
}

func TestSync_AppliesRecordsAndTotal(t *testing.T) {
	lister := &fakeLister{records: products(3), total: 120}
	s := New(lister)

	snap, applied := s.Sync(context.Background(), query.New(3))

	require.True(t, applied)
	assert.Equal(t, StatusLoaded, snap.Status)
	assert.Len(t, snap.Records, 3)
	assert.EqualValues(t, 120, snap.TotalCount)
	assert.Equal(t, 40, snap.TotalPages())
	assert.EqualValues(t, 1, snap.Generation)
	assert.False(t, snap.UpdatedAt.IsZero())
}

func TestSync_StaleGenerationIsDiscarded(t *testing.T) {
	old := make(chan struct{})
	lister := &fakeLister{
		records: []catalog.Product{{ID: 1, Title: "bike"}, {ID: 2, Title: "bikes"}},
		gate:    map[string]chan struct{}{"bike": old},
	}
	s := New(lister)

	g1 := s.Begin(query.New(10).SetFilter(query.KeyTitle, "bike"))
	g2 := s.Begin(query.New(10).SetFilter(query.KeyTitle, "bikes"))
	require.Less(t, g1.Generation, g2.Generation)

	var wg sync.WaitGroup
	var slow Result
	wg.Add(1)
	go func() {
		defer wg.Done()
		slow = s.Fetch(context.Background(), g1)
	}()

	// g2 resolves and is applied first.
	snap, applied := s.Apply(s.Fetch(context.Background(), g2))
	require.True(t, applied)
	require.Len(t, snap.Records, 1)
	require.Equal(t, "bikes", snap.Records[0].Title)

	close(old)
	wg.Wait()
	snap, applied = s.Apply(slow)

	assert.False(t, applied, "result for an older generation must be dropped")
	assert.Equal(t, g2.Generation, snap.Generation)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "bikes", snap.Records[0].Title)
	assert.Equal(t, "bikes", s.Snapshot().Query.Filter(query.KeyTitle))
}

func TestSync_ErrorClearsRecordsAndTotal(t *testing.T) {
	lister := &fakeLister{records: products(5), total: 5}
	s := New(lister)
	_, _ = s.Sync(context.Background(), query.New(10))

	lister.mu.Lock()
	lister.listErr = &catalog.BackendError{Op: "list products", Status: 500, Message: "boom"}
	lister.mu.Unlock()

	snap, applied := s.Sync(context.Background(), query.New(10))

	require.True(t, applied)
	assert.Equal(t, StatusError, snap.Status)
	assert.Empty(t, snap.Records)
	assert.Zero(t, snap.TotalCount)
	assert.Equal(t, "Backend error 500: boom", snap.ErrorDetail())
}

func TestSync_TimeoutBecomesError(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	lister := &fakeLister{gate: map[string]chan struct{}{"": block}}
	s := New(lister, WithTimeout(20*time.Millisecond))

	snap, applied := s.Sync(context.Background(), query.New(10))

	require.True(t, applied)
	assert.Equal(t, StatusError, snap.Status)
	assert.True(t, errors.Is(snap.Err, context.DeadlineExceeded))
}

func TestBegin_PublishesLoadingSnapshot(t *testing.T) {
	lister := &fakeLister{records: products(2), total: 2}
	s := New(lister)
	_, _ = s.Sync(context.Background(), query.New(10))

	next := query.New(10).SetFilter(query.KeyTitle, "item 1")
	s.Begin(next)
	snap := s.Snapshot()

	assert.Equal(t, StatusLoading, snap.Status)
	assert.Empty(t, snap.Records)
	assert.Zero(t, snap.TotalCount)
	assert.Equal(t, "item 1", snap.Query.Filter(query.KeyTitle))
}

func TestSnapshot_ReturnsCopies(t *testing.T) {
	s := New(&fakeLister{records: products(2), total: 2})
	snap, _ := s.Sync(context.Background(), query.New(10))
	snap.Records[0].Title = "mutated"

	assert.Equal(t, "item 1", s.Snapshot().Records[0].Title)
}

func TestAmendAndCompareAndSwap(t *testing.T) {
	s := New(&fakeLister{records: products(3), total: 3})
	loaded, _ := s.Sync(context.Background(), query.New(10))

	before, after, ok := s.Amend(loaded.Generation, func(cur Snapshot) Snapshot {
		out, _ := cur.Without(2)
		return out
	})
	require.True(t, ok)
	assert.Len(t, before.Records, 3)
	assert.Len(t, after.Records, 2)
	assert.Greater(t, after.Revision, before.Revision)

	_, _, ok = s.Amend(loaded.Generation+1, func(cur Snapshot) Snapshot { return cur })
	assert.False(t, ok, "amend for a future generation must be refused")

	assert.False(t, s.CompareAndSwap(before.Revision, before), "stale revision must be refused")
	require.True(t, s.CompareAndSwap(after.Revision, before))
	assert.Len(t, s.Snapshot().Records, 3)

	s.Begin(query.New(10))
	assert.False(t, s.CompareAndSwap(s.Snapshot().Revision, before), "old generation must be refused")
}

func TestSnapshot_WithoutAndWithInserted(t *testing.T) {
	snap := Snapshot{Records: products(3), TotalCount: 3}

	without, ok := snap.Without(2)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 3}, ids(without.Records))
	assert.EqualValues(t, 2, without.TotalCount)
	assert.Len(t, snap.Records, 3, "receiver must be left untouched")

	_, ok = snap.Without(99)
	assert.False(t, ok)

	back := without.WithInserted(1, snap.Records[1])
	if diff := cmp.Diff(snap.Records, back.Records); diff != "" {
		t.Fatalf("WithInserted records mismatch (-want +got):\n%s", diff)
	}
	assert.EqualValues(t, 3, back.TotalCount)

	empty := Snapshot{Records: products(1)}
	out, ok := empty.Without(1)
	require.True(t, ok)
	assert.Zero(t, out.TotalCount, "total never goes below zero")
}

func ids(records []catalog.Product) []int64 {
	out := make([]int64, len(records))
	for i, p := range records {
		out[i] = p.ID
	}
	return out
}

// Backed by the real HTTP client so the two list shapes go through decoding.
func TestSync_EnvelopeAndBareArrayYieldSameRecords(t *testing.T) {
	const items = `[{"id":1,"title":"Desk","price":"120.50","url":"https://shop/desk"},{"id":2,"title":"Lamp","price":15}]`
	bodies := map[string]string{
		"envelope": `{"data":` + items + `}`,
		"bare":     items,
	}

	results := map[string][]catalog.Product{}
	for name, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Path == "/products/stats/" {
				_, _ = w.Write([]byte(`{"total_products":2}`))
				return
			}
			_, _ = w.Write([]byte(body))
		}))
		client, err := catalog.NewClient(catalog.Options{BaseURL: srv.URL})
		require.NoError(t, err)

		snap, applied := New(client).Sync(context.Background(), query.New(10))
		srv.Close()

		require.True(t, applied, name)
		require.Equal(t, StatusLoaded, snap.Status, name)
		results[name] = snap.Records
	}

	if diff := cmp.Diff(results["envelope"], results["bare"]); diff != "" {
		t.Fatalf("records differ between envelope and bare array (-envelope +bare):\n%s", diff)
	}
	assert.Len(t, results["bare"], 2)
}

func TestSync_TotalComesFromStatsNotPage(t *testing.T) {
	var listQuery, statsQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/products/stats/" {
			statsQuery = r.URL.RawQuery
			_, _ = w.Write([]byte(`{"total_products":37}`))
			return
		}
		listQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"data":[{"id":4,"title":"A","price":12},{"id":9,"title":"B","price":48}]}`))
	}))
	defer srv.Close()

	client, err := catalog.NewClient(catalog.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	q := query.New(query.DefaultPageSize).
		SetFilter(query.KeyMinPrice, "10").
		SetFilter(query.KeyMaxPrice, "50")

	snap, applied := New(client).Sync(context.Background(), q)

	require.True(t, applied)
	assert.Len(t, snap.Records, 2)
	assert.EqualValues(t, 37, snap.TotalCount)
	assert.Equal(t, "limit=50&max_price=50&min_price=10&offset=0", listQuery)
	assert.Equal(t, "max_price=50&min_price=10", statsQuery)
}
