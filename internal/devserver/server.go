package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/five82/vitrine/internal/catalog"
	"github.com/five82/vitrine/internal/logger"
	"github.com/five82/vitrine/internal/query"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Options tune the dev backend.
type Options struct {
	// BareList answers GET /products/ with a bare array instead of the
	// {"data": [...]} envelope.
	BareList bool
	// FailDeletes makes every DELETE answer 500.
	FailDeletes bool
	// Latency is added before every response.
	Latency time.Duration
	Logger  logger.Logger
}

// Server serves the products API from a Store.
type Server struct {
	store       *Store
	opts        Options
	log         logger.Logger
	failDeletes atomic.Bool
	router      chi.Router

	http     *http.Server
	listener net.Listener
}

// New builds a Server over store.
func New(store *Store, opts Options) *Server {
	s := &Server{store: store, opts: opts, log: opts.Logger}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.failDeletes.Store(opts.FailDeletes)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(s.log))
	if opts.Latency > 0 {
		r.Use(delay(opts.Latency))
	}
	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.listProducts)
		r.Post("/", s.createProduct)
		r.Get("/stats/", s.productStats)
		r.Get("/{id}/", s.readProduct)
		r.Delete("/{id}/", s.deleteProduct)
	})
	s.router = r
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Store returns the backing store.
func (s *Server) Store() *Store { return s.store }

// SetFailDeletes toggles delete fault injection at runtime.
func (s *Server) SetFailDeletes(fail bool) { s.failDeletes.Store(fail) }

// Start listens on addr ("127.0.0.1:0" picks a free port) and serves in the
// background. It returns the base URL clients should use.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("dev backend stopped", logger.Error(err))
		}
	}()
	base := "http://" + ln.Addr().String()
	s.log.Info("dev backend listening", logger.String("url", base), logger.Int("products", s.store.Len()))
	return base, nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	criteria, ok := s.criteria(w, r)
	if !ok {
		return
	}
	limit, err := intParam(r, "limit", defaultLimit)
	if err != nil || limit < 1 || limit > maxLimit {
		writeDetail(w, http.StatusUnprocessableEntity, "limit must be between 1 and "+strconv.Itoa(maxLimit))
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "offset must not be negative")
		return
	}

	matched := s.store.Filter(criteria)
	page := []catalog.Product{}
	if offset < len(matched) {
		end := min(offset+limit, len(matched))
		page = matched[offset:end]
	}
	if s.opts.BareList {
		writeJSON(w, http.StatusOK, page)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": page})
}

func (s *Server) productStats(w http.ResponseWriter, r *http.Request) {
	criteria, ok := s.criteria(w, r)
	if !ok {
		return
	}
	matched := s.store.Filter(criteria)
	stats := map[string]any{
		"total_products": len(matched),
		"average_price":  0.0,
		"min_price":      0.0,
		"max_price":      0.0,
	}
	if len(matched) > 0 {
		lo, hi, sum := matched[0].Price, matched[0].Price, 0.0
		for _, p := range matched {
			lo = min(lo, p.Price)
			hi = max(hi, p.Price)
			sum += p.Price
		}
		stats["average_price"] = sum / float64(len(matched))
		stats["min_price"] = lo
		stats["max_price"] = hi
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) readProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	p, found := s.store.Get(id)
	if !found {
		writeDetail(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	if s.failDeletes.Load() {
		writeDetail(w, http.StatusInternalServerError, "deletes are disabled on this backend")
		return
	}
	if !s.store.Delete(id) {
		writeDetail(w, http.StatusNotFound, "Product not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}
	if err := in.Validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, s.store.Create(in))
}

func (s *Server) criteria(w http.ResponseWriter, r *http.Request) (query.Criteria, bool) {
	q, err := query.FromValues(r.URL.Query(), query.DefaultPageSize)
	if err == nil {
		var c query.Criteria
		if c, err = q.Criteria(); err == nil {
			return c, true
		}
	}
	writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	return query.Criteria{}, false
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeDetail(w, http.StatusUnprocessableEntity, "product id must be a positive integer")
		return 0, false
	}
	return id, true
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
