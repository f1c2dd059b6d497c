package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/five82/vitrine/internal/logger"
	"github.com/five82/vitrine/internal/query"
)

// Lister fetches one page of products and the filtered total.
// This interface is implemented by *Client and can be used for testing.
type Lister interface {
	ListProducts(ctx context.Context, q query.State) ([]Product, error)
	FetchStats(ctx context.Context, q query.State) (Stats, error)
}

// Mutator changes products on the backend.
type Mutator interface {
	DeleteProduct(ctx context.Context, id int64) error
	CreateProduct(ctx context.Context, in ProductInput) (Product, error)
}

// Ensure Client implements Lister and Mutator at compile time.
var (
	_ Lister  = (*Client)(nil)
	_ Mutator = (*Client)(nil)
)

// Client talks to the products REST API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	log       logger.Logger
}

const (
	DefaultBaseURL   = "http://127.0.0.1:8000"
	DefaultTimeout   = 5 * time.Second
	defaultUserAgent = "vitrine/0.1"
	maxBodyBytes     = 8 << 20

	productsPath = "/products/"
	statsPath    = "/products/stats/"
)

// Options configure a Client. Zero values use defaults; RateLimit <= 0
// disables pacing.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
	UserAgent string
	Transport http.RoundTripper
	Logger    logger.Logger
}

// NewClient builds a Client for the API rooted at opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		limiter:   limiter,
		userAgent: userAgent,
		log:       log,
	}, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListProducts fetches the page of products described by q. The backend may
// answer with a bare JSON array or a {"data": [...]} envelope; both normalize
// to the same slice and a missing list is empty. Individual records that fail
// to decode are dropped with a warning.
func (c *Client) ListProducts(ctx context.Context, q query.State) ([]Product, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	body, err := c.do(ctx, http.MethodGet, productsPath, q.Values(), nil)
	if err != nil {
		return nil, err
	}
	products, skipped, err := decodeProductList(body)
	if err != nil {
		return nil, &MalformedResponseError{Op: "GET " + productsPath, Err: err}
	}
	if skipped > 0 {
		c.log.Warn("dropped malformed products",
			logger.String("op", "GET "+productsPath),
			logger.Int("skipped", skipped),
			logger.Int("kept", len(products)))
	}
	return products, nil
}

// FetchStats returns the number of products matching q's filters, ignoring
// pagination.
func (c *Client) FetchStats(ctx context.Context, q query.State) (Stats, error) {
	if c == nil {
		return Stats{}, fmt.Errorf("client is nil")
	}
	body, err := c.do(ctx, http.MethodGet, statsPath, q.FilterValues(), nil)
	if err != nil {
		return Stats{}, err
	}
	stats, err := decodeStats(body)
	if err != nil {
		return Stats{}, &MalformedResponseError{Op: "GET " + statsPath, Err: err}
	}
	return stats, nil
}

// DeleteProduct removes the product with id. Any 2xx counts as success.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if id <= 0 {
		return fmt.Errorf("product id required")
	}
	_, err := c.do(ctx, http.MethodDelete, productPath(id), nil, nil)
	return err
}

// CreateProduct posts a new product and returns the stored record.
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if c == nil {
		return Product{}, fmt.Errorf("client is nil")
	}
	if err := in.Validate(); err != nil {
		return Product{}, err
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return Product{}, fmt.Errorf("encode product: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, productsPath, nil, payload)
	if err != nil {
		return Product{}, err
	}
	created, err := decodeProduct(body)
	if err != nil {
		return Product{}, &MalformedResponseError{Op: "POST " + productsPath, Err: err}
	}
	return created, nil
}

func productPath(id int64) string {
	return productsPath + strconv.FormatInt(id, 10) + "/"
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, payload []byte) ([]byte, error) {
	op := method + " " + path
	reqURL := c.resolve(path, params)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &NetworkError{Op: op, Err: err}
		}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			logger.String("op", op),
			logger.String("request_id", requestID),
			logger.Duration("elapsed", time.Since(started)),
			logger.Error(err))
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	c.log.Debug("request done",
		logger.String("op", op),
		logger.String("query", params.Encode()),
		logger.String("request_id", requestID),
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", time.Since(started)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &BackendError{Op: op, Status: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

func (c *Client) resolve(path string, params url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(c.baseURL.Path, "/") + path
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

// errorMessage extracts a readable message from an error body: FastAPI's
// "detail", a generic "message"/"error", or the trimmed text itself.
func errorMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		return ""
	}
	const limit = 200
	if len(trimmed) > limit {
		trimmed = trimmed[:limit]
	}
	return trimmed
}

// decodeProductList normalizes both list shapes. Records that fail to decode
// are dropped and counted so one bad row does not blank the whole page.
func decodeProductList(body []byte) ([]Product, int, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, 0, nil
	}
	if !json.Valid(trimmed) {
		return nil, 0, fmt.Errorf("body is not JSON")
	}
	list := trimmed
	if trimmed[0] == '{' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, 0, err
		}
		list = bytes.TrimSpace(envelope.Data)
	}
	if len(list) == 0 || list[0] != '[' {
		return nil, 0, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(list, &items); err != nil {
		return nil, 0, err
	}
	products := make([]Product, 0, len(items))
	skipped := 0
	for _, item := range items {
		var p Product
		if err := json.Unmarshal(item, &p); err != nil {
			skipped++
			continue
		}
		products = append(products, p)
	}
	return products, skipped, nil
}

func decodeStats(body []byte) (Stats, error) {
	var raw struct {
		Total *json.Number `json:"total_products"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Stats{}, err
	}
	if raw.Total == nil {
		return Stats{}, fmt.Errorf("total_products missing")
	}
	total, err := raw.Total.Int64()
	if err != nil {
		return Stats{}, fmt.Errorf("total_products %q: %w", raw.Total.String(), err)
	}
	if total < 0 {
		return Stats{}, fmt.Errorf("total_products is negative (%d)", total)
	}
	return Stats{TotalProducts: total}, nil
}

func decodeProduct(body []byte) (Product, error) {
	trimmed := bytes.TrimSpace(body)
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err == nil {
		if data := bytes.TrimSpace(envelope.Data); len(data) > 0 && data[0] == '{' {
			trimmed = data
		}
	}
	var p Product
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
