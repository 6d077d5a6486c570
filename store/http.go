package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"stockroom/domain"
	"stockroom/logger"
	"stockroom/util"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultImportWorkers = 4
	maxErrorBody         = 512
)

// HTTPStore talks to the remote REST backend.
type HTTPStore struct {
	baseURL       *url.URL
	client        *http.Client
	importWorkers int
	catalog       singleflight.Group
}

// HTTPOption configures an HTTPStore.
type HTTPOption func(*HTTPStore)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPStore) { s.client = c }
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPStore) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithImportWorkers bounds the number of concurrent requests BulkImport makes.
func WithImportWorkers(n int) HTTPOption {
	return func(s *HTTPStore) {
		if n > 0 {
			s.importWorkers = n
		}
	}
}

// compile-time assertions
var (
	_ domain.ProductStore      = (*HTTPStore)(nil)
	_ domain.WarehousemanStore = (*HTTPStore)(nil)
	_ domain.StatisticsSource  = (*HTTPStore)(nil)
)

// NewHTTPStore constructs a client for the backend at baseURL, for example
// "http://192.168.1.20:3000".
func NewHTTPStore(baseURL string, opts ...HTTPOption) (*HTTPStore, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q: scheme and host required", baseURL)
	}
	s := &HTTPStore{
		baseURL:       u,
		client:        &http.Client{Timeout: defaultTimeout},
		importWorkers: defaultImportWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// List fetches the whole catalog. Concurrent calls share one request; the
// shared request is not cancelled with any single caller, but each caller
// stops waiting when its own ctx is done.
func (s *HTTPStore) List(ctx context.Context) ([]domain.Product, error) {
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.catalog.DoChan("products", func() (interface{}, error) {
		var products []domain.Product
		if err := s.do(fetchCtx, http.MethodGet, "/products", nil, nil, &products); err != nil {
			return nil, err
		}
		return products, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	shared := res.Val.([]domain.Product)
	out := make([]domain.Product, 0, len(shared))
	for _, p := range shared {
		out = append(out, cloneProduct(p))
	}
	return out, nil
}

func (s *HTTPStore) Get(ctx context.Context, id domain.ID) (domain.Product, error) {
	var p domain.Product
	if err := s.do(ctx, http.MethodGet, productPath(id), nil, nil, &p); err != nil {
		return domain.Product{}, notFound(err, id)
	}
	return p, nil
}

// Create posts product; the backend assigns the id.
func (s *HTTPStore) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	var created domain.Product
	if err := s.do(ctx, http.MethodPost, "/products", nil, product, &created); err != nil {
		return domain.Product{}, err
	}
	return created, nil
}

// Update replaces the whole product document.
func (s *HTTPStore) Update(ctx context.Context, id domain.ID, product domain.Product) (domain.Product, error) {
	product.ID = id
	var updated domain.Product
	if err := s.do(ctx, http.MethodPut, productPath(id), nil, product, &updated); err != nil {
		return domain.Product{}, notFound(err, id)
	}
	return updated, nil
}

func (s *HTTPStore) Delete(ctx context.Context, id domain.ID) error {
	return notFound(s.do(ctx, http.MethodDelete, productPath(id), nil, nil, nil), id)
}

// BulkImport posts products with a bounded number of requests in flight.
// The backend sees them in no particular order.
func (s *HTTPStore) BulkImport(ctx context.Context, products []domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.importWorkers)
	for _, p := range products {
		p := p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := s.Create(gctx, p); err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					return err
				}
				mu.Lock()
				errs = append(errs, fmt.Errorf("id=%s: %w", p.ID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// FindBySecretKey returns the first staff member owning secretKey.
func (s *HTTPStore) FindBySecretKey(ctx context.Context, secretKey string) (domain.Warehouseman, error) {
	if secretKey == "" {
		return domain.Warehouseman{}, domain.NewWarehousemanNotFoundError()
	}
	var staff []domain.Warehouseman
	q := url.Values{"secretKey": {secretKey}}
	if err := s.do(ctx, http.MethodGet, "/warehousemans", q, nil, &staff); err != nil {
		return domain.Warehouseman{}, err
	}
	if len(staff) == 0 {
		return domain.Warehouseman{}, domain.NewWarehousemanNotFoundError()
	}
	return staff[0], nil
}

// Statistics fetches the backend's catalog summary.
func (s *HTTPStore) Statistics(ctx context.Context) (domain.Statistics, error) {
	var stats domain.Statistics
	if err := s.do(ctx, http.MethodGet, "/statistics", nil, nil, &stats); err != nil {
		return domain.Statistics{}, err
	}
	return stats, nil
}

func (s *HTTPStore) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *s.baseURL
	u.RawPath = s.baseURL.EscapedPath() + path
	unescaped, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	u.Path = unescaped
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	requestID := util.GenerateUUID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		logger.Logger.Warn().Err(err).
			Str("request_id", requestID).
			Str("method", method).
			Str("path", path).
			Msg("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	logger.Logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("request done")

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", method, path, domain.ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.RemoteError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// productPath returns the escaped path of id; do keeps it escaped as is.
func productPath(id domain.ID) string {
	return "/products/" + url.PathEscape(string(id))
}

// notFound turns a 404 from a product route into a ProductNotFoundError.
func notFound(err error, id domain.ID) error {
	var re *domain.RemoteError
	if errors.As(err, &re) && re.StatusCode == http.StatusNotFound {
		return domain.NewProductNotFoundError(id)
	}
	return err
}
