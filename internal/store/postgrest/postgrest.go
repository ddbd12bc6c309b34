// Package postgrest implements store.Client against a PostgREST endpoint,
// the REST layer in front of the hosted catalog database.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/knowyournotes/catalog-server/internal/ratelimit"
	"github.com/knowyournotes/catalog-server/internal/store"
)

// Config configures a PostgREST store.
type Config struct {
	URL     string        // Base URL, e.g. https://xyz.supabase.co/rest/v1
	APIKey  string        // Sent as apikey and bearer token
	RPS     float64       // Outbound request budget; 0 disables throttling
	Timeout time.Duration // Per-request timeout; 0 means 10s
}

// Store implements store.Client over HTTP.
type Store struct {
	base    *url.URL
	apiKey  string
	client  *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

var _ store.Client = (*Store)(nil)

// New creates a PostgREST store.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.URL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid postgrest url %q", cfg.URL)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	s := &Store{
		base:   base,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
	if cfg.RPS > 0 {
		s.limiter = ratelimit.New(cfg.RPS, max(1, int(cfg.RPS)))
	}
	return s, nil
}

// Close stops the outbound limiter.
func (s *Store) Close() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	s.client.CloseIdleConnections()
	return nil
}

// Fetch returns the records of kind matching q.
func (s *Store) Fetch(ctx context.Context, kind store.Kind, q store.Query) ([]store.Record, error) {
	schema, err := store.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if err := schema.CheckQuery(kind, q); err != nil {
		return nil, err
	}

	params, empty := encodeFilters(q)
	if empty {
		return []store.Record{}, nil
	}
	params.Set("select", "*")
	if order := encodeOrder(q.Orders); order != "" {
		params.Set("order", order)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var records []store.Record
	if err := s.do(ctx, http.MethodGet, kind, params, nil, &records); err != nil {
		return nil, err
	}

	// ilike patterns cannot express a literal '*'; re-check substring
	// filters locally so the token always matches literally.
	if hasContains(q) {
		records = store.Apply(records, store.Query{Filters: q.Filters})
	}
	if records == nil {
		records = []store.Record{}
	}
	return records, nil
}

// FetchOne returns the record with the given id.
func (s *Store) FetchOne(ctx context.Context, kind store.Kind, recordID string) (store.Record, error) {
	records, err := s.Fetch(ctx, kind, store.Where("id", recordID).WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, store.ErrNotFound.WithMessage(fmt.Sprintf("%s %s not found", kind, recordID))
	}
	return records[0], nil
}

// Insert creates a record. The server assigns the id when none is given.
func (s *Store) Insert(ctx context.Context, kind store.Kind, fields store.Record) (store.Record, error) {
	schema, err := store.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if err := schema.CheckRecord(kind, fields); err != nil {
		return nil, err
	}

	var records []store.Record
	if err := s.do(ctx, http.MethodPost, kind, url.Values{}, fields, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, store.ErrUnavailable.WithMessage("insert returned no representation")
	}
	return records[0], nil
}

// Update patches the record with the given id.
func (s *Store) Update(ctx context.Context, kind store.Kind, recordID string, fields store.Record) (store.Record, error) {
	schema, err := store.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if err := schema.CheckRecord(kind, fields); err != nil {
		return nil, err
	}
	if _, ok := fields["id"]; ok {
		return nil, store.ErrInvalidQuery.WithMessage("id cannot be updated")
	}

	params, _ := encodeFilters(store.Where("id", recordID))
	var records []store.Record
	if err := s.do(ctx, http.MethodPatch, kind, params, fields, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, store.ErrNotFound.WithMessage(fmt.Sprintf("%s %s not found", kind, recordID))
	}
	return records[0], nil
}

// Delete removes the record with the given id.
func (s *Store) Delete(ctx context.Context, kind store.Kind, recordID string) error {
	n, err := s.DeleteWhere(ctx, kind, store.Where("id", recordID))
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound.WithMessage(fmt.Sprintf("%s %s not found", kind, recordID))
	}
	return nil
}

// DeleteWhere removes every record of kind matching q.
func (s *Store) DeleteWhere(ctx context.Context, kind store.Kind, q store.Query) (int, error) {
	schema, err := store.Lookup(kind)
	if err != nil {
		return 0, err
	}
	if err := schema.CheckQuery(kind, q); err != nil {
		return 0, err
	}
	if len(q.Filters) == 0 {
		return 0, store.ErrInvalidQuery.WithMessage("delete without filters")
	}
	if hasContains(q) {
		// A widened ilike pattern could delete rows the token does not match.
		return 0, store.ErrInvalidQuery.WithMessage("substring filters are not supported on delete")
	}

	params, empty := encodeFilters(q)
	if empty {
		return 0, nil
	}
	var records []store.Record
	if err := s.do(ctx, http.MethodDelete, kind, params, nil, &records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// do performs one request and decodes the JSON array response into out.
func (s *Store) do(ctx context.Context, method string, kind store.Kind, params url.Values, body any, out *[]store.Record) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, s.base.Host); err != nil {
			return err
		}
	}

	u := *s.base
	u.Path = u.Path + "/" + string(kind)
	u.RawQuery = params.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", kind, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return store.ErrUnavailable.WithMessage(fmt.Sprintf("%s %s", method, kind)).WithCause(err)
	}
	defer resp.Body.Close()

	s.logger.DebugContext(ctx, "postgrest request",
		"method", method,
		"kind", kind,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= 300 {
		return statusError(resp, method, kind)
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return store.ErrUnavailable.WithMessage("decode response").WithCause(err)
	}
	return nil
}

// apiError is PostgREST's error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func statusError(resp *http.Response, method string, kind store.Kind) error {
	var body apiError
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	cause := fmt.Errorf("%s %s: status %d: %s %s", method, kind, resp.StatusCode, body.Code, body.Message)

	switch {
	case resp.StatusCode == http.StatusConflict || body.Code == "23505":
		return store.ErrConflict.WithCause(cause)
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusNotFound:
		return store.ErrInvalidQuery.WithCause(cause)
	default:
		return store.ErrUnavailable.WithCause(cause)
	}
}
