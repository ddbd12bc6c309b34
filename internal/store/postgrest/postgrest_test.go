package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowyournotes/catalog-server/internal/store"
	"github.com/knowyournotes/catalog-server/internal/store/storetest"
)

// fakeServer is a minimal PostgREST: enough of the filter grammar to run
// the adapter against, backed by in-memory tables.
type fakeServer struct {
	mu       sync.Mutex
	tables   map[string][]store.Record
	seq      int
	requests atomic.Int64
	lastURL  atomic.Value
}

func newFakeServer() *fakeServer {
	return &fakeServer{tables: map[string][]store.Record{}}
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	f.lastURL.Store(r.URL.RawQuery)
	if r.Header.Get("apikey") != "test-key" {
		writeError(w, http.StatusUnauthorized, "PGRST301", "invalid api key")
		return
	}

	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	kind := store.Kind(table)
	if _, err := store.Lookup(kind); err != nil {
		writeError(w, http.StatusNotFound, "PGRST205", "relation does not exist")
		return
	}

	match, err := parseFilters(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "PGRST100", err.Error())
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		var out []store.Record
		for _, rec := range f.tables[table] {
			if match(rec) {
				out = append(out, rec)
			}
		}
		out = store.Apply(out, store.Query{Orders: parseOrder(r.URL.Query().Get("order"))})
		if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit < len(out) {
			out = out[:limit]
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var rec store.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeError(w, http.StatusBadRequest, "PGRST102", err.Error())
			return
		}
		schema, _ := store.Lookup(kind)
		for _, fields := range schema.Unique {
			for _, existing := range f.tables[table] {
				if sameTuple(existing, rec, fields) {
					writeError(w, http.StatusConflict, "23505", "duplicate key value violates unique constraint")
					return
				}
			}
		}
		if rec.ID() == "" {
			f.seq++
			rec["id"] = fmt.Sprintf("%s-%d", schema.Prefix, f.seq)
		}
		f.tables[table] = append(f.tables[table], rec)
		writeJSON(w, http.StatusCreated, []store.Record{rec})

	case http.MethodPatch:
		var patch store.Record
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "PGRST102", err.Error())
			return
		}
		out := []store.Record{}
		for _, rec := range f.tables[table] {
			if match(rec) {
				for k, v := range patch {
					rec[k] = v
				}
				out = append(out, rec)
			}
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodDelete:
		kept, removed := []store.Record{}, []store.Record{}
		for _, rec := range f.tables[table] {
			if match(rec) {
				removed = append(removed, rec)
			} else {
				kept = append(kept, rec)
			}
		}
		f.tables[table] = kept
		writeJSON(w, http.StatusOK, removed)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func sameTuple(a, b store.Record, fields []string) bool {
	for _, f := range fields {
		if a.String(f) != b.String(f) {
			return false
		}
	}
	return true
}

func parseFilters(params map[string][]string) (func(store.Record) bool, error) {
	var preds []func(store.Record) bool
	for field, values := range params {
		if field == "select" || field == "order" || field == "limit" {
			continue
		}
		for _, v := range values {
			op, arg, ok := strings.Cut(v, ".")
			if !ok {
				return nil, fmt.Errorf("malformed filter %q", v)
			}
			field := field
			switch op {
			case "eq":
				preds = append(preds, func(r store.Record) bool { return r[field] != nil && r.String(field) == arg })
			case "is":
				preds = append(preds, func(r store.Record) bool { return r[field] == nil })
			case "in":
				set, err := parseInList(arg)
				if err != nil {
					return nil, err
				}
				preds = append(preds, func(r store.Record) bool {
					for _, s := range set {
						if r.String(field) == s {
							return true
						}
					}
					return false
				})
			case "ilike":
				re := likeRegexp(strings.ReplaceAll(arg, "*", "%"))
				preds = append(preds, func(r store.Record) bool { return r[field] != nil && re.MatchString(r.String(field)) })
			default:
				return nil, fmt.Errorf("unsupported operator %q", op)
			}
		}
	}
	return func(r store.Record) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}, nil
}

func parseInList(arg string) ([]string, error) {
	if !strings.HasPrefix(arg, "(") || !strings.HasSuffix(arg, ")") {
		return nil, fmt.Errorf("malformed in list %q", arg)
	}
	body := arg[1 : len(arg)-1]
	var (
		out     []string
		cur     strings.Builder
		quoted  bool
		escaped bool
	)
	for _, c := range body {
		switch {
		case escaped:
			cur.WriteRune(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			quoted = !quoted
		case c == ',' && !quoted:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	return append(out, cur.String()), nil
}

func likeRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?is)^")
	escaped := false
	for _, c := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(c)))
			escaped = false
		case c == '\\':
			escaped = true
		case c == '%':
			b.WriteString(".*")
		case c == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func parseOrder(s string) []store.Order {
	if s == "" {
		return nil
	}
	var orders []store.Order
	for _, part := range strings.Split(s, ",") {
		pieces := strings.Split(part, ".")
		orders = append(orders, store.Order{Field: pieces[0], Desc: len(pieces) > 1 && pieces[1] == "desc"})
	}
	return orders
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"code": code, "message": msg})
}

func newTestStore(t *testing.T, fake http.Handler) *Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := New(Config{URL: srv.URL + "/rest/v1", APIKey: "test-key"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestClientConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Client { return newTestStore(t, newFakeServer()) })
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New(Config{URL: "not a url"}, slog.Default())
	assert.Error(t, err)
}

func TestEncodeFilters(t *testing.T) {
	params, empty := encodeFilters(store.Where("brand", "Creed, Inc.").
		In("id", []string{`a"b`, "c,d"}).
		Contains("name", `50%_off*`))
	require.False(t, empty)

	assert.Equal(t, "eq.Creed, Inc.", params.Get("brand"))
	assert.Equal(t, `in.("a\"b","c,d")`, params.Get("id"))
	assert.Equal(t, `ilike.*50\%\_off_*`, params.Get("name"))

	_, empty = encodeFilters(store.All().In("id", nil))
	assert.True(t, empty)
}

func TestFetch_EmptyInSkipsRequest(t *testing.T) {
	fake := newFakeServer()
	s := newTestStore(t, fake)

	got, err := s.Fetch(context.Background(), store.KindNotes, store.All().In("id", []string{}))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, fake.requests.Load())
}

func TestFetch_OrderEncodesNullPlacement(t *testing.T) {
	fake := newFakeServer()
	s := newTestStore(t, fake)

	_, err := s.Fetch(context.Background(), store.KindFragrances, store.All().OrderBy("rating", true).WithLimit(10))
	require.NoError(t, err)

	raw, _ := fake.lastURL.Load().(string)
	assert.Contains(t, raw, "order=rating.desc.nullslast")
	assert.Contains(t, raw, "limit=10")
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		want   *store.Error
	}{
		{"conflict", http.StatusConflict, "23505", store.ErrConflict},
		{"bad request", http.StatusBadRequest, "PGRST100", store.ErrInvalidQuery},
		{"server error", http.StatusInternalServerError, "XX000", store.ErrUnavailable},
		{"overloaded", http.StatusServiceUnavailable, "", store.ErrUnavailable},
		{"credentials", http.StatusUnauthorized, "PGRST301", store.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, tt.status, tt.code, "boom")
			}))

			_, err := s.Fetch(context.Background(), store.KindNotes, store.All())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUnreachableServerIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s, err := New(Config{URL: url}, slog.Default())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Fetch(context.Background(), store.KindNotes, store.All())
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestDeleteWhere_RejectsSubstringFilter(t *testing.T) {
	s := newTestStore(t, newFakeServer())

	_, err := s.DeleteWhere(context.Background(), store.KindNotes, store.All().Contains("name", "x"))
	assert.ErrorIs(t, err, store.ErrInvalidQuery)
}
