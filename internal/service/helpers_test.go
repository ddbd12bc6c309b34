package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knowyournotes/catalog-server/internal/logger"
	"github.com/knowyournotes/catalog-server/internal/store"
	"github.com/knowyournotes/catalog-server/internal/store/sqlite"
	"github.com/knowyournotes/catalog-server/internal/store/storetest"
)

// newTestClient opens a SQLite store in a temp dir. SQLite returns
// unordered rows in insertion order, which the tests rely on.
func newTestClient(t *testing.T) store.Client {
	t.Helper()

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedOne(t *testing.T, c store.Client, kind store.Kind, r store.Record) store.Record {
	t.Helper()
	return storetest.Seed(t, c, kind, r)[0]
}

// faultyClient wraps a client and fails selected calls.
type faultyClient struct {
	store.Client

	mu          sync.Mutex
	fetchErr    map[store.Kind]error
	insertErr   map[store.Kind]error
	deleteErr   map[store.Kind]error
	fetches     map[store.Kind]int
	beforeFetch func(kind store.Kind)
}

func newFaultyClient(inner store.Client) *faultyClient {
	return &faultyClient{
		Client:    inner,
		fetchErr:  map[store.Kind]error{},
		insertErr: map[store.Kind]error{},
		deleteErr: map[store.Kind]error{},
		fetches:   map[store.Kind]int{},
	}
}

func (f *faultyClient) Fetch(ctx context.Context, kind store.Kind, q store.Query) ([]store.Record, error) {
	f.mu.Lock()
	f.fetches[kind]++
	err := f.fetchErr[kind]
	hook := f.beforeFetch
	f.mu.Unlock()

	if hook != nil {
		hook(kind)
	}
	if err != nil {
		return nil, err
	}
	return f.Client.Fetch(ctx, kind, q)
}

func (f *faultyClient) Insert(ctx context.Context, kind store.Kind, fields store.Record) (store.Record, error) {
	f.mu.Lock()
	err := f.insertErr[kind]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Client.Insert(ctx, kind, fields)
}

func (f *faultyClient) Delete(ctx context.Context, kind store.Kind, id string) error {
	f.mu.Lock()
	err := f.deleteErr[kind]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Client.Delete(ctx, kind, id)
}

func (f *faultyClient) fetchCount(kind store.Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[kind]
}

func (f *faultyClient) totalFetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.fetches {
		n += c
	}
	return n
}
