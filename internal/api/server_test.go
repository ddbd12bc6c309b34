package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/knowyournotes/catalog-server/internal/auth"
	"github.com/knowyournotes/catalog-server/internal/logger"
	"github.com/knowyournotes/catalog-server/internal/service"
	"github.com/knowyournotes/catalog-server/internal/store"
	"github.com/knowyournotes/catalog-server/internal/store/sqlite"
	"github.com/knowyournotes/catalog-server/internal/store/storetest"
	"github.com/knowyournotes/catalog-server/internal/validation"
)

const (
	aliceID = "0b6f3c1e-1a7e-4c43-9a51-6f1d2c9e7a01"
	bobID   = "5d2e8a90-3b4c-4f1a-8e6d-2a7b9c0d1e02"
)

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api    humatest.TestAPI
	client store.Client
	tokens *auth.TokenService
}

// setupTestServer creates a server over a fresh SQLite store.
func setupTestServer(t *testing.T, configure ...func(*Options)) *testServer {
	t.Helper()

	client, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	keyHex, err := auth.GenerateKeyHex()
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(keyHex, "knowyournotes", "knowyournotes-api")
	require.NoError(t, err)

	log := logger.Discard()
	resolver := service.NewNoteResolver(client, log)
	services := &Services{
		Catalog:    service.NewCatalogService(client, resolver, log),
		Ranking:    service.NewRankingService(client, resolver, rand.New(rand.NewPCG(7, 11)), log),
		Search:     service.NewSearchService(service.NewStoreMatcher(client), log),
		Collection: service.NewCollectionService(client, log),
		Profile:    service.NewProfileService(client, validation.New(), log),
	}

	opts := Options{
		HomeListSize: 2,
		Checks: map[string]HealthCheck{
			"store": func(ctx context.Context) error {
				_, err := client.Fetch(ctx, store.KindBrands, store.All().WithLimit(1))
				return err
			},
		},
	}
	for _, fn := range configure {
		fn(&opts)
	}

	s := NewServer(services, tokens, opts, log)
	t.Cleanup(s.Close)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.API()),
		client: client,
		tokens: tokens,
	}
}

// bearer returns an Authorization header for userID.
func (ts *testServer) bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := ts.tokens.IssueToken(userID, "", time.Hour)
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

func (ts *testServer) seed(t *testing.T, kind store.Kind, r store.Record) string {
	t.Helper()
	return storetest.Seed(t, ts.client, kind, r)[0].ID()
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), "body: %s", body)
	return v
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

var errProbe = errors.New("probe failed")
