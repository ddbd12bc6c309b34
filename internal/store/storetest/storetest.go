// Package storetest provides a conformance suite run against every
// store.Client adapter.
package storetest

import (
	"context"
	"testing"

	"github.com/knowyournotes/catalog-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty client. Cleanup is the factory's job.
type Factory func(t *testing.T) store.Client

// Run exercises the store.Client contract.
func Run(t *testing.T, newClient Factory) {
	t.Helper()

	t.Run("InsertAssignsID", func(t *testing.T) { testInsertAssignsID(t, newClient(t)) })
	t.Run("FetchOneNotFound", func(t *testing.T) { testFetchOneNotFound(t, newClient(t)) })
	t.Run("FetchFilters", func(t *testing.T) { testFetchFilters(t, newClient(t)) })
	t.Run("ContainsIsLiteral", func(t *testing.T) { testContainsIsLiteral(t, newClient(t)) })
	t.Run("OrderAndLimit", func(t *testing.T) { testOrderAndLimit(t, newClient(t)) })
	t.Run("UniqueMembership", func(t *testing.T) { testUniqueMembership(t, newClient(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newClient(t)) })
	t.Run("DeleteAndDeleteWhere", func(t *testing.T) { testDeleteAndDeleteWhere(t, newClient(t)) })
	t.Run("UnknownFieldRejected", func(t *testing.T) { testUnknownFieldRejected(t, newClient(t)) })
}

// Seed inserts records and returns them as stored.
func Seed(t *testing.T, c store.Client, kind store.Kind, records ...store.Record) []store.Record {
	t.Helper()
	out := make([]store.Record, 0, len(records))
	for _, r := range records {
		stored, err := c.Insert(context.Background(), kind, r)
		require.NoError(t, err)
		out = append(out, stored)
	}
	return out
}

func names(records []store.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.String("name"))
	}
	return out
}

func testInsertAssignsID(t *testing.T, c store.Client) {
	ctx := context.Background()

	stored, err := c.Insert(ctx, store.KindNotes, store.Record{"name": "Vanilla", "accord": "sweet", "hex": "#f3e5ab"})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID())
	assert.Equal(t, "Vanilla", stored.String("name"))

	got, err := c.FetchOne(ctx, store.KindNotes, stored.ID())
	require.NoError(t, err)
	assert.Equal(t, "sweet", got.String("accord"))

	explicit, err := c.Insert(ctx, store.KindProfiles, store.Record{"id": "user-1", "username": "ana"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", explicit.ID())
}

func testFetchOneNotFound(t *testing.T, c store.Client) {
	_, err := c.FetchOne(context.Background(), store.KindFragrances, "frag-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testFetchFilters(t *testing.T, c store.Client) {
	ctx := context.Background()
	stored := Seed(t, c, store.KindFragrances,
		store.Record{"name": "Aventus", "brand": "Creed", "released": true},
		store.Record{"name": "Silver Mountain", "brand": "Creed", "released": true},
		store.Record{"name": "Oud Wood", "brand": "creed", "released": false},
	)

	got, err := c.Fetch(ctx, store.KindFragrances, store.Where("brand", "Creed").OrderBy("name", false))
	require.NoError(t, err)
	assert.Equal(t, []string{"Aventus", "Silver Mountain"}, names(got))

	got, err = c.Fetch(ctx, store.KindFragrances, store.Where("released", false))
	require.NoError(t, err)
	assert.Equal(t, []string{"Oud Wood"}, names(got))

	got, err = c.Fetch(ctx, store.KindFragrances, store.All().In("id", []string{stored[0].ID(), stored[2].ID()}).OrderBy("name", false))
	require.NoError(t, err)
	assert.Equal(t, []string{"Aventus", "Oud Wood"}, names(got))

	got, err = c.Fetch(ctx, store.KindFragrances, store.All().In("id", nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testContainsIsLiteral(t *testing.T, c store.Client) {
	ctx := context.Background()
	Seed(t, c, store.KindNotes,
		store.Record{"name": "Vanilla"},
		store.Record{"name": "Bourbon Vanilla"},
		store.Record{"name": "Rose 100%"},
		store.Record{"name": "Oud_Noir"},
		store.Record{"name": "Amber"},
	)

	tests := []struct {
		token string
		want  []string
	}{
		{"vanil", []string{"Bourbon Vanilla", "Vanilla"}},
		{"VANILLA", []string{"Bourbon Vanilla", "Vanilla"}},
		{"%", []string{"Rose 100%"}},
		{"_", []string{"Oud_Noir"}},
		{"*", []string{}},
		{`\`, []string{}},
		{",", []string{}},
		{"(", []string{}},
		{"zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := c.Fetch(ctx, store.KindNotes, store.All().Contains("name", tt.token).OrderBy("name", false))
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func testOrderAndLimit(t *testing.T, c store.Client) {
	ctx := context.Background()
	Seed(t, c, store.KindFragrances,
		store.Record{"name": "A", "rating": 7.5, "sales": int64(10)},
		store.Record{"name": "B", "rating": 9.0, "sales": int64(5)},
		store.Record{"name": "C", "rating": 8.0},
	)

	got, err := c.Fetch(ctx, store.KindFragrances, store.All().OrderBy("rating", true).WithLimit(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, names(got))
}

func testUniqueMembership(t *testing.T, c store.Client) {
	ctx := context.Background()
	member := store.Record{"collection_id": "coll-1", "fragrance_id": "frag-1", "created_at": "2024-01-01T00:00:00Z"}

	_, err := c.Insert(ctx, store.KindCollectionFragrance, member)
	require.NoError(t, err)

	_, err = c.Insert(ctx, store.KindCollectionFragrance, member.Clone())
	assert.ErrorIs(t, err, store.ErrConflict)

	other := member.Clone()
	other["collection_id"] = "coll-2"
	_, err = c.Insert(ctx, store.KindCollectionFragrance, other)
	assert.NoError(t, err)
}

func testUpdate(t *testing.T, c store.Client) {
	ctx := context.Background()
	stored := Seed(t, c, store.KindProfiles, store.Record{"id": "user-1", "username": "ana", "bio": "old"})[0]

	updated, err := c.Update(ctx, store.KindProfiles, stored.ID(), store.Record{"bio": "new"})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.String("bio"))
	assert.Equal(t, "ana", updated.String("username"))

	_, err = c.Update(ctx, store.KindProfiles, "user-missing", store.Record{"bio": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testDeleteAndDeleteWhere(t *testing.T, c store.Client) {
	ctx := context.Background()
	Seed(t, c, store.KindCollectionFragrance,
		store.Record{"collection_id": "coll-1", "fragrance_id": "frag-1", "created_at": "2024-01-01T00:00:00Z"},
		store.Record{"collection_id": "coll-1", "fragrance_id": "frag-2", "created_at": "2024-01-01T00:00:00Z"},
		store.Record{"collection_id": "coll-2", "fragrance_id": "frag-1", "created_at": "2024-01-01T00:00:00Z"},
	)

	n, err := c.DeleteWhere(ctx, store.KindCollectionFragrance, store.Where("collection_id", "coll-1"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rest, err := c.Fetch(ctx, store.KindCollectionFragrance, store.All())
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "coll-2", rest[0].String("collection_id"))

	require.NoError(t, c.Delete(ctx, store.KindCollectionFragrance, rest[0].ID()))
	assert.ErrorIs(t, c.Delete(ctx, store.KindCollectionFragrance, rest[0].ID()), store.ErrNotFound)
}

func testUnknownFieldRejected(t *testing.T, c store.Client) {
	ctx := context.Background()

	_, err := c.Insert(ctx, store.KindNotes, store.Record{"name": "Musk", "smell": "clean"})
	assert.ErrorIs(t, err, store.ErrInvalidQuery)

	_, err = c.Fetch(ctx, store.KindNotes, store.Where("smell", "clean"))
	assert.ErrorIs(t, err, store.ErrInvalidQuery)
}
