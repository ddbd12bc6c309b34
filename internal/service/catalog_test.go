package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/knowyournotes/catalog-server/internal/errors"
	"github.com/knowyournotes/catalog-server/internal/logger"
	"github.com/knowyournotes/catalog-server/internal/store"
)

func setupTestCatalogService(t *testing.T) (*CatalogService, noteFixture) {
	t.Helper()
	fx := seedNotes(t, newTestClient(t))
	return NewCatalogService(fx.client, NewNoteResolver(fx.client, logger.Discard()), logger.Discard()), fx
}

func TestCatalog_Fragrance(t *testing.T) {
	svc, fx := setupTestCatalogService(t)

	detail, err := svc.Fragrance(context.Background(), fx.f1)
	require.NoError(t, err)
	assert.Equal(t, "Shalimar", detail.Fragrance.Name)
	assert.Equal(t, 5, detail.Notes.Len())
	require.NotEmpty(t, detail.Accords)
	assert.Equal(t, "sweet", detail.Accords[0].Accord)

	_, err = svc.Fragrance(context.Background(), "frag-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestCatalog_NoteAndBrand(t *testing.T) {
	svc, fx := setupTestCatalogService(t)
	ctx := context.Background()

	note, err := svc.Note(ctx, fx.vanilla)
	require.NoError(t, err)
	assert.Equal(t, "Vanilla", note.Note.Name)
	assert.Equal(t, []string{"Shalimar", "Angel"}, fragranceNames(note.Fragrances))

	brandID := seedOne(t, fx.client, store.KindBrands, store.Record{"name": "Mugler"}).ID()
	brand, err := svc.Brand(ctx, brandID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Angel"}, fragranceNames(brand.Fragrances))

	_, err = svc.Note(ctx, "note-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	_, err = svc.Brand(ctx, "brand-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestCatalog_Listings(t *testing.T) {
	svc, fx := setupTestCatalogService(t)
	ctx := context.Background()

	notes, err := svc.Notes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Amber", "Bergamot", "Rose", "Tonka", "Vanilla"}, noteNames(notes))

	seedOne(t, fx.client, store.KindBrands, store.Record{"name": "Mugler"})
	seedOne(t, fx.client, store.KindBrands, store.Record{"name": "Guerlain"})
	brands, err := svc.Brands(ctx)
	require.NoError(t, err)
	require.Len(t, brands, 2)
	assert.Equal(t, "Guerlain", brands[0].Name)

	seedOne(t, fx.client, store.KindFragrances, store.Record{"name": "Zeta", "released": false})
	seedOne(t, fx.client, store.KindFragrances, store.Record{"name": "Alpha", "released": false})
	upcoming, err := svc.Upcoming(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Zeta"}, fragranceNames(upcoming))
}
