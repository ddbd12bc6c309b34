package service

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowyournotes/catalog-server/internal/domain"
	domainerrors "github.com/knowyournotes/catalog-server/internal/errors"
	"github.com/knowyournotes/catalog-server/internal/logger"
	"github.com/knowyournotes/catalog-server/internal/store"
)

const (
	owner    = "8c6f1e2a-0000-4000-8000-000000000001"
	stranger = "8c6f1e2a-0000-4000-8000-000000000002"
)

func setupTestCollectionService(t *testing.T) (*CollectionService, *faultyClient) {
	t.Helper()
	fc := newFaultyClient(newTestClient(t))
	return NewCollectionService(fc, logger.Discard()), fc
}

func seedFragrance(t *testing.T, c store.Client, name string) string {
	t.Helper()
	return seedOne(t, c, store.KindFragrances, store.Record{"name": name}).ID()
}

func TestCreateCollection(t *testing.T) {
	svc, _ := setupTestCollectionService(t)

	c, err := svc.CreateCollection(context.Background(), owner, "  Winter  ")
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Winter", c.Name)
	assert.Equal(t, owner, c.ProfileID)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestCreateCollection_BlankNameMakesNoStoreCall(t *testing.T) {
	svc, fc := setupTestCollectionService(t)
	fc.insertErr[store.KindCollections] = store.ErrUnavailable

	for _, name := range []string{"", "   ", "\t"} {
		_, err := svc.CreateCollection(context.Background(), owner, name)
		require.Error(t, err)
		assert.ErrorIs(t, err, domainerrors.ErrValidation)
	}
}

func TestCreateCollection_RequiresOwner(t *testing.T) {
	svc, _ := setupTestCollectionService(t)

	_, err := svc.CreateCollection(context.Background(), "", "Summer")
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestAddFragrance(t *testing.T) {
	svc, fc := setupTestCollectionService(t)
	ctx := context.Background()
	fragID := seedFragrance(t, fc, "Angel")

	c, err := svc.CreateCollection(ctx, owner, "Gourmands")
	require.NoError(t, err)

	res, err := svc.AddFragrance(ctx, owner, c.ID, fragID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyPresent)
	require.NotNil(t, res.Member)
	assert.Equal(t, fragID, res.Member.FragranceID)

	again, err := svc.AddFragrance(ctx, owner, c.ID, fragID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyPresent)
	assert.Equal(t, res.Member.ID, again.Member.ID)

	members, err := svc.ListMembers(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestAddFragrance_ConcurrentAddsLeaveOneMember(t *testing.T) {
	svc, fc := setupTestCollectionService(t)
	ctx := context.Background()
	fragID := seedFragrance(t, fc, "Angel")
	c, err := svc.CreateCollection(ctx, owner, "Gourmands")
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	results := make([]domain.AddResult, workers)
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.AddFragrance(ctx, owner, c.ID, fragID)
		}()
	}
	wg.Wait()

	added := 0
	for i := range workers {
		require.NoError(t, errs[i])
		if !results[i].AlreadyPresent {
			added++
		}
	}
	assert.Equal(t, 1, added)

	members, err := svc.ListMembers(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestAddFragrance_InsertConflictIsAlreadyPresent(t *testing.T) {
	svc, fc := setupTestCollectionService(t)
	ctx := context.Background()
	fragID := seedFragrance(t, fc, "Angel")
	c, err := svc.CreateCollection(ctx, owner, "Gourmands")
	require.NoError(t, err)

	fc.insertErr[store.KindCollectionFragrance] = store.ErrConflict

	res, err := svc.AddFragrance(ctx, owner, c.ID, fragID)
	require.NoError(t, err)
	assert.True(t, res.AlreadyPresent)
}

func TestAddFragrance_OtherInsertErrorsPropagate(t *testing.T) {
	svc, fc := setupTestCollectionService(t)
	ctx := context.Background()
	fragID := seedFragrance(t, fc, "Angel")
	c, err := svc.CreateCollection(ctx, owner, "Gourmands")
	require.NoError(t, err)

	fc.insertErr[store.KindCollectionFragrance] = store.ErrUnavailable

	_, err = svc.AddFragrance(ctx, owner, c.ID, fragID)
	assert.ErrorIs(t, err, domainerrors.ErrUnavailable)
}

func TestAddFragrance_Ownership(t *testing.T) {
	svc, fc := setupTestCollectionService(t)
	ctx := context.Background()
	fragID := seedFragrance(t, fc, "Angel")
	c, err := svc.CreateCollection(ctx, owner, "Gourmands")
	require.NoError(t, err)

	_, err = svc.AddFragrance(ctx, stranger, c.ID, fragID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = svc.AddFragrance(ctx, owner, "coll-missing", fragID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = svc.AddFragrance(ctx, owner, c.ID, "frag-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestRemoveFragrance(t *testing.T) {
	svc, fc := setupTestCollectionService(t)
	ctx := context.Background()
	fragID := seedFragrance(t, fc, "Angel")
	c, err := svc.CreateCollection(ctx, owner, "Gourmands")
	require.NoError(t, err)
	res, err := svc.AddFragrance(ctx, owner, c.ID, fragID)
	require.NoError(t, err)

	err = svc.RemoveFragrance(ctx, stranger, res.Member.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	require.NoError(t, svc.RemoveFragrance(ctx, owner, res.Member.ID))

	members, err := svc.ListMembers(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, members)

	err = svc.RemoveFragrance(ctx, owner, res.Member.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestDeleteCollection_RemovesMembersFirst(t *testing.T) {
	svc, fc := setupTestCollectionService(t)
	ctx := context.Background()
	c, err := svc.CreateCollection(ctx, owner, "Gourmands")
	require.NoError(t, err)
	keep, err := svc.CreateCollection(ctx, owner, "Keep")
	require.NoError(t, err)
	for _, name := range []string{"Angel", "Alien", "Aura"} {
		_, err := svc.AddFragrance(ctx, owner, c.ID, seedFragrance(t, fc, name))
		require.NoError(t, err)
	}
	_, err = svc.AddFragrance(ctx, owner, keep.ID, seedFragrance(t, fc, "Womanity"))
	require.NoError(t, err)

	err = svc.DeleteCollection(ctx, stranger, c.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	require.NoError(t, svc.DeleteCollection(ctx, owner, c.ID))

	_, err = fc.FetchOne(ctx, store.KindCollections, c.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	orphans, err := fc.Fetch(ctx, store.KindCollectionFragrance, store.Where("collection_id", c.ID))
	require.NoError(t, err)
	assert.Empty(t, orphans)

	kept, err := svc.ListMembers(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestDeleteCollection_FailureAfterMembersIsRetryable(t *testing.T) {
	svc, fc := setupTestCollectionService(t)
	ctx := context.Background()
	c, err := svc.CreateCollection(ctx, owner, "Gourmands")
	require.NoError(t, err)
	_, err = svc.AddFragrance(ctx, owner, c.ID, seedFragrance(t, fc, "Angel"))
	require.NoError(t, err)

	fc.deleteErr[store.KindCollections] = store.ErrUnavailable

	err = svc.DeleteCollection(ctx, owner, c.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrUnavailable)
	assert.True(t, domainerrors.IsRetryable(err))

	members, err := fc.Fetch(ctx, store.KindCollectionFragrance, store.Where("collection_id", c.ID))
	require.NoError(t, err)
	assert.Empty(t, members, "no member outlives the attempt")

	delete(fc.deleteErr, store.KindCollections)
	require.NoError(t, svc.DeleteCollection(ctx, owner, c.ID), "retry completes")
}

func TestListMembers_SkipsMissingFragrances(t *testing.T) {
	svc, fc := setupTestCollectionService(t)
	ctx := context.Background()
	c, err := svc.CreateCollection(ctx, owner, "Mixed")
	require.NoError(t, err)

	angel := seedFragrance(t, fc, "Angel")
	gone := seedFragrance(t, fc, "Discontinued")
	_, err = svc.AddFragrance(ctx, owner, c.ID, angel)
	require.NoError(t, err)
	_, err = svc.AddFragrance(ctx, owner, c.ID, gone)
	require.NoError(t, err)
	require.NoError(t, fc.Delete(ctx, store.KindFragrances, gone))

	members, err := svc.ListMembers(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.NotNil(t, members[0].Fragrance)
	assert.Equal(t, "Angel", members[0].Fragrance.Name)
	assert.Equal(t, 1, fc.fetchCount(store.KindFragrances), "fragrances loaded in one batch")
}

func TestCandidates_SearchesWholeCatalog(t *testing.T) {
	svc, fc := setupTestCollectionService(t)
	ctx := context.Background()
	angel := seedFragrance(t, fc, "Angel")
	seedFragrance(t, fc, "Black Opium")
	seedFragrance(t, fc, "Opium")

	c, err := svc.CreateCollection(ctx, owner, "Evening")
	require.NoError(t, err)
	_, err = svc.AddFragrance(ctx, owner, c.ID, angel)
	require.NoError(t, err)

	got, err := svc.Candidates(ctx, owner, c.ID, "OPI")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Black Opium", "Opium"}, fragranceNames(got),
		"candidates come from the catalog, not the collection")

	before := fc.fetchCount(store.KindFragrances)
	got, err = svc.Candidates(ctx, owner, c.ID, "  ")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, before, fc.fetchCount(store.KindFragrances), "blank query skips the store")

	_, err = svc.Candidates(ctx, stranger, c.ID, "OPI")
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestCreateCollection_LogsCarryRequestAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Writer: &buf, Format: "json", Level: slog.LevelInfo})
	svc := NewCollectionService(newTestClient(t), log.Logger)

	ctx := logger.WithAttrs(context.Background(), slog.String("request_id", "req-42"))
	_, err := svc.CreateCollection(ctx, owner, "Evening")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"msg":"collection created"`)
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
}

func TestListCollections(t *testing.T) {
	svc, _ := setupTestCollectionService(t)
	ctx := context.Background()

	a, err := svc.CreateCollection(ctx, owner, "A")
	require.NoError(t, err)
	_, err = svc.CreateCollection(ctx, stranger, "Theirs")
	require.NoError(t, err)
	b, err := svc.CreateCollection(ctx, owner, "B")
	require.NoError(t, err)

	list, err := svc.ListCollections(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Len())
	assert.True(t, list.Contains(a.ID))
	assert.True(t, list.Contains(b.ID))

	// Snapshots change only after the remote call succeeds.
	require.NoError(t, svc.DeleteCollection(ctx, owner, a.ID))
	next := list.Without(a.ID)
	assert.True(t, list.Contains(a.ID), "old snapshot unchanged")
	assert.False(t, next.Contains(a.ID))
}

func TestListCollections_OldestFirstWithinOneSecond(t *testing.T) {
	svc, fc := setupTestCollectionService(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Inserted newest first so insertion order cannot mask the sort.
	for _, c := range []struct {
		name string
		at   time.Time
	}{
		{"Third", base.Add(510 * time.Millisecond)},
		{"Second", base.Add(500 * time.Millisecond)},
		{"First", base},
	} {
		_, err := fc.Insert(ctx, store.KindCollections, store.EncodeCollection(domain.Collection{
			Name: c.name, ProfileID: owner, CreatedAt: c.at,
		}))
		require.NoError(t, err)
	}

	list, err := svc.ListCollections(ctx, owner)
	require.NoError(t, err)

	names := make([]string, 0, list.Len())
	for _, c := range list.Items() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"First", "Second", "Third"}, names)
}

func TestCreateAndAdd(t *testing.T) {
	svc, fc := setupTestCollectionService(t)
	ctx := context.Background()
	fragID := seedFragrance(t, fc, "Angel")

	c, res, err := svc.CreateAndAdd(ctx, owner, "New", fragID)
	require.NoError(t, err)
	assert.Equal(t, "New", c.Name)
	assert.False(t, res.AlreadyPresent)

	_, _, err = svc.CreateAndAdd(ctx, owner, " ", fragID)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
