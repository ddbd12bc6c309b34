package store_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/knowyournotes/catalog-server/internal/domain"
	"github.com/knowyournotes/catalog-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFragrance_SQLiteShapes(t *testing.T) {
	r := store.Record{
		"id":       "frag-1",
		"name":     "Aventus",
		"brand":    "Creed",
		"year":     int64(2010),
		"rating":   8.7,
		"sales":    int64(1200),
		"released": int64(1),
		"cost":     nil,
	}

	f := store.DecodeFragrance(r)

	assert.Equal(t, "Aventus", f.Name)
	require.NotNil(t, f.Year)
	assert.Equal(t, 2010, *f.Year)
	assert.Equal(t, 8.7, f.RatingOrZero())
	assert.Equal(t, int64(1200), f.SalesOrZero())
	assert.True(t, f.Released)
	assert.Nil(t, f.Cost)
	assert.Empty(t, f.BrandID)
}

func TestDecodeFragrance_JSONShapes(t *testing.T) {
	var r store.Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":"frag-2","name":"Ombre","sales":300,"released":false,"rating":null}`), &r))

	f := store.DecodeFragrance(r)

	assert.Equal(t, int64(300), f.SalesOrZero())
	assert.Nil(t, f.Rating)
	assert.False(t, f.Released)
}

func TestEncodeCollectionMember_StampsCreatedAt(t *testing.T) {
	r := store.EncodeCollectionMember(domain.CollectionMember{CollectionID: "coll-1", FragranceID: "frag-1"})

	_, hasID := r["id"]
	assert.False(t, hasID)
	assert.WithinDuration(t, time.Now(), r.Time("created_at"), time.Minute)

	m := store.DecodeCollectionMember(r)
	assert.Equal(t, "coll-1", m.CollectionID)
	assert.Equal(t, "frag-1", m.FragranceID)
}

func TestEncodeProfileUpdate_OnlyChangedFields(t *testing.T) {
	bio := "Loves oud"
	r := store.EncodeProfileUpdate(domain.ProfileUpdate{Bio: &bio})

	assert.Equal(t, store.Record{"bio": "Loves oud"}, r)
}

func TestRecordTime(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	assert.True(t, ts.Equal(store.Record{"t": store.FormatTime(ts)}.Time("t")))
	assert.True(t, ts.Equal(store.Record{"t": "2024-05-01 12:30:00+00:00"}.Time("t")))
	assert.True(t, store.Record{"t": "yesterday"}.Time("t").IsZero())
}

func TestFormatTime_SortsChronologically(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(100 * time.Millisecond),
		base.Add(500 * time.Millisecond),
		base.Add(510 * time.Millisecond),
		base.Add(time.Second),
	}

	for i := 1; i < len(times); i++ {
		prev, next := store.FormatTime(times[i-1]), store.FormatTime(times[i])
		assert.Len(t, next, len(prev))
		assert.Less(t, prev, next, "%s should sort before %s", prev, next)
	}

	r := store.Record{"created_at": store.FormatTime(times[2])}
	assert.True(t, times[2].Equal(r.Time("created_at")))
}
