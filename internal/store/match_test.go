package store_test

import (
	"testing"

	"github.com/knowyournotes/catalog-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fragranceRecords() []store.Record {
	return []store.Record{
		{"id": "frag-1", "name": "Tahitian Vanilla", "brand": "Maison", "rating": 8.5, "sales": int64(40)},
		{"id": "frag-2", "name": "Rose 100%", "brand": "maison", "rating": nil, "sales": int64(90)},
		{"id": "frag-3", "name": "Oud_Noir", "brand": "Atelier", "rating": 9.1},
		{"id": "frag-4", "name": "Vanilla*Star", "brand": "Atelier", "rating": float64(7)},
	}
}

func names(records []store.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.String("name"))
	}
	return out
}

func TestApply_EqIsExactAndCaseSensitive(t *testing.T) {
	got := store.Apply(fragranceRecords(), store.Where("brand", "Maison"))

	assert.Equal(t, []string{"Tahitian Vanilla"}, names(got))
}

func TestApply_EqComparesNumbersAcrossTypes(t *testing.T) {
	got := store.Apply(fragranceRecords(), store.Where("sales", 40))

	assert.Equal(t, []string{"Tahitian Vanilla"}, names(got))
}

func TestApply_In(t *testing.T) {
	got := store.Apply(fragranceRecords(), store.All().In("id", []string{"frag-3", "frag-1", "frag-missing"}))

	assert.Equal(t, []string{"Tahitian Vanilla", "Oud_Noir"}, names(got))
}

func TestApply_InEmptyMatchesNothing(t *testing.T) {
	got := store.Apply(fragranceRecords(), store.All().In("id", nil))

	assert.Empty(t, got)
}

func TestApply_ContainsIsCaseInsensitive(t *testing.T) {
	got := store.Apply(fragranceRecords(), store.All().Contains("name", "VANILLA"))

	assert.Equal(t, []string{"Tahitian Vanilla", "Vanilla*Star"}, names(got))
}

func TestApply_ContainsTreatsWildcardsLiterally(t *testing.T) {
	tests := []struct {
		token string
		want  []string
	}{
		{"%", []string{"Rose 100%"}},
		{"_", []string{"Oud_Noir"}},
		{"*", []string{"Vanilla*Star"}},
		{"(", nil},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got := store.Apply(fragranceRecords(), store.All().Contains("name", tt.token))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestApply_OrderAndLimit(t *testing.T) {
	got := store.Apply(fragranceRecords(), store.All().OrderBy("rating", true).WithLimit(3))

	require.Len(t, got, 3)
	assert.Equal(t, []string{"Oud_Noir", "Tahitian Vanilla", "Vanilla*Star"}, names(got))
}

func TestApply_OrderIsStableForTies(t *testing.T) {
	records := []store.Record{
		{"id": "a", "name": "A", "brand": "X"},
		{"id": "b", "name": "B", "brand": "X"},
		{"id": "c", "name": "C", "brand": "W"},
	}

	got := store.Apply(records, store.All().OrderBy("brand", false))

	assert.Equal(t, []string{"C", "A", "B"}, names(got))
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	records := fragranceRecords()

	store.Apply(records, store.All().OrderBy("name", false))

	assert.Equal(t, "Tahitian Vanilla", records[0].String("name"))
}

func TestQueryBuilderDoesNotShareFilters(t *testing.T) {
	base := store.Where("brand", "Atelier")

	a := base.Contains("name", "oud")
	b := base.Contains("name", "star")

	assert.Len(t, base.Filters, 1)
	assert.Equal(t, []string{"Oud_Noir"}, names(store.Apply(fragranceRecords(), a)))
	assert.Equal(t, []string{"Vanilla*Star"}, names(store.Apply(fragranceRecords(), b)))
}

func TestSchema_CheckQuery(t *testing.T) {
	schema, err := store.Lookup(store.KindFragrances)
	require.NoError(t, err)

	assert.NoError(t, schema.CheckQuery(store.KindFragrances, store.Where("brand", "x").OrderBy("rating", true)))
	assert.ErrorIs(t, schema.CheckQuery(store.KindFragrances, store.Where("name; DROP TABLE", "x")), store.ErrInvalidQuery)

	_, err = store.Lookup("perfumes")
	assert.ErrorIs(t, err, store.ErrInvalidQuery)
}
