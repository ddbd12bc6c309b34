package store

import (
	"fmt"
	"slices"
)

// Kind names a record collection in the store. The names match the
// table names used by the hosted catalog database.
type Kind string

// Record kinds.
const (
	KindFragrances          Kind = "fragrances"
	KindNotes               Kind = "notes"
	KindBrands              Kind = "brands"
	KindFragranceNotes      Kind = "fragrance_notes"
	KindCollections         Kind = "collections"
	KindCollectionFragrance Kind = "collection_fragrances"
	KindProfiles            Kind = "profiles"
)

// KindSchema describes the fields of a kind and the constraints adapters enforce.
type KindSchema struct {
	// Prefix is used when the adapter assigns ids. Empty means the caller
	// must supply the id (profiles use identity-service ids).
	Prefix string
	Fields []string
	// Unique lists field tuples that must not repeat across records.
	Unique [][]string
}

// Schema is the catalog's record layout.
var Schema = map[Kind]KindSchema{
	KindFragrances: {
		Prefix: "frag",
		Fields: []string{
			"id", "name", "brand", "brand_id", "year", "gender", "cost",
			"rating", "sales", "released", "description", "image_url",
		},
	},
	KindNotes: {
		Prefix: "note",
		Fields: []string{"id", "name", "description", "image_url", "accord", "hex"},
	},
	KindBrands: {
		Prefix: "brand",
		Fields: []string{"id", "name", "year", "description", "logo"},
	},
	KindFragranceNotes: {
		Prefix: "fnote",
		Fields: []string{"id", "fragrance_id", "note_id", "layer"},
	},
	KindCollections: {
		Prefix: "coll",
		Fields: []string{"id", "name", "profile_id", "created_at"},
	},
	KindCollectionFragrance: {
		Prefix: "cmem",
		Fields: []string{"id", "collection_id", "fragrance_id", "created_at"},
		Unique: [][]string{{"collection_id", "fragrance_id"}},
	},
	KindProfiles: {
		Fields: []string{"id", "full_name", "username", "email", "dob", "bio", "avatar_url"},
	},
}

// Lookup returns the schema for kind.
func Lookup(kind Kind) (KindSchema, error) {
	s, ok := Schema[kind]
	if !ok {
		return KindSchema{}, ErrInvalidQuery.WithMessage(fmt.Sprintf("unknown kind %q", kind))
	}
	return s, nil
}

// HasField reports whether the schema declares field.
func (s KindSchema) HasField(field string) bool {
	return slices.Contains(s.Fields, field)
}

// CheckRecord verifies every key of r is a declared field.
func (s KindSchema) CheckRecord(kind Kind, r Record) error {
	for k := range r {
		if !s.HasField(k) {
			return ErrInvalidQuery.WithMessage(fmt.Sprintf("unknown field %q on %s", k, kind))
		}
	}
	return nil
}

// CheckQuery verifies every filter and order field of q is declared.
func (s KindSchema) CheckQuery(kind Kind, q Query) error {
	for _, f := range q.Filters {
		if !s.HasField(f.Field) {
			return ErrInvalidQuery.WithMessage(fmt.Sprintf("unknown filter field %q on %s", f.Field, kind))
		}
	}
	for _, o := range q.Orders {
		if !s.HasField(o.Field) {
			return ErrInvalidQuery.WithMessage(fmt.Sprintf("unknown order field %q on %s", o.Field, kind))
		}
	}
	return nil
}
