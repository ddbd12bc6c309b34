// Package search keeps an in-memory Bleve index over catalog names so
// type-ahead lookups avoid a store round trip per keystroke.
package search

import (
	"github.com/knowyournotes/catalog-server/internal/domain"
	"github.com/knowyournotes/catalog-server/internal/normalize"
)

// Document is the indexed form of a note, fragrance or brand.
type Document struct {
	ID   string            `json:"id"`
	Kind domain.SearchKind `json:"kind"`
	Name string            `json:"name"`
}

// ToMap converts the document to a map with the field names of the mapping.
// Folded is the case-folded name the matcher runs against.
func (d *Document) ToMap() map[string]any {
	return map[string]any{
		"kind":   string(d.Kind),
		"name":   d.Name,
		"folded": normalize.Fold(d.Name),
	}
}

// NoteDocument builds the document for a note.
func NoteDocument(n domain.Note) *Document {
	return &Document{ID: docID(domain.SearchKindNote, n.ID), Kind: domain.SearchKindNote, Name: n.Name}
}

// FragranceDocument builds the document for a fragrance.
func FragranceDocument(f domain.Fragrance) *Document {
	return &Document{ID: docID(domain.SearchKindFragrance, f.ID), Kind: domain.SearchKindFragrance, Name: f.Name}
}

// BrandDocument builds the document for a brand.
func BrandDocument(b domain.Brand) *Document {
	return &Document{ID: docID(domain.SearchKindBrand, b.ID), Kind: domain.SearchKindBrand, Name: b.Name}
}

// docID namespaces record ids by kind. Store ids are already prefixed, but
// fixtures may carry bare ids that collide across kinds.
func docID(kind domain.SearchKind, id string) string {
	return string(kind) + "/" + id
}

// recordID strips the kind namespace from a document id.
func recordID(kind domain.SearchKind, docID string) string {
	return docID[len(kind)+1:]
}
