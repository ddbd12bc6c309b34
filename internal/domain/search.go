package domain

// SearchKind identifies the entity type of a search result.
type SearchKind string

// Search result kinds, in the order results are presented.
const (
	SearchKindNote      SearchKind = "note"
	SearchKindFragrance SearchKind = "fragrance"
	SearchKindBrand     SearchKind = "brand"
)

// Label returns the display prefix for the kind.
func (k SearchKind) Label() string {
	switch k {
	case SearchKindNote:
		return "Note"
	case SearchKindFragrance:
		return "Fragrance"
	case SearchKindBrand:
		return "Brand"
	default:
		return string(k)
	}
}

// SearchResult is one suggestion from a combined search.
type SearchResult struct {
	Kind  SearchKind `json:"kind"`
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Label string     `json:"label"` // e.g. "Note: Vanilla"
}

// NewSearchResult builds a result with its display label.
func NewSearchResult(kind SearchKind, id, name string) SearchResult {
	return SearchResult{
		Kind:  kind,
		ID:    id,
		Name:  name,
		Label: kind.Label() + ": " + name,
	}
}

// SearchPage is the grouped, full-record form of a search.
type SearchPage struct {
	Query      string      `json:"query"`
	Notes      []Note      `json:"notes"`
	Fragrances []Fragrance `json:"fragrances"`
	Brands     []Brand     `json:"brands"`
}

// Total returns the number of matches across all groups.
func (p *SearchPage) Total() int {
	return len(p.Notes) + len(p.Fragrances) + len(p.Brands)
}
