package domain

// DefaultAccordHex is used for accords whose notes carry no color.
const DefaultAccordHex = "#cccccc"

// Note is a scent component, e.g. "Vanilla".
type Note struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Accord      string `json:"accord,omitempty"` // Scent family, e.g. "sweet"
	Hex         string `json:"hex,omitempty"`    // Display color of the accord
}

// Layer is the stage of a fragrance's evaporation at which a note is perceived.
type Layer string

// Known layers.
const (
	LayerTop   Layer = "top"
	LayerHeart Layer = "heart"
	LayerBase  Layer = "base"
)

// ParseLayer returns the layer for s, or false for tags outside top/heart/base.
func ParseLayer(s string) (Layer, bool) {
	switch l := Layer(s); l {
	case LayerTop, LayerHeart, LayerBase:
		return l, true
	default:
		return "", false
	}
}

// FragranceNote links a fragrance to one of its notes at a layer.
// Layer is kept as stored; unknown tags are tolerated here and
// dropped when notes are grouped.
type FragranceNote struct {
	ID          string `json:"id"`
	FragranceID string `json:"fragrance_id"`
	NoteID      string `json:"note_id"`
	Layer       string `json:"layer"`
}

// LayeredNotes is a fragrance's notes partitioned by layer.
// Each bucket keeps the order in which links were stored.
type LayeredNotes struct {
	Top   []Note `json:"top"`
	Heart []Note `json:"heart"`
	Base  []Note `json:"base"`
	// Discarded counts links dropped for an unknown layer or an
	// unresolvable note.
	Discarded int `json:"-"`
}

// Len returns the number of notes across all layers.
func (l LayeredNotes) Len() int {
	return len(l.Top) + len(l.Heart) + len(l.Base)
}

// AccordShare is how many of a fragrance's notes fall in one accord.
type AccordShare struct {
	Accord string `json:"accord"`
	Count  int    `json:"count"`
	Hex    string `json:"hex"`
}

// AccordBadge is a colored accord label shown on a fragrance card.
type AccordBadge struct {
	Accord string `json:"accord"`
	Hex    string `json:"hex,omitempty"`
}
