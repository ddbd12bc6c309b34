// Package service holds the catalog's business logic: note resolution,
// rankings, search, collections and profiles. Services talk to storage
// only through store.Client.
package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/knowyournotes/catalog-server/internal/domain"
	domainerrors "github.com/knowyournotes/catalog-server/internal/errors"
	"github.com/knowyournotes/catalog-server/internal/store"
)

// NoteResolver joins fragrances to their notes, accords and brands.
type NoteResolver struct {
	store  store.Client
	logger *slog.Logger
}

// NewNoteResolver creates a new note resolver.
func NewNoteResolver(client store.Client, logger *slog.Logger) *NoteResolver {
	return &NoteResolver{
		store:  client,
		logger: logger,
	}
}

// resolvedLink is a fragrance-note link with its note loaded.
type resolvedLink struct {
	link domain.FragranceNote
	note domain.Note
}

// links loads a fragrance's note links and resolves their notes with a
// single batched fetch. Links whose note no longer exists are counted in
// the returned dangling total.
func (r *NoteResolver) links(ctx context.Context, fragranceID string) ([]resolvedLink, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	rows, err := r.store.Fetch(ctx, store.KindFragranceNotes, store.Where("fragrance_id", fragranceID))
	if err != nil {
		return nil, 0, domainerrors.FromStore(err, "load fragrance notes")
	}

	links := make([]domain.FragranceNote, 0, len(rows))
	noteIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		l := store.DecodeFragranceNote(row)
		links = append(links, l)
		if !slices.Contains(noteIDs, l.NoteID) {
			noteIDs = append(noteIDs, l.NoteID)
		}
	}

	notes, err := r.notesByID(ctx, noteIDs)
	if err != nil {
		return nil, 0, err
	}

	resolved := make([]resolvedLink, 0, len(links))
	dangling := 0
	for _, l := range links {
		n, ok := notes[l.NoteID]
		if !ok {
			dangling++
			continue
		}
		resolved = append(resolved, resolvedLink{link: l, note: n})
	}

	if dangling > 0 {
		r.logger.DebugContext(ctx, "skipped dangling note links",
			"fragrance_id", fragranceID,
			"count", dangling,
		)
	}
	return resolved, dangling, nil
}

func (r *NoteResolver) notesByID(ctx context.Context, ids []string) (map[string]domain.Note, error) {
	if len(ids) == 0 {
		return map[string]domain.Note{}, nil
	}
	rows, err := r.store.Fetch(ctx, store.KindNotes, store.All().In("id", ids))
	if err != nil {
		return nil, domainerrors.FromStore(err, "load notes")
	}
	notes := make(map[string]domain.Note, len(rows))
	for _, row := range rows {
		n := store.DecodeNote(row)
		notes[n.ID] = n
	}
	return notes, nil
}

// LayeredNotes returns a fragrance's notes grouped into top, heart and base.
// Links with any other layer tag, or whose note cannot be resolved, are
// dropped and counted in Discarded.
func (r *NoteResolver) LayeredNotes(ctx context.Context, fragranceID string) (domain.LayeredNotes, error) {
	resolved, dangling, err := r.links(ctx, fragranceID)
	if err != nil {
		return domain.LayeredNotes{}, err
	}
	return layered(resolved, dangling), nil
}

// AccordBreakdown counts a fragrance's linked notes per accord, most
// common first. Ties keep first-seen order. Each accord takes the color
// of its first note, or DefaultAccordHex when that note has none.
func (r *NoteResolver) AccordBreakdown(ctx context.Context, fragranceID string) ([]domain.AccordShare, error) {
	resolved, _, err := r.links(ctx, fragranceID)
	if err != nil {
		return nil, err
	}
	return accordShares(resolved), nil
}

// FragranceNotes returns both the layered notes and the accord breakdown
// from a single load of the fragrance's links.
func (r *NoteResolver) FragranceNotes(ctx context.Context, fragranceID string) (domain.LayeredNotes, []domain.AccordShare, error) {
	resolved, dangling, err := r.links(ctx, fragranceID)
	if err != nil {
		return domain.LayeredNotes{}, nil, err
	}
	return layered(resolved, dangling), accordShares(resolved), nil
}

func layered(resolved []resolvedLink, dangling int) domain.LayeredNotes {
	out := domain.LayeredNotes{
		Top:       []domain.Note{},
		Heart:     []domain.Note{},
		Base:      []domain.Note{},
		Discarded: dangling,
	}
	for _, rl := range resolved {
		layer, ok := domain.ParseLayer(rl.link.Layer)
		if !ok {
			out.Discarded++
			continue
		}
		switch layer {
		case domain.LayerTop:
			out.Top = append(out.Top, rl.note)
		case domain.LayerHeart:
			out.Heart = append(out.Heart, rl.note)
		case domain.LayerBase:
			out.Base = append(out.Base, rl.note)
		}
	}
	return out
}

func accordShares(resolved []resolvedLink) []domain.AccordShare {
	shares := []domain.AccordShare{}
	index := map[string]int{}
	for _, rl := range resolved {
		n := rl.note
		if n.Accord == "" {
			continue
		}
		i, ok := index[n.Accord]
		if !ok {
			i = len(shares)
			index[n.Accord] = i
			shares = append(shares, domain.AccordShare{Accord: n.Accord, Hex: n.Hex})
		}
		shares[i].Count++
	}
	for i := range shares {
		if shares[i].Hex == "" {
			shares[i].Hex = domain.DefaultAccordHex
		}
	}
	slices.SortStableFunc(shares, func(a, b domain.AccordShare) int {
		return b.Count - a.Count
	})
	return shares
}

// ReverseByNote returns the fragrances that list noteID, each once, in
// link order. Links to fragrances that no longer exist are skipped.
func (r *NoteResolver) ReverseByNote(ctx context.Context, noteID string) ([]domain.Fragrance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := r.store.Fetch(ctx, store.KindFragranceNotes, store.Where("note_id", noteID))
	if err != nil {
		return nil, domainerrors.FromStore(err, "load note links")
	}

	fragIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		fid := row.String("fragrance_id")
		if !slices.Contains(fragIDs, fid) {
			fragIDs = append(fragIDs, fid)
		}
	}
	return r.fragrancesInOrder(ctx, fragIDs)
}

// fragrancesInOrder fetches fragrances by id in one call and returns them
// in ids order, dropping ids that do not resolve.
func (r *NoteResolver) fragrancesInOrder(ctx context.Context, ids []string) ([]domain.Fragrance, error) {
	if len(ids) == 0 {
		return []domain.Fragrance{}, nil
	}
	rows, err := r.store.Fetch(ctx, store.KindFragrances, store.All().In("id", ids))
	if err != nil {
		return nil, domainerrors.FromStore(err, "load fragrances")
	}
	byID := make(map[string]domain.Fragrance, len(rows))
	for _, row := range rows {
		f := store.DecodeFragrance(row)
		byID[f.ID] = f
	}

	out := make([]domain.Fragrance, 0, len(ids))
	for _, fid := range ids {
		if f, ok := byID[fid]; ok {
			out = append(out, f)
		}
	}
	if dropped := len(ids) - len(out); dropped > 0 {
		r.logger.DebugContext(ctx, "skipped dangling fragrance references", "count", dropped)
	}
	return out, nil
}

// ReverseByBrand returns the fragrances made by brand, ordered by name.
// Fragrances carrying a brand id are matched on it; legacy rows without
// one fall back to exact, case-sensitive equality on the brand name.
func (r *NoteResolver) ReverseByBrand(ctx context.Context, brand domain.Brand) ([]domain.Fragrance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	byName := store.Where("brand", brand.Name).OrderBy("name", false)
	rows, err := r.store.Fetch(ctx, store.KindFragrances, byName)
	if err != nil {
		return nil, domainerrors.FromStore(err, "load brand fragrances")
	}

	var byID []store.Record
	if brand.ID != "" {
		byID, err = r.store.Fetch(ctx, store.KindFragrances, store.Where("brand_id", brand.ID).OrderBy("name", false))
		if err != nil {
			return nil, domainerrors.FromStore(err, "load brand fragrances")
		}
	}

	out := make([]domain.Fragrance, 0, len(rows)+len(byID))
	for _, row := range byID {
		out = append(out, store.DecodeFragrance(row))
	}
	for _, row := range rows {
		f := store.DecodeFragrance(row)
		// A row pointing at another brand by id wins over a stale name.
		if brand.ID != "" && f.BrandID != "" {
			continue
		}
		out = append(out, f)
	}
	slices.SortStableFunc(out, func(a, b domain.Fragrance) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// CatalogAccordSummary maps each fragrance id to its distinct accords, in
// first-seen order. It reads the full link set and the full note set once.
func (r *NoteResolver) CatalogAccordSummary(ctx context.Context) (map[string][]domain.AccordBadge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	links, err := r.store.Fetch(ctx, store.KindFragranceNotes, store.All())
	if err != nil {
		return nil, domainerrors.FromStore(err, "load fragrance notes")
	}
	noteRows, err := r.store.Fetch(ctx, store.KindNotes, store.All())
	if err != nil {
		return nil, domainerrors.FromStore(err, "load notes")
	}

	notes := make(map[string]domain.Note, len(noteRows))
	for _, row := range noteRows {
		n := store.DecodeNote(row)
		notes[n.ID] = n
	}

	summary := make(map[string][]domain.AccordBadge)
	for _, row := range links {
		l := store.DecodeFragranceNote(row)
		n, ok := notes[l.NoteID]
		if !ok || n.Accord == "" {
			continue
		}
		badges := summary[l.FragranceID]
		if slices.ContainsFunc(badges, func(b domain.AccordBadge) bool { return b.Accord == n.Accord }) {
			continue
		}
		summary[l.FragranceID] = append(badges, domain.AccordBadge{Accord: n.Accord, Hex: n.Hex})
	}
	return summary, nil
}
