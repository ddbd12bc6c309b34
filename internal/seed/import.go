package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knowyournotes/catalog-server/internal/domain"
	domainerrors "github.com/knowyournotes/catalog-server/internal/errors"
	"github.com/knowyournotes/catalog-server/internal/id"
	"github.com/knowyournotes/catalog-server/internal/service"
	"github.com/knowyournotes/catalog-server/internal/store"
)

// Summary counts what an import wrote and what it found already present.
type Summary struct {
	Brands     Count `json:"brands"`
	Notes      Count `json:"notes"`
	Fragrances Count `json:"fragrances"`
	Links      int   `json:"links"`
	Profiles   Count `json:"profiles"`
}

// Count is the outcome for one record kind.
type Count struct {
	Inserted int `json:"inserted"`
	Existing int `json:"existing"`
}

// Importer writes fixtures into a store. Records are matched by name, so
// importing the same fixture twice inserts nothing the second time.
type Importer struct {
	store    store.Client
	profiles *service.ProfileService
	logger   *slog.Logger
}

// NewImporter creates an importer. Profiles go through the profile
// service so they get the same validation as sign-up.
func NewImporter(client store.Client, profiles *service.ProfileService, logger *slog.Logger) *Importer {
	return &Importer{store: client, profiles: profiles, logger: logger}
}

// Import writes f in dependency order: brands, notes, fragrances with
// their note links, then profiles.
func (im *Importer) Import(ctx context.Context, f *Fixture) (Summary, error) {
	var sum Summary

	brandIDs := make(map[string]string, len(f.Brands))
	for _, b := range f.Brands {
		rowID, inserted, err := im.ensure(ctx, store.KindBrands, store.Where("name", strings.TrimSpace(b.Name)),
			store.EncodeBrand(domain.Brand{
				ID:          b.ID,
				Name:        strings.TrimSpace(b.Name),
				Year:        b.Year,
				Description: b.Description,
				Logo:        b.Logo,
			}))
		if err != nil {
			return sum, fmt.Errorf("brand %q: %w", b.Name, err)
		}
		sum.Brands.tally(inserted)
		brandIDs[nameKey(b.Name)] = rowID
	}

	noteIDs := make(map[string]string, len(f.Notes))
	for _, n := range f.Notes {
		rowID, inserted, err := im.ensure(ctx, store.KindNotes, store.Where("name", strings.TrimSpace(n.Name)),
			store.EncodeNote(domain.Note{
				ID:          n.ID,
				Name:        strings.TrimSpace(n.Name),
				Description: n.Description,
				ImageURL:    n.ImageURL,
				Accord:      n.Accord,
				Hex:         n.Hex,
			}))
		if err != nil {
			return sum, fmt.Errorf("note %q: %w", n.Name, err)
		}
		sum.Notes.tally(inserted)
		noteIDs[nameKey(n.Name)] = rowID
	}

	for _, fr := range f.Fragrances {
		links, inserted, err := im.importFragrance(ctx, fr, brandIDs, noteIDs)
		if err != nil {
			return sum, fmt.Errorf("fragrance %q: %w", fr.Name, err)
		}
		sum.Fragrances.tally(inserted)
		sum.Links += links
	}

	for _, p := range f.Profiles {
		inserted, err := im.importProfile(ctx, p)
		if err != nil {
			return sum, fmt.Errorf("profile %q: %w", p.Username, err)
		}
		sum.Profiles.tally(inserted)
	}

	im.logger.InfoContext(ctx, "Fixture imported",
		"brands", sum.Brands.Inserted,
		"notes", sum.Notes.Inserted,
		"fragrances", sum.Fragrances.Inserted,
		"links", sum.Links,
		"profiles", sum.Profiles.Inserted,
	)
	return sum, nil
}

func (im *Importer) importFragrance(ctx context.Context, fr FragranceFixture, brandIDs, noteIDs map[string]string) (int, bool, error) {
	released := true
	if fr.Released != nil {
		released = *fr.Released
	}
	name := strings.TrimSpace(fr.Name)
	brand := strings.TrimSpace(fr.Brand)

	fragID, inserted, err := im.ensure(ctx, store.KindFragrances, store.Where("name", name).Eq("brand", brand),
		store.EncodeFragrance(domain.Fragrance{
			ID:          fr.ID,
			Name:        name,
			Brand:       brand,
			BrandID:     brandIDs[nameKey(brand)],
			Year:        fr.Year,
			Gender:      fr.Gender,
			Cost:        fr.Cost,
			Rating:      fr.Rating,
			Sales:       fr.Sales,
			Released:    released,
			Description: fr.Description,
			ImageURL:    fr.ImageURL,
		}))
	if err != nil || !inserted {
		return 0, inserted, err
	}

	links := 0
	for _, l := range fr.Notes.layers() {
		for _, noteName := range l.names {
			_, err := im.store.Insert(ctx, store.KindFragranceNotes, store.EncodeFragranceNote(domain.FragranceNote{
				FragranceID: fragID,
				NoteID:      noteIDs[nameKey(noteName)],
				Layer:       string(l.layer),
			}))
			if err != nil {
				return links, true, fmt.Errorf("link %s note %q: %w", l.layer, noteName, err)
			}
			links++
		}
	}
	return links, true, nil
}

func (im *Importer) importProfile(ctx context.Context, p ProfileFixture) (bool, error) {
	profileID := p.ID
	if profileID == "" {
		var err error
		if profileID, err = id.NewUserID(); err != nil {
			return false, err
		}
	}

	_, err := im.profiles.CreateProfile(ctx, domain.Profile{
		ID:        profileID,
		FullName:  p.FullName,
		Username:  p.Username,
		Email:     p.Email,
		DOB:       p.DOB,
		Bio:       p.Bio,
		AvatarURL: p.AvatarURL,
	})
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ensure returns the id of the first record matching q, inserting rec
// when nothing matches.
func (im *Importer) ensure(ctx context.Context, kind store.Kind, q store.Query, rec store.Record) (string, bool, error) {
	existing, err := im.store.Fetch(ctx, kind, q.WithLimit(1))
	if err != nil {
		return "", false, err
	}
	if len(existing) > 0 {
		return existing[0].ID(), false, nil
	}

	row, err := im.store.Insert(ctx, kind, rec)
	if err != nil {
		return "", false, err
	}
	return row.ID(), true, nil
}

func (c *Count) tally(inserted bool) {
	if inserted {
		c.Inserted++
	} else {
		c.Existing++
	}
}
