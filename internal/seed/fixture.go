// Package seed loads catalog fixtures from YAML and writes them into a store.
package seed

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/knowyournotes/catalog-server/internal/domain"
)

// Fixture is a catalog snapshot. Fragrances reference brands and notes by name.
type Fixture struct {
	Brands     []BrandFixture     `yaml:"brands"`
	Notes      []NoteFixture      `yaml:"notes"`
	Fragrances []FragranceFixture `yaml:"fragrances"`
	Profiles   []ProfileFixture   `yaml:"profiles"`
}

// BrandFixture describes a brand.
type BrandFixture struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Year        *int   `yaml:"year"`
	Description string `yaml:"description"`
	Logo        string `yaml:"logo"`
}

// NoteFixture describes a note.
type NoteFixture struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	ImageURL    string `yaml:"image_url"`
	Accord      string `yaml:"accord"`
	Hex         string `yaml:"hex"`
}

// FragranceFixture describes a fragrance and its note pyramid.
type FragranceFixture struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Brand       string   `yaml:"brand"`
	Year        *int     `yaml:"year"`
	Gender      string   `yaml:"gender"`
	Cost        *float64 `yaml:"cost"`
	Rating      *float64 `yaml:"rating"`
	Sales       *int64   `yaml:"sales"`
	Released    *bool    `yaml:"released"` // Defaults to true
	Description string   `yaml:"description"`
	ImageURL    string   `yaml:"image_url"`
	Notes       Pyramid  `yaml:"notes"`
}

// Pyramid lists note names per layer.
type Pyramid struct {
	Top   []string `yaml:"top"`
	Heart []string `yaml:"heart"`
	Base  []string `yaml:"base"`
}

func (p Pyramid) layers() []struct {
	layer domain.Layer
	names []string
} {
	return []struct {
		layer domain.Layer
		names []string
	}{
		{domain.LayerTop, p.Top},
		{domain.LayerHeart, p.Heart},
		{domain.LayerBase, p.Base},
	}
}

// ProfileFixture describes a user profile. A missing id gets a fresh UUID.
type ProfileFixture struct {
	ID        string `yaml:"id"`
	FullName  string `yaml:"full_name"`
	Username  string `yaml:"username"`
	Email     string `yaml:"email"`
	DOB       string `yaml:"dob"`
	Bio       string `yaml:"bio"`
	AvatarURL string `yaml:"avatar_url"`
}

// Parse decodes a fixture, rejecting unknown keys, and validates it.
func Parse(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile parses the fixture at path.
func LoadFile(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Validate checks names are present and unique, and that every note a
// fragrance references is defined. Brands may be undeclared; such
// fragrances carry the brand name only.
func (f *Fixture) Validate() error {
	var errs []error

	brands := make(map[string]bool, len(f.Brands))
	for i, b := range f.Brands {
		key := nameKey(b.Name)
		switch {
		case key == "":
			errs = append(errs, fmt.Errorf("brands[%d]: name is required", i))
		case brands[key]:
			errs = append(errs, fmt.Errorf("brands[%d]: duplicate brand %q", i, b.Name))
		}
		brands[key] = true
	}

	notes := make(map[string]bool, len(f.Notes))
	for i, n := range f.Notes {
		key := nameKey(n.Name)
		switch {
		case key == "":
			errs = append(errs, fmt.Errorf("notes[%d]: name is required", i))
		case notes[key]:
			errs = append(errs, fmt.Errorf("notes[%d]: duplicate note %q", i, n.Name))
		}
		notes[key] = true
	}

	for i, fr := range f.Fragrances {
		if nameKey(fr.Name) == "" {
			errs = append(errs, fmt.Errorf("fragrances[%d]: name is required", i))
		}
		for _, l := range fr.Notes.layers() {
			for _, name := range l.names {
				if !notes[nameKey(name)] {
					errs = append(errs, fmt.Errorf("fragrances[%d] %q: unknown %s note %q", i, fr.Name, l.layer, name))
				}
			}
		}
	}

	for i, p := range f.Profiles {
		if strings.TrimSpace(p.Username) == "" {
			errs = append(errs, fmt.Errorf("profiles[%d]: username is required", i))
		}
	}

	return errors.Join(errs...)
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
