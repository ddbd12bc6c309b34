// Package domain contains the core entities of the fragrance catalog.
package domain

// Fragrance is a perfume in the catalog.
type Fragrance struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`              // Denormalized brand name
	BrandID     string   `json:"brand_id,omitempty"` // Empty on legacy rows that only carry the name
	Year        *int     `json:"year,omitempty"`
	Gender      string   `json:"gender,omitempty"`
	Cost        *float64 `json:"cost,omitempty"`
	Rating      *float64 `json:"rating,omitempty"` // 0-10
	Sales       *int64   `json:"sales,omitempty"`
	Released    bool     `json:"released"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
}

// RatingOrZero returns the rating, treating an absent rating as 0.
func (f *Fragrance) RatingOrZero() float64 {
	if f.Rating == nil {
		return 0
	}
	return *f.Rating
}

// SalesOrZero returns the sales count, treating absent sales as 0.
func (f *Fragrance) SalesOrZero() int64 {
	if f.Sales == nil {
		return 0
	}
	return *f.Sales
}

// Brand is a fragrance house.
type Brand struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Year        *int   `json:"year,omitempty"` // Founding year
	Description string `json:"description,omitempty"`
	Logo        string `json:"logo,omitempty"` // Opaque asset reference
}
