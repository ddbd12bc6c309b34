package store

import (
	"time"

	"github.com/knowyournotes/catalog-server/internal/domain"
)

// Decoders turn raw records into domain entities. Missing optional fields
// decode to nil pointers or empty strings; they never fail.

// DecodeFragrance decodes a fragrances record.
func DecodeFragrance(r Record) domain.Fragrance {
	f := domain.Fragrance{
		ID:          r.ID(),
		Name:        r.String("name"),
		Brand:       r.String("brand"),
		BrandID:     r.String("brand_id"),
		Gender:      r.String("gender"),
		Released:    r.Bool("released"),
		Description: r.String("description"),
		ImageURL:    r.String("image_url"),
	}
	if y, ok := r.Int("year"); ok {
		year := int(y)
		f.Year = &year
	}
	if c, ok := r.Float("cost"); ok {
		f.Cost = &c
	}
	if v, ok := r.Float("rating"); ok {
		f.Rating = &v
	}
	if s, ok := r.Int("sales"); ok {
		f.Sales = &s
	}
	return f
}

// DecodeNote decodes a notes record.
func DecodeNote(r Record) domain.Note {
	return domain.Note{
		ID:          r.ID(),
		Name:        r.String("name"),
		Description: r.String("description"),
		ImageURL:    r.String("image_url"),
		Accord:      r.String("accord"),
		Hex:         r.String("hex"),
	}
}

// DecodeBrand decodes a brands record.
func DecodeBrand(r Record) domain.Brand {
	b := domain.Brand{
		ID:          r.ID(),
		Name:        r.String("name"),
		Description: r.String("description"),
		Logo:        r.String("logo"),
	}
	if y, ok := r.Int("year"); ok {
		year := int(y)
		b.Year = &year
	}
	return b
}

// DecodeFragranceNote decodes a fragrance_notes record.
func DecodeFragranceNote(r Record) domain.FragranceNote {
	return domain.FragranceNote{
		ID:          r.ID(),
		FragranceID: r.String("fragrance_id"),
		NoteID:      r.String("note_id"),
		Layer:       r.String("layer"),
	}
}

// DecodeCollection decodes a collections record.
func DecodeCollection(r Record) domain.Collection {
	return domain.Collection{
		ID:        r.ID(),
		Name:      r.String("name"),
		ProfileID: r.String("profile_id"),
		CreatedAt: r.Time("created_at"),
	}
}

// DecodeCollectionMember decodes a collection_fragrances record.
func DecodeCollectionMember(r Record) domain.CollectionMember {
	return domain.CollectionMember{
		ID:           r.ID(),
		CollectionID: r.String("collection_id"),
		FragranceID:  r.String("fragrance_id"),
		CreatedAt:    r.Time("created_at"),
	}
}

// DecodeProfile decodes a profiles record.
func DecodeProfile(r Record) domain.Profile {
	return domain.Profile{
		ID:        r.ID(),
		FullName:  r.String("full_name"),
		Username:  r.String("username"),
		Email:     r.String("email"),
		DOB:       r.String("dob"),
		Bio:       r.String("bio"),
		AvatarURL: r.String("avatar_url"),
	}
}

// Encoders build insertable records. An empty ID is omitted so the
// adapter assigns one.

// EncodeFragrance encodes a fragrance for insertion.
func EncodeFragrance(f domain.Fragrance) Record {
	r := Record{
		"name":        f.Name,
		"brand":       f.Brand,
		"gender":      f.Gender,
		"released":    f.Released,
		"description": f.Description,
		"image_url":   f.ImageURL,
	}
	setID(r, f.ID)
	setOptional(r, "brand_id", f.BrandID)
	if f.Year != nil {
		r["year"] = int64(*f.Year)
	}
	if f.Cost != nil {
		r["cost"] = *f.Cost
	}
	if f.Rating != nil {
		r["rating"] = *f.Rating
	}
	if f.Sales != nil {
		r["sales"] = *f.Sales
	}
	return r
}

// EncodeNote encodes a note for insertion.
func EncodeNote(n domain.Note) Record {
	r := Record{
		"name":        n.Name,
		"description": n.Description,
		"image_url":   n.ImageURL,
	}
	setID(r, n.ID)
	setOptional(r, "accord", n.Accord)
	setOptional(r, "hex", n.Hex)
	return r
}

// EncodeBrand encodes a brand for insertion.
func EncodeBrand(b domain.Brand) Record {
	r := Record{
		"name":        b.Name,
		"description": b.Description,
		"logo":        b.Logo,
	}
	setID(r, b.ID)
	if b.Year != nil {
		r["year"] = int64(*b.Year)
	}
	return r
}

// EncodeFragranceNote encodes a fragrance-note link for insertion.
func EncodeFragranceNote(l domain.FragranceNote) Record {
	r := Record{
		"fragrance_id": l.FragranceID,
		"note_id":      l.NoteID,
		"layer":        l.Layer,
	}
	setID(r, l.ID)
	return r
}

// EncodeCollection encodes a new collection. A zero CreatedAt is stamped now.
func EncodeCollection(c domain.Collection) Record {
	r := Record{
		"name":       c.Name,
		"profile_id": c.ProfileID,
		"created_at": FormatTime(nowIfZero(c.CreatedAt)),
	}
	setID(r, c.ID)
	return r
}

// EncodeCollectionMember encodes a new membership. A zero CreatedAt is stamped now.
func EncodeCollectionMember(m domain.CollectionMember) Record {
	r := Record{
		"collection_id": m.CollectionID,
		"fragrance_id":  m.FragranceID,
		"created_at":    FormatTime(nowIfZero(m.CreatedAt)),
	}
	setID(r, m.ID)
	return r
}

// EncodeProfile encodes a profile for insertion. The id is required.
func EncodeProfile(p domain.Profile) Record {
	return Record{
		"id":         p.ID,
		"full_name":  p.FullName,
		"username":   p.Username,
		"email":      p.Email,
		"dob":        p.DOB,
		"bio":        p.Bio,
		"avatar_url": p.AvatarURL,
	}
}

// EncodeProfileUpdate returns only the fields the update changes.
func EncodeProfileUpdate(u domain.ProfileUpdate) Record {
	r := Record{}
	if u.DOB != nil {
		r["dob"] = *u.DOB
	}
	if u.Bio != nil {
		r["bio"] = *u.Bio
	}
	if u.AvatarURL != nil {
		r["avatar_url"] = *u.AvatarURL
	}
	return r
}

func setID(r Record, id string) {
	if id != "" {
		r["id"] = id
	}
}

func setOptional(r Record, field, value string) {
	if value != "" {
		r[field] = value
	}
}

func nowIfZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
