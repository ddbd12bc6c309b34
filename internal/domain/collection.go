package domain

import (
	"slices"
	"time"
)

// Collection is a named, user-owned set of fragrances.
type Collection struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ProfileID string    `json:"profile_id"` // Owner
}

// IsOwnedBy reports whether the collection belongs to profileID.
func (c *Collection) IsOwnedBy(profileID string) bool {
	return profileID != "" && c.ProfileID == profileID
}

// CollectionMember is one fragrance's membership in a collection.
// Fragrance is populated when the membership is listed, nil otherwise.
type CollectionMember struct {
	CreatedAt    time.Time  `json:"created_at"`
	ID           string     `json:"id"`
	CollectionID string     `json:"collection_id"`
	FragranceID  string     `json:"fragrance_id"`
	Fragrance    *Fragrance `json:"fragrance,omitempty"`
}

// AddResult reports the outcome of adding a fragrance to a collection.
type AddResult struct {
	Member         *CollectionMember `json:"member,omitempty"`
	AlreadyPresent bool              `json:"already_present"`
}

// CollectionList is an immutable snapshot of a profile's collections.
// With and Without return new snapshots; the receiver is never modified,
// so a snapshot handed to a renderer stays consistent.
type CollectionList struct {
	items []Collection
}

// NewCollectionList returns a snapshot holding a copy of items.
func NewCollectionList(items []Collection) CollectionList {
	return CollectionList{items: slices.Clone(items)}
}

// Items returns a copy of the collections in the snapshot.
func (l CollectionList) Items() []Collection {
	return slices.Clone(l.items)
}

// Len returns the number of collections.
func (l CollectionList) Len() int {
	return len(l.items)
}

// Contains reports whether a collection with id is in the snapshot.
func (l CollectionList) Contains(id string) bool {
	return slices.ContainsFunc(l.items, func(c Collection) bool { return c.ID == id })
}

// With returns a snapshot with c appended, replacing any entry with the same id.
func (l CollectionList) With(c Collection) CollectionList {
	items := slices.DeleteFunc(slices.Clone(l.items), func(x Collection) bool { return x.ID == c.ID })
	return CollectionList{items: append(items, c)}
}

// Without returns a snapshot lacking the collection with id.
func (l CollectionList) Without(id string) CollectionList {
	return CollectionList{items: slices.DeleteFunc(slices.Clone(l.items), func(x Collection) bool { return x.ID == id })}
}
