package domain

// Profile holds a user's public details. The id is the identity-service user id.
type Profile struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	DOB       string `json:"dob,omitempty"` // YYYY-MM-DD
	Bio       string `json:"bio,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"` // Opaque asset reference
}

// ProfileUpdate carries the editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	DOB       *string
	Bio       *string
	AvatarURL *string
}

// IsEmpty reports whether the update changes nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.DOB == nil && u.Bio == nil && u.AvatarURL == nil
}
