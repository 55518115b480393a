package models

import (
	"encoding/json"
	"time"

	"github.com/spf13/cast"
)

// User metadata keys written at sign-up.
const (
	MetaFullName     = "full_name"
	MetaPostcode     = "postcode"
	MetaChildren     = "children"
	MetaPhotoConsent = "photo_consent"
	MetaSchool       = "school"
)

type AuthUser struct {
	ID          string                 `json:"id"`
	Email       string                 `json:"email"`
	Metadata    map[string]interface{} `json:"user_metadata,omitempty"`
	ConfirmedAt *time.Time             `json:"confirmed_at,omitempty"`
}

func (u *AuthUser) FullName() string {
	if u == nil || u.Metadata == nil {
		return ""
	}
	for _, key := range []string{MetaFullName, "name"} {
		if v, ok := u.Metadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// SignUpProfile rebuilds the profile a parent entered at sign-up from the identity's metadata.
// Fields the metadata does not carry stay empty.
func (u *AuthUser) SignUpProfile() *Profile {
	p := &Profile{ID: u.ID, Email: u.Email, Name: u.FullName(), Children: []Child{}}
	if u.Metadata == nil {
		return p
	}
	p.Postcode = cast.ToString(u.Metadata[MetaPostcode])
	p.PhotoConsent = cast.ToBool(u.Metadata[MetaPhotoConsent])
	p.School = cast.ToString(u.Metadata[MetaSchool])
	if raw := u.Metadata[MetaChildren]; raw != nil {
		var children []Child
		if data, err := json.Marshal(raw); err == nil && json.Unmarshal(data, &children) == nil && children != nil {
			p.Children = children
		}
	}
	return p
}

// SignUpMetadata is the metadata stored with a new identity, enough for SignUpProfile to
// rebuild p on whichever device first signs in.
func SignUpMetadata(p *Profile) map[string]interface{} {
	children := p.Children
	if children == nil {
		children = []Child{}
	}
	return map[string]interface{}{
		MetaFullName:     p.Name,
		MetaPostcode:     p.Postcode,
		MetaChildren:     children,
		MetaPhotoConsent: p.PhotoConsent,
		MetaSchool:       p.School,
	}
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *AuthUser `json:"user"`
}

// Expired reports whether the access token is past its expiry. A zero expiry never expires.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}
