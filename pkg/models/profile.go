package models

import "time"

const (
	YearReception = "Reception"
	YearY1        = "Y1"
	YearY2        = "Y2"
	YearY3        = "Y3"
	YearY4        = "Y4"
	YearY5        = "Y5"
	YearY6        = "Y6"
)

// YearGroups lists the year groups a child can be registered in, youngest first.
var YearGroups = []string{YearReception, YearY1, YearY2, YearY3, YearY4, YearY5, YearY6}

func IsYearGroup(s string) bool {
	for _, y := range YearGroups {
		if y == s {
			return true
		}
	}
	return false
}

type Child struct {
	Name      string `json:"name"`
	YearGroup string `json:"yearGroup"`
}

// Profile is the persisted record of a registered parent, keyed by the auth user id.
type Profile struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Postcode     string     `json:"postcode"`
	Children     []Child    `json:"children"`
	PhotoConsent bool       `json:"photo_consent"`
	School       string     `json:"school"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// User is what the UI holds for the signed-in parent: auth identity merged with the profile row.
type User struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	Postcode     string  `json:"postcode"`
	Children     []Child `json:"children"`
	PhotoConsent bool    `json:"photo_consent"`
	School       string  `json:"school"`
}

// DisplayName falls back to the email when the profile has no name yet.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

func NewUser(auth *AuthUser, profile *Profile) *User {
	u := &User{ID: auth.ID, Email: auth.Email}
	if profile == nil {
		u.Name = auth.FullName()
		return u
	}
	u.Name = profile.Name
	u.Postcode = profile.Postcode
	u.Children = profile.Children
	u.PhotoConsent = profile.PhotoConsent
	u.School = profile.School
	return u
}
