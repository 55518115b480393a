package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRideDecodesNumericAndTextColumns(t *testing.T) {
	var rides []Ride
	body := `[
		{"id": 42, "driver_id": "u1", "distance": 0.5, "seats_available": 2, "trip_type": "pickup"},
		{"id": "sample2", "driver_id": "u2", "distance": "meet", "seats_available": 1, "trip_type": "both"}
	]`
	require.NoError(t, json.Unmarshal([]byte(body), &rides))

	assert.Equal(t, FlexString("42"), rides[0].ID)
	assert.Equal(t, FlexString("0.5"), rides[0].Distance)
	v, ok := rides[0].Distance.Float()
	assert.True(t, ok)
	assert.Equal(t, 0.5, v)

	assert.Equal(t, FlexString("sample2"), rides[1].ID)
	assert.Equal(t, FlexString(DistanceMeet), rides[1].Distance)
	_, ok = rides[1].Distance.Float()
	assert.False(t, ok)
}

func TestPartitionByDriverKeepsOrder(t *testing.T) {
	rides := []*Ride{{ID: "3", DriverID: "me"}, {ID: "2", DriverID: "other"}, {ID: "1", DriverID: "me"}}

	mine := PartitionByDriver(rides, "me")

	require.Len(t, mine, 2)
	assert.Equal(t, FlexString("3"), mine[0].ID)
	assert.Equal(t, FlexString("1"), mine[1].ID)
	assert.Empty(t, PartitionByDriver(rides, "nobody"))
}

func TestNewUserMergesProfile(t *testing.T) {
	auth := &AuthUser{ID: "u1", Email: "amy@example.com", Metadata: map[string]interface{}{"full_name": "Amy"}}

	bare := NewUser(auth, nil)
	assert.Equal(t, "Amy", bare.Name)

	full := NewUser(auth, &Profile{Name: "Amy P", Postcode: "NW1 1AA", PhotoConsent: true, Children: []Child{{Name: "Leo", YearGroup: YearY2}}})
	assert.Equal(t, "Amy P", full.DisplayName())
	assert.Equal(t, "NW1 1AA", full.Postcode)
	assert.True(t, full.PhotoConsent)
	assert.Len(t, full.Children, 1)
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	var missing *Session
	assert.True(t, missing.Expired(now))
	assert.False(t, (&Session{}).Expired(now))
	assert.True(t, (&Session{ExpiresAt: now}).Expired(now))
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Minute)}).Expired(now))
}

func TestSignUpProfileSurvivesBackendRoundTrip(t *testing.T) {
	in := &Profile{
		Name:         "Amy",
		Postcode:     "NW1 1AA",
		Children:     []Child{{Name: "Leo", YearGroup: YearY2}, {Name: "Mia", YearGroup: YearReception}},
		PhotoConsent: true,
		School:       "Maple Walk Prep",
	}
	data, err := json.Marshal(SignUpMetadata(in))
	require.NoError(t, err)

	u := &AuthUser{ID: "u1", Email: "amy@example.com"}
	require.NoError(t, json.Unmarshal(data, &u.Metadata))

	p := u.SignUpProfile()
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, "amy@example.com", p.Email)
	assert.Equal(t, "Amy", p.Name)
	assert.Equal(t, "NW1 1AA", p.Postcode)
	assert.Equal(t, in.Children, p.Children)
	assert.True(t, p.PhotoConsent)
	assert.Equal(t, "Maple Walk Prep", p.School)
}

func TestSignUpProfileWithoutMetadata(t *testing.T) {
	p := (&AuthUser{ID: "u1", Email: "amy@example.com"}).SignUpProfile()
	assert.Equal(t, "u1", p.ID)
	assert.Empty(t, p.Postcode)
	assert.NotNil(t, p.Children)
	assert.Empty(t, p.Children)
	assert.False(t, p.PhotoConsent)
}
