package storage

import (
	"context"

	"tandem/pkg/models"
)

type IStorage interface {
	Profile() IProfileStorage
	Ride() IRideStorage
	Close()
}

type IProfileStorage interface {
	// Get returns nil, nil when no profile exists for id.
	Get(ctx context.Context, id string) (*models.Profile, error)
	// Upsert inserts the profile or updates the row with the same id.
	Upsert(ctx context.Context, profile *models.Profile) (*models.Profile, error)
}

type IRideStorage interface {
	// GetAll returns every ride, newest first.
	GetAll(ctx context.Context) ([]*models.Ride, error)
	GetByDriver(ctx context.Context, driverID string) ([]*models.Ride, error)
	Create(ctx context.Context, ride *models.Ride) (*models.Ride, error)
}

// TokenSource hands out the access token of the current session, or "" when anonymous.
type TokenSource interface {
	AccessToken() string
}

type Source string

const (
	SourceBackend Source = "backend"
	SourceCache   Source = "cache"
	SourceEmpty   Source = "empty"
)

// RidesResult is a ride listing together with where it came from. Err holds the backend
// failure when the listing is a fallback.
type RidesResult struct {
	Rides  []*models.Ride
	Source Source
	Err    error
}

func (r RidesResult) Fallback() bool {
	return r.Source != SourceBackend
}

// Factory builds the storage an App talks through, bound to that App's session.
// Variants that do not use bearer tokens ignore tokens and may return a shared instance.
type Factory func(tokens TokenSource) IStorage

// Shared adapts a single storage instance to a Factory.
func Shared(stg IStorage) Factory {
	return func(TokenSource) IStorage { return stg }
}

type anonymous struct{}

func (anonymous) AccessToken() string { return "" }

// Anonymous is a TokenSource that never has a session.
var Anonymous TokenSource = anonymous{}
