package remote

import (
	"tandem/pkg/backend"
	"tandem/pkg/logger"
	"tandem/storage"
)

const (
	tableProfiles = "profiles"
	tableRides    = "rides"
)

type Store struct {
	client *backend.Client
	tokens storage.TokenSource
	log    logger.ILogger
}

// New returns storage that reads and writes rows through the backend row API, authorised by
// whatever session tokens currently holds.
func New(client *backend.Client, tokens storage.TokenSource, log logger.ILogger) storage.IStorage {
	if tokens == nil {
		tokens = storage.Anonymous
	}
	return &Store{client: client, tokens: tokens, log: log}
}

// NewFactory binds one backend client to every App's own session.
func NewFactory(client *backend.Client, log logger.ILogger) storage.Factory {
	return func(tokens storage.TokenSource) storage.IStorage {
		return New(client, tokens, log)
	}
}

func (s *Store) Close() {}

func (s *Store) Profile() storage.IProfileStorage {
	return NewProfileRepo(s.client, s.tokens, s.log)
}

func (s *Store) Ride() storage.IRideStorage {
	return NewRideRepo(s.client, s.tokens, s.log)
}
