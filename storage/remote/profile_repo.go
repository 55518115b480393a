package remote

import (
	"context"

	"tandem/pkg/backend"
	"tandem/pkg/logger"
	"tandem/pkg/models"
	"tandem/storage"
)

type profileRepo struct {
	client *backend.Client
	tokens storage.TokenSource
	log    logger.ILogger
}

func NewProfileRepo(client *backend.Client, tokens storage.TokenSource, log logger.ILogger) storage.IProfileStorage {
	return &profileRepo{client: client, tokens: tokens, log: log}
}

func (r *profileRepo) Get(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := r.client.Select(ctx, r.tokens.AccessToken(), backend.Query{
		Table:  tableProfiles,
		Eq:     []backend.Filter{{Column: "id", Value: id}},
		Single: true,
	}, &p)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, nil
		}
		r.log.Error("failed to get profile", logger.String("id", id), logger.Error(err))
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) Upsert(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	row := *profile
	if row.Children == nil {
		row.Children = []models.Child{}
	}

	var out models.Profile
	err := r.client.Upsert(ctx, r.tokens.AccessToken(), tableProfiles, "id", row, &out)
	if err != nil {
		r.log.Error("failed to upsert profile", logger.String("id", profile.ID), logger.Error(err))
		return nil, err
	}
	return &out, nil
}
