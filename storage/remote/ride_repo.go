package remote

import (
	"context"

	"tandem/pkg/backend"
	"tandem/pkg/logger"
	"tandem/pkg/models"
	"tandem/storage"
)

type rideRepo struct {
	client *backend.Client
	tokens storage.TokenSource
	log    logger.ILogger
}

func NewRideRepo(client *backend.Client, tokens storage.TokenSource, log logger.ILogger) storage.IRideStorage {
	return &rideRepo{client: client, tokens: tokens, log: log}
}

func (r *rideRepo) GetAll(ctx context.Context) ([]*models.Ride, error) {
	return r.list(ctx, nil)
}

func (r *rideRepo) GetByDriver(ctx context.Context, driverID string) ([]*models.Ride, error) {
	return r.list(ctx, []backend.Filter{{Column: "driver_id", Value: driverID}})
}

func (r *rideRepo) list(ctx context.Context, eq []backend.Filter) ([]*models.Ride, error) {
	rides := make([]*models.Ride, 0)
	err := r.client.Select(ctx, r.tokens.AccessToken(), backend.Query{
		Table:   tableRides,
		Eq:      eq,
		OrderBy: "created_at",
	}, &rides)
	if err != nil {
		r.log.Error("failed to list rides", logger.Error(err))
		return nil, err
	}
	return rides, nil
}

func (r *rideRepo) Create(ctx context.Context, ride *models.Ride) (*models.Ride, error) {
	var out models.Ride
	if err := r.client.Insert(ctx, r.tokens.AccessToken(), tableRides, ride, &out); err != nil {
		r.log.Error("failed to create ride", logger.String("driver_id", ride.DriverID), logger.Error(err))
		return nil, err
	}
	return &out, nil
}
