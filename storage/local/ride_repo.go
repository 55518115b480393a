package local

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tandem/pkg/models"
)

type rideRepo struct {
	s *Store
}

// sampleRides is what an empty local store starts with.
func sampleRides(school string, now time.Time) []*models.Ride {
	older := now.Add(-time.Minute)
	return []*models.Ride{
		{
			ID:             models.FlexString(uuid.NewString()),
			DriverID:       "sample-sarah",
			DriverName:     "Sarah Johnson",
			DriverVerified: true,
			Postcode:       "NW6 2AB",
			TripType:       models.TripPickup,
			Distance:       "0.5",
			Date:           "2024-08-19",
			Time:           "08:15:00",
			SeatsAvailable: 2,
			YearGroups:     "Y1-Y3",
			School:         school,
			CreatedAt:      &now,
		},
		{
			ID:             models.FlexString(uuid.NewString()),
			DriverID:       "sample-mike",
			DriverName:     "Mike Parker",
			DriverVerified: true,
			Postcode:       "NW10 5CD",
			TripType:       models.TripBoth,
			Distance:       models.DistanceMeet,
			Date:           "2024-08-19",
			Time:           "08:00:00",
			SeatsAvailable: 1,
			YearGroups:     "Reception-Y4",
			School:         school,
			CreatedAt:      &older,
		},
	}
}

// all returns the stored rides newest first, seeding the store on first use. Caller holds the lock.
func (r *rideRepo) all(ctx context.Context) ([]*models.Ride, error) {
	var rides []*models.Ride
	ok, err := r.s.load(ctx, keyRides, &rides)
	if err != nil {
		return nil, err
	}
	if !ok {
		rides = sampleRides(r.s.school, r.s.now().UTC())
		if err := r.s.save(ctx, keyRides, rides); err != nil {
			return nil, err
		}
	}
	return rides, nil
}

func (r *rideRepo) GetAll(ctx context.Context) ([]*models.Ride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.all(ctx)
}

func (r *rideRepo) GetByDriver(ctx context.Context, driverID string) ([]*models.Ride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rides, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	return models.PartitionByDriver(rides, driverID), nil
}

func (r *rideRepo) Create(ctx context.Context, ride *models.Ride) (*models.Ride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rides, err := r.all(ctx)
	if err != nil {
		return nil, err
	}

	now := r.s.now().UTC()
	created := *ride
	created.ID = models.FlexString(uuid.NewString())
	created.CreatedAt = &now

	rides = append([]*models.Ride{&created}, rides...)
	if err := r.s.save(ctx, keyRides, rides); err != nil {
		return nil, err
	}
	return &created, nil
}
