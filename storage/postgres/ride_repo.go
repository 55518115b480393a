package postgres

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tandem/pkg/logger"
	"tandem/pkg/models"
	"tandem/storage"
)

type rideRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewRideRepo(db *pgxpool.Pool, log logger.ILogger) storage.IRideStorage {
	return &rideRepo{db: db, log: log}
}

const rideColumns = `id, driver_id, driver_name, driver_verified, postcode, trip_type, distance,
	COALESCE("date"::text, ''), COALESCE("time"::text, ''), seats_available, year_groups, school, created_at`

func scanRide(row pgx.Row) (*models.Ride, error) {
	var (
		r        models.Ride
		id       int64
		tripType string
		distance string
	)
	err := row.Scan(&id, &r.DriverID, &r.DriverName, &r.DriverVerified, &r.Postcode, &tripType, &distance,
		&r.Date, &r.Time, &r.SeatsAvailable, &r.YearGroups, &r.School, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.ID = models.FlexString(strconv.FormatInt(id, 10))
	r.TripType = models.TripType(tripType)
	r.Distance = models.FlexString(distance)
	return &r, nil
}

func (r *rideRepo) GetAll(ctx context.Context) ([]*models.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query)
}

func (r *rideRepo) GetByDriver(ctx context.Context, driverID string) ([]*models.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE driver_id = $1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, driverID)
}

func (r *rideRepo) list(ctx context.Context, query string, args ...interface{}) ([]*models.Ride, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to list rides", logger.Error(err))
		return nil, err
	}
	defer rows.Close()

	rides := make([]*models.Ride, 0)
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			r.log.Error("failed to scan ride", logger.Error(err))
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

func (r *rideRepo) Create(ctx context.Context, ride *models.Ride) (*models.Ride, error) {
	query := `
		INSERT INTO rides (driver_id, driver_name, driver_verified, postcode, trip_type, distance,
			"date", "time", seats_available, year_groups, school)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::date, NULLIF($8, '')::time, $9, $10, $11)
		RETURNING ` + rideColumns
	created, err := scanRide(r.db.QueryRow(ctx, query,
		ride.DriverID, ride.DriverName, ride.DriverVerified, ride.Postcode, string(ride.TripType), ride.Distance.String(),
		ride.Date, ride.Time, ride.SeatsAvailable, ride.YearGroups, ride.School,
	))
	if err != nil {
		r.log.Error("failed to create ride", logger.String("driver_id", ride.DriverID), logger.Error(err))
		return nil, err
	}
	return created, nil
}
