package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"tandem/pkg/logger"
	"tandem/pkg/models"
	"tandem/storage/cache"
)

const (
	msgRideCreated   = "Ride offer posted!"
	msgRideRequested = "Ride request sent!"
)

// RideForm is the offer form draft. Every field holds the raw option the user picked.
type RideForm struct {
	Postcode   string `validate:"required"`
	TripType   string `validate:"required,oneof=pickup dropoff both"`
	Distance   string `validate:"required,oneof=0.5 1 1.5 2 3 meet"`
	Date       string `validate:"required,datetime=2006-01-02"`
	Time       string `validate:"required,datetime=15:04"`
	Seats      string `validate:"required,oneof=1 2 3 4"`
	YearGroups string `validate:"required,oneof=Reception Y1-Y2 Y1-Y3 Y3-Y4 Y4-Y6 All"`
}

var rideMessages = fieldMessages{
	"Postcode":   "Please enter a postcode.",
	"TripType":   "Please choose a trip type.",
	"Distance":   "Please choose a distance.",
	"Date":       "Please enter the date as YYYY-MM-DD.",
	"Time":       "Please enter the time as HH:MM.",
	"Seats":      "Please choose between 1 and 4 seats.",
	"YearGroups": "Please choose the year groups.",
}

func DefaultRideForm() RideForm {
	return RideForm{
		TripType:   string(models.TripPickup),
		Distance:   "0.5",
		Time:       "08:15",
		Seats:      "1",
		YearGroups: "Y1-Y3",
	}
}

// UpdateOffer edits the offer draft in place.
func (a *App) UpdateOffer(edit func(f *RideForm)) RideForm {
	a.mu.Lock()
	defer a.mu.Unlock()
	edit(&a.state.Offer)
	return a.state.Offer
}

func (a *App) buildRide(form RideForm) (*models.Ride, error) {
	form.Postcode = strings.ToUpper(strings.TrimSpace(form.Postcode))
	form.Date = strings.TrimSpace(form.Date)
	form.Time = strings.TrimSpace(form.Time)
	if verr := validateStruct(a.validate, form, rideMessages); verr != nil {
		return nil, verr
	}

	seats, err := cast.ToIntE(form.Seats)
	if err != nil || seats < 1 || seats > 4 {
		return nil, newValidationError("Seats", rideMessages["Seats"])
	}

	user := a.state.User
	return &models.Ride{
		DriverID:       user.ID,
		DriverName:     user.DisplayName(),
		DriverVerified: true,
		Postcode:       form.Postcode,
		TripType:       models.TripType(form.TripType),
		Distance:       models.FlexString(form.Distance),
		Date:           form.Date,
		Time:           form.Time,
		SeatsAvailable: seats,
		YearGroups:     form.YearGroups,
		School:         a.opts.School,
	}, nil
}

// CreateRide submits the offer draft. The stored row is put at the head of both ride lists.
// The draft goes back to its defaults whatever the outcome.
func (a *App) CreateRide(ctx context.Context) (*models.Ride, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	defer func() { a.state.Offer = DefaultRideForm() }()

	if !a.signedIn() {
		a.setError(msgSignInToOffer)
		return nil, ErrNotAuthenticated
	}

	ride, err := a.buildRide(a.state.Offer)
	if err != nil {
		a.setError(err.Error())
		return nil, err
	}

	a.state.Loading = true
	defer func() { a.state.Loading = false }()

	created, err := a.stg.Ride().Create(ctx, ride)
	if err != nil {
		a.setError(msgCreateRideFailed)
		return nil, err
	}

	a.state.Rides = prependRide(a.state.Rides, created)
	a.state.MyRides = prependRide(a.state.MyRides, created)
	if err := a.cache.Set(ctx, a.key(cache.KeyRides), a.state.Rides); err != nil {
		a.log.Warning("failed to cache rides", logger.Error(err))
	}

	a.log.Info("ride created", logger.String("ride_id", created.ID.String()), logger.String("driver_id", created.DriverID))
	a.setNotice(msgRideCreated)
	return created, nil
}

func prependRide(list []*models.Ride, r *models.Ride) []*models.Ride {
	out := make([]*models.Ride, 0, len(list)+1)
	out = append(out, r)
	for _, x := range list {
		if r.ID != "" && x.ID == r.ID {
			continue
		}
		out = append(out, x)
	}
	return out
}

func (a *App) findRide(rideID string) *models.Ride {
	for _, list := range [][]*models.Ride{a.state.MyRides, a.state.Rides} {
		for _, r := range list {
			if r.ID.String() == rideID {
				return r
			}
		}
	}
	return nil
}

// RequestRide asks for a seat on a ride. Requests are not stored anywhere; the driver side
// only sees the local notification.
func (a *App) RequestRide(ctx context.Context, rideID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.signedIn() {
		a.setError(msgSignInToRequest)
		return ErrNotAuthenticated
	}
	ride := a.findRide(rideID)
	if ride == nil {
		return ErrRideNotFound
	}

	a.setNotice(msgRideRequested)
	a.notifier.Notify(ctx, "📨 Ride Requested", fmt.Sprintf("%s will be in touch about the %s run on %s", ride.DriverName, ride.TripType, ride.Date))
	return nil
}
