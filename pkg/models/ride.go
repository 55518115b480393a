package models

import "time"

type TripType string

const (
	TripPickup  TripType = "pickup"
	TripDropoff TripType = "dropoff"
	TripBoth    TripType = "both"
)

const DistanceMeet = "meet"

var (
	TripTypes      = []TripType{TripPickup, TripDropoff, TripBoth}
	Distances      = []string{"0.5", "1", "1.5", "2", "3", DistanceMeet}
	SeatOptions    = []string{"1", "2", "3", "4"}
	YearGroupRange = []string{"Reception", "Y1-Y2", "Y1-Y3", "Y3-Y4", "Y4-Y6", "All"}
)

// Ride is a driver's school-run offer.
type Ride struct {
	ID             FlexString `json:"id,omitempty"`
	DriverID       string     `json:"driver_id"`
	DriverName     string     `json:"driver_name"`
	DriverVerified bool       `json:"driver_verified"`
	Postcode       string     `json:"postcode"`
	TripType       TripType   `json:"trip_type"`
	Distance       FlexString `json:"distance"`
	Date           string     `json:"date"`
	Time           string     `json:"time"`
	SeatsAvailable int        `json:"seats_available"`
	YearGroups     string     `json:"year_groups"`
	School         string     `json:"school"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// PartitionByDriver returns the rides owned by driverID, keeping their order.
func PartitionByDriver(rides []*Ride, driverID string) []*Ride {
	mine := make([]*Ride, 0)
	for _, r := range rides {
		if r.DriverID == driverID {
			mine = append(mine, r)
		}
	}
	return mine
}
