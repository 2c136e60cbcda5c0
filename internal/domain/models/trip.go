package models

import "time"

// Trip is one scheduled departure. SeatsAvailable is the contended counter.
type Trip struct {
	ID             int64      `json:"id"`
	OrgID          int64      `json:"orgId"`
	VehicleID      int64      `json:"vehicleId"`
	RouteName      string     `json:"routeName"`
	DepartureAt    *time.Time `json:"departureAt,omitempty"`
	SeatsAvailable int        `json:"seatsAvailable"`
	Status         string     `json:"status"`
}
