package models

import (
	"fleetcore/internal/domain"

	"github.com/shopspring/decimal"
)

// Vehicle is the fleet unit owning a seat layout.
type Vehicle struct {
	ID               int64  `json:"id"`
	OrgID            int64  `json:"orgId"`
	VehicleCode      string `json:"vehicleCode"`
	PlateNumber      string `json:"plateNumber"`
	VehicleType      string `json:"vehicleType"`
	Capacity         int    `json:"capacity"`
	Status           string `json:"status"`
	LayoutConfigured bool   `json:"layoutConfigured"`
}

// SeatCoord is the physical position of a seat inside a vehicle.
type SeatCoord struct {
	Floor int `json:"floor"`
	X     int `json:"x"`
	Y     int `json:"y"`
}

// OffGrid is where seats that cannot be removed are parked.
var OffGrid = SeatCoord{Floor: -1, X: -1, Y: -1}

type Seat struct {
	ID            int64               `json:"id"`
	VehicleID     int64               `json:"vehicleId"`
	Number        string              `json:"number"`
	Coord         SeatCoord           `json:"coord"`
	SeatType      string              `json:"seatType"`
	Status        domain.SeatStatus   `json:"status"`
	PriceOverride decimal.NullDecimal `json:"priceOverride"`
	Disabled      bool                `json:"disabled"`
}

// LayoutResult is what a layout reconciliation hands back to the caller.
type LayoutResult struct {
	Seats    []Seat   `json:"seats"`
	Warnings []string `json:"warnings"`
}
