package handlers

import (
	"net/http"

	"fleetcore/internal/domain"
	"fleetcore/internal/domain/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type layoutSeatInput struct {
	Number        string           `json:"number"`
	Floor         int              `json:"floor"`
	X             int              `json:"x"`
	Y             int              `json:"y"`
	SeatType      string           `json:"seatType"`
	Status        string           `json:"status"`
	PriceOverride *decimal.Decimal `json:"priceOverride"`
	Disabled      bool             `json:"disabled"`
}

type layoutRequest struct {
	Seats []layoutSeatInput `json:"seats"`
}

func (in layoutSeatInput) toSeat() models.Seat {
	s := models.Seat{
		Number:   in.Number,
		Coord:    models.SeatCoord{Floor: in.Floor, X: in.X, Y: in.Y},
		SeatType: in.SeatType,
		Status:   domain.SeatStatus(in.Status),
		Disabled: in.Disabled,
	}
	if in.PriceOverride != nil {
		s.PriceOverride = decimal.NewNullDecimal(*in.PriceOverride)
	}
	return s
}

// GetSeatLayout GET /api/vehicles/:id/seat-layout
func GetSeatLayout(c *gin.Context) {
	actor, ok := actorOr401(c)
	if !ok {
		return
	}
	vehicleID, ok := paramID(c, "id")
	if !ok {
		return
	}
	seats, err := seatLayoutService(c).GetLayout(c.Request.Context(), actor, vehicleID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seats": seats})
}

// PutSeatLayout PUT /api/vehicles/:id/seat-layout
func PutSeatLayout(c *gin.Context) {
	actor, ok := actorOr401(c)
	if !ok {
		return
	}
	vehicleID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req layoutRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	desired := make([]models.Seat, 0, len(req.Seats))
	for _, in := range req.Seats {
		desired = append(desired, in.toSeat())
	}

	res, err := seatLayoutService(c).ReplaceLayout(c.Request.Context(), actor, vehicleID, desired)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	c.JSON(http.StatusOK, res)
}

// DeleteSeatLayout DELETE /api/vehicles/:id/seat-layout
func DeleteSeatLayout(c *gin.Context) {
	actor, ok := actorOr401(c)
	if !ok {
		return
	}
	vehicleID, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := seatLayoutService(c).ClearLayout(c.Request.Context(), actor, vehicleID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "warnings": res.Warnings})
}
