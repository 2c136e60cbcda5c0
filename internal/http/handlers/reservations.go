package handlers

import (
	"net/http"
	"strconv"

	"fleetcore/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// CreateReservation POST /api/trips/:id/reservations
func CreateReservation(c *gin.Context) {
	actor, ok := actorOr401(c)
	if !ok {
		return
	}
	tripID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in models.NewReservation
	if !BindJSONOrError(c, &in) {
		return
	}
	in.TripID = tripID

	res, err := bookingService(c).CreateReservation(c.Request.Context(), actor, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ListTripReservations GET /api/trips/:id/reservations?include_cancelled=1
func ListTripReservations(c *gin.Context) {
	actor, ok := actorOr401(c)
	if !ok {
		return
	}
	tripID, ok := paramID(c, "id")
	if !ok {
		return
	}
	includeCancelled, _ := strconv.ParseBool(c.DefaultQuery("include_cancelled", "false"))

	rows, err := queryService(c).ListTripReservations(c.Request.Context(), actor, tripID, includeCancelled)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": rows})
}

// GetReservation GET /api/reservations/:id
func GetReservation(c *gin.Context) {
	actor, ok := actorOr401(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := bookingService(c).GetReservation(c.Request.Context(), actor, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PatchReservation PATCH /api/reservations/:id
func PatchReservation(c *gin.Context) {
	actor, ok := actorOr401(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var patch models.ReservationPatch
	if !BindJSONOrError(c, &patch) {
		return
	}
	res, err := bookingService(c).UpdateReservation(c.Request.Context(), actor, id, patch)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteReservation DELETE /api/reservations/:id
func DeleteReservation(c *gin.Context) {
	actor, ok := actorOr401(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := bookingService(c).DeleteReservation(c.Request.Context(), actor, id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GetReservationTicket GET /api/reservations/:id/ticket (?doc=receipt for the receipt)
func GetReservationTicket(c *gin.Context) {
	actor, ok := actorOr401(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	svc := ticketService(c)
	var (
		pdfBytes []byte
		filename string
		err      error
	)
	if c.Query("doc") == "receipt" {
		pdfBytes, filename, err = svc.GenerateReceipt(c.Request.Context(), actor, id)
	} else {
		pdfBytes, filename, err = svc.GenerateETicket(c.Request.Context(), actor, id)
	}
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
