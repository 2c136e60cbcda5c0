package handlers

import (
	"net/http"

	"fleetcore/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// CreateParcel POST /api/parcels
func CreateParcel(c *gin.Context) {
	actor, ok := actorOr401(c)
	if !ok {
		return
	}
	var in models.Parcel
	if !BindJSONOrError(c, &in) {
		return
	}
	p, err := parcelService(c).CreateParcel(c.Request.Context(), actor, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// PatchParcel PATCH /api/parcels/:id
func PatchParcel(c *gin.Context) {
	actor, ok := actorOr401(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var patch models.ParcelPatch
	if !BindJSONOrError(c, &patch) {
		return
	}
	p, err := parcelService(c).UpdateParcel(c.Request.Context(), actor, id, patch)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
