package handlers

import (
	"net/http"

	"fleetcore/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// CreateMaintenance POST /api/maintenance
func CreateMaintenance(c *gin.Context) {
	actor, ok := actorOr401(c)
	if !ok {
		return
	}
	var in models.MaintenanceOrder
	if !BindJSONOrError(c, &in) {
		return
	}
	m, err := maintenanceService(c).CreateMaintenance(c.Request.Context(), actor, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// PatchMaintenance PATCH /api/maintenance/:id
func PatchMaintenance(c *gin.Context) {
	actor, ok := actorOr401(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var patch models.MaintenancePatch
	if !BindJSONOrError(c, &patch) {
		return
	}
	m, err := maintenanceService(c).UpdateMaintenance(c.Request.Context(), actor, id, patch)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
