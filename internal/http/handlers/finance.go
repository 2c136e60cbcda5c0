package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetTripFinancialSummary GET /api/trips/:id/financial-summary
func GetTripFinancialSummary(c *gin.Context) {
	actor, ok := actorOr401(c)
	if !ok {
		return
	}
	tripID, ok := paramID(c, "id")
	if !ok {
		return
	}
	sum, err := queryService(c).TripFinancialSummary(c.Request.Context(), actor, tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

type allocationRequest struct {
	TripID int64           `json:"tripId"`
	Amount decimal.Decimal `json:"amount"`
}

// AllocateTransaction POST /api/transactions/:id/allocations
func AllocateTransaction(c *gin.Context) {
	actor, ok := actorOr401(c)
	if !ok {
		return
	}
	txID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req allocationRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	allocs, err := ledgerService(c).AllocateToTrip(c.Request.Context(), actor, txID, req.TripID, req.Amount)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allocations": allocs})
}

// RepairLedger POST /api/ledger/repair
func RepairLedger(c *gin.Context) {
	r := currentRepairer()
	if r == nil {
		respondError(c, http.StatusServiceUnavailable, "repairer_unavailable", "repair ledger belum aktif", nil)
		return
	}
	fixed, err := r.RepairMissing(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "repair_failed", "gagal memperbaiki ledger", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"repaired": fixed})
}
