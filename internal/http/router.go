package api

import (
	stdhttp "net/http"

	intconfig "fleetcore/internal/config"
	"fleetcore/internal/domain"
	h "fleetcore/internal/http/handlers"
	"fleetcore/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func NewRouter(env intconfig.Env) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(),
		gin.Recovery(),
		middleware.CORS(env.CORSOrigins),
		middleware.Timeout(env.RequestTimeout),
	)

	if err := r.SetTrustedProxies(nil); err != nil {
		logrus.WithError(err).Warn("failed to set trusted proxies")
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":      "route tidak ditemukan",
			"code":       "not_found",
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"request_id": middleware.GetRequestID(c),
		})
	})

	api := r.Group("/api")
	api.GET("/health", h.Health)

	secured := api.Group("")
	secured.Use(middleware.Auth(env.JWTSecret))
	{
		elevated := middleware.RequireRoles(domain.RoleOwner, domain.RoleAdmin)
		staff := middleware.RequireRoles(domain.RoleOwner, domain.RoleAdmin, domain.RoleOperator)
		sellers := middleware.RequireRoles(domain.RoleOwner, domain.RoleAdmin, domain.RoleOperator, domain.RoleAgent)

		secured.GET("/db-check", elevated, h.DBCheck)
		secured.GET("/routes", elevated, h.Routes)

		// Seat layout
		vehicles := secured.Group("/vehicles")
		vehicles.GET("/:id/seat-layout", h.GetSeatLayout)
		vehicles.PUT("/:id/seat-layout", staff, h.PutSeatLayout)
		vehicles.DELETE("/:id/seat-layout", staff, h.DeleteSeatLayout)

		// Trips
		trips := secured.Group("/trips")
		trips.POST("/:id/reservations", sellers, h.CreateReservation)
		trips.GET("/:id/reservations", h.ListTripReservations)
		trips.GET("/:id/financial-summary", staff, h.GetTripFinancialSummary)

		// Reservations
		reservations := secured.Group("/reservations")
		reservations.GET("/:id", h.GetReservation)
		reservations.PATCH("/:id", h.PatchReservation)
		reservations.DELETE("/:id", elevated, h.DeleteReservation)
		reservations.GET("/:id/ticket", h.GetReservationTicket)

		// Maintenance & parcels
		maintenance := secured.Group("/maintenance")
		maintenance.POST("", staff, h.CreateMaintenance)
		maintenance.PATCH("/:id", staff, h.PatchMaintenance)

		parcels := secured.Group("/parcels")
		parcels.POST("", sellers, h.CreateParcel)
		parcels.PATCH("/:id", sellers, h.PatchParcel)

		// Ledger
		secured.POST("/transactions/:id/allocations", staff, h.AllocateTransaction)
		secured.POST("/ledger/repair", elevated, h.RepairLedger)
	}

	h.SetRouter(r)
	return r
}
