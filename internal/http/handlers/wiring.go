package handlers

import (
	"sync"

	intconfig "fleetcore/internal/config"
	"fleetcore/internal/http/middleware"
	"fleetcore/internal/repositories"
	"fleetcore/internal/services"

	"github.com/gin-gonic/gin"
)

var (
	ledgerMu  sync.RWMutex
	publisher services.LedgerPublisher
	repairer  *services.LedgerRepairer
)

// SetLedgerPublisher installs the queue reservation writes publish ledger events to.
// Without one, ledger entries are written inline after the reservation commits.
func SetLedgerPublisher(p services.LedgerPublisher) {
	ledgerMu.Lock()
	defer ledgerMu.Unlock()
	publisher = p
}

// SetLedgerRepairer installs the repairer behind POST /api/ledger/repair.
func SetLedgerRepairer(r *services.LedgerRepairer) {
	ledgerMu.Lock()
	defer ledgerMu.Unlock()
	repairer = r
}

func currentPublisher() services.LedgerPublisher {
	ledgerMu.RLock()
	defer ledgerMu.RUnlock()
	return publisher
}

func currentRepairer() *services.LedgerRepairer {
	ledgerMu.RLock()
	defer ledgerMu.RUnlock()
	return repairer
}

func ledgerService(c *gin.Context) services.LedgerService {
	db := intconfig.DB
	return services.LedgerService{
		DB:           db,
		Ledger:       repositories.LedgerRepo{DB: db},
		Reservations: repositories.ReservationRepo{DB: db},
		Maintenance:  repositories.MaintenanceRepo{DB: db},
		Parcels:      repositories.ParcelRepo{DB: db},
		Trips:        repositories.TripRepo{DB: db},
		Query:        repositories.QueryRepo{DB: db},
		RequestID:    middleware.GetRequestID(c),
	}
}

func bookingService(c *gin.Context) services.BookingService {
	db := intconfig.DB
	return services.BookingService{
		DB:           db,
		Trips:        repositories.TripRepo{DB: db},
		Seats:        repositories.SeatRepo{DB: db},
		Reservations: repositories.ReservationRepo{DB: db},
		Clients:      repositories.ClientRepo{DB: db},
		Ledger:       ledgerService(c),
		Publisher:    currentPublisher(),
		RequestID:    middleware.GetRequestID(c),
	}
}

func seatLayoutService(c *gin.Context) services.SeatLayoutService {
	db := intconfig.DB
	return services.SeatLayoutService{
		DB:        db,
		Vehicles:  repositories.VehicleRepo{DB: db},
		Seats:     repositories.SeatRepo{DB: db},
		RequestID: middleware.GetRequestID(c),
	}
}

func queryService(c *gin.Context) services.QueryService {
	db := intconfig.DB
	return services.QueryService{
		DB:     db,
		Trips:  repositories.TripRepo{DB: db},
		Query:  repositories.QueryRepo{DB: db},
		Ledger: ledgerService(c),
	}
}

func ticketService(c *gin.Context) services.TicketService {
	db := intconfig.DB
	return services.TicketService{
		DB:           db,
		Reservations: repositories.ReservationRepo{DB: db},
		Trips:        repositories.TripRepo{DB: db},
		Vehicles:     repositories.VehicleRepo{DB: db},
		RequestID:    middleware.GetRequestID(c),
	}
}

func maintenanceService(c *gin.Context) services.MaintenanceService {
	db := intconfig.DB
	return services.MaintenanceService{
		DB:          db,
		Maintenance: repositories.MaintenanceRepo{DB: db},
		Vehicles:    repositories.VehicleRepo{DB: db},
		Trips:       repositories.TripRepo{DB: db},
		Ledger:      ledgerService(c),
		RequestID:   middleware.GetRequestID(c),
	}
}

func parcelService(c *gin.Context) services.ParcelService {
	db := intconfig.DB
	return services.ParcelService{
		DB:        db,
		Parcels:   repositories.ParcelRepo{DB: db},
		Trips:     repositories.TripRepo{DB: db},
		Ledger:    ledgerService(c),
		RequestID: middleware.GetRequestID(c),
	}
}
