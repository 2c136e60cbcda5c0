package services

import (
	"context"
	"database/sql"
	"errors"

	intconfig "fleetcore/internal/config"
	"fleetcore/internal/domain"
	"fleetcore/internal/domain/models"
	"fleetcore/internal/repositories"
)

// QueryService serves the read side: trip manifests and P&L.
type QueryService struct {
	DB     *sql.DB
	Trips  repositories.TripRepo
	Query  repositories.QueryRepo
	Ledger LedgerService
}

func (s QueryService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

// ListTripReservations returns the manifest of a trip with each row's ledger status.
func (s QueryService) ListTripReservations(ctx context.Context, actor domain.Actor, tripID int64, includeCancelled bool) ([]repositories.ReservationRow, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if tripID <= 0 {
		return nil, domain.ValidationError{Field: "trip_id", Msg: "id tidak valid"}
	}
	if _, err := s.Trips.Get(ctx, s.db(), actor.OrgID, tripID, false); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tripErr(err)
		}
		return nil, domain.InternalError{Err: err}
	}
	q := s.Query
	if q.DB == nil {
		q.DB = s.db()
	}
	rows, err := q.ListTripReservations(ctx, actor.OrgID, tripID, includeCancelled)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return rows, nil
}

func (s QueryService) TripFinancialSummary(ctx context.Context, actor domain.Actor, tripID int64) (models.TripFinancialSummary, error) {
	l := s.Ledger
	if l.DB == nil {
		l.DB = s.db()
	}
	return l.GetTripFinancialSummary(ctx, actor, tripID)
}
