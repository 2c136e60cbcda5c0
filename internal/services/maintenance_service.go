package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	intconfig "fleetcore/internal/config"
	intdb "fleetcore/internal/db"
	"fleetcore/internal/domain"
	"fleetcore/internal/domain/models"
	"fleetcore/internal/repositories"
	"fleetcore/internal/utils"
)

// MaintenanceService records vehicle maintenance and keeps its expense entry in step.
type MaintenanceService struct {
	DB          *sql.DB
	Maintenance repositories.MaintenanceRepo
	Vehicles    repositories.VehicleRepo
	Trips       repositories.TripRepo
	Ledger      LedgerService
	RequestID   string
}

func (s MaintenanceService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s MaintenanceService) CreateMaintenance(ctx context.Context, actor domain.Actor, in models.MaintenanceOrder) (models.MaintenanceOrder, error) {
	if err := actor.Validate(); err != nil {
		return models.MaintenanceOrder{}, err
	}
	if in.VehicleID <= 0 {
		return models.MaintenanceOrder{}, domain.ValidationError{Field: "vehicleId", Msg: "kendaraan wajib diisi"}
	}
	in.Description = utils.NormalizeSpace(in.Description)
	if in.Description == "" {
		return models.MaintenanceOrder{}, domain.ValidationError{Field: "description", Msg: "deskripsi wajib diisi"}
	}
	if in.Cost.IsNegative() || in.AmountPaid.IsNegative() {
		return models.MaintenanceOrder{}, domain.ValidationError{Field: "cost", Msg: "nominal tidak boleh negatif"}
	}
	st, err := domain.ParseMaintenanceStatus(string(in.Status))
	if err != nil {
		return models.MaintenanceOrder{}, err
	}
	in.Status = st
	in.OrgID = actor.OrgID
	if in.TripID != nil && *in.TripID <= 0 {
		in.TripID = nil
	}
	in.Cost = utils.RoundMoney(in.Cost)
	in.AmountPaid = utils.RoundMoney(in.AmountPaid)

	var id int64
	err = intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		if _, err := s.Vehicles.Get(ctx, tx, actor.OrgID, in.VehicleID, false); err != nil {
			return vehicleErr(err)
		}
		if err := s.checkTrip(ctx, tx, actor.OrgID, in.TripID); err != nil {
			return err
		}
		var err error
		if id, err = s.Maintenance.Insert(ctx, tx, in); err != nil {
			return err
		}
		return s.ledger().SyncMaintenance(ctx, tx, actor.OrgID, id)
	})
	if err != nil {
		return models.MaintenanceOrder{}, s.wrap("create_error", err)
	}
	utils.LogEvent(s.RequestID, "maintenance", "create", fmt.Sprintf("maintenance_id=%d vehicle_id=%d", id, in.VehicleID))
	return s.Maintenance.Get(ctx, s.db(), actor.OrgID, id)
}

// UpdateMaintenance applies patch and updates the linked expense entry, e.g. marking
// it paid once the order is completed.
func (s MaintenanceService) UpdateMaintenance(ctx context.Context, actor domain.Actor, id int64, patch models.MaintenancePatch) (models.MaintenanceOrder, error) {
	if err := actor.Validate(); err != nil {
		return models.MaintenanceOrder{}, err
	}
	if id <= 0 {
		return models.MaintenanceOrder{}, domain.ValidationError{Field: "id", Msg: "id tidak valid"}
	}

	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		m, err := s.Maintenance.Get(ctx, tx, actor.OrgID, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.NotFoundError{Resource: "maintenance", Err: err}
			}
			return err
		}
		if patch.TripID != nil {
			if *patch.TripID <= 0 {
				m.TripID = nil
			} else {
				if err := s.checkTrip(ctx, tx, actor.OrgID, patch.TripID); err != nil {
					return err
				}
				m.TripID = patch.TripID
			}
		}
		if patch.Description != nil {
			if d := utils.NormalizeSpace(*patch.Description); d != "" {
				m.Description = d
			}
		}
		if patch.Cost != nil {
			if patch.Cost.IsNegative() {
				return domain.ValidationError{Field: "cost", Msg: "nominal tidak boleh negatif"}
			}
			m.Cost = utils.RoundMoney(*patch.Cost)
		}
		if patch.AmountPaid != nil {
			if patch.AmountPaid.IsNegative() {
				return domain.ValidationError{Field: "amountPaid", Msg: "nominal tidak boleh negatif"}
			}
			m.AmountPaid = utils.RoundMoney(*patch.AmountPaid)
		}
		if patch.Status != nil && strings.TrimSpace(*patch.Status) != "" {
			st, err := domain.ParseMaintenanceStatus(*patch.Status)
			if err != nil {
				return err
			}
			m.Status = st
		}
		if m.Status == domain.MaintenanceCompleted {
			m.AmountPaid = m.Cost
		}
		if err := s.Maintenance.Update(ctx, tx, m); err != nil {
			return err
		}
		return s.ledger().SyncMaintenance(ctx, tx, actor.OrgID, id)
	})
	if err != nil {
		return models.MaintenanceOrder{}, s.wrap("update_error", err)
	}
	utils.LogEvent(s.RequestID, "maintenance", "update", fmt.Sprintf("maintenance_id=%d", id))
	return s.Maintenance.Get(ctx, s.db(), actor.OrgID, id)
}

func (s MaintenanceService) checkTrip(ctx context.Context, q intdb.Querier, orgID int64, tripID *int64) error {
	if tripID == nil || *tripID <= 0 {
		return nil
	}
	if _, err := s.Trips.Get(ctx, q, orgID, *tripID, false); err != nil {
		return tripErr(err)
	}
	return nil
}

func (s MaintenanceService) ledger() LedgerService {
	l := s.Ledger
	if l.DB == nil {
		l.DB = s.db()
	}
	l.RequestID = s.RequestID
	return l
}

func (s MaintenanceService) wrap(action string, err error) error {
	if isDomainErr(err) {
		return err
	}
	utils.LogEvent(s.RequestID, "maintenance", action, err.Error())
	return domain.InternalError{Err: err}
}
