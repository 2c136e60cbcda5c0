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

// SeatLayoutService keeps a vehicle's stored seats in line with an edited layout.
type SeatLayoutService struct {
	DB        *sql.DB
	Vehicles  repositories.VehicleRepo
	Seats     repositories.SeatRepo
	RequestID string
}

func (s SeatLayoutService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

// GetLayout returns the non-disabled seats of a vehicle ordered by floor, y, x.
func (s SeatLayoutService) GetLayout(ctx context.Context, actor domain.Actor, vehicleID int64) ([]models.Seat, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if vehicleID <= 0 {
		return nil, domain.ValidationError{Field: "vehicle_id", Msg: "id tidak valid"}
	}
	if _, err := s.Vehicles.Get(ctx, s.db(), actor.OrgID, vehicleID, false); err != nil {
		return nil, vehicleErr(err)
	}
	seats, err := s.Seats.ListByVehicle(ctx, s.db(), vehicleID, false)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return seats, nil
}

// ReplaceLayout reconciles the stored layout with desired inside one transaction.
func (s SeatLayoutService) ReplaceLayout(ctx context.Context, actor domain.Actor, vehicleID int64, desired []models.Seat) (models.LayoutResult, error) {
	if err := actor.Validate(); err != nil {
		return models.LayoutResult{}, err
	}
	clean, err := normalizeLayout(desired)
	if err != nil {
		return models.LayoutResult{}, err
	}
	utils.LogEvent(s.RequestID, "seat_layout", "replace", fmt.Sprintf("vehicle_id=%d seats=%d", vehicleID, len(clean)))
	return s.apply(ctx, actor, vehicleID, clean, true)
}

// ClearLayout removes every seat it can and parks the referenced ones.
func (s SeatLayoutService) ClearLayout(ctx context.Context, actor domain.Actor, vehicleID int64) (models.LayoutResult, error) {
	if err := actor.Validate(); err != nil {
		return models.LayoutResult{}, err
	}
	utils.LogEvent(s.RequestID, "seat_layout", "clear", fmt.Sprintf("vehicle_id=%d", vehicleID))
	return s.apply(ctx, actor, vehicleID, nil, false)
}

func (s SeatLayoutService) apply(ctx context.Context, actor domain.Actor, vehicleID int64, desired []models.Seat, configured bool) (models.LayoutResult, error) {
	if vehicleID <= 0 {
		return models.LayoutResult{}, domain.ValidationError{Field: "vehicle_id", Msg: "id tidak valid"}
	}

	var out models.LayoutResult
	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		if _, err := s.Vehicles.Get(ctx, tx, actor.OrgID, vehicleID, true); err != nil {
			return vehicleErr(err)
		}

		warnings, err := s.reconcile(ctx, tx, vehicleID, desired)
		if err != nil {
			return err
		}
		if err := s.Vehicles.SetLayoutConfigured(ctx, tx, vehicleID, configured); err != nil {
			return err
		}

		seats, err := s.Seats.ListByVehicle(ctx, tx, vehicleID, false)
		if err != nil {
			return err
		}
		out = models.LayoutResult{Seats: seats, Warnings: warnings}
		return nil
	})
	if err != nil {
		if isDomainErr(err) {
			return models.LayoutResult{}, err
		}
		utils.LogEvent(s.RequestID, "seat_layout", "reconcile_error", err.Error())
		return models.LayoutResult{}, domain.InternalError{Msg: "gagal menyimpan layout kursi", Err: err}
	}
	for _, w := range out.Warnings {
		utils.LogWarn(s.RequestID, "seat_layout", "seat_parked", w)
	}
	return out, nil
}

// reconcile matches desired seats by number first, then by coordinate (rename),
// inserts the rest and removes stored seats nobody claimed. A removal blocked by
// a reservation is rolled back to its savepoint and the seat is parked instead.
func (s SeatLayoutService) reconcile(ctx context.Context, tx *sql.Tx, vehicleID int64, desired []models.Seat) ([]string, error) {
	stored, err := s.Seats.ListByVehicle(ctx, tx, vehicleID, true)
	if err != nil {
		return nil, err
	}

	byNumber := make(map[string]int, len(stored))
	byCoord := make(map[models.SeatCoord]int, len(stored))
	for i, st := range stored {
		key := utils.NormalizeSeatNumber(st.Number)
		if j, dup := byNumber[key]; !dup || (stored[j].Disabled && !st.Disabled) {
			byNumber[key] = i
		}
		if st.Coord != models.OffGrid && !st.Disabled {
			if _, dup := byCoord[st.Coord]; !dup {
				byCoord[st.Coord] = i
			}
		}
	}

	wanted := make(map[string]bool, len(desired))
	for _, d := range desired {
		wanted[d.Number] = true
	}

	processed := make(map[int64]bool, len(stored))
	pending := make([]models.Seat, 0, len(desired))

	for _, d := range desired {
		i, ok := byNumber[d.Number]
		if !ok || processed[stored[i].ID] {
			pending = append(pending, d)
			continue
		}
		d.ID = stored[i].ID
		d.VehicleID = vehicleID
		if err := s.Seats.Update(ctx, tx, d); err != nil {
			return nil, fmt.Errorf("update seat %s: %w", d.Number, err)
		}
		processed[d.ID] = true
	}

	for _, d := range pending {
		d.VehicleID = vehicleID
		if i, ok := byCoord[d.Coord]; ok {
			st := stored[i]
			if !processed[st.ID] && !wanted[utils.NormalizeSeatNumber(st.Number)] {
				d.ID = st.ID
				if err := s.Seats.Update(ctx, tx, d); err != nil {
					return nil, fmt.Errorf("rename seat %s to %s: %w", st.Number, d.Number, err)
				}
				processed[d.ID] = true
				continue
			}
		}
		id, err := s.Seats.Insert(ctx, tx, d)
		if err != nil {
			return nil, fmt.Errorf("insert seat %s: %w", d.Number, err)
		}
		processed[id] = true
	}

	var warnings []string
	for _, st := range stored {
		if processed[st.ID] {
			continue
		}
		sp := fmt.Sprintf("seat_rm_%d", st.ID)
		err := intdb.WithSavepoint(ctx, tx, sp, func() error {
			return s.Seats.Delete(ctx, tx, st.ID)
		})
		if err == nil {
			continue
		}
		if !intdb.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("delete seat %s: %w", st.Number, err)
		}
		if st.Disabled && st.Coord == models.OffGrid {
			continue
		}
		if err := s.Seats.DisableAndPark(ctx, tx, st.ID); err != nil {
			return nil, fmt.Errorf("park seat %s: %w", st.Number, err)
		}
		warnings = append(warnings, fmt.Sprintf(
			"kursi %s masih terhubung dengan reservasi; kursi dinonaktifkan dan dipindahkan keluar layout", st.Number))
	}
	return warnings, nil
}

// normalizeLayout canonicalizes desired seats and rejects layouts that would break
// the per-vehicle uniqueness of number and coordinate.
func normalizeLayout(desired []models.Seat) ([]models.Seat, error) {
	out := make([]models.Seat, 0, len(desired))
	numbers := make(map[string]bool, len(desired))
	coords := make(map[models.SeatCoord]string, len(desired))

	for i, d := range desired {
		d.Number = utils.NormalizeSeatNumber(d.Number)
		if d.Number == "" {
			return nil, domain.ValidationError{Field: fmt.Sprintf("seats[%d].number", i), Msg: "nomor kursi wajib diisi"}
		}
		if d.Coord.Floor < 0 || d.Coord.X < 0 || d.Coord.Y < 0 {
			return nil, domain.ValidationError{Field: fmt.Sprintf("seats[%d].coord", i), Msg: "koordinat tidak boleh negatif"}
		}
		if numbers[d.Number] {
			return nil, domain.ValidationError{Field: "seats", Msg: fmt.Sprintf("nomor kursi %s duplikat", d.Number)}
		}
		numbers[d.Number] = true
		if !d.Disabled {
			if other, dup := coords[d.Coord]; dup {
				return nil, domain.ValidationError{Field: "seats", Msg: fmt.Sprintf("kursi %s dan %s berada di posisi yang sama", other, d.Number)}
			}
			coords[d.Coord] = d.Number
		}

		st, err := domain.ParseSeatStatus(string(d.Status))
		if err != nil {
			return nil, err
		}
		d.Status = st
		d.SeatType = strings.ToLower(strings.TrimSpace(d.SeatType))
		if d.SeatType == "" {
			d.SeatType = "standard"
		}
		if d.PriceOverride.Valid && d.PriceOverride.Decimal.IsNegative() {
			return nil, domain.ValidationError{Field: fmt.Sprintf("seats[%d].priceOverride", i), Msg: "harga tidak boleh negatif"}
		}
		d.ID = 0
		out = append(out, d)
	}
	return out, nil
}

func vehicleErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError{Resource: "vehicle", Err: err}
	}
	return err
}

func isDomainErr(err error) bool {
	return domain.IsValidation(err) || domain.IsNotFound(err) || domain.IsConflict(err) ||
		domain.IsForbidden(err) || domain.IsInternal(err)
}
