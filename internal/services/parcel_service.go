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

// ParcelService registers cargo shipments; the fee is booked as income.
type ParcelService struct {
	DB        *sql.DB
	Parcels   repositories.ParcelRepo
	Trips     repositories.TripRepo
	Ledger    LedgerService
	RequestID string
}

func (s ParcelService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s ParcelService) CreateParcel(ctx context.Context, actor domain.Actor, in models.Parcel) (models.Parcel, error) {
	if err := actor.Validate(); err != nil {
		return models.Parcel{}, err
	}
	in.SenderName = utils.NormalizeSpace(in.SenderName)
	in.RecipientName = utils.NormalizeSpace(in.RecipientName)
	in.Description = utils.NormalizeSpace(in.Description)
	if in.SenderName == "" || in.RecipientName == "" {
		return models.Parcel{}, domain.ValidationError{Field: "sender/recipient", Msg: "pengirim dan penerima wajib diisi"}
	}
	if in.Fee.IsNegative() || in.AmountPaid.IsNegative() {
		return models.Parcel{}, domain.ValidationError{Field: "fee", Msg: "nominal tidak boleh negatif"}
	}
	st, err := domain.ParseParcelStatus(string(in.Status))
	if err != nil {
		return models.Parcel{}, err
	}
	in.Status = st
	in.OrgID = actor.OrgID
	if in.TripID != nil && *in.TripID <= 0 {
		in.TripID = nil
	}
	in.Fee = utils.RoundMoney(in.Fee)
	in.AmountPaid = utils.RoundMoney(in.AmountPaid)
	in.TrackingCode = strings.ToUpper(strings.TrimSpace(in.TrackingCode))
	if in.TrackingCode == "" {
		in.TrackingCode = utils.ShortCode("PKT")
	}

	var id int64
	err = intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		if err := s.checkTrip(ctx, tx, actor.OrgID, in.TripID); err != nil {
			return err
		}
		var err error
		if id, err = s.Parcels.Insert(ctx, tx, in); err != nil {
			if intdb.IsDuplicateKey(err) {
				return domain.ConflictError{Resource: "parcel", Msg: fmt.Sprintf("kode resi %s sudah dipakai", in.TrackingCode), Err: err}
			}
			return err
		}
		return s.ledger().SyncParcel(ctx, tx, actor.OrgID, id)
	})
	if err != nil {
		return models.Parcel{}, s.wrap("create_error", err)
	}
	utils.LogEvent(s.RequestID, "parcel", "create", fmt.Sprintf("parcel_id=%d tracking=%s", id, in.TrackingCode))
	return s.Parcels.Get(ctx, s.db(), actor.OrgID, id)
}

func (s ParcelService) UpdateParcel(ctx context.Context, actor domain.Actor, id int64, patch models.ParcelPatch) (models.Parcel, error) {
	if err := actor.Validate(); err != nil {
		return models.Parcel{}, err
	}
	if id <= 0 {
		return models.Parcel{}, domain.ValidationError{Field: "id", Msg: "id tidak valid"}
	}

	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		p, err := s.Parcels.Get(ctx, tx, actor.OrgID, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.NotFoundError{Resource: "parcel", Err: err}
			}
			return err
		}
		if patch.TripID != nil {
			if *patch.TripID <= 0 {
				p.TripID = nil
			} else {
				if err := s.checkTrip(ctx, tx, actor.OrgID, patch.TripID); err != nil {
					return err
				}
				p.TripID = patch.TripID
			}
		}
		if patch.SenderName != nil {
			if v := utils.NormalizeSpace(*patch.SenderName); v != "" {
				p.SenderName = v
			}
		}
		if patch.RecipientName != nil {
			if v := utils.NormalizeSpace(*patch.RecipientName); v != "" {
				p.RecipientName = v
			}
		}
		if patch.Description != nil {
			p.Description = utils.NormalizeSpace(*patch.Description)
		}
		if patch.Fee != nil {
			if patch.Fee.IsNegative() {
				return domain.ValidationError{Field: "fee", Msg: "nominal tidak boleh negatif"}
			}
			p.Fee = utils.RoundMoney(*patch.Fee)
		}
		if patch.AmountPaid != nil {
			if patch.AmountPaid.IsNegative() {
				return domain.ValidationError{Field: "amountPaid", Msg: "nominal tidak boleh negatif"}
			}
			p.AmountPaid = utils.RoundMoney(*patch.AmountPaid)
		}
		if patch.Status != nil && strings.TrimSpace(*patch.Status) != "" {
			st, err := domain.ParseParcelStatus(*patch.Status)
			if err != nil {
				return err
			}
			p.Status = st
		}
		if err := s.Parcels.Update(ctx, tx, p); err != nil {
			return err
		}
		return s.ledger().SyncParcel(ctx, tx, actor.OrgID, id)
	})
	if err != nil {
		return models.Parcel{}, s.wrap("update_error", err)
	}
	utils.LogEvent(s.RequestID, "parcel", "update", fmt.Sprintf("parcel_id=%d", id))
	return s.Parcels.Get(ctx, s.db(), actor.OrgID, id)
}

func (s ParcelService) checkTrip(ctx context.Context, q intdb.Querier, orgID int64, tripID *int64) error {
	if tripID == nil || *tripID <= 0 {
		return nil
	}
	if _, err := s.Trips.Get(ctx, q, orgID, *tripID, false); err != nil {
		return tripErr(err)
	}
	return nil
}

func (s ParcelService) ledger() LedgerService {
	l := s.Ledger
	if l.DB == nil {
		l.DB = s.db()
	}
	l.RequestID = s.RequestID
	return l
}

func (s ParcelService) wrap(action string, err error) error {
	if isDomainErr(err) {
		return err
	}
	utils.LogEvent(s.RequestID, "parcel", action, err.Error())
	return domain.InternalError{Err: err}
}
