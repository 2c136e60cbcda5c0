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

	"github.com/shopspring/decimal"
)

// Classification names looked up per organization.
const (
	CategoryTicketSales     = "Ticket Sales"
	CategoryMaintenance     = "Vehicle Maintenance"
	CategoryParcelDelivery  = "Parcel Delivery"
	CostCenterPassenger     = "Passenger Transport"
	CostCenterFleet         = "Fleet"
	CostCenterCargo         = "Cargo"
	defaultCurrency         = "BRL"
	reservationDescTemplate = "Tiket %s - %s"
	maintenanceDescTemplate = "Maintenance #%d - %s"
	parcelDescTemplate      = "Paket %s - %s"
)

// LedgerEntry is the derived accounting view of one originating record.
type LedgerEntry struct {
	Transaction    models.Transaction
	CategoryName   string
	CostCenterName string
	TripID         *int64
	Allocated      decimal.Decimal
}

// DeriveStatus compares what was paid against the nominal amount.
func DeriveStatus(amount, paid decimal.Decimal) domain.TransactionStatus {
	switch {
	case amount.IsPositive() && paid.GreaterThanOrEqual(amount):
		return domain.TransactionPaid
	case paid.IsPositive():
		return domain.TransactionPartiallyPaid
	default:
		return domain.TransactionPending
	}
}

// FromReservation derives the income entry of a ticket sale. ok is false when the
// price carries no value to book.
func FromReservation(r models.Reservation) (LedgerEntry, bool) {
	if !r.Price.IsPositive() {
		return LedgerEntry{}, false
	}
	status := DeriveStatus(r.Price, r.AmountPaid)
	if r.Status == domain.ReservationCancelled {
		status = domain.TransactionCancelled
	}
	id := r.ID
	trip := r.TripID
	return LedgerEntry{
		Transaction: models.Transaction{
			OrgID:         r.OrgID,
			Type:          domain.TransactionIncome,
			Amount:        r.Price,
			PaidAmount:    decimal.Min(r.AmountPaid, r.Price),
			Currency:      currencyOr(r.Currency),
			Status:        status,
			Description:   fmt.Sprintf(reservationDescTemplate, r.TicketCode, r.Passenger.Name),
			ReservationID: &id,
		},
		CategoryName:   CategoryTicketSales,
		CostCenterName: CostCenterPassenger,
		TripID:         &trip,
		Allocated:      r.Price,
	}, true
}

// FromMaintenance derives the expense entry of a maintenance order; a completed
// order is always settled.
func FromMaintenance(m models.MaintenanceOrder) (LedgerEntry, bool) {
	if !m.Cost.IsPositive() {
		return LedgerEntry{}, false
	}
	paid := decimal.Min(m.AmountPaid, m.Cost)
	status := DeriveStatus(m.Cost, paid)
	switch m.Status {
	case domain.MaintenanceCompleted:
		status = domain.TransactionPaid
		paid = m.Cost
	case domain.MaintenanceCancelled:
		status = domain.TransactionCancelled
	}
	id := m.ID
	return LedgerEntry{
		Transaction: models.Transaction{
			OrgID:         m.OrgID,
			Type:          domain.TransactionExpense,
			Amount:        m.Cost,
			PaidAmount:    paid,
			Currency:      defaultCurrency,
			Status:        status,
			Description:   fmt.Sprintf(maintenanceDescTemplate, m.ID, m.Description),
			MaintenanceID: &id,
		},
		CategoryName:   CategoryMaintenance,
		CostCenterName: CostCenterFleet,
		TripID:         m.TripID,
		Allocated:      m.Cost,
	}, true
}

// FromParcel derives the income entry of a parcel fee.
func FromParcel(p models.Parcel) (LedgerEntry, bool) {
	if !p.Fee.IsPositive() {
		return LedgerEntry{}, false
	}
	status := DeriveStatus(p.Fee, p.AmountPaid)
	if p.Status == domain.ParcelCancelled {
		status = domain.TransactionCancelled
	}
	id := p.ID
	return LedgerEntry{
		Transaction: models.Transaction{
			OrgID:       p.OrgID,
			Type:        domain.TransactionIncome,
			Amount:      p.Fee,
			PaidAmount:  decimal.Min(p.AmountPaid, p.Fee),
			Currency:    defaultCurrency,
			Status:      status,
			Description: fmt.Sprintf(parcelDescTemplate, p.TrackingCode, p.RecipientName),
			ParcelID:    &id,
		},
		CategoryName:   CategoryParcelDelivery,
		CostCenterName: CostCenterCargo,
		TripID:         p.TripID,
		Allocated:      p.Fee,
	}, true
}

func currencyOr(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return defaultCurrency
	}
	return c
}

// LedgerService persists derived entries and serves trip P&L.
type LedgerService struct {
	DB           *sql.DB
	Ledger       repositories.LedgerRepo
	Reservations repositories.ReservationRepo
	Maintenance  repositories.MaintenanceRepo
	Parcels      repositories.ParcelRepo
	Trips        repositories.TripRepo
	Query        repositories.QueryRepo
	RequestID    string
}

func (s LedgerService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s LedgerService) querier(q intdb.Querier) intdb.Querier {
	if q != nil {
		return q
	}
	return s.db()
}

// Handle applies one ledger event; it is what the dispatcher workers call.
func (s LedgerService) Handle(ctx context.Context, ev LedgerEvent) error {
	switch ev.Kind {
	case repositories.RefReservation:
		return s.SyncReservation(ctx, nil, ev.RefID)
	case repositories.RefMaintenance:
		return s.SyncMaintenance(ctx, nil, ev.OrgID, ev.RefID)
	case repositories.RefParcel:
		return s.SyncParcel(ctx, nil, ev.OrgID, ev.RefID)
	}
	return fmt.Errorf("ledger event %q tidak dikenal", ev.Kind)
}

// SyncReservation upserts the income entry linked to reservation id. A reservation
// that no longer exists is not an error.
func (s LedgerService) SyncReservation(ctx context.Context, q intdb.Querier, id int64) error {
	q = s.querier(q)
	res, err := s.Reservations.GetAny(ctx, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	entry, ok := FromReservation(res)
	return s.sync(ctx, q, repositories.RefReservation, id, res.OrgID, entry, ok)
}

func (s LedgerService) SyncMaintenance(ctx context.Context, q intdb.Querier, orgID, id int64) error {
	q = s.querier(q)
	m, err := s.Maintenance.Get(ctx, q, orgID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	entry, ok := FromMaintenance(m)
	return s.sync(ctx, q, repositories.RefMaintenance, id, orgID, entry, ok)
}

func (s LedgerService) SyncParcel(ctx context.Context, q intdb.Querier, orgID, id int64) error {
	q = s.querier(q)
	p, err := s.Parcels.Get(ctx, q, orgID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	entry, ok := FromParcel(p)
	return s.sync(ctx, q, repositories.RefParcel, id, orgID, entry, ok)
}

// CancelForReference marks the entry linked to refID cancelled, if there is one.
func (s LedgerService) CancelForReference(ctx context.Context, q intdb.Querier, kind repositories.RefKind, refID int64) error {
	q = s.querier(q)
	existing, found, err := s.Ledger.FindByReference(ctx, q, kind, refID)
	if err != nil || !found || existing.Status == domain.TransactionCancelled {
		return err
	}
	return s.Ledger.SetStatus(ctx, q, existing.ID, domain.TransactionCancelled)
}

func (s LedgerService) sync(ctx context.Context, q intdb.Querier, kind repositories.RefKind, refID, orgID int64, entry LedgerEntry, ok bool) error {
	existing, found, err := s.Ledger.FindByReference(ctx, q, kind, refID)
	if err != nil {
		return err
	}
	if !ok {
		if found && existing.Status != domain.TransactionCancelled {
			return s.Ledger.SetStatus(ctx, q, existing.ID, domain.TransactionCancelled)
		}
		return nil
	}

	t := entry.Transaction
	if t.CategoryID, err = s.Ledger.CategoryID(ctx, q, orgID, entry.CategoryName); err != nil {
		return err
	}
	if t.CostCenterID, err = s.Ledger.CostCenterID(ctx, q, orgID, entry.CostCenterName); err != nil {
		return err
	}

	if found {
		t.ID = existing.ID
		err = s.Ledger.Update(ctx, q, t)
	} else {
		t.ID, err = s.Ledger.Insert(ctx, q, t)
		if err != nil && intdb.IsDuplicateKey(err) {
			// another worker linked it first
			existing, found, lookupErr := s.Ledger.FindByReference(ctx, q, kind, refID)
			if lookupErr != nil {
				return lookupErr
			}
			if found {
				t.ID = existing.ID
				err = s.Ledger.Update(ctx, q, t)
			}
		}
	}
	if err != nil {
		return err
	}

	var tripID int64
	if entry.TripID != nil {
		tripID = *entry.TripID
	}
	if err := s.Ledger.SyncAllocation(ctx, q, t.ID, tripID, entry.Allocated); err != nil {
		return err
	}
	utils.LogEvent(s.RequestID, "ledger", "sync", fmt.Sprintf("%s=%d transaction_id=%d status=%s", kind, refID, t.ID, t.Status))
	return nil
}

// AllocateToTrip attributes amount of a transaction to a trip, replacing any
// earlier allocation for the same pair. Later syncs keep the override.
func (s LedgerService) AllocateToTrip(ctx context.Context, actor domain.Actor, transactionID, tripID int64, amount decimal.Decimal) ([]models.TripAllocation, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if transactionID <= 0 {
		return nil, domain.ValidationError{Field: "transaction_id", Msg: "id tidak valid"}
	}
	if tripID <= 0 {
		return nil, domain.ValidationError{Field: "trip_id", Msg: "id tidak valid"}
	}
	if !amount.IsPositive() {
		return nil, domain.ValidationError{Field: "amount", Msg: "nominal harus lebih dari 0"}
	}

	var out []models.TripAllocation
	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		if _, err := s.Ledger.Get(ctx, tx, actor.OrgID, transactionID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.NotFoundError{Resource: "transaction", Err: err}
			}
			return err
		}
		if _, err := s.Trips.Get(ctx, tx, actor.OrgID, tripID, false); err != nil {
			return tripErr(err)
		}
		if err := s.Ledger.UpsertAllocation(ctx, tx, transactionID, tripID, utils.RoundMoney(amount)); err != nil {
			return err
		}
		var err error
		out, err = s.Ledger.ListAllocations(ctx, tx, transactionID)
		return err
	})
	if err != nil {
		if isDomainErr(err) {
			return nil, err
		}
		return nil, domain.InternalError{Err: err}
	}
	utils.LogEvent(s.RequestID, "ledger", "allocate", fmt.Sprintf("transaction_id=%d trip_id=%d amount=%s", transactionID, tripID, amount))
	return out, nil
}

// GetTripFinancialSummary aggregates the amounts allocated to a trip by type and
// status. Cancelled entries are ignored and partially paid ones count as pending.
func (s LedgerService) GetTripFinancialSummary(ctx context.Context, actor domain.Actor, tripID int64) (models.TripFinancialSummary, error) {
	out := models.TripFinancialSummary{TripID: tripID}
	if err := actor.Validate(); err != nil {
		return out, err
	}
	if tripID <= 0 {
		return out, domain.ValidationError{Field: "trip_id", Msg: "id tidak valid"}
	}
	if _, err := s.Trips.Get(ctx, s.db(), actor.OrgID, tripID, false); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return out, tripErr(err)
		}
		return out, domain.InternalError{Err: err}
	}

	q := s.Query
	if q.DB == nil {
		q.DB = s.db()
	}
	rows, err := q.TripAllocationTotals(ctx, tripID)
	if err != nil {
		return out, domain.InternalError{Err: err}
	}
	return SummarizeTrip(tripID, rows), nil
}

// SummarizeTrip folds type × status totals into the P&L view.
func SummarizeTrip(tripID int64, rows []repositories.SummaryRow) models.TripFinancialSummary {
	out := models.TripFinancialSummary{TripID: tripID}
	for _, row := range rows {
		st, err := domain.ParseTransactionStatus(row.Status)
		if err != nil || st == domain.TransactionCancelled {
			continue
		}
		paid := st == domain.TransactionPaid
		switch domain.TransactionType(strings.ToLower(row.Type)) {
		case domain.TransactionIncome:
			out.TotalIncome = out.TotalIncome.Add(row.Total)
			if paid {
				out.PaidIncome = out.PaidIncome.Add(row.Total)
			} else {
				out.PendingIncome = out.PendingIncome.Add(row.Total)
			}
		case domain.TransactionExpense:
			out.TotalExpense = out.TotalExpense.Add(row.Total)
			if paid {
				out.PaidExpense = out.PaidExpense.Add(row.Total)
			} else {
				out.PendingExpense = out.PendingExpense.Add(row.Total)
			}
		}
	}
	out.NetProfit = out.PaidIncome.Sub(out.PaidExpense)
	out.EstimatedProfit = out.TotalIncome.Sub(out.TotalExpense)
	return out
}

func tripErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError{Resource: "trip", Err: err}
	}
	return err
}
