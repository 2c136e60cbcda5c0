package models

import (
	"fleetcore/internal/domain"

	"github.com/shopspring/decimal"
)

// Transaction is a ledger entry tied to the event that produced it.
type Transaction struct {
	ID            int64                    `json:"id"`
	OrgID         int64                    `json:"orgId"`
	Type          domain.TransactionType   `json:"type"`
	Amount        decimal.Decimal          `json:"amount"`
	PaidAmount    decimal.Decimal          `json:"paidAmount"`
	Currency      string                   `json:"currency"`
	Status        domain.TransactionStatus `json:"status"`
	Description   string                   `json:"description"`
	CategoryID    *int64                   `json:"categoryId,omitempty"`
	CostCenterID  *int64                   `json:"costCenterId,omitempty"`
	ReservationID *int64                   `json:"reservationId,omitempty"`
	MaintenanceID *int64                   `json:"maintenanceId,omitempty"`
	ParcelID      *int64                   `json:"parcelId,omitempty"`
}

// TripAllocation attributes (part of) a transaction to a trip.
type TripAllocation struct {
	ID              int64           `json:"id"`
	TransactionID   int64           `json:"transactionId"`
	TripID          int64           `json:"tripId"`
	AmountAllocated decimal.Decimal `json:"amountAllocated"`
	Manual          bool            `json:"manual"`
}

// TripFinancialSummary is the per-trip P&L view.
type TripFinancialSummary struct {
	TripID          int64           `json:"tripId"`
	TotalIncome     decimal.Decimal `json:"totalIncome"`
	PaidIncome      decimal.Decimal `json:"paidIncome"`
	PendingIncome   decimal.Decimal `json:"pendingIncome"`
	TotalExpense    decimal.Decimal `json:"totalExpense"`
	PaidExpense     decimal.Decimal `json:"paidExpense"`
	PendingExpense  decimal.Decimal `json:"pendingExpense"`
	NetProfit       decimal.Decimal `json:"netProfit"`
	EstimatedProfit decimal.Decimal `json:"estimatedProfit"`
}

type MaintenanceOrder struct {
	ID          int64                    `json:"id"`
	OrgID       int64                    `json:"orgId"`
	VehicleID   int64                    `json:"vehicleId"`
	TripID      *int64                   `json:"tripId,omitempty"`
	Description string                   `json:"description"`
	Cost        decimal.Decimal          `json:"cost"`
	AmountPaid  decimal.Decimal          `json:"amountPaid"`
	Status      domain.MaintenanceStatus `json:"status"`
}

type Parcel struct {
	ID            int64               `json:"id"`
	OrgID         int64               `json:"orgId"`
	TripID        *int64              `json:"tripId,omitempty"`
	TrackingCode  string              `json:"trackingCode"`
	SenderName    string              `json:"senderName"`
	RecipientName string              `json:"recipientName"`
	Description   string              `json:"description"`
	Fee           decimal.Decimal     `json:"fee"`
	AmountPaid    decimal.Decimal     `json:"amountPaid"`
	Status        domain.ParcelStatus `json:"status"`
}

// MaintenancePatch is a partial update; nil fields are left alone.
type MaintenancePatch struct {
	TripID      *int64           `json:"tripId"`
	Description *string          `json:"description"`
	Cost        *decimal.Decimal `json:"cost"`
	AmountPaid  *decimal.Decimal `json:"amountPaid"`
	Status      *string          `json:"status"`
}

// ParcelPatch is a partial update; nil fields are left alone.
type ParcelPatch struct {
	TripID        *int64           `json:"tripId"`
	SenderName    *string          `json:"senderName"`
	RecipientName *string          `json:"recipientName"`
	Description   *string          `json:"description"`
	Fee           *decimal.Decimal `json:"fee"`
	AmountPaid    *decimal.Decimal `json:"amountPaid"`
	Status        *string          `json:"status"`
}
