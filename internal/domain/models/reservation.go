package models

import (
	"fleetcore/internal/domain"

	"github.com/shopspring/decimal"
)

type Passenger struct {
	Name     string `json:"name"`
	Document string `json:"document"`
	Phone    string `json:"phone"`
}

type Reservation struct {
	ID              int64                    `json:"id"`
	OrgID           int64                    `json:"orgId"`
	TripID          int64                    `json:"tripId"`
	SeatID          *int64                   `json:"seatId,omitempty"`
	SeatNumber      string                   `json:"seatNumber,omitempty"`
	TicketCode      string                   `json:"ticketCode"`
	Passenger       Passenger                `json:"passenger"`
	Status          domain.ReservationStatus `json:"status"`
	Price           decimal.Decimal          `json:"price"`
	AmountPaid      decimal.Decimal          `json:"amountPaid"`
	Currency        string                   `json:"currency"`
	PaymentMethod   string                   `json:"paymentMethod"`
	ClientID        *int64                   `json:"clientId,omitempty"`
	CreditUsed      decimal.Decimal          `json:"creditUsed"`
	AwaitingPayment bool                     `json:"awaitingPayment"`
	BoardingPoint   string                   `json:"boardingPoint"`
	DropoffPoint    string                   `json:"dropoffPoint"`
	CreatedBy       int64                    `json:"createdBy"`
}

// SeatRef picks a seat either by id or by its passenger-facing number on the trip's vehicle.
type SeatRef struct {
	SeatID int64  `json:"seatId"`
	Number string `json:"number"`
}

func (r SeatRef) IsZero() bool { return r.SeatID <= 0 && r.Number == "" }

// PaymentInput describes how a reservation is being paid at creation time.
type PaymentInput struct {
	Method       string          `json:"method"`
	AmountPaid   decimal.Decimal `json:"amountPaid"`
	ClientID     int64           `json:"clientId"`
	UseCredit    bool            `json:"useCredit"`
	CreditAmount decimal.Decimal `json:"creditAmount"`
	Installments int             `json:"installments"`
}

type NewReservation struct {
	TripID        int64           `json:"tripId"`
	Seat          SeatRef         `json:"seat"`
	Passenger     Passenger       `json:"passenger"`
	Price         decimal.Decimal `json:"price"`
	Payment       *PaymentInput   `json:"payment,omitempty"`
	BoardingPoint string          `json:"boardingPoint"`
	DropoffPoint  string          `json:"dropoffPoint"`
}

// ReservationPatch supports PATCH-style updates via key presence.
type ReservationPatch struct {
	Status        *string          `json:"status"`
	Passenger     *Passenger       `json:"passenger"`
	AmountPaid    *decimal.Decimal `json:"amountPaid"`
	PaymentMethod *string          `json:"paymentMethod"`
	BoardingPoint *string          `json:"boardingPoint"`
	DropoffPoint  *string          `json:"dropoffPoint"`
}

// ReservationPayment is one part of a split payment.
type ReservationPayment struct {
	ID            int64           `json:"id"`
	ReservationID int64           `json:"reservationId"`
	Kind          string          `json:"kind"`
	Method        string          `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	InstallmentNo int             `json:"installmentNo"`
}

const (
	PaymentKindCredit      = "credit"
	PaymentKindDirect      = "direct"
	PaymentKindInstallment = "installment"
)

type Client struct {
	ID            int64           `json:"id"`
	OrgID         int64           `json:"orgId"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	CreditBalance decimal.Decimal `json:"creditBalance"`
}
