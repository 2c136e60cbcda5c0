package domain

import (
	"fmt"
	"strings"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCheckedIn ReservationStatus = "checked_in"
	ReservationUsed      ReservationStatus = "used"
	ReservationCancelled ReservationStatus = "cancelled"
)

var reservationAliases = map[string]ReservationStatus{
	"pending":    ReservationPending,
	"pendente":   ReservationPending,
	"reserved":   ReservationPending,
	"reservado":  ReservationPending,
	"confirmed":  ReservationConfirmed,
	"confirmado": ReservationConfirmed,
	"paid":       ReservationConfirmed,
	"checked_in": ReservationCheckedIn,
	"checkin":    ReservationCheckedIn,
	"check_in":   ReservationCheckedIn,
	"embarcado":  ReservationCheckedIn,
	"boarded":    ReservationCheckedIn,
	"used":       ReservationUsed,
	"utilizado":  ReservationUsed,
	"completed":  ReservationUsed,
	"cancelled":  ReservationCancelled,
	"canceled":   ReservationCancelled,
	"cancelado":  ReservationCancelled,
}

// ParseReservationStatus is the single normalization point for status strings
// arriving from clients or legacy rows.
func ParseReservationStatus(raw string) (ReservationStatus, error) {
	if st, ok := reservationAliases[normalizeKey(raw)]; ok {
		return st, nil
	}
	return "", ValidationError{Field: "status", Msg: fmt.Sprintf("status %q tidak dikenal", raw)}
}

func (s ReservationStatus) rank() int {
	switch s {
	case ReservationPending:
		return 0
	case ReservationConfirmed:
		return 1
	case ReservationCheckedIn:
		return 2
	case ReservationUsed:
		return 3
	}
	return -1
}

// IsTerminal reports whether no lifecycle progression is possible from s.
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationUsed || s == ReservationCancelled
}

// HoldsSeat is true while the reservation occupies capacity.
func (s ReservationStatus) HoldsSeat() bool {
	return s != ReservationCancelled
}

// CanTransition validates a status change. Same-status is always allowed (no-op).
// Forward moves along pending → confirmed → checked_in → used are allowed, cancelled is
// reachable from any non-terminal state, and an operator may reinstate a cancelled
// reservation to pending or confirmed.
func CanTransition(from, to ReservationStatus) bool {
	if from == to {
		return true
	}
	switch {
	case to == ReservationCancelled:
		return !from.IsTerminal()
	case from == ReservationCancelled:
		return to == ReservationPending || to == ReservationConfirmed
	case from == ReservationUsed:
		return false
	}
	return to.rank() > from.rank()
}

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

type TransactionStatus string

const (
	TransactionPending       TransactionStatus = "pending"
	TransactionPartiallyPaid TransactionStatus = "partially_paid"
	TransactionPaid          TransactionStatus = "paid"
	TransactionCancelled     TransactionStatus = "cancelled"
)

var transactionAliases = map[string]TransactionStatus{
	"pending":        TransactionPending,
	"pendente":       TransactionPending,
	"partially_paid": TransactionPartiallyPaid,
	"partial":        TransactionPartiallyPaid,
	"parcial":        TransactionPartiallyPaid,
	"paid":           TransactionPaid,
	"pago":           TransactionPaid,
	"lunas":          TransactionPaid,
	"cancelled":      TransactionCancelled,
	"canceled":       TransactionCancelled,
	"cancelado":      TransactionCancelled,
}

func ParseTransactionStatus(raw string) (TransactionStatus, error) {
	if st, ok := transactionAliases[normalizeKey(raw)]; ok {
		return st, nil
	}
	return "", ValidationError{Field: "status", Msg: fmt.Sprintf("status transaksi %q tidak dikenal", raw)}
}

type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatBlocked   SeatStatus = "BLOCKED"
)

func ParseSeatStatus(raw string) (SeatStatus, error) {
	switch normalizeKey(raw) {
	case "", "available", "disponivel", "free":
		return SeatAvailable, nil
	case "blocked", "bloqueado":
		return SeatBlocked, nil
	}
	return "", ValidationError{Field: "status", Msg: fmt.Sprintf("status kursi %q tidak dikenal", raw)}
}

type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "scheduled"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

func ParseMaintenanceStatus(raw string) (MaintenanceStatus, error) {
	switch normalizeKey(raw) {
	case "", "scheduled", "agendada", "agendado", "open":
		return MaintenanceScheduled, nil
	case "in_progress", "em_andamento":
		return MaintenanceInProgress, nil
	case "completed", "concluida", "concluido", "done":
		return MaintenanceCompleted, nil
	case "cancelled", "canceled", "cancelada", "cancelado":
		return MaintenanceCancelled, nil
	}
	return "", ValidationError{Field: "status", Msg: fmt.Sprintf("status maintenance %q tidak dikenal", raw)}
}

type ParcelStatus string

const (
	ParcelReceived  ParcelStatus = "received"
	ParcelInTransit ParcelStatus = "in_transit"
	ParcelDelivered ParcelStatus = "delivered"
	ParcelCancelled ParcelStatus = "cancelled"
)

func ParseParcelStatus(raw string) (ParcelStatus, error) {
	switch normalizeKey(raw) {
	case "", "received", "recebida", "recebido":
		return ParcelReceived, nil
	case "in_transit", "em_transito":
		return ParcelInTransit, nil
	case "delivered", "entregue":
		return ParcelDelivered, nil
	case "cancelled", "canceled", "cancelada", "cancelado":
		return ParcelCancelled, nil
	}
	return "", ValidationError{Field: "status", Msg: fmt.Sprintf("status paket %q tidak dikenal", raw)}
}

func normalizeKey(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return s
}
