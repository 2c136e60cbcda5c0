package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	intconfig "fleetcore/internal/config"
	"fleetcore/internal/domain"
	"fleetcore/internal/repositories"
	"fleetcore/internal/utils"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
)

// TicketService renders PDF e-tickets and receipts per reservation.
type TicketService struct {
	DB           *sql.DB
	Reservations repositories.ReservationRepo
	Trips        repositories.TripRepo
	Vehicles     repositories.VehicleRepo
	RequestID    string
	Loader       func(ctx context.Context, orgID, reservationID int64) (ticketDocData, error)
}

type ticketDocData struct {
	ReservationID  int64
	TicketCode     string
	PassengerName  string
	PassengerDoc   string
	PassengerPhone string
	SeatNumber     string
	RouteName      string
	DepartureAt    *time.Time
	Boarding       string
	Dropoff        string
	VehicleCode    string
	PlateNumber    string
	Status         domain.ReservationStatus
	Price          decimal.Decimal
	AmountPaid     decimal.Decimal
	CreditUsed     decimal.Decimal
	Currency       string
}

func (s TicketService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s TicketService) GenerateETicket(ctx context.Context, actor domain.Actor, reservationID int64) ([]byte, string, error) {
	data, err := s.load(ctx, actor, reservationID)
	if err != nil {
		return nil, "", err
	}
	if data.Status == domain.ReservationCancelled {
		return nil, "", domain.ConflictError{Resource: "reservation", Msg: "reservasi sudah dibatalkan"}
	}
	utils.LogEvent(s.RequestID, "ticket", "generate_eticket", fmt.Sprintf("reservation_id=%d", reservationID))
	return buildETicketPDF(data)
}

func (s TicketService) GenerateReceipt(ctx context.Context, actor domain.Actor, reservationID int64) ([]byte, string, error) {
	data, err := s.load(ctx, actor, reservationID)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(s.RequestID, "ticket", "generate_receipt", fmt.Sprintf("reservation_id=%d", reservationID))
	return buildReceiptPDF(data)
}

func (s TicketService) load(ctx context.Context, actor domain.Actor, reservationID int64) (ticketDocData, error) {
	if err := actor.Validate(); err != nil {
		return ticketDocData{}, err
	}
	if reservationID <= 0 {
		return ticketDocData{}, domain.ValidationError{Field: "id", Msg: "id tidak valid"}
	}
	if s.Loader != nil {
		return s.Loader(ctx, actor.OrgID, reservationID)
	}

	var out ticketDocData
	res, err := s.Reservations.Get(ctx, s.db(), actor.OrgID, reservationID, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return out, reservationErr(err)
		}
		return out, domain.InternalError{Err: err}
	}
	out = ticketDocData{
		ReservationID:  res.ID,
		TicketCode:     res.TicketCode,
		PassengerName:  res.Passenger.Name,
		PassengerDoc:   res.Passenger.Document,
		PassengerPhone: res.Passenger.Phone,
		SeatNumber:     res.SeatNumber,
		Boarding:       res.BoardingPoint,
		Dropoff:        res.DropoffPoint,
		Status:         res.Status,
		Price:          res.Price,
		AmountPaid:     res.AmountPaid,
		CreditUsed:     res.CreditUsed,
		Currency:       currencyOr(res.Currency),
	}

	// trip and vehicle only decorate the document
	if trip, err := s.Trips.Get(ctx, s.db(), actor.OrgID, res.TripID, false); err == nil {
		out.RouteName = trip.RouteName
		out.DepartureAt = trip.DepartureAt
		if v, err := s.Vehicles.Get(ctx, s.db(), actor.OrgID, trip.VehicleID, false); err == nil {
			out.VehicleCode = v.VehicleCode
			out.PlateNumber = v.PlateNumber
		}
	}
	return out, nil
}

func buildETicketPDF(d ticketDocData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Kode Tiket     : %s", safe(d.TicketCode, "-")),
		fmt.Sprintf("Nama Penumpang : %s", safe(d.PassengerName, "-")),
		fmt.Sprintf("Dokumen        : %s", safe(d.PassengerDoc, "-")),
		fmt.Sprintf("No HP          : %s", safe(d.PassengerPhone, "-")),
		fmt.Sprintf("Kursi          : %s", safe(d.SeatNumber, "-")),
		fmt.Sprintf("Rute           : %s", safe(d.RouteName, "-")),
		fmt.Sprintf("Berangkat      : %s", departureText(d.DepartureAt)),
		fmt.Sprintf("Naik           : %s", safe(d.Boarding, "-")),
		fmt.Sprintf("Turun          : %s", safe(d.Dropoff, "-")),
		fmt.Sprintf("Kendaraan      : %s %s", safe(d.VehicleCode, "-"), strings.TrimSpace(d.PlateNumber)),
		fmt.Sprintf("Status         : %s", d.Status),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Catatan: E-ticket ini berlaku untuk 1 penumpang (1 kursi). Harap tunjukkan saat keberangkatan.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("ETICKET_%s_%s.pdf", safeFilenamePart(d.TicketCode), safeFilenamePart(d.PassengerName+"_"+d.SeatNumber))
	return buf.Bytes(), filename, nil
}

func buildReceiptPDF(d ticketDocData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "KWITANSI")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "No Kwitansi : RCP-"+safeFilenamePart(d.TicketCode))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Tanggal     : "+time.Now().Format("2006-01-02 15:04"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Ditagihkan kepada:")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, fmt.Sprintf("Nama   : %s", safe(d.PassengerName, "-")))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("No HP  : %s", safe(d.PassengerPhone, "-")))
	pdf.Ln(10)

	desc := fmt.Sprintf("Tiket %s (%s) Kursi %s", safe(d.RouteName, "-"), departureText(d.DepartureAt), safe(d.SeatNumber, "-"))
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, "1) "+desc, "", "", false)
	pdf.Ln(2)

	rows := [][2]string{
		{"Harga", utils.FormatMoney(d.Price, d.Currency)},
		{"Kredit dipakai", utils.FormatMoney(d.CreditUsed, d.Currency)},
		{"Dibayar", utils.FormatMoney(d.AmountPaid, d.Currency)},
		{"Sisa", utils.FormatMoney(decimal.Max(d.Price.Sub(d.AmountPaid), decimal.Zero), d.Currency)},
	}
	for _, r := range rows {
		pdf.CellFormat(60, 7, r[0], "", 0, "", false, 0, "")
		pdf.CellFormat(0, 7, r[1], "", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("RECEIPT_%s.pdf", safeFilenamePart(d.TicketCode))
	return buf.Bytes(), filename, nil
}

func departureText(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
