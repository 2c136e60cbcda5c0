package services

import (
	"context"
	"strings"
	"testing"

	"fleetcore/internal/domain"
	"fleetcore/internal/domain/models"
	"fleetcore/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seatAt(number string, y int) models.Seat {
	return models.Seat{Number: number, Coord: models.SeatCoord{Floor: 0, X: 0, Y: y}}
}

func TestReplaceLayoutParksReferencedSeat(t *testing.T) {
	f := newFixture(t, 2, "A1", "A2")
	f.book(f.trip, "A1", 100, 0)
	a2Before, err := repositories.SeatRepo{DB: f.db}.GetByID(context.Background(), nil, f.seats["A2"])
	require.NoError(t, err)

	out, err := f.layout().ReplaceLayout(context.Background(), f.admin, f.vehicle,
		[]models.Seat{seatAt("A2", 1), seatAt("A3", 2)})
	require.NoError(t, err)

	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "A1")

	numbers := make([]string, 0, len(out.Seats))
	for _, s := range out.Seats {
		numbers = append(numbers, s.Number)
	}
	assert.Equal(t, []string{"A2", "A3"}, numbers)

	a1, err := repositories.SeatRepo{DB: f.db}.GetByID(context.Background(), nil, f.seats["A1"])
	require.NoError(t, err)
	assert.True(t, a1.Disabled)
	assert.Equal(t, domain.SeatBlocked, a1.Status)
	assert.Equal(t, models.OffGrid, a1.Coord)

	a2After, err := repositories.SeatRepo{DB: f.db}.GetByID(context.Background(), nil, f.seats["A2"])
	require.NoError(t, err)
	assert.Equal(t, a2Before.Coord, a2After.Coord)
	assert.False(t, a2After.Disabled)

	assert.Equal(t, 1, f.count(`SELECT COUNT(*) FROM seats WHERE vehicle_id=? AND number='A3'`, f.vehicle))
	assert.Equal(t, 1, f.count(`SELECT layout_configured FROM vehicles WHERE id=?`, f.vehicle))
}

func TestReplaceLayoutDeletesUnreferencedSeat(t *testing.T) {
	f := newFixture(t, 2, "A1", "A2")

	out, err := f.layout().ReplaceLayout(context.Background(), f.admin, f.vehicle, []models.Seat{seatAt("A1", 0)})
	require.NoError(t, err)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, 0, f.count(`SELECT COUNT(*) FROM seats WHERE id=?`, f.seats["A2"]))
}

func TestReplaceLayoutRenameKeepsIdentity(t *testing.T) {
	f := newFixture(t, 2, "A1", "A2")

	out, err := f.layout().ReplaceLayout(context.Background(), f.admin, f.vehicle,
		[]models.Seat{seatAt("1A", 0), seatAt("A2", 1)})
	require.NoError(t, err)

	require.Len(t, out.Seats, 2)
	assert.Equal(t, f.seats["A1"], out.Seats[0].ID)
	assert.Equal(t, "1A", out.Seats[0].Number)
	assert.Equal(t, 2, f.count(`SELECT COUNT(*) FROM seats WHERE vehicle_id=?`, f.vehicle))
}

func TestReplaceLayoutSwapKeepsNumbersOnTheirRows(t *testing.T) {
	f := newFixture(t, 2, "A1", "A2")

	// moving A1 and A2 into each other's place matches by number, not by coordinate
	out, err := f.layout().ReplaceLayout(context.Background(), f.admin, f.vehicle,
		[]models.Seat{seatAt("A1", 1), seatAt("A2", 0)})
	require.NoError(t, err)

	byNumber := map[string]models.Seat{}
	for _, s := range out.Seats {
		byNumber[s.Number] = s
	}
	assert.Equal(t, f.seats["A1"], byNumber["A1"].ID)
	assert.Equal(t, 1, byNumber["A1"].Coord.Y)
	assert.Equal(t, f.seats["A2"], byNumber["A2"].ID)
}

func TestReplaceLayoutValidation(t *testing.T) {
	f := newFixture(t, 2, "A1")
	svc := f.layout()
	ctx := context.Background()

	_, err := svc.ReplaceLayout(ctx, f.admin, f.vehicle, []models.Seat{seatAt("a1", 0), seatAt("A1 ", 1)})
	assert.True(t, domain.IsValidation(err), "duplicate numbers: %v", err)

	_, err = svc.ReplaceLayout(ctx, f.admin, f.vehicle, []models.Seat{seatAt("A1", 0), seatAt("A2", 0)})
	assert.True(t, domain.IsValidation(err), "duplicate coordinates: %v", err)

	_, err = svc.ReplaceLayout(ctx, f.admin, f.vehicle, []models.Seat{seatAt("", 0)})
	assert.True(t, domain.IsValidation(err), "empty number: %v", err)

	_, err = svc.ReplaceLayout(ctx, f.admin, f.vehicle, []models.Seat{{Number: "A1", Coord: models.SeatCoord{X: -2}}})
	assert.True(t, domain.IsValidation(err), "negative coordinate: %v", err)

	_, err = svc.ReplaceLayout(ctx, f.admin, 999, []models.Seat{seatAt("A1", 0)})
	assert.True(t, domain.IsNotFound(err), "unknown vehicle: %v", err)

	// nothing was applied by the failed attempts
	assert.Equal(t, 1, f.count(`SELECT COUNT(*) FROM seats WHERE vehicle_id=?`, f.vehicle))
}

func TestReplaceLayoutOtherOrgVehicle(t *testing.T) {
	f := newFixture(t, 1, "A1")
	other := domain.Actor{UserID: 9, OrgID: 2, Role: domain.RoleAdmin}

	_, err := f.layout().ReplaceLayout(context.Background(), other, f.vehicle, []models.Seat{seatAt("A1", 0)})
	assert.True(t, domain.IsNotFound(err))
}

func TestClearLayoutKeepsHistory(t *testing.T) {
	f := newFixture(t, 3, "A1", "A2", "A3")
	f.book(f.trip, "A2", 100, 100)

	out, err := f.layout().ClearLayout(context.Background(), f.admin, f.vehicle)
	require.NoError(t, err)
	assert.Empty(t, out.Seats)
	require.Len(t, out.Warnings, 1)
	assert.True(t, strings.Contains(out.Warnings[0], "A2"))

	assert.Equal(t, 1, f.count(`SELECT COUNT(*) FROM seats WHERE vehicle_id=?`, f.vehicle))
	assert.Equal(t, 0, f.count(`SELECT layout_configured FROM vehicles WHERE id=?`, f.vehicle))

	// clearing again leaves the parked seat alone and warns no more
	out, err = f.layout().ClearLayout(context.Background(), f.admin, f.vehicle)
	require.NoError(t, err)
	assert.Empty(t, out.Warnings)
}

func TestGetLayoutHidesDisabledSeats(t *testing.T) {
	f := newFixture(t, 2, "A1", "A2")
	f.book(f.trip, "A1", 100, 0)
	_, err := f.layout().ReplaceLayout(context.Background(), f.admin, f.vehicle, []models.Seat{seatAt("A2", 1)})
	require.NoError(t, err)

	seats, err := f.layout().GetLayout(context.Background(), f.agent, f.vehicle)
	require.NoError(t, err)
	require.Len(t, seats, 1)
	assert.Equal(t, "A2", seats[0].Number)
}
