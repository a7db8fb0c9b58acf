package seatmap

import (
	"testing"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSeats(t *testing.T) {
	tests := []struct {
		name        string
		rows        []string
		seatsPerRow int
		wantCount   int
		wantField   string
	}{
		{name: "two rows of three", rows: []string{"A", "B"}, seatsPerRow: 3, wantCount: 6},
		{name: "lower case labels are normalized", rows: []string{"a"}, seatsPerRow: 1, wantCount: 1},
		{name: "empty rows", rows: nil, seatsPerRow: 3, wantField: "rows"},
		{name: "zero seats per row", rows: []string{"A"}, seatsPerRow: 0, wantField: "seatsPerRow"},
		{name: "negative seats per row", rows: []string{"A"}, seatsPerRow: -2, wantField: "seatsPerRow"},
		{name: "blank row label", rows: []string{"A", " "}, seatsPerRow: 2, wantField: "rows"},
		{name: "duplicate row label", rows: []string{"A", "a"}, seatsPerRow: 2, wantField: "rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seats, err := GenerateSeats(7, tt.rows, tt.seatsPerRow)

			if tt.wantField != "" {
				var vErr *domain.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, tt.wantField, vErr.Field)
				assert.Nil(t, seats)
				return
			}

			require.NoError(t, err)
			assert.Len(t, seats, tt.wantCount)

			for _, s := range seats {
				assert.Equal(t, 7, s.ScreeningID)
				assert.Equal(t, domain.SeatAvailable, s.Status)
			}
		})
	}
}

func TestGenerateSeatsOrder(t *testing.T) {
	seats, err := GenerateSeats(1, []string{"B", "A"}, 2)
	require.NoError(t, err)

	got := make([]string, len(seats))
	for i, s := range seats {
		got[i] = s.ID.String()
	}

	assert.Equal(t, []string{"B1", "B2", "A1", "A2"}, got)
}

func TestRowLabels(t *testing.T) {
	labels := RowLabels(28)

	assert.Equal(t, "A", labels[0])
	assert.Equal(t, "Z", labels[25])
	assert.Equal(t, "AA", labels[26])
	assert.Equal(t, "AB", labels[27])
	assert.Empty(t, RowLabels(0))
}

func TestLayout(t *testing.T) {
	states := []domain.SeatState{
		{Seat: domain.SeatID{Row: "B", Number: 2}, Status: domain.SeatBooked},
		{Seat: domain.SeatID{Row: "A", Number: 2}, Status: domain.SeatAvailable},
		{Seat: domain.SeatID{Row: "A", Number: 1}, Status: domain.SeatHeld},
		{Seat: domain.SeatID{Row: "C", Number: 1}, Status: domain.SeatAvailable},
	}

	rows := Layout([]string{"A", "B"}, states)

	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Label)
	require.Len(t, rows[0].Seats, 2)
	assert.Equal(t, 1, rows[0].Seats[0].Seat.Number)
	assert.Equal(t, domain.SeatHeld, rows[0].Seats[0].Status)
	assert.Len(t, rows[1].Seats, 1)
}
