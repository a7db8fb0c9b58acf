// Package seatmap enumerates the seats of a screening from its room layout.
package seatmap

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
)

// GenerateSeats returns one available seat per (row, 1..seatsPerRow), in row
// order and then number order.
func GenerateSeats(screeningID int, rows []string, seatsPerRow int) ([]domain.Seat, error) {
	if len(rows) == 0 {
		return nil, &domain.ValidationError{Field: "rows", Reason: "at least one row is required"}
	}

	if seatsPerRow <= 0 {
		return nil, &domain.ValidationError{Field: "seatsPerRow", Reason: "must be greater than zero"}
	}

	seen := make(map[string]bool, len(rows))
	seats := make([]domain.Seat, 0, len(rows)*seatsPerRow)

	for _, row := range rows {
		label := strings.ToUpper(strings.TrimSpace(row))
		if label == "" {
			return nil, &domain.ValidationError{Field: "rows", Reason: "row label must not be blank"}
		}

		if seen[label] {
			return nil, &domain.ValidationError{Field: "rows", Reason: fmt.Sprintf("duplicate row label %q", label)}
		}
		seen[label] = true

		for n := 1; n <= seatsPerRow; n++ {
			seats = append(seats, domain.Seat{
				ScreeningID: screeningID,
				ID:          domain.SeatID{Row: label, Number: n},
				Status:      domain.SeatAvailable,
			})
		}
	}

	return seats, nil
}

// RowLabels returns n spreadsheet-style row labels: A..Z, AA, AB, ...
func RowLabels(n int) []string {
	labels := make([]string, n)

	for i := range n {
		var b []byte
		for k := i + 1; k > 0; k = (k - 1) / 26 {
			b = append([]byte{byte('A' + (k-1)%26)}, b...)
		}
		labels[i] = string(b)
	}

	return labels
}

type Row struct {
	Label string
	Seats []domain.SeatState
}

// Layout groups seat states into rows following the given row order. Seats
// with unknown rows are dropped.
func Layout(rows []string, states []domain.SeatState) []Row {
	index := make(map[string]int, len(rows))
	layout := make([]Row, len(rows))

	for i, label := range rows {
		index[label] = i
		layout[i] = Row{Label: label}
	}

	for _, st := range states {
		i, ok := index[st.Seat.Row]
		if !ok {
			continue
		}
		layout[i].Seats = append(layout[i].Seats, st)
	}

	for i := range layout {
		slices.SortFunc(layout[i].Seats, func(a, b domain.SeatState) int {
			return cmp.Compare(a.Seat.Number, b.Seat.Number)
		})
	}

	return layout
}
