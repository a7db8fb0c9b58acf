package ledger

import (
	"context"
	"fmt"
	"slices"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
)

// AuditConsistency checks that the booked seats of a screening are exactly the
// seats of its confirmed reservations, each owned by one reservation. It
// returns a *domain.ConsistencyError listing every violation.
func (l *Ledger) AuditConsistency(ctx context.Context, screeningID int) error {
	states, err := l.seats.List(ctx, screeningID)
	if err != nil {
		return fmt.Errorf("failed to list seat states: %w", err)
	}

	confirmed, err := l.reservations.ListByScreening(ctx, screeningID, domain.ReservationConfirmed)
	if err != nil {
		return fmt.Errorf("failed to list confirmed reservations: %w", err)
	}

	bySeat := make(map[domain.SeatID]domain.SeatState, len(states))
	for _, st := range states {
		bySeat[st.Seat] = st
	}

	owners := make(map[domain.SeatID][]*domain.Reservation)
	for _, r := range confirmed {
		for _, seat := range r.Seats {
			owners[seat] = append(owners[seat], r)
		}
	}

	var violations []string

	for _, st := range states {
		if !st.Status.Valid() {
			violations = append(violations, fmt.Sprintf("seat %s has unknown status %q", st.Seat, st.Status))
			continue
		}

		if st.Status != domain.SeatBooked {
			continue
		}

		rs := owners[st.Seat]
		switch {
		case len(rs) == 0:
			violations = append(violations, fmt.Sprintf("booked seat %s has no confirmed reservation", st.Seat))
		case len(rs) == 1 && rs[0].HoldID != st.HoldID:
			violations = append(violations, fmt.Sprintf("booked seat %s is owned by hold %q, reservation %s expects %q",
				st.Seat, st.HoldID, rs[0].ID, rs[0].HoldID))
		}
	}

	for seat, rs := range owners {
		if len(rs) > 1 {
			violations = append(violations, fmt.Sprintf("seat %s is referenced by %d confirmed reservations", seat, len(rs)))
		}

		st, ok := bySeat[seat]
		if !ok {
			violations = append(violations, fmt.Sprintf("seat %s of reservation %s does not exist", seat, rs[0].ID))
			continue
		}

		if st.Status != domain.SeatBooked {
			violations = append(violations, fmt.Sprintf("seat %s of confirmed reservation %s is %s", seat, rs[0].ID, st.Status))
		}
	}

	if len(violations) == 0 {
		return nil
	}

	slices.Sort(violations)

	return &domain.ConsistencyError{ScreeningID: screeningID, Violations: violations}
}
