package app

import (
	"context"
	"time"
)

// startHoldSweeper releases expired holds and unpaid reservations every
// interval until ctx is done. Hold expiry is also checked when a hold is used,
// but pending reservations past their payment window are only cancelled here.
func (app *Application) startHoldSweeper(ctx context.Context, interval time.Duration) {
	app.wg.Add(1)

	go func() {
		defer app.wg.Done()

		defer func() {
			if err := recover(); err != nil {
				app.logger.Error("hold sweeper panicked", "error", err)
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				app.sweepOnce(ctx, now)
			}
		}
	}()
}

func (app *Application) sweepOnce(ctx context.Context, now time.Time) {
	released, err := app.booking.SweepExpired(ctx, now)
	if err != nil {
		app.logger.Error("failed to sweep expired holds and reservations", "error", err)
	}

	if len(released) > 0 {
		app.logger.Info("expired seats released", "count", len(released))
	}
}
