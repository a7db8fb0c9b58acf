package main

import (
	"log/slog"
	"os"

	"github.com/metinatakli/cinex-seat-engine/internal/app"
)

func main() {
	err := app.Run()
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("seat engine stopped", "error", err)
		os.Exit(1)
	}
}
