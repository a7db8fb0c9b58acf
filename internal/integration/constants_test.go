package integration_test

import (
	"time"
)

const (
	// User related constants
	TestUserId      = 1
	TestOtherUserId = 2

	// Screening related constants
	TestMovieTitle  = "Heat"
	TestHallName    = "Hall 1"
	TestSeatsPerRow = 5
	TestSeatPrice   = "9.75"

	// Payment related constants
	TestWebhookSecret = "whsec_integration_secret"
	TestSuccessUrl    = "https://example.com/success.html"
	TestFailureUrl    = "https://example.com/failure.html"

	TestHoldTTL = 10 * time.Minute

	TestAdminToken = "integration-admin-token"
)

var (
	TestAdminHeaders = map[string]string{"Authorization": "Bearer " + TestAdminToken}

	TestScreeningRows     = []string{"A", "B", "C"}
	TestScreeningStartsAt = time.Date(2095, 1, 1, 17, 0, 0, 0, time.UTC)
)
