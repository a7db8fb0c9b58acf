package app

import "time"

// Request and response bodies of the HTTP API.

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	RequestId        string            `json:"requestId"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

// SeatConflictResponse is returned with 409 when seats could not be claimed.
type SeatConflictResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
	Seats     []string  `json:"seats"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

type Seat struct {
	Label  string `json:"label"`
	Number int    `json:"number"`
	Status string `json:"status"`
}

type SeatRow struct {
	Row   string `json:"row"`
	Seats []Seat `json:"seats"`
}

type SeatMapResponse struct {
	ScreeningId int       `json:"screeningId"`
	MovieTitle  string    `json:"movieTitle"`
	HallName    string    `json:"hallName"`
	StartsAt    time.Time `json:"startsAt"`
	Price       string    `json:"price"`
	Available   int       `json:"available"`
	Held        int       `json:"held"`
	Booked      int       `json:"booked"`
	Rows        []SeatRow `json:"rows"`
}

type CreateHoldRequest struct {
	Seats []string `json:"seats" validate:"required,min=1,max=8,unique,dive,seat"`
}

type HoldResponse struct {
	Id          string    `json:"id"`
	ScreeningId int       `json:"screeningId"`
	Seats       []string  `json:"seats"`
	State       string    `json:"state"`
	ExpiresAt   time.Time `json:"expiresAt"`
	ExpiresIn   int       `json:"expiresIn"`
}

type CheckoutSessionResponse struct {
	ReservationId string `json:"reservationId"`
	RedirectUrl   string `json:"redirectUrl"`
}

type PaymentResultRequest struct {
	Success *bool  `json:"success" validate:"required"`
	Reason  string `json:"reason" validate:"max=255"`
}

type ReservationResponse struct {
	Id               string    `json:"id"`
	ConfirmationCode string    `json:"confirmationCode"`
	ScreeningId      int       `json:"screeningId"`
	Seats            []string  `json:"seats"`
	TotalPrice       string    `json:"totalPrice"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
}

// PaymentResultResponse carries the reservation when the payment produced one.
type PaymentResultResponse struct {
	Status      string               `json:"status"`
	Reservation *ReservationResponse `json:"reservation,omitempty"`
}

type GetReservationsOfUserHandlerParams struct {
	Page     *int `json:"page" validate:"omitempty,min=1"`
	PageSize *int `json:"pageSize" validate:"omitempty,min=1,max=100"`
}

type ReservationSummary struct {
	Id               string    `json:"id"`
	ConfirmationCode string    `json:"confirmationCode"`
	ScreeningId      int       `json:"screeningId"`
	MovieTitle       string    `json:"movieTitle"`
	HallName         string    `json:"hallName"`
	Date             time.Time `json:"date"`
	SeatCount        int       `json:"seatCount"`
	TotalPrice       string    `json:"totalPrice"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
}

type Metadata struct {
	CurrentPage  int `json:"currentPage"`
	FirstPage    int `json:"firstPage"`
	LastPage     int `json:"lastPage"`
	PageSize     int `json:"pageSize"`
	TotalRecords int `json:"totalRecords"`
}

type UserReservationsResponse struct {
	Reservations []ReservationSummary `json:"reservations"`
	Metadata     Metadata             `json:"metadata"`
}

type CreateScreeningRequest struct {
	MovieTitle  string    `json:"movieTitle" validate:"required,max=200"`
	HallName    string    `json:"hallName" validate:"required,max=100"`
	StartsAt    time.Time `json:"startsAt" validate:"required"`
	Rows        []string  `json:"rows" validate:"omitempty,max=52,unique,dive,row_label"`
	RowCount    int       `json:"rowCount" validate:"omitempty,min=1,max=52"`
	SeatsPerRow int       `json:"seatsPerRow" validate:"required,min=1,max=100"`
	Price       string    `json:"price" validate:"required,price"`
	Active      *bool     `json:"active"`
}

type UpdateScreeningRequest struct {
	Price  *string `json:"price" validate:"omitempty,price"`
	Active *bool   `json:"active"`
}

type ScreeningResponse struct {
	Id          int       `json:"id"`
	MovieTitle  string    `json:"movieTitle"`
	HallName    string    `json:"hallName"`
	StartsAt    time.Time `json:"startsAt"`
	Rows        []string  `json:"rows"`
	SeatsPerRow int       `json:"seatsPerRow"`
	TotalSeats  int       `json:"totalSeats"`
	Price       string    `json:"price"`
	Active      bool      `json:"active"`
}

type AuditResponse struct {
	ScreeningId int      `json:"screeningId"`
	Consistent  bool     `json:"consistent"`
	Violations  []string `json:"violations"`
}
