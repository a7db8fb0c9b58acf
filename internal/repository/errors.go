package repository

import (
	"errors"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
)

var (
	ErrDuplicateConfirmationCode = domain.ErrDuplicateConfirmationCode
	ErrDuplicateScreening        = errors.New("screening already exists")
)
