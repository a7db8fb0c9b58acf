package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	ErrRequired       = "is required"
	ErrMinValue       = "must be greater than or equal to %s"
	ErrMaxValue       = "must be less than or equal to %s"
	ErrMinLength      = "must be at least %s characters long"
	ErrMaxLength      = "must be at most %s characters long"
	ErrMinItems       = "must contain at least %s items"
	ErrMaxItems       = "must contain at most %s items"
	ErrInvalidSeat    = "must be a seat label such as A7"
	ErrInvalidRow     = "must be a row label made of letters"
	ErrInvalidPrice   = "must be a non-negative amount with at most two decimals"
	ErrUniqueElements = "must not contain duplicates"
	ErrInvalid        = "is invalid"
)

var rowLabelRgx = regexp.MustCompile(`^[A-Za-z]{1,3}$`)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}

		return name
	})

	validator.RegisterValidation("seat", validateSeat)
	validator.RegisterValidation("row_label", validateRowLabel)
	validator.RegisterValidation("price", validatePrice)

	return validator
}

func validateSeat(fl validator.FieldLevel) bool {
	_, err := domain.ParseSeatID(fl.Field().String())
	return err == nil
}

func validateRowLabel(fl validator.FieldLevel) bool {
	return rowLabelRgx.MatchString(fl.Field().String())
}

func validatePrice(fl validator.FieldLevel) bool {
	price, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}

	return !price.IsNegative() && price.Exponent() >= -2
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return ErrRequired
	case "min", "gte":
		return minMessage(err)
	case "max", "lte":
		return maxMessage(err)
	case "unique":
		return ErrUniqueElements
	case "seat":
		return ErrInvalidSeat
	case "row_label":
		return ErrInvalidRow
	case "price":
		return ErrInvalidPrice
	default:
		return ErrInvalid
	}
}

func minMessage(err validator.FieldError) string {
	switch err.Kind().String() {
	case "string":
		return fmt.Sprintf(ErrMinLength, err.Param())
	case "slice", "array":
		return fmt.Sprintf(ErrMinItems, err.Param())
	default:
		return fmt.Sprintf(ErrMinValue, err.Param())
	}
}

func maxMessage(err validator.FieldError) string {
	switch err.Kind().String() {
	case "string":
		return fmt.Sprintf(ErrMaxLength, err.Param())
	case "slice", "array":
		return fmt.Sprintf(ErrMaxItems, err.Param())
	default:
		return fmt.Sprintf(ErrMaxValue, err.Param())
	}
}
