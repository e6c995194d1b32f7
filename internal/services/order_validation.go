package services

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var hhmmPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// newOrderValidator checks orders before they are persisted, independently of
// database constraints. It knows the "hhmm" tag for 24-hour delivery times.
func newOrderValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmmPattern.MatchString(fl.Field().String())
	})
	return v
}
