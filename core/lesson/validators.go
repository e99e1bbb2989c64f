package lesson

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tutorly/core"
)

var (
	cadenceTag  = "cadence"
	cadenceText = "cadence must be one of weekly, biweekly and monthly"

	rruleTag  = "rrule"
	rruleText = "enter a weekly, biweekly or monthly RRULE with a COUNT or an UNTIL"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(cadenceTag, cadenceValidation)
	core.RegisterCustomTranslation(validate, translator, cadenceTag, cadenceText)

	_ = validate.RegisterValidation(rruleTag, rruleValidation)
	core.RegisterCustomTranslation(validate, translator, rruleTag, rruleText)
}

func cadenceValidation(fl validator.FieldLevel) bool {
	return Cadence(fl.Field().String()).IsValid()
}

func rruleValidation(fl validator.FieldLevel) bool {
	_, err := ParseRRule(fl.Field().String(), time.UTC)
	return err == nil
}
