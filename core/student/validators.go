package student

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tutorly/core"
)

var (
	subjectTag   = "subject"
	subjectText  = "subjects may only contain letters, digits, spaces and &+-/"
	subjectRegex = regexp.MustCompile(`^[\pL\d][\pL\d &+/-]{0,99}$`)
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(subjectTag, subjectValidation)
	core.RegisterCustomTranslation(validate, translator, subjectTag, subjectText)
}

func subjectValidation(fl validator.FieldLevel) bool {
	return subjectRegex.MatchString(fl.Field().String())
}
