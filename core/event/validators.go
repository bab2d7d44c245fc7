package event

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/sutdhousing/portal/core"
)

var (
	eventTypeTag  = "eventtype"
	eventTypeText = "{0} must be one of " + strings.Join(Types, ", ")
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(eventTypeTag, func(fl validator.FieldLevel) bool {
		typ := fl.Field().String()
		for _, t := range Types {
			if typ == t {
				return true
			}
		}
		return false
	})
	core.RegisterCustomTranslation(validate, translator, eventTypeTag, eventTypeText)
}
