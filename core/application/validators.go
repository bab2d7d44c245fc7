package application

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/sutdhousing/portal/core"
)

var (
	appStatusTag  = "appstatus"
	appStatusText = "{0} must be one of " + strings.Join(Statuses, ", ")
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(appStatusTag, func(fl validator.FieldLevel) bool {
		status := fl.Field().String()
		for _, s := range Statuses {
			if status == s {
				return true
			}
		}
		return false
	})
	core.RegisterCustomTranslation(validate, translator, appStatusTag, appStatusText)
}
