package student

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/sutdhousing/portal/core"
)

var (
	roomTypeTag     = "roomtype"
	blockTag        = "block"
	levelRangeTag   = "levelrange"
	windowFacingTag = "windowfacing"

	sleepTimeTag  = "sleeptime"
	sleepTimeText = "sleep_time must be one of 21, 22, 23, 0, 1, 2"

	weightageTag  = "weightage"
	weightageText = fmt.Sprintf("weightage_order must rank the numbers 1 to %d, each exactly once", weightageLen)
)

// InitValidators registers the room and lifestyle profile validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	registerOneOf(validate, translator, roomTypeTag, RoomTypes)
	registerOneOf(validate, translator, blockTag, Blocks)
	registerOneOf(validate, translator, levelRangeTag, LevelRanges)
	registerOneOf(validate, translator, windowFacingTag, WindowFacings)

	_ = validate.RegisterValidation(sleepTimeTag, sleepTimeValidation)
	core.RegisterCustomTranslation(validate, translator, sleepTimeTag, sleepTimeText)

	_ = validate.RegisterValidation(weightageTag, weightageValidation)
	core.RegisterCustomTranslation(validate, translator, weightageTag, weightageText)
}

func registerOneOf(validate *validator.Validate, translator ut.Translator, tag string, values []string) {
	_ = validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		for _, v := range values {
			if val == v {
				return true
			}
		}
		return false
	})
	core.RegisterCustomTranslation(validate, translator, tag, "{0} must be one of "+strings.Join(values, ", "))
}

func sleepTimeValidation(fl validator.FieldLevel) bool {
	hour := int(fl.Field().Int())
	for _, h := range SleepTimes {
		if hour == h {
			return true
		}
	}
	return false
}

// weightageValidation checks that the order is a permutation of 1..weightageLen.
func weightageValidation(fl validator.FieldLevel) bool {
	order, ok := fl.Field().Interface().([]int)
	if !ok || len(order) != weightageLen {
		return false
	}
	seen := make([]bool, weightageLen+1)
	for _, rank := range order {
		if rank < 1 || rank > weightageLen || seen[rank] {
			return false
		}
		seen[rank] = true
	}
	return true
}
