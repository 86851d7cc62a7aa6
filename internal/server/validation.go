package server

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kimhaegyeong/ai-webtoon/internal/db"
	"github.com/kimhaegyeong/ai-webtoon/internal/gen"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("episode_style", func(fl validator.FieldLevel) bool {
		return gen.IsEpisodeStyle(fl.Field().String())
	})
	_ = v.RegisterValidation("bubble_position", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case db.BubbleLeft, db.BubbleRight, db.BubbleCenter:
			return true
		}
		return false
	})
	return v
}

// validateStruct runs tag validation and maps the first failure onto a
// client-facing message.
func validateStruct(req any) *apiError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return errValidation(400, "invalid "+strings.ToLower(fe.Field())+" ("+fe.Tag()+")")
	}
	return errValidation(400, "invalid request")
}

// trimOptional normalizes optional text fields: surrounding whitespace is
// dropped and empty strings collapse to nil.
func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
