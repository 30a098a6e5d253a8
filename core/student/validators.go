package student

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/libkiosk/core"
)

var (
	gradeTag  = "grade"
	gradeText = "grade must be one of " + gradeChoices()

	sexTag  = "sex"
	sexText = "sex must be one of Male, Female"
)

// InitValidators registers the student validators on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(gradeTag, gradeValidation)
	core.RegisterCustomTranslation(validate, translator, gradeTag, gradeText)

	_ = validate.RegisterValidation(sexTag, sexValidation)
	core.RegisterCustomTranslation(validate, translator, sexTag, sexText)
}

func gradeChoices() string {
	choices := make([]string, len(Grades))
	for i, g := range Grades {
		choices[i] = string(g)
	}
	return strings.Join(choices, ", ")
}

// Custom Validators

func gradeValidation(fl validator.FieldLevel) bool {
	return Grade(fl.Field().String()).IsValid()
}

func sexValidation(fl validator.FieldLevel) bool {
	return Sex(fl.Field().String()).IsValid()
}
