package contact

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// ContactInput holds the raw contact form fields as submitted.
type ContactInput struct {
	Name    string `json:"name" validate:"trimmedmin=2"`
	Email   string `json:"email" validate:"simpleemail"`
	Message string `json:"message" validate:"trimmedmin=10"`
}

// The email rule is deliberately loose: non-whitespace local part, an @,
// non-whitespace domain, a literal dot, non-whitespace TLD. Full RFC
// validation is not the contract here.
var simpleEmailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

var fieldMessages = map[string]string{
	"Name":    "name must be at least 2 characters",
	"Email":   "enter a valid email address",
	"Message": "message must be at least 10 characters",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// trimmedmin=N: at least N characters after trimming surrounding whitespace.
	_ = v.RegisterValidation("trimmedmin", func(fl validator.FieldLevel) bool {
		min, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= min
	})
	_ = v.RegisterValidation("simpleemail", func(fl validator.FieldLevel) bool {
		return simpleEmailPattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate is a pure function mapping the raw fields to a field -> error
// message mapping. A field with no violation is absent from the result; an
// empty result means the submission is valid. Validation has no side effects:
// the success path is purely cosmetic and nothing is submitted anywhere.
func Validate(in ContactInput) map[string]string {
	fieldErrors := map[string]string{}

	err := validate.Struct(in)
	if err == nil {
		return fieldErrors
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fieldErrors[strings.ToLower(fe.Field())] = fieldMessages[fe.Field()]
		}
	}
	return fieldErrors
}
