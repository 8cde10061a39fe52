package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// report form/json names so failures can be logged without values
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	_ = val.RegisterValidation("zip", func(fl validator.FieldLevel) bool {
		_, ok := Zip(fl.Field().String())
		return ok
	})
	_ = val.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		_, ok := Phone(fl.Field().String())
		return ok
	})
	return val
}

// Struct validates s against its `validate` tags.
func Struct(s any) error { return v.Struct(s) }

// Fields lists the names of the fields that failed in err.
func Fields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fe.Field())
	}
	return out
}
