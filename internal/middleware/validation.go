package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var genders = map[string]bool{
	"male":   true,
	"female": true,
	"other":  true,
}

// RegisterValidators installs domain validation tags on gin's binding
// engine. Call once before routes are set up.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	// Validation errors report the json field name, not the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})

	v.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		return genders[strings.ToLower(fl.Field().String())]
	})
}
