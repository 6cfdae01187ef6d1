package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with the custom "notblank" tag registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// report json field names (e.g. "phone") instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// notblank: string must contain something other than whitespace
	_ = v.RegisterValidation("notblank", func(fl validatorv10.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.String {
			return false
		}
		return strings.TrimSpace(f.String()) != ""
	})

	return v
}

// FirstInvalidField returns the json name of the first field that failed validation, in struct
// declaration order, or "" if err is not a validation failure.
func FirstInvalidField(err error) string {
	ve, ok := err.(validatorv10.ValidationErrors)
	if !ok || len(ve) == 0 {
		return ""
	}
	return ve[0].Field()
}
