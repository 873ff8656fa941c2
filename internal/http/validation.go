package http

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var academicYearPattern = regexp.MustCompile(`^\d{4}/\d{4}$`)

var registerOnce sync.Once

// registerValidations wires the custom rules into gin's binding validator and
// makes validation errors report JSON field names instead of Go field names.
func registerValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("academic_year", func(fl validator.FieldLevel) bool {
			return academicYearPattern.MatchString(fl.Field().String())
		})
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// fieldErrors flattens validator output into a field -> problem map for the
// response envelope.
func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		detail := "failed rule " + fe.Tag()
		if fe.Param() != "" {
			detail += "=" + fe.Param()
		}
		fields[fe.Field()] = detail
	}
	return fields
}
