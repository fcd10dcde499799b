package handler

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/merchportal/backend/internal/domain/integration"
)

var registerValidationsOnce sync.Once

// RegisterValidations configures gin's validator: errors name the json/form
// field and the run_status tag accepts only known export run statuses.
// Handlers whose request DTOs use run_status call it on construction.
func RegisterValidations() {
	registerValidationsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("run_status", func(fl validator.FieldLevel) bool {
			return integration.ExportRunStatus(fl.Field().String()).IsValid()
		})
	})
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}
