package middleware

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	pkgvalidator "github.com/jwalitptl/clinic-api/pkg/validator"
)

// RegisterValidation makes gin's binding validator report json field names,
// so bind errors read "email is required" rather than "Email".
func RegisterValidation() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		pkgvalidator.UseJSONNames(v)
	}
}
