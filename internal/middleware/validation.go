package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/osirix/clinique-api/internal/service/appointment"
	"github.com/osirix/clinique-api/pkg/httputil"
)

// ValidationConfig represents validation middleware configuration
type ValidationConfig struct {
	CustomValidators    map[string]validator.Func
	CustomErrorMessages map[string]string
}

func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		CustomValidators: map[string]validator.Func{
			"slot": func(fl validator.FieldLevel) bool {
				return appointment.IsValidSlot(fl.Field().String())
			},
		},
		CustomErrorMessages: map[string]string{
			"required": "is required",
			"uuid":     "must be a valid identifier",
			"datetime": "must be a date formatted YYYY-MM-DD",
			"slot":     "must be a half-hour slot between 08:00 and 18:30",
			"oneof":    "must be one of: %s",
			"max":      "must be at most %s characters",
		},
	}
}

// RegisterValidators installs custom tags and JSON field naming on gin's
// validator engine.
func RegisterValidators(config ValidationConfig) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}

	for tag, fn := range config.CustomValidators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return nil
}

// Validation turns binding errors attached by handlers into a 400 with a
// readable message.
func Validation(config ValidationConfig) gin.HandlerFunc {
	if err := RegisterValidators(config); err != nil {
		panic(err)
	}

	return func(c *gin.Context) {
		c.Next()

		bindErrs := c.Errors.ByType(gin.ErrorTypeBind)
		if len(bindErrs) == 0 || c.Writer.Written() {
			return
		}

		httputil.RespondWithStatus(c, http.StatusBadRequest, ValidationMessage(bindErrs.Last().Err, config))
	}
}

// ValidationMessage describes a binding error for end users.
func ValidationMessage(err error, config ValidationConfig) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}

	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msg, ok := config.CustomErrorMessages[e.Tag()]
		if !ok {
			msg = "is invalid"
		} else if strings.Contains(msg, "%s") {
			msg = fmt.Sprintf(msg, e.Param())
		}
		parts = append(parts, e.Field()+" "+msg)
	}
	return strings.Join(parts, "; ")
}
