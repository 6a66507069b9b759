package middleware

import (
	stderrors "errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/marketplace-platform/webhook-service/pkg/errors"
)

var (
	validateOnce sync.Once

	messagesMu     sync.RWMutex
	customMessages = map[string]string{
		"provider_slug": "must be a lowercase provider slug (letters, digits, '-' or '_')",
		"safe_string":   "contains invalid characters",
	}
)

var (
	providerSlugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
	safeStringRegex   = regexp.MustCompile(`^[^\x00-\x08\x0B\x0C\x0E-\x1F]*$`)
)

// InitValidator registers the shared custom validators on gin's binding engine.
func InitValidator() {
	validateOnce.Do(func() {
		v := engine()
		if v == nil {
			return
		}
		_ = v.RegisterValidation("provider_slug", func(fl validator.FieldLevel) bool {
			return providerSlugRegex.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("safe_string", func(fl validator.FieldLevel) bool {
			return safeStringRegex.MatchString(fl.Field().String())
		})
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
}

// RegisterValidation adds a service specific validation tag to gin's binding
// engine, with the message reported when it fails.
func RegisterValidation(tag, message string, fn validator.Func) error {
	InitValidator()
	v := engine()
	if v == nil {
		return stderrors.New("gin binding engine is not a validator.Validate")
	}
	messagesMu.Lock()
	customMessages[tag] = message
	messagesMu.Unlock()
	return v.RegisterValidation(tag, fn)
}

func engine() *validator.Validate {
	v, _ := binding.Validator.Engine().(*validator.Validate)
	return v
}

// ValidationErrorFormatter formats validation errors into a map
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if stderrors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			fields[e.Field()] = formatValidationError(e)
		}
	}

	return fields
}

func formatValidationError(e validator.FieldError) string {
	messagesMu.RLock()
	msg, ok := customMessages[e.Tag()]
	messagesMu.RUnlock()
	if ok {
		return msg
	}

	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

// BindAndValidate binds request body and validates it
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		var validationErrors validator.ValidationErrors
		if stderrors.As(err, &validationErrors) {
			return errors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
		}
		return errors.ErrBadRequest("invalid request body: " + err.Error())
	}
	return nil
}
