package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/goclaw/livecheck/pkg/codec"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("env", validateEnvironment)
	_ = validate.RegisterValidation("codec", validateCodec)
}

// ConfigError is a validation failure for one field.
type ConfigError struct {
	Field   string
	Message string
	Value   any
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every field failure of one validation pass.
type ValidationErrors []ConfigError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// ValidateWithDetails validates cfg and returns ValidationErrors describing
// every failing field.
func ValidateWithDetails(cfg *Config) error {
	var details ValidationErrors

	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			details = append(details, ConfigError{
				Field:   fe.Namespace(),
				Message: formatValidationError(fe),
				Value:   fe.Value(),
			})
		}
	}

	if cfg.UsesRedis() && strings.TrimSpace(cfg.Redis.Address) == "" {
		details = append(details, ConfigError{
			Field:   "Config.Redis.Address",
			Message: "is required when the bus or store type is redis",
			Value:   cfg.Redis.Address,
		})
	}
	if cfg.Store.Type == "badger" && !cfg.Store.Badger.InMemory && strings.TrimSpace(cfg.Store.Badger.Path) == "" {
		details = append(details, ConfigError{
			Field:   "Config.Store.Badger.Path",
			Message: "is required for an on-disk badger store",
			Value:   cfg.Store.Badger.Path,
		})
	}
	if cfg.Tracing.Enabled && strings.TrimSpace(cfg.Tracing.Endpoint) == "" {
		details = append(details, ConfigError{
			Field:   "Config.Tracing.Endpoint",
			Message: "is required when tracing is enabled",
			Value:   cfg.Tracing.Endpoint,
		})
	}

	if len(details) > 0 {
		return details
	}
	return nil
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "env":
		return "must be one of [development staging production]"
	case "codec":
		return "must name a registered codec or a '|' chain of them"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateCodec(fl validator.FieldLevel) bool {
	_, err := codec.Get(fl.Field().String())
	return err == nil
}
