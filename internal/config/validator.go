package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sherifkozman/red-council/internal/llm"
	"github.com/sherifkozman/red-council/internal/types"
)

// Validator validates configuration values.
type Validator interface {
	Validate(cfg *Config) error
}

type validatorImpl struct {
	validate *validator.Validate
}

// NewValidator creates a Validator backed by struct tag validation.
func NewValidator() Validator {
	return &validatorImpl{validate: validator.New()}
}

func (v *validatorImpl) Validate(cfg *Config) error {
	if cfg == nil {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "configuration is nil")
	}

	if err := v.validate.Struct(cfg); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return types.WrapError(types.CONFIG_VALIDATION_FAILED, "validation error", err)
		}
		var messages []string
		for _, e := range validationErrs {
			messages = append(messages, formatValidationError(e))
		}
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(messages, "\n  - ")))
	}

	// The target must point at a declared provider entry.
	if cfg.Target.Provider != "" {
		entry, ok := cfg.Providers[cfg.Target.Provider]
		if !ok {
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("target.provider %q has no matching providers entry", cfg.Target.Provider))
		}
		switch entry.Type {
		case llm.ProviderAnthropic, llm.ProviderOpenAI, llm.ProviderOllama, llm.ProviderMock:
		default:
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("providers.%s.type %q is not a supported provider", cfg.Target.Provider, entry.Type))
		}
	}

	return nil
}

func formatValidationError(e validator.FieldError) string {
	field := strings.ToLower(e.Namespace())
	field = strings.TrimPrefix(field, "config.")
	switch e.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", field, e.Param(), e.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", field, e.Param(), e.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s (got: %v)", field, e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed %s validation (got: %v)", field, e.Tag(), e.Value())
	}
}
