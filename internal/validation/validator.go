// Package validation checks request structs with go-playground/validator and
// reports failures as coded validation errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/communitymapper/community-mapper/internal/color"
	"github.com/communitymapper/community-mapper/internal/domain"
	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with JSON field names and the custom tags
// "notblank", "hexrgb" and "score".
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "":
			return fld.Name
		case "-":
			return ""
		}
		return name
	})

	// Registration only fails for an empty tag name.
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("hexrgb", func(fl validator.FieldLevel) bool {
		return color.Valid(fl.Field().String())
	})
	_ = v.RegisterValidation("score", func(fl validator.FieldLevel) bool {
		return domain.ValidScore(int(fl.Field().Int()))
	})

	return &Validator{v: v}
}

// Validate validates a struct. Failures come back as a VALIDATION_ERROR whose
// details map each JSON field name to a message.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "validate request")
	}

	details := make(map[string]string, len(fieldErrs))
	for _, e := range fieldErrs {
		details[e.Field()] = friendlyMessage(e)
	}

	fields := make([]string, 0, len(details))
	for f := range details {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + " " + details[f]
	}
	return domainerrors.ValidationWithDetails("validation failed: "+strings.Join(parts, "; "), details)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "hexrgb":
		return "must be a color like #1A2B3C"
	case "score":
		return fmt.Sprintf("must be between %d and %d", domain.ScoreMin, domain.ScoreMax)
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return "must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", e.Param())
		}
		return "must be at most " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}
