package services

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	return validate
}

// validationMessage flattens validator errors into "Field: tag" pairs.
func validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	parts := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		part := fieldErr.Namespace() + ": " + fieldErr.Tag()
		if fieldErr.Param() != "" {
			part += "=" + fieldErr.Param()
		}

		parts = append(parts, part)
	}

	return strings.Join(parts, "; ")
}
