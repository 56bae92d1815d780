package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ValidationError describes one invalid configuration value.
type ValidationError struct {
	// Field is the configuration key, e.g. "unmarked".
	Field string

	// Message describes what's wrong with the value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Validate checks the final configuration, after flags have been applied.
// It returns every problem found; an empty list means the configuration is
// usable.
func Validate(c *Config) []ValidationError {
	var errs []ValidationError

	if !c.ExportArea.IsValid() {
		errs = append(errs, ValidationError{
			Field:   "exportArea",
			Message: fmt.Sprintf("%q is not one of drawing, page", c.ExportArea),
		})
	}
	if !c.Format.IsValid() {
		errs = append(errs, ValidationError{
			Field:   "format",
			Message: fmt.Sprintf("%q is not one of pdf, png, eps, ps, emf, wmf", c.Format),
		})
	}
	if !c.Mode.IsValid() {
		errs = append(errs, ValidationError{
			Field:   "mode",
			Message: fmt.Sprintf("%q is not one of shell, oneshot, docker", c.Mode),
		})
	}
	if !c.Unmarked.IsValid() {
		errs = append(errs, ValidationError{
			Field:   "unmarked",
			Message: fmt.Sprintf("%q is not one of keep, show, remove", c.Unmarked),
		})
	}
	if c.Jobs < 1 {
		errs = append(errs, ValidationError{
			Field:   "jobs",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Jobs),
		})
	}

	// The marker is matched literally and must be followed by '[', a digit
	// or '-', so those characters cannot be part of it.
	if c.Marker == "" {
		errs = append(errs, ValidationError{Field: "marker", Message: "must not be empty"})
	} else if strings.IndexFunc(c.Marker, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsDigit(r) || strings.ContainsRune("[],-", r)
	}) >= 0 {
		errs = append(errs, ValidationError{
			Field:   "marker",
			Message: fmt.Sprintf("%q must not contain spaces, digits or any of []-,", c.Marker),
		})
	}

	return errs
}

// Join folds validation errors into a single error, nil when there are
// none.
func Join(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	list := make([]error, 0, len(errs))
	for i := range errs {
		list = append(list, &errs[i])
	}
	return errors.Join(list...)
}
