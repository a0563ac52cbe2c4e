package config

import (
	"fmt"
	"strings"
)

// ValidationError is a single problem with a profile.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate checks a profile after defaults have been applied.
//
// Returns nil if valid, or a *ValidationErrors listing every problem.
func (p *Profile) Validate() error {
	errs := &ValidationErrors{}

	if strings.TrimSpace(p.Command) == "" {
		errs.Add("command", "command is required")
	}
	if p.Classpath != "" && p.MainClass == "" {
		errs.Add("mainClass", "mainClass is required when classpath is set")
	}
	if p.PropsFlag == "" {
		errs.Add("propsFlag", "propsFlag must not be empty")
	}
	if p.Stagger < 0 {
		errs.Add("stagger", fmt.Sprintf("stagger must be non-negative, got %s", p.Stagger))
	}
	for i, a := range p.JVMArgs {
		if a == "" {
			errs.Add(fmt.Sprintf("jvmArgs[%d]", i), "argument must not be empty")
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
