package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInputUnavailable = errors.New("input unavailable")
	ErrStateCorrupt     = errors.New("state corrupt")
	ErrLookup           = errors.New("lookup failure")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrPublish          = errors.New("publish failure")
	ErrConfiguration    = errors.New("configuration error")
	ErrExternalTool     = errors.New("external tool error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error onto the event type used in structured logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInputUnavailable):
		return "input_unavailable"
	case errors.Is(err, ErrStateCorrupt):
		return "state_corrupt"
	case errors.Is(err, ErrLookup), errors.Is(err, ErrNotFound):
		return "lookup_failure"
	case errors.Is(err, ErrValidation):
		return "validation_failure"
	case errors.Is(err, ErrPublish):
		return "publish_failure"
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	default:
		return "unexpected_failure"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
