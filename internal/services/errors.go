package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTimeout          = errors.New("timeout")
	ErrTool             = errors.New("tool error")
	ErrParse            = errors.New("parse error")
	ErrMissingInput     = errors.New("missing input")
	ErrInsufficientData = errors.New("insufficient data")
	ErrCancelled        = errors.New("cancelled")
	ErrConfiguration    = errors.New("configuration error")
	ErrTransient        = errors.New("transient failure")
)

// Kind strings persisted alongside failed jobs. These are stable identifiers;
// renderers and API consumers match on them.
const (
	KindTimeout          = "timeout"
	KindTool             = "tool_error"
	KindParse            = "parse_error"
	KindMissingInput     = "missing_input"
	KindInsufficientData = "insufficient_data"
	KindCancelled        = "cancelled"
	KindConfiguration    = "configuration"
	KindTransient        = "transient"
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later kind classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to its machine-readable kind string.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrMissingInput):
		return KindMissingInput
	case errors.Is(err, ErrInsufficientData):
		return KindInsufficientData
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrTool):
		return KindTool
	default:
		return KindTransient
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
