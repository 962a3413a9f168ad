package app

import (
	"errors"

	"knowledge-assistant/internal/pkg/textextract"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedFormat = textextract.ErrUnsupportedFormat
	ErrUnreadable        = textextract.ErrUnreadable
	ErrEmptyDocument     = errors.New("no readable text found in document")
)

const genericFailure = "internal error"

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrUnreadable) ||
		errors.Is(err, ErrEmptyDocument)
}

// ClientError returns the message a caller may see for err. Client errors
// always pass through. Other failures pass through unless strict is set.
func ClientError(err error, strict bool) string {
	if err == nil {
		return ""
	}
	if strict && !IsClientError(err) {
		return genericFailure
	}
	return err.Error()
}
