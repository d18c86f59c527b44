package complete

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOffset is returned when a cursor offset lies outside the document.
	ErrInvalidOffset = errors.New("invalid offset")

	// ErrMalformedRange marks a reference or candidate range that does not fit
	// its element or document. Such entries are skipped, never surfaced.
	ErrMalformedRange = errors.New("malformed range")

	// ErrNilDocument is returned when a request is made without a document.
	ErrNilDocument = errors.New("nil document")

	// ErrConfigNotFound is returned when no config file exists up to the root.
	ErrConfigNotFound = errors.New("config file not found")
)

// InvalidOffsetError describes an offset outside [0, Length].
type InvalidOffsetError struct {
	Offset int
	Length int
}

func (e *InvalidOffsetError) Error() string {
	return fmt.Sprintf("invalid offset %d: document length is %d", e.Offset, e.Length)
}

// Unwrap makes errors.Is(err, ErrInvalidOffset) hold.
func (e *InvalidOffsetError) Unwrap() error {
	return ErrInvalidOffset
}

func checkOffset(doc Document, offset int) error {
	if doc == nil {
		return ErrNilDocument
	}

	if offset < 0 || offset > doc.Len() {
		return &InvalidOffsetError{Offset: offset, Length: doc.Len()}
	}

	return nil
}
