package catalog

import (
	"errors"
	"fmt"
	"net/http"

	"apparel-catalog/internal/gateway"
)

// ErrStale is returned by a view fetch whose result was discarded because a
// newer fetch started after it.
var ErrStale = errors.New("catalog: superseded by a newer request")

// ValidationError is bad or missing input, detected before any backend call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// UploadError is a failed image transfer.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return fmt.Sprintf("image upload failed: %v", e.Err) }
func (e *UploadError) Unwrap() error { return e.Err }

// StoreError is a backend read or write fault.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// NotFoundError means the target product does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("product %s not found", e.ID) }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// Message is the short text shown in a notification for err.
func Message(err error) string {
	var (
		ve *ValidationError
		ue *UploadError
		nf *NotFoundError
		se *StoreError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &ue):
		if errors.Is(err, gateway.ErrObjectExists) {
			return "An image with the same name already exists, please retry"
		}
		return "Failed to upload image"
	case errors.As(err, &nf):
		return "Product not found"
	case errors.As(err, &se):
		if errors.Is(err, gateway.ErrConflict) {
			return "A product with this name already exists"
		}
		return "Something went wrong, please try again"
	default:
		return "Something went wrong, please try again"
	}
}

// StatusCode maps err onto an HTTP status.
func StatusCode(err error) int {
	var (
		ve *ValidationError
		ue *UploadError
		nf *NotFoundError
		se *StoreError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &se) && errors.Is(err, gateway.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &ue), errors.As(err, &se):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
