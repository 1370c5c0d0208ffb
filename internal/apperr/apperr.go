// Package apperr holds the error kinds surfaced by the task and reminder
// services. Storage failures live in the storage package as StorageError.
package apperr

import "fmt"

// AuthorizationError means missing or invalid caller credentials or invocation secret.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return "unauthorized"
	}
	return "unauthorized: " + e.Reason
}

// NotFoundError means the entity does not exist or is not owned by the caller.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// ValidationError rejects malformed input before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// DeliveryError records a failed send for one recipient. It is reported in
// batch results and never aborts the batch.
type DeliveryError struct {
	Destination string
	Err         error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.Destination, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
