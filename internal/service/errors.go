package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Every failure returned by the services wraps exactly one of these.
// Only ErrConflict is worth retrying: the others fail the same way again.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidMovement   = errors.New("invalid movement")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnresolvedLine    = errors.New("line has no catalog item")
	ErrLineNotFound      = errors.New("order line not found")
	ErrConflict          = errors.New("concurrent update conflict, retry")
	ErrAlreadyExists     = errors.New("already exists")
	ErrLocationNotEmpty  = errors.New("location still holds stock")
)

// InsufficientStockError carries the numbers behind a rejected debit.
type InsufficientStockError struct {
	ItemID     uuid.UUID
	LocationID uuid.UUID
	Available  int
	Requested  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: item %s at location %s has %d, %d requested",
		e.ItemID, e.LocationID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// notFound turns gorm's record-not-found into ErrNotFound naming what is
// missing. Other errors pass through unchanged.
func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidMovement, fmt.Sprintf(format, args...))
}
