package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error taxonomy shared by the control plane and the event channel.
// Handlers map these to status codes with errors.Is; the event channel
// logs and drops.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStore      = errors.New("store unavailable")
)

// storeErr wraps persistent-store failures so callers can distinguish a
// transient outage from a missing record.
func storeErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStore, err)
}
