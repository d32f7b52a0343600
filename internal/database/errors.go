package database

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("extension not found")
	ErrInvalidFormat      = errors.New("extension must contain only lowercase letters and digits")
	ErrTooLong            = errors.New("extension is too long")
	ErrAlreadyExists      = errors.New("custom extension already exists")
	ErrConflictsWithFixed = errors.New("fixed extensions cannot be added as custom extensions")
	ErrCapacityExceeded   = errors.New("custom extension limit reached")
)

var clientErrors = []error{
	ErrNotFound,
	ErrInvalidFormat,
	ErrTooLong,
	ErrAlreadyExists,
	ErrConflictsWithFixed,
	ErrCapacityExceeded,
}

// IsClientError reports whether err is caused by the request rather than by storage.
func IsClientError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// isUniqueViolation relies on SetupDB enabling TranslateError: both the postgres
// and sqlite dialectors map their unique-constraint codes to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
