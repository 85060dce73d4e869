package database

import (
	"errors"

	"gorm.io/gorm"
)

// IsUniqueViolation reports a write rejected by a unique index.
// It relies on TranslateError being enabled in Open.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// IsNotFound reports a First/Take that matched no row.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
