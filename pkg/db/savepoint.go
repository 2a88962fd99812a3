package db

import (
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Savepoint runs fn inside a named savepoint. When fn fails, its writes are rolled back
// and the outer transaction stays usable; the caller decides whether the failure matters.
func Savepoint(tx *gorm.DB, name string, fn func(tx *gorm.DB) error) error {
	if err := tx.SavePoint(name).Error; err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.RollbackTo(name).Error; rbErr != nil {
			return multierr.Append(err, fmt.Errorf("rollback to %s: %w", name, rbErr))
		}
		return err
	}
	return nil
}
