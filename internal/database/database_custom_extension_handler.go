package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"extfilter/internal/domain"

	"gorm.io/gorm"
)

const (
	customExtensionWriteLockKey = "extfilter:lock:custom_extensions"

	// customExtensionAdvisoryLockID keys pg_advisory_xact_lock for Add.
	customExtensionAdvisoryLockID int64 = 0x65787466696c74
)

// WriteLocker serialises custom extension writers across processes.
type WriteLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type CustomRegistryOption func(*CustomExtensionRegistry)

// WithWriteLocker adds a cross-process lock around Add on top of the
// in-process mutex.
func WithWriteLocker(locker WriteLocker) CustomRegistryOption {
	return func(r *CustomExtensionRegistry) {
		r.locker = locker
	}
}

// WithCapacity overrides the maximum number of custom extensions.
func WithCapacity(capacity int) CustomRegistryOption {
	return func(r *CustomExtensionRegistry) {
		if capacity > 0 {
			r.capacity = capacity
		}
	}
}

// CustomExtensionRegistry stores user registered extensions. Membership alone
// means the extension is blocked.
type CustomExtensionRegistry struct {
	db       *gorm.DB
	locker   WriteLocker
	capacity int

	// mu makes the duplicate, fixed-conflict and capacity checks plus the
	// insert one unit for writers in this process.
	mu sync.Mutex
}

func NewCustomExtensionRegistry(db *gorm.DB, opts ...CustomRegistryOption) *CustomExtensionRegistry {
	r := &CustomExtensionRegistry{
		db:       db,
		capacity: domain.MaxCustomExtensions,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *CustomExtensionRegistry) Capacity() int {
	return r.capacity
}

func (r *CustomExtensionRegistry) conn(ctx context.Context) (*gorm.DB, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("custom extensions: database connection was not initialised")
	}
	if ctx != nil {
		return r.db.WithContext(ctx), nil
	}
	return r.db, nil
}

func (r *CustomExtensionRegistry) List(ctx context.Context) ([]domain.CustomExtension, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var rows []domain.CustomExtension
	if err := db.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("custom extensions: list: %w", err)
	}
	return rows, nil
}

func (r *CustomExtensionRegistry) Count(ctx context.Context) (int64, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&domain.CustomExtension{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("custom extensions: count: %w", err)
	}
	return count, nil
}

// Contains reports whether name is registered. name is matched as given,
// without normalisation.
func (r *CustomExtensionRegistry) Contains(ctx context.Context, name string) (bool, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return false, err
	}

	found, err := nameExists(db, &domain.CustomExtension{}, name)
	if err != nil {
		return false, fmt.Errorf("custom extensions: lookup: %w", err)
	}
	return found, nil
}

// Add normalises rawName, validates it and stores it. The first failing rule
// decides the error: ErrInvalidFormat, ErrTooLong, ErrInvalidFormat,
// ErrAlreadyExists, ErrConflictsWithFixed, ErrCapacityExceeded.
func (r *CustomExtensionRegistry) Add(ctx context.Context, rawName string) (*domain.CustomExtension, error) {
	name := domain.NormalizeExtensionName(rawName)
	if err := checkCustomExtensionName(name); err != nil {
		return nil, err
	}

	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, customExtensionWriteLockKey)
		if err != nil {
			return nil, fmt.Errorf("custom extensions: acquire write lock: %w", err)
		}
		defer unlock()
	}

	entry := domain.CustomExtension{Name: name}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := lockCustomExtensionWrites(tx); err != nil {
			return err
		}

		exists, err := nameExists(tx, &domain.CustomExtension{}, name)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
		}

		fixed, err := nameExists(tx, &domain.FixedExtension{}, name)
		if err != nil {
			return err
		}
		if fixed {
			return fmt.Errorf("%w: %s", ErrConflictsWithFixed, name)
		}

		var count int64
		if err := tx.Model(&domain.CustomExtension{}).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(r.capacity) {
			return fmt.Errorf("%w: at most %d custom extensions are allowed", ErrCapacityExceeded, r.capacity)
		}

		if err := tx.Create(&entry).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
			}
			return err
		}

		// Rolls back an insert that raced a writer the locks above did not cover.
		if err := tx.Model(&domain.CustomExtension{}).Count(&count).Error; err != nil {
			return err
		}
		if count > int64(r.capacity) {
			return fmt.Errorf("%w: at most %d custom extensions are allowed", ErrCapacityExceeded, r.capacity)
		}
		return nil
	})
	if err != nil {
		if IsClientError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("custom extensions: add %q: %w", name, err)
	}

	return &entry, nil
}

// Delete removes a custom extension. Deleting an absent name fails with ErrNotFound.
func (r *CustomExtensionRegistry) Delete(ctx context.Context, rawName string) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}

	name := domain.NormalizeExtensionName(rawName)
	res := db.Where("name = ?", name).Delete(&domain.CustomExtension{})
	if res.Error != nil {
		return fmt.Errorf("custom extensions: delete %q: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// lockCustomExtensionWrites serialises Add transactions across every process
// sharing a postgres database. The lock is released on commit or rollback.
// sqlite already admits a single writer per database file.
func lockCustomExtensionWrites(tx *gorm.DB) error {
	if tx.Dialector.Name() != DriverPostgres {
		return nil
	}
	if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", customExtensionAdvisoryLockID).Error; err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}
	return nil
}

func checkCustomExtensionName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidFormat)
	case utf8.RuneCountInString(name) > domain.MaxExtensionNameLength:
		return fmt.Errorf("%w: at most %d characters", ErrTooLong, domain.MaxExtensionNameLength)
	case !domain.HasExtensionCharset(name):
		return fmt.Errorf("%w: %s", ErrInvalidFormat, name)
	}
	return nil
}

func nameExists(tx *gorm.DB, model any, name string) (bool, error) {
	var count int64
	if err := tx.Model(model).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
