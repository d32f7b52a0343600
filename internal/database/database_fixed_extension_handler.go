package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"extfilter/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FixedExtensionRegistry stores the closed set of seeded extensions. Rows are
// only ever created by Seed; afterwards just the block flag moves.
type FixedExtensionRegistry struct {
	db *gorm.DB
}

func NewFixedExtensionRegistry(db *gorm.DB) *FixedExtensionRegistry {
	return &FixedExtensionRegistry{db: db}
}

func (r *FixedExtensionRegistry) conn(ctx context.Context) (*gorm.DB, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("fixed extensions: database connection was not initialised")
	}
	if ctx != nil {
		return r.db.WithContext(ctx), nil
	}
	return r.db, nil
}

// Seed inserts every name that is not stored yet with IsBlocked=false and
// returns how many rows were created. Existing rows are left alone, so an
// operator's block flag survives restarts.
func (r *FixedExtensionRegistry) Seed(ctx context.Context, names []string) (int, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}

	unique := make(map[string]struct{}, len(names))
	records := make([]domain.FixedExtension, 0, len(names))
	for _, raw := range names {
		name := domain.NormalizeExtensionName(raw)
		if !domain.IsValidExtensionName(name) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
		}
		if _, dup := unique[name]; dup {
			continue
		}
		unique[name] = struct{}{}
		records = append(records, domain.FixedExtension{Name: name, IsBlocked: false})
	}

	if len(records) == 0 {
		return 0, nil
	}

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&records)
	if res.Error != nil {
		return 0, fmt.Errorf("fixed extensions: seed: %w", res.Error)
	}

	return int(res.RowsAffected), nil
}

// List returns every fixed extension ordered by insertion.
func (r *FixedExtensionRegistry) List(ctx context.Context) ([]domain.FixedExtension, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var rows []domain.FixedExtension
	if err := db.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fixed extensions: list: %w", err)
	}
	return rows, nil
}

func (r *FixedExtensionRegistry) Get(ctx context.Context, name string) (*domain.FixedExtension, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	return findFixedExtension(db, domain.NormalizeExtensionName(name))
}

// Lookup reports whether name is a fixed extension and, if so, whether it is
// blocked. name is matched as given, without normalisation.
func (r *FixedExtensionRegistry) Lookup(ctx context.Context, name string) (blocked bool, found bool, err error) {
	db, err := r.conn(ctx)
	if err != nil {
		return false, false, err
	}

	entry, err := findFixedExtension(db, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, false, nil
		}
		return false, false, err
	}
	return entry.IsBlocked, true, nil
}

// SetBlocked flips the block flag of an existing entry. It never creates rows.
func (r *FixedExtensionRegistry) SetBlocked(ctx context.Context, name string, isBlocked bool) (*domain.FixedExtension, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	name = domain.NormalizeExtensionName(name)

	var updated *domain.FixedExtension
	err = db.Transaction(func(tx *gorm.DB) error {
		var entity domain.FixedExtension
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", name).
			First(&entity).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, name)
			}
			return err
		}

		if err := tx.Model(&domain.FixedExtension{}).
			Where("id = ?", entity.ID).
			Updates(map[string]any{
				"is_blocked": isBlocked,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}

		reloaded, err := findFixedExtension(tx, name)
		if err != nil {
			return err
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		if IsClientError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("fixed extensions: set blocked %q: %w", name, err)
	}

	return updated, nil
}

func findFixedExtension(tx *gorm.DB, name string) (*domain.FixedExtension, error) {
	var entity domain.FixedExtension
	if err := tx.Where("name = ?", name).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("fixed extensions: find %q: %w", name, err)
	}
	return &entity, nil
}
