package bootstrap

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"extfilter/internal/domain"
)

// FixedSeeder is the part of the fixed registry the initializer depends on.
type FixedSeeder interface {
	Seed(ctx context.Context, names []string) (int, error)
}

// Setup seeds the fixed extension registry. It must finish before the API
// starts serving and is safe to run on every start.
func Setup(ctx context.Context, fixed FixedSeeder) error {
	created, err := fixed.Seed(ctx, domain.DefaultFixedExtensions)
	if err != nil {
		return fmt.Errorf("bootstrap: seed fixed extensions: %w", err)
	}

	if created > 0 {
		log.Info("Seeded fixed extensions", "created", created, "total", len(domain.DefaultFixedExtensions))
	} else {
		log.Debug("Fixed extensions already seeded")
	}
	return nil
}
