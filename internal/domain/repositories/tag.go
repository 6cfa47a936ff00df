package repositories

import (
	"context"

	"doctree/internal/domain/models"
)

// TagRepository maintains the derived tag usage counts. Tag records are
// created implicitly on first use and retained at zero usage.
type TagRepository interface {
	// GetByName retrieves a tag. Fails with domain.ErrNotFound.
	GetByName(ctx context.Context, name string) (*models.Tag, error)

	// IncrementUsage applies a relative delta to a tag's usage count,
	// creating the record if absent and flooring the count at zero. The
	// update is atomic with respect to concurrent increments.
	IncrementUsage(ctx context.Context, name string, delta int) error

	// SetUsage overwrites a tag's usage count (reconciliation only),
	// creating the record if absent.
	SetUsage(ctx context.Context, name string, count int) error

	// List returns all tags, name-ordered.
	List(ctx context.Context) ([]models.Tag, error)
}
