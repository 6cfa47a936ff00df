package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"doctree/internal/domain"
	"doctree/internal/domain/models"
	"doctree/internal/domain/repositories"
)

// PostgresTagRepository implements the TagRepository interface
type PostgresTagRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewTagRepository creates a new tag repository
func NewTagRepository(config *RepositoryConfig) repositories.TagRepository {
	return &PostgresTagRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// GetByName retrieves a tag by its canonical name
func (r *PostgresTagRepository) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	query := fmt.Sprintf(`
		SELECT name, usage_count
		FROM %s
		WHERE name = $1
	`, r.tables.Tags)

	var tag models.Tag
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, models.CanonicalTag(name)).Scan(&tag.Name, &tag.UsageCount)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("tag %s: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}

	return &tag, nil
}

// IncrementUsage applies a relative usage delta, creating the tag record on
// first use and flooring the count at zero. The single upsert statement is
// atomic with respect to concurrent increments on the same tag.
func (r *PostgresTagRepository) IncrementUsage(ctx context.Context, name string, delta int) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, usage_count)
		VALUES ($1, GREATEST(0, $2))
		ON CONFLICT (name)
		DO UPDATE SET usage_count = GREATEST(0, %s.usage_count + $2)
	`, r.tables.Tags, r.tables.Tags)

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query, models.CanonicalTag(name), delta)
	if err != nil {
		return fmt.Errorf("increment tag usage: %w", err)
	}

	return nil
}

// SetUsage overwrites a tag's usage count (reconciliation only)
func (r *PostgresTagRepository) SetUsage(ctx context.Context, name string, count int) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, usage_count)
		VALUES ($1, GREATEST(0, $2))
		ON CONFLICT (name)
		DO UPDATE SET usage_count = GREATEST(0, $2)
	`, r.tables.Tags)

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query, models.CanonicalTag(name), count)
	if err != nil {
		return fmt.Errorf("set tag usage: %w", err)
	}

	return nil
}

// List returns all tags, name-ordered
func (r *PostgresTagRepository) List(ctx context.Context) ([]models.Tag, error) {
	query := fmt.Sprintf(`
		SELECT name, usage_count
		FROM %s
		ORDER BY name ASC
	`, r.tables.Tags)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.Name, &tag.UsageCount); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}

	return tags, nil
}
