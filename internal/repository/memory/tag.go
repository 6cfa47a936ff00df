package memory

import (
	"context"
	"fmt"
	"sort"

	"doctree/internal/domain"
	"doctree/internal/domain/models"
)

// TagStore implements repositories.TagRepository over a Store.
type TagStore struct {
	s *Store
}

// GetByName retrieves a tag by its canonical name
func (r *TagStore) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tags[models.CanonicalTag(name)]
	if !ok {
		return nil, fmt.Errorf("tag %s: %w", name, domain.ErrNotFound)
	}
	c := *t
	return &c, nil
}

// IncrementUsage applies a relative usage delta under the write lock,
// creating the record on first use and flooring the count at zero.
func (r *TagStore) IncrementUsage(ctx context.Context, name string, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := models.CanonicalTag(name)
	t, ok := r.s.tags[key]
	if !ok {
		t = &models.Tag{Name: key}
		r.s.tags[key] = t
	}
	t.UsageCount += delta
	if t.UsageCount < 0 {
		t.UsageCount = 0
	}
	return nil
}

// SetUsage overwrites a tag's usage count (reconciliation only)
func (r *TagStore) SetUsage(ctx context.Context, name string, count int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := models.CanonicalTag(name)
	t, ok := r.s.tags[key]
	if !ok {
		t = &models.Tag{Name: key}
		r.s.tags[key] = t
	}
	if count < 0 {
		count = 0
	}
	t.UsageCount = count
	return nil
}

// List returns all tags, name-ordered
func (r *TagStore) List(ctx context.Context) ([]models.Tag, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tags := make([]models.Tag, 0, len(r.s.tags))
	for _, t := range r.s.tags {
		tags = append(tags, *t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}
