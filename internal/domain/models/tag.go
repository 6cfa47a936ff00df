package models

import "strings"

// Tag is a derived entity: its UsageCount tracks how many live documents
// currently reference the tag. Tags are created implicitly on first use and
// never deleted; UsageCount may reach zero.
type Tag struct {
	Name       string `json:"name" db:"name"`
	UsageCount int    `json:"usage_count" db:"usage_count"`
}

// CanonicalTag normalizes a tag to its canonical lowercase key.
func CanonicalTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DiffTags compares two tag sets and returns the tags added and removed,
// in canonical form. Duplicates within a set are counted once.
func DiffTags(old, new []string) (added, removed []string) {
	oldSet := make(map[string]bool, len(old))
	for _, t := range old {
		oldSet[CanonicalTag(t)] = true
	}
	newSet := make(map[string]bool, len(new))
	for _, t := range new {
		newSet[CanonicalTag(t)] = true
	}

	for t := range newSet {
		if !oldSet[t] {
			added = append(added, t)
		}
	}
	for t := range oldSet {
		if !newSet[t] {
			removed = append(removed, t)
		}
	}
	return added, removed
}
