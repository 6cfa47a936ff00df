// Package pathcodec computes and validates materialized folder paths.
// It is pure and stateless: every derived path/depth value in the system
// comes from these functions, so a subtree rewrite re-running after a crash
// converges to the same values as a clean run.
package pathcodec

import (
	"fmt"
	"strings"
	"unicode"

	"doctree/internal/config"
	"doctree/internal/domain"
)

// Separator joins path segments. Names may not contain it.
const Separator = "/"

// RootPath is the materialized path of the root folder.
const RootPath = "/"

// ValidateName checks a folder or document name against the length and
// charset rules. Returns domain.ErrInvalidName on violation.
func ValidateName(name string) error {
	if len(name) < 1 || len(name) > config.MaxNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", domain.ErrInvalidName, config.MaxNameLength)
	}
	if strings.Contains(name, Separator) {
		return fmt.Errorf("%w: name cannot contain %q", domain.ErrInvalidName, Separator)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: name cannot contain control characters", domain.ErrInvalidName)
		}
	}
	return nil
}

// ComputePath derives a child's materialized path from its parent's path.
// The parent path must itself be well-formed (start with the separator).
func ComputePath(parentPath, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if parentPath == RootPath {
		return RootPath + name, nil
	}
	return parentPath + Separator + name, nil
}

// ComputeDepth derives a child's depth from its parent's depth, enforcing
// the tree depth bound. Returns domain.ErrDepthExceeded past the bound.
func ComputeDepth(parentDepth int) (int, error) {
	depth := parentDepth + 1
	if depth > config.MaxFolderDepth {
		return 0, fmt.Errorf("%w: depth %d exceeds maximum %d", domain.ErrDepthExceeded, depth, config.MaxFolderDepth)
	}
	return depth, nil
}

// SubtreePrefix returns the prefix that matches every strict descendant of
// a folder with the given path. Used for materialized-path range queries.
func SubtreePrefix(path string) string {
	if path == RootPath {
		return RootPath
	}
	return path + Separator
}
