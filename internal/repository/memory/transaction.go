package memory

import (
	"context"

	"doctree/internal/domain/repositories"
)

// TxManager is the memory-mode TransactionManager. The Store's single
// mutex already makes each repository call atomic, so the manager just
// runs the function; there is nothing to roll back.
type TxManager struct{}

// NewTxManager constructs a pass-through transaction manager.
func NewTxManager() repositories.TransactionManager {
	return &TxManager{}
}

// ExecTx runs fn directly.
func (TxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}
