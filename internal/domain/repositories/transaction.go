package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions. The hierarchy engine
// uses it only for single-record-plus-counter steps; subtree walks are
// deliberately not one big transaction (see the walk package).
type TransactionManager interface {
	// ExecTx executes a function within a transaction
	ExecTx(ctx context.Context, fn TxFn) error
}
