package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle passed through repository calls.
// Concrete repositories type-assert it to their driver's transaction.
type Tx any

// TransactionManager runs a function inside one storage transaction,
// committing on nil and rolling back on error.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
