package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque query-execution context handed to repository methods.
// Concrete implementations accept pgx.Tx, *pgxpool.Conn, *pgxpool.Pool or nil.
type Tx = any

// NoTX signals "run against the pool directly".
var NoTX Tx = nil

// TransactionManager runs fn inside one database transaction. The tx handle
// is passed to repository calls through their qx argument.
type TransactionManager interface {
	WithTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
