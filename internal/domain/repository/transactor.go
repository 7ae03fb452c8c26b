package repository

import "context"

// Transactor runs fn in a database transaction carried by ctx. Repository
// calls made with that ctx join the transaction; nested calls use savepoints.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
