package repository

import (
	"context"

	domainRepo "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type txKey struct{}

// conn returns the transaction carried by ctx, or db when there is none.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

type transactor struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTransactor creates a Transactor backed by gorm transactions
func NewTransactor(db *gorm.DB, logger *zap.Logger) domainRepo.Transactor {
	return &transactor{db: db, logger: logger}
}

// WithinTransaction commits when fn returns nil and rolls back otherwise.
// Calling it with a ctx that already carries a transaction opens a savepoint.
func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return conn(ctx, t.db).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}
