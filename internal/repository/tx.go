package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/observability"
)

type txContextKey struct{}

// Transactor runs a unit of work. Repositories called with the context handed to fn
// share the same transaction; nested calls join the outer one.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type GormTransactor struct{ db *gorm.DB }

func NewTransactor(db *gorm.DB) Transactor {
	return &GormTransactor{db: db}
}

func (t *GormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// conn returns the transaction bound to ctx, or db scoped to ctx.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

func notArchived(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: "archived_at"}, Value: nil},
	}})
}

func recordOp(ctx context.Context, entity, op string, err error) {
	switch {
	case err == nil:
		observability.RecordRepositoryOperation(ctx, entity, op, "success")
	case errors.Is(err, ErrNotFound):
		observability.RecordRepositoryOperation(ctx, entity, op, "not_found")
	default:
		observability.RecordRepositoryOperation(ctx, entity, op, "error")
	}
}

// translate maps driver level errors onto the package sentinels.
func translate(err, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
