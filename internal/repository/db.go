package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn picks the transaction when one is in flight, the pool otherwise.
func conn(db *sql.DB, tx *sql.Tx) dbtx {
	if tx != nil {
		return tx
	}
	return db
}

// Transactor runs a function inside a single database transaction. The
// transaction is rolled back when fn returns an error or panics.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type transactor struct {
	db *sql.DB
}

func NewTransactor(db *sql.DB) Transactor {
	return &transactor{db: db}
}

func (t *transactor) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		log.Error().Err(err).Msg("begin transaction")
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		log.Error().Err(err).Msg("commit transaction")
		return err
	}
	return nil
}
