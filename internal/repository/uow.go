package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type sqlUnitOfWork struct {
	db *sqlx.DB
}

// NewUnitOfWork wraps db so service operations can run against
// transaction-bound repositories.
func NewUnitOfWork(db *sqlx.DB) UnitOfWork {
	return &sqlUnitOfWork{db: db}
}

func (u *sqlUnitOfWork) WithinTx(ctx context.Context, fn func(r Repos) error) error {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	r := Repos{
		Loans: NewLoanRepository(tx),
		Users: NewUserRepository(tx),
	}

	if err := fn(r); err != nil {
		return err
	}

	return tx.Commit()
}
