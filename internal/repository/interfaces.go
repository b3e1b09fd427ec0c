package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/finloop/loan-management/internal/domain"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// NextLoanID allocates the next human-readable loan identifier from the
	// storage sequence.
	NextLoanID(ctx context.Context) (string, error)

	// Create inserts a new loan row
	Create(ctx context.Context, loan *domain.Loan) error

	// CreateInstallments inserts the full payment schedule of a loan
	CreateInstallments(ctx context.Context, installments []*domain.Installment) error

	// GetByLoanID retrieves a loan by its loan ID, irrespective of owner
	GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error)

	// GetByLoanIDAndUser retrieves a loan scoped to its owner
	GetByLoanIDAndUser(ctx context.Context, loanID string, userID uuid.UUID) (*domain.Loan, error)

	// GetByLoanIDAndUserForUpdate retrieves an owner-scoped loan with a row
	// lock; only meaningful inside a transaction
	GetByLoanIDAndUserForUpdate(ctx context.Context, loanID string, userID uuid.UUID) (*domain.Loan, error)

	// Update persists mutated loan amounts and status
	Update(ctx context.Context, loan *domain.Loan) error

	// ListByUser returns all loans owned by a user
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Loan, error)

	// ListAll returns every loan
	ListAll(ctx context.Context) ([]*domain.Loan, error)

	// ListAllWithOwners returns every loan joined with its owner
	ListAllWithOwners(ctx context.Context) ([]*domain.LoanWithOwner, error)

	// GetInstallments returns a loan's schedule ordered by installment number
	GetInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error)

	// Delete removes a loan; installments cascade. Reports whether a row
	// was actually deleted.
	Delete(ctx context.Context, loanID string) (bool, error)

	// ListReminders returns upcoming installments on active loans with the
	// owner's email, for the reminder scheduler
	ListReminders(ctx context.Context, from, to time.Time) ([]*domain.InstallmentReminder, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
}

// OTPStore holds short-lived single-use verification codes.
type OTPStore interface {
	// Put stores the code for an email address with an expiry
	Put(ctx context.Context, email, code string, ttl time.Duration) error

	// Consume atomically fetches and deletes the code. Returns
	// apperrors.ErrInvalidOTP when no live code exists.
	Consume(ctx context.Context, email string) (string, error)
}

// Repos bundles the transaction-scoped repositories handed to a unit of
// work callback.
type Repos struct {
	Loans LoanRepository
	Users UserRepository
}

// UnitOfWork runs a function within one storage transaction; the callback's
// error rolls everything back, otherwise the transaction commits.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
