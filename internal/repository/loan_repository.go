package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/finloop/loan-management/internal/domain"
)

type loanRepository struct {
	db sqlx.ExtContext
}

// NewLoanRepository returns a LoanRepository bound to db, which may be a
// *sqlx.DB or a *sqlx.Tx.
func NewLoanRepository(db sqlx.ExtContext) LoanRepository {
	return &loanRepository{db: db}
}

const loanColumns = `id, loan_id, user_id, principal, tenure_months, interest_rate,
	monthly_installment, total_interest, total_amount, amount_paid, amount_remaining,
	status, created_at`

func (r *loanRepository) NextLoanID(ctx context.Context) (string, error) {
	var seq int64
	if err := sqlx.GetContext(ctx, r.db, &seq, `SELECT nextval('loan_seq')`); err != nil {
		return "", err
	}
	return fmt.Sprintf("LOAN%03d", seq), nil
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (id, loan_id, user_id, principal, tenure_months, interest_rate,
			monthly_installment, total_interest, total_amount, amount_paid, amount_remaining,
			status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.LoanID,
		loan.UserID,
		loan.Principal,
		loan.TenureMonths,
		loan.InterestRate,
		loan.MonthlyInstallment,
		loan.TotalInterest,
		loan.TotalAmount,
		loan.AmountPaid,
		loan.AmountRemaining,
		loan.Status,
		loan.CreatedAt,
	)

	return err
}

func (r *loanRepository) CreateInstallments(ctx context.Context, installments []*domain.Installment) error {
	query := `
		INSERT INTO installments (id, loan_id, installment_no, due_date, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, inst := range installments {
		_, err := r.db.ExecContext(ctx, query,
			inst.ID,
			inst.LoanID,
			inst.InstallmentNo,
			inst.DueDate,
			inst.Amount,
			time.Now(),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *loanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE loan_id = $1`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.db, &loan, query, loanID); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) GetByLoanIDAndUser(ctx context.Context, loanID string, userID uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE loan_id = $1 AND user_id = $2`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.db, &loan, query, loanID, userID); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) GetByLoanIDAndUserForUpdate(ctx context.Context, loanID string, userID uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE loan_id = $1 AND user_id = $2 FOR UPDATE`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.db, &loan, query, loanID, userID); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET amount_paid = $2, amount_remaining = $3, status = $4
		WHERE loan_id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.LoanID,
		loan.AmountPaid,
		loan.AmountRemaining,
		loan.Status,
	)

	return err
}

func (r *loanRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE user_id = $1 ORDER BY created_at`

	var loans []*domain.Loan
	if err := sqlx.SelectContext(ctx, r.db, &loans, query, userID); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) ListAll(ctx context.Context) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans ORDER BY created_at`

	var loans []*domain.Loan
	if err := sqlx.SelectContext(ctx, r.db, &loans, query); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) ListAllWithOwners(ctx context.Context) ([]*domain.LoanWithOwner, error) {
	query := `
		SELECT l.id, l.loan_id, l.user_id, l.principal, l.tenure_months, l.interest_rate,
			l.monthly_installment, l.total_interest, l.total_amount, l.amount_paid,
			l.amount_remaining, l.status, l.created_at,
			u.id AS owner_id, u.username AS owner_username, u.email AS owner_email
		FROM loans l
		JOIN users u ON u.id = l.user_id
		ORDER BY l.created_at
	`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []*domain.LoanWithOwner
	for rows.Next() {
		var row struct {
			domain.Loan
			domain.LoanOwner
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		loans = append(loans, &domain.LoanWithOwner{Loan: row.Loan, Owner: row.LoanOwner})
	}

	return loans, rows.Err()
}

func (r *loanRepository) GetInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	query := `
		SELECT id, loan_id, installment_no, due_date, amount, created_at
		FROM installments
		WHERE loan_id = $1
		ORDER BY installment_no
	`

	var installments []*domain.Installment
	if err := sqlx.SelectContext(ctx, r.db, &installments, query, loanID); err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *loanRepository) Delete(ctx context.Context, loanID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM loans WHERE loan_id = $1`, loanID)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *loanRepository) ListReminders(ctx context.Context, from, to time.Time) ([]*domain.InstallmentReminder, error) {
	query := `
		SELECT l.loan_id, i.installment_no, i.due_date, i.amount,
			u.username AS owner_username, u.email AS owner_email
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		JOIN users u ON u.id = l.user_id
		WHERE l.status = $1 AND i.due_date >= $2 AND i.due_date < $3
		ORDER BY i.due_date, l.loan_id
	`

	var reminders []*domain.InstallmentReminder
	if err := sqlx.SelectContext(ctx, r.db, &reminders, query, domain.LoanStatusActive, from, to); err != nil {
		return nil, err
	}

	return reminders, nil
}
