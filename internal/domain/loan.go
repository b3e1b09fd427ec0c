package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusActive = "ACTIVE"
	LoanStatusClosed = "CLOSED"
)

// Loan represents a loan record with its derived amortization totals.
// MonthlyInstallment, TotalInterest and TotalAmount are computed once at
// creation and never change; AmountPaid/AmountRemaining move only on
// foreclosure.
type Loan struct {
	ID                 uuid.UUID       `json:"-" db:"id"`
	LoanID             string          `json:"loan_id" db:"loan_id"`
	UserID             uuid.UUID       `json:"-" db:"user_id"`
	Principal          Money           `json:"principal" db:"principal"`
	TenureMonths       int             `json:"tenure_months" db:"tenure_months"`
	InterestRate       decimal.Decimal `json:"annual_interest_rate" db:"interest_rate"`
	MonthlyInstallment Money           `json:"monthly_installment" db:"monthly_installment"`
	TotalInterest      Money           `json:"total_interest" db:"total_interest"`
	TotalAmount        Money           `json:"total_amount" db:"total_amount"`
	AmountPaid         Money           `json:"amount_paid" db:"amount_paid"`
	AmountRemaining    Money           `json:"amount_remaining" db:"amount_remaining"`
	Status             string          `json:"status" db:"status"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
}

// Installment is one entry of a loan's payment schedule. Installments are
// written together with their loan and are immutable afterwards; they only
// disappear when the loan is deleted.
type Installment struct {
	ID            uuid.UUID       `json:"-" db:"id"`
	LoanID        uuid.UUID       `json:"-" db:"loan_id"`
	InstallmentNo int       `json:"installment_no" db:"installment_no"`
	DueDate       time.Time `json:"due_date" db:"due_date"`
	Amount        Money     `json:"amount" db:"amount"`
	CreatedAt     time.Time `json:"-" db:"created_at"`
}

// LoanOwner is the owner detail attached to admin views.
type LoanOwner struct {
	ID       uuid.UUID `json:"id" db:"owner_id"`
	Username string    `json:"name" db:"owner_username"`
	Email    string    `json:"email" db:"owner_email"`
}

// LoanWithOwner joins a loan with its owner for the admin listing.
type LoanWithOwner struct {
	Loan
	Owner LoanOwner `json:"user"`
}

// InstallmentReminder is the scheduler's read model: an upcoming installment
// joined with the loan and its owner's contact address.
type InstallmentReminder struct {
	LoanID        string          `db:"loan_id"`
	InstallmentNo int             `db:"installment_no"`
	DueDate       time.Time       `db:"due_date"`
	Amount        decimal.Decimal `db:"amount"`
	OwnerUsername string          `db:"owner_username"`
	OwnerEmail    string          `db:"owner_email"`
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	Principal    decimal.Decimal `json:"principal" validate:"required"`
	TenureMonths int             `json:"tenure_months" validate:"required"`
	InterestRate decimal.Decimal `json:"annual_interest_rate"`
}

type CreateLoanResponse struct {
	Loan     *Loan          `json:"loan"`
	Schedule []*Installment `json:"payment_schedule"`
}

type ScheduleResponse struct {
	LoanID   string         `json:"loan_id"`
	Schedule []*Installment `json:"payment_schedule"`
}

type LoanListResponse struct {
	Loans []*Loan `json:"loans"`
}

type AdminLoanListResponse struct {
	Loans []*LoanWithOwner `json:"loans"`
}

// ForeclosureResult reports the settlement figures of a foreclosure. The
// discount and settlement amount are reported only; the stored loan always
// reads as paid in full.
type ForeclosureResult struct {
	LoanID                string `json:"loan_id"`
	AmountPaid            Money  `json:"amount_paid"`
	ForeclosureDiscount   Money  `json:"foreclosure_discount"`
	FinalSettlementAmount Money  `json:"final_settlement_amount"`
	Status                string `json:"status"`
}
