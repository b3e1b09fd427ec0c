package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/finloop/loan-management/internal/config"
	"github.com/finloop/loan-management/internal/domain"
	"github.com/finloop/loan-management/internal/repository"
	apperrors "github.com/finloop/loan-management/pkg/errors"
	"github.com/finloop/loan-management/pkg/loancalc"
)

// LoanService is the loan ledger: it owns loan records and their schedules
// and applies every state transition.
type LoanService struct {
	loans  repository.LoanRepository
	uow    repository.UnitOfWork
	config *config.Config
	logger *zap.Logger
}

func NewLoanService(
	loans repository.LoanRepository,
	uow repository.UnitOfWork,
	cfg *config.Config,
	logger *zap.Logger,
) *LoanService {
	return &LoanService{
		loans:  loans,
		uow:    uow,
		config: cfg,
		logger: logger,
	}
}

// CreateLoan validates the request, computes the amortization figures,
// and persists the loan together with its full installment schedule in one
// transaction.
func (s *LoanService) CreateLoan(ctx context.Context, userID uuid.UUID, request *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	if err := s.validateLoanBounds(request); err != nil {
		return nil, err
	}

	emi, totalInterest, totalAmount, err := loancalc.Compute(request.Principal, request.TenureMonths, request.InterestRate)
	if err != nil {
		return nil, apperrors.WrapValidation(err.Error())
	}

	now := time.Now().UTC()
	loan := &domain.Loan{
		ID:                 uuid.New(),
		UserID:             userID,
		Principal:          domain.NewMoney(request.Principal),
		TenureMonths:       request.TenureMonths,
		InterestRate:       request.InterestRate,
		MonthlyInstallment: domain.NewMoney(emi),
		TotalInterest:      domain.NewMoney(totalInterest),
		TotalAmount:        domain.NewMoney(totalAmount),
		AmountPaid:         domain.NewMoney(decimal.Zero),
		AmountRemaining:    domain.NewMoney(totalAmount),
		Status:             domain.LoanStatusActive,
		CreatedAt:          now,
	}

	startDate := now.Truncate(24 * time.Hour)
	schedule := loancalc.BuildSchedule(loan.ID, emi, startDate, request.TenureMonths)

	// Loan-ID allocation, loan insert and schedule insert commit as one
	// unit; a failure leaves nothing behind.
	err = s.uow.WithinTx(ctx, func(r repository.Repos) error {
		loanID, err := r.Loans.NextLoanID(ctx)
		if err != nil {
			return err
		}
		loan.LoanID = loanID

		if err := r.Loans.Create(ctx, loan); err != nil {
			return err
		}
		return r.Loans.CreateInstallments(ctx, schedule)
	})
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	s.logger.Info("loan created",
		zap.String("loan_id", loan.LoanID),
		zap.String("user_id", userID.String()),
		zap.String("emi", emi.String()),
	)

	return &domain.CreateLoanResponse{Loan: loan, Schedule: schedule}, nil
}

// Foreclose settles a loan early. The read-check-write runs under a row
// lock so two concurrent foreclosures of the same loan cannot both apply
// the discount.
func (s *LoanService) Foreclose(ctx context.Context, loanID string, userID uuid.UUID) (*domain.ForeclosureResult, error) {
	var result *domain.ForeclosureResult

	err := s.uow.WithinTx(ctx, func(r repository.Repos) error {
		loan, err := r.Loans.GetByLoanIDAndUserForUpdate(ctx, loanID, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.WrapLoanNotFound(loanID)
			}
			return apperrors.WrapDatabaseError(err)
		}

		if loan.Status == domain.LoanStatusClosed {
			return apperrors.WrapLoanAlreadyClosed(loanID)
		}

		discount, settlement := loancalc.ForeclosureFigures(loan.TotalInterest.Decimal, loan.AmountRemaining.Decimal)

		// The stored totals always read as paid in full; the discount is
		// reported to the caller but not persisted.
		loan.AmountPaid = loan.TotalAmount
		loan.AmountRemaining = domain.NewMoney(decimal.Zero)
		loan.Status = domain.LoanStatusClosed

		if err := r.Loans.Update(ctx, loan); err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		result = &domain.ForeclosureResult{
			LoanID:                loan.LoanID,
			AmountPaid:            loan.TotalAmount,
			ForeclosureDiscount:   domain.NewMoney(discount),
			FinalSettlementAmount: domain.NewMoney(settlement),
			Status:                domain.LoanStatusClosed,
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	s.logger.Info("loan foreclosed",
		zap.String("loan_id", loanID),
		zap.String("settlement", result.FinalSettlementAmount.String()),
	)

	return result, nil
}

// ListLoans returns all loans owned by a user.
func (s *LoanService) ListLoans(ctx context.Context, userID uuid.UUID) ([]*domain.Loan, error) {
	loans, err := s.loans.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return loans, nil
}

// GetSchedule returns a loan's installment schedule, scoped to its owner.
func (s *LoanService) GetSchedule(ctx context.Context, loanID string, userID uuid.UUID) (*domain.ScheduleResponse, error) {
	loan, err := s.loans.GetByLoanIDAndUser(ctx, loanID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapLoanNotFound(loanID)
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	installments, err := s.loans.GetInstallments(ctx, loan.ID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	return &domain.ScheduleResponse{LoanID: loan.LoanID, Schedule: installments}, nil
}

// AdminListLoans returns every loan. Role enforcement happens at the
// transport layer; this operation assumes an admin caller.
func (s *LoanService) AdminListLoans(ctx context.Context) ([]*domain.Loan, error) {
	loans, err := s.loans.ListAll(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return loans, nil
}

// AdminListLoansWithOwners returns every loan joined with its owner's
// identity.
func (s *LoanService) AdminListLoansWithOwners(ctx context.Context) ([]*domain.LoanWithOwner, error) {
	loans, err := s.loans.ListAllWithOwners(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return loans, nil
}

// DeleteLoan removes a loan of any owner; its installments cascade away
// with it.
func (s *LoanService) DeleteLoan(ctx context.Context, loanID string) error {
	deleted, err := s.loans.Delete(ctx, loanID)
	if err != nil {
		return apperrors.WrapDatabaseError(err)
	}
	if !deleted {
		return apperrors.WrapLoanNotFound(loanID)
	}

	s.logger.Info("loan deleted", zap.String("loan_id", loanID))
	return nil
}

func (s *LoanService) validateLoanBounds(request *domain.CreateLoanRequest) error {
	minPrincipal := s.config.Business.MinPrincipalDecimal()
	maxPrincipal := s.config.Business.MaxPrincipalDecimal()
	if request.Principal.LessThan(minPrincipal) || request.Principal.GreaterThan(maxPrincipal) {
		return apperrors.WrapValidation(fmt.Sprintf(
			"Amount must be between %s and %s", minPrincipal.StringFixed(0), maxPrincipal.StringFixed(0)))
	}

	minTenure := s.config.Business.MinTenureMonths
	maxTenure := s.config.Business.MaxTenureMonths
	if request.TenureMonths < minTenure || request.TenureMonths > maxTenure {
		return apperrors.WrapValidation(fmt.Sprintf(
			"Tenure must be between %d and %d months", minTenure, maxTenure))
	}

	if request.InterestRate.IsNegative() {
		return apperrors.WrapValidation("Interest rate must not be negative")
	}

	return nil
}
