package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finloop/loan-management/internal/config"
	"github.com/finloop/loan-management/internal/domain"
	"github.com/finloop/loan-management/internal/repository"
	apperrors "github.com/finloop/loan-management/pkg/errors"
	"github.com/finloop/loan-management/tests/mocks"
)

func testConfig() *config.Config {
	return &config.Config{
		Business: config.BusinessConfig{
			MinPrincipal:    "1000",
			MaxPrincipal:    "100000",
			MinTenureMonths: 3,
			MaxTenureMonths: 24,
		},
	}
}

func newLoanService(loans *mocks.MockLoanRepository) *LoanService {
	uow := &mocks.MockUnitOfWork{Repos: repository.Repos{Loans: loans}}
	return NewLoanService(loans, uow, testConfig(), zap.NewNop())
}

func TestCreateLoan_Success(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	service := newLoanService(mockLoanRepo)

	mockLoanRepo.On("NextLoanID", mock.Anything).Return("LOAN001", nil)
	mockLoanRepo.On("Create", mock.Anything, mock.MatchedBy(func(loan *domain.Loan) bool {
		return loan.LoanID == "LOAN001" && loan.Status == domain.LoanStatusActive
	})).Return(nil)
	mockLoanRepo.On("CreateInstallments", mock.Anything, mock.MatchedBy(func(installments []*domain.Installment) bool {
		return len(installments) == 12
	})).Return(nil)

	userID := uuid.New()
	result, err := service.CreateLoan(context.Background(), userID, &domain.CreateLoanRequest{
		Principal:    decimal.NewFromInt(12000),
		TenureMonths: 12,
		InterestRate: decimal.NewFromInt(10),
	})

	require.NoError(t, err)
	assert.Equal(t, "LOAN001", result.Loan.LoanID)
	assert.Equal(t, userID, result.Loan.UserID)
	assert.True(t, result.Loan.MonthlyInstallment.Equal(decimal.RequireFromString("1054.99")))
	assert.True(t, result.Loan.TotalAmount.Equal(decimal.RequireFromString("12659.89")))
	assert.True(t, result.Loan.TotalInterest.Equal(decimal.RequireFromString("659.89")))
	assert.True(t, result.Loan.AmountPaid.IsZero())
	assert.True(t, result.Loan.AmountRemaining.Equal(result.Loan.TotalAmount.Decimal))
	require.Len(t, result.Schedule, 12)

	for i, inst := range result.Schedule {
		assert.Equal(t, i+1, inst.InstallmentNo)
		assert.True(t, inst.Amount.Equal(result.Loan.MonthlyInstallment.Decimal))
	}

	mockLoanRepo.AssertExpectations(t)
}

func TestCreateLoan_Validation(t *testing.T) {
	tests := []struct {
		name        string
		principal   decimal.Decimal
		tenure      int
		rate        decimal.Decimal
		msgContains string
	}{
		{
			name:        "principal below minimum",
			principal:   decimal.NewFromInt(500),
			tenure:      12,
			rate:        decimal.NewFromInt(10),
			msgContains: "Amount must be between",
		},
		{
			name:        "principal above maximum",
			principal:   decimal.NewFromInt(100001),
			tenure:      12,
			rate:        decimal.NewFromInt(10),
			msgContains: "Amount must be between",
		},
		{
			name:        "tenure too short",
			principal:   decimal.NewFromInt(5000),
			tenure:      2,
			rate:        decimal.NewFromInt(10),
			msgContains: "Tenure must be between",
		},
		{
			name:        "tenure too long",
			principal:   decimal.NewFromInt(5000),
			tenure:      25,
			rate:        decimal.NewFromInt(10),
			msgContains: "Tenure must be between",
		},
		{
			name:        "negative rate",
			principal:   decimal.NewFromInt(5000),
			tenure:      12,
			rate:        decimal.NewFromInt(-1),
			msgContains: "Interest rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No repository expectations: nothing may be persisted on a
			// validation failure.
			mockLoanRepo := &mocks.MockLoanRepository{}
			service := newLoanService(mockLoanRepo)

			result, err := service.CreateLoan(context.Background(), uuid.New(), &domain.CreateLoanRequest{
				Principal:    tt.principal,
				TenureMonths: tt.tenure,
				InterestRate: tt.rate,
			})

			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
			assert.Contains(t, err.Error(), tt.msgContains)
			mockLoanRepo.AssertExpectations(t)
		})
	}
}

func TestCreateLoan_StorageFailureIsFatal(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	service := newLoanService(mockLoanRepo)

	mockLoanRepo.On("NextLoanID", mock.Anything).Return("LOAN002", nil)
	mockLoanRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	mockLoanRepo.On("CreateInstallments", mock.Anything, mock.Anything).
		Return(errors.New("connection reset"))

	result, err := service.CreateLoan(context.Background(), uuid.New(), &domain.CreateLoanRequest{
		Principal:    decimal.NewFromInt(5000),
		TenureMonths: 5,
		InterestRate: decimal.Zero,
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, apperrors.KindStorage, apperrors.KindOf(err))
}

func TestForeclose_Success(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	service := newLoanService(mockLoanRepo)

	userID := uuid.New()
	loan := &domain.Loan{
		ID:              uuid.New(),
		LoanID:          "LOAN001",
		UserID:          userID,
		TotalInterest:   domain.NewMoney(decimal.RequireFromString("648.60")),
		TotalAmount:     domain.NewMoney(decimal.RequireFromString("12648.60")),
		AmountPaid:      domain.NewMoney(decimal.Zero),
		AmountRemaining: domain.NewMoney(decimal.RequireFromString("12648.60")),
		Status:          domain.LoanStatusActive,
	}

	mockLoanRepo.On("GetByLoanIDAndUserForUpdate", mock.Anything, "LOAN001", userID).Return(loan, nil)
	mockLoanRepo.On("Update", mock.Anything, mock.MatchedBy(func(l *domain.Loan) bool {
		return l.Status == domain.LoanStatusClosed &&
			l.AmountRemaining.IsZero() &&
			l.AmountPaid.Equal(l.TotalAmount.Decimal)
	})).Return(nil)

	result, err := service.Foreclose(context.Background(), "LOAN001", userID)

	require.NoError(t, err)
	assert.Equal(t, "LOAN001", result.LoanID)
	assert.Equal(t, domain.LoanStatusClosed, result.Status)
	assert.True(t, result.AmountPaid.Equal(decimal.RequireFromString("12648.60")))
	assert.True(t, result.ForeclosureDiscount.Equal(decimal.RequireFromString("32.43")))
	assert.True(t, result.FinalSettlementAmount.Equal(decimal.RequireFromString("12616.17")))

	mockLoanRepo.AssertExpectations(t)
}

func TestForeclose_AlreadyClosed(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	service := newLoanService(mockLoanRepo)

	userID := uuid.New()
	loan := &domain.Loan{
		LoanID:          "LOAN001",
		UserID:          userID,
		TotalAmount:     domain.NewMoney(decimal.RequireFromString("12648.60")),
		AmountPaid:      domain.NewMoney(decimal.RequireFromString("12648.60")),
		AmountRemaining: domain.NewMoney(decimal.Zero),
		Status:          domain.LoanStatusClosed,
	}

	// Update must never fire: a closed loan is terminal.
	mockLoanRepo.On("GetByLoanIDAndUserForUpdate", mock.Anything, "LOAN001", userID).Return(loan, nil)

	result, err := service.Foreclose(context.Background(), "LOAN001", userID)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrLoanAlreadyClosed)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
	mockLoanRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestForeclose_NotFound(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	service := newLoanService(mockLoanRepo)

	userID := uuid.New()
	mockLoanRepo.On("GetByLoanIDAndUserForUpdate", mock.Anything, "LOAN999", userID).
		Return(nil, sql.ErrNoRows)

	result, err := service.Foreclose(context.Background(), "LOAN999", userID)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrLoanNotFound)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestListLoans(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	service := newLoanService(mockLoanRepo)

	userID := uuid.New()
	loans := []*domain.Loan{
		{LoanID: "LOAN001", UserID: userID},
		{LoanID: "LOAN002", UserID: userID},
	}
	mockLoanRepo.On("ListByUser", mock.Anything, userID).Return(loans, nil)

	result, err := service.ListLoans(context.Background(), userID)

	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestGetSchedule_NotFound(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	service := newLoanService(mockLoanRepo)

	userID := uuid.New()
	mockLoanRepo.On("GetByLoanIDAndUser", mock.Anything, "LOAN404", userID).
		Return(nil, sql.ErrNoRows)

	result, err := service.GetSchedule(context.Background(), "LOAN404", userID)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestDeleteLoan(t *testing.T) {
	t.Run("deletes existing loan", func(t *testing.T) {
		mockLoanRepo := &mocks.MockLoanRepository{}
		service := newLoanService(mockLoanRepo)

		mockLoanRepo.On("Delete", mock.Anything, "LOAN001").Return(true, nil)

		assert.NoError(t, service.DeleteLoan(context.Background(), "LOAN001"))
	})

	t.Run("missing loan is not found", func(t *testing.T) {
		mockLoanRepo := &mocks.MockLoanRepository{}
		service := newLoanService(mockLoanRepo)

		mockLoanRepo.On("Delete", mock.Anything, "LOAN999").Return(false, nil)

		err := service.DeleteLoan(context.Background(), "LOAN999")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	})
}
