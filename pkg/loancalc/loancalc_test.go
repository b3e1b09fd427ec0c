package loancalc

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name             string
		principal        decimal.Decimal
		tenureMonths     int
		annualRate       decimal.Decimal
		expectedEMI      string
		expectedInterest string
		expectedTotal    string
	}{
		{
			name:             "standard loan",
			principal:        decimal.NewFromInt(12000),
			tenureMonths:     12,
			annualRate:       decimal.NewFromInt(10),
			expectedEMI:      "1054.99",
			expectedInterest: "659.89",
			expectedTotal:    "12659.89",
		},
		{
			name:             "zero interest splits evenly",
			principal:        decimal.NewFromInt(5000),
			tenureMonths:     5,
			annualRate:       decimal.Zero,
			expectedEMI:      "1000",
			expectedInterest: "0",
			expectedTotal:    "5000",
		},
		{
			name:             "short tenure",
			principal:        decimal.NewFromInt(3000),
			tenureMonths:     3,
			annualRate:       decimal.NewFromInt(12),
			expectedEMI:      "1020.07",
			expectedInterest: "60.2",
			expectedTotal:    "3060.2",
		},
		{
			name:             "single installment",
			principal:        decimal.NewFromInt(1200),
			tenureMonths:     1,
			annualRate:       decimal.NewFromInt(12),
			expectedEMI:      "1212",
			expectedInterest: "12",
			expectedTotal:    "1212",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emi, interest, total, err := Compute(tt.principal, tt.tenureMonths, tt.annualRate)
			require.NoError(t, err)

			assert.True(t, emi.Equal(decimal.RequireFromString(tt.expectedEMI)),
				"emi: expected %s, got %s", tt.expectedEMI, emi)
			assert.True(t, interest.Equal(decimal.RequireFromString(tt.expectedInterest)),
				"interest: expected %s, got %s", tt.expectedInterest, interest)
			assert.True(t, total.Equal(decimal.RequireFromString(tt.expectedTotal)),
				"total: expected %s, got %s", tt.expectedTotal, total)

			// total_interest == total_amount - principal must hold exactly.
			assert.True(t, interest.Equal(total.Sub(tt.principal)))
		})
	}
}

func TestCompute_ZeroInterestExactSplit(t *testing.T) {
	for tenure := 1; tenure <= 24; tenure++ {
		principal := decimal.NewFromInt(24000)
		emi, _, _, err := Compute(principal, tenure, decimal.Zero)
		require.NoError(t, err)

		expected := principal.Div(decimal.NewFromInt(int64(tenure))).Round(2)
		assert.True(t, emi.Equal(expected), "tenure %d: expected %s, got %s", tenure, expected, emi)
	}
}

func TestCompute_InvalidInput(t *testing.T) {
	tests := []struct {
		name         string
		principal    decimal.Decimal
		tenureMonths int
		annualRate   decimal.Decimal
		expectedErr  error
	}{
		{
			name:         "zero tenure",
			principal:    decimal.NewFromInt(1000),
			tenureMonths: 0,
			annualRate:   decimal.NewFromInt(10),
			expectedErr:  ErrInvalidTenure,
		},
		{
			name:         "negative tenure",
			principal:    decimal.NewFromInt(1000),
			tenureMonths: -3,
			annualRate:   decimal.NewFromInt(10),
			expectedErr:  ErrInvalidTenure,
		},
		{
			name:         "zero principal",
			principal:    decimal.Zero,
			tenureMonths: 12,
			annualRate:   decimal.NewFromInt(10),
			expectedErr:  ErrInvalidPrincipal,
		},
		{
			name:         "negative rate",
			principal:    decimal.NewFromInt(1000),
			tenureMonths: 12,
			annualRate:   decimal.NewFromInt(-1),
			expectedErr:  ErrNegativeRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := Compute(tt.principal, tt.tenureMonths, tt.annualRate)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestBuildSchedule(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	emi := decimal.RequireFromString("1054.99")
	loanID := uuid.New()

	schedule := BuildSchedule(loanID, emi, start, 12)

	require.Len(t, schedule, 12)
	for i, inst := range schedule {
		assert.Equal(t, i+1, inst.InstallmentNo)
		assert.Equal(t, loanID, inst.LoanID)
		assert.True(t, inst.Amount.Equal(emi))
		assert.Equal(t, start.AddDate(0, 0, 30*(i+1)), inst.DueDate)
	}

	// Fixed 30-day cadence between consecutive installments.
	for i := 1; i < len(schedule); i++ {
		gap := schedule[i].DueDate.Sub(schedule[i-1].DueDate)
		assert.Equal(t, 30*24*time.Hour, gap)
	}
	assert.Equal(t, start.AddDate(0, 0, 30), schedule[0].DueDate)
}

func TestForeclosureFigures(t *testing.T) {
	tests := []struct {
		name               string
		totalInterest      string
		amountRemaining    string
		expectedDiscount   string
		expectedSettlement string
	}{
		{
			name:               "standard foreclosure",
			totalInterest:      "648.60",
			amountRemaining:    "12648.60",
			expectedDiscount:   "32.43",
			expectedSettlement: "12616.17",
		},
		{
			name:               "zero interest loan",
			totalInterest:      "0",
			amountRemaining:    "5000",
			expectedDiscount:   "0",
			expectedSettlement: "5000",
		},
		{
			name:               "discount exceeds remaining",
			totalInterest:      "1000",
			amountRemaining:    "20",
			expectedDiscount:   "50",
			expectedSettlement: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			discount, settlement := ForeclosureFigures(
				decimal.RequireFromString(tt.totalInterest),
				decimal.RequireFromString(tt.amountRemaining),
			)
			assert.True(t, discount.Equal(decimal.RequireFromString(tt.expectedDiscount)),
				"discount: expected %s, got %s", tt.expectedDiscount, discount)
			assert.True(t, settlement.Equal(decimal.RequireFromString(tt.expectedSettlement)),
				"settlement: expected %s, got %s", tt.expectedSettlement, settlement)
		})
	}
}
