// Package loancalc holds the pure amortization math: EMI calculation and
// payment schedule generation. Nothing here touches storage or clocks.
package loancalc

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finloop/loan-management/internal/domain"
)

var (
	ErrInvalidPrincipal = errors.New("principal must be greater than zero")
	ErrInvalidTenure    = errors.New("tenure must be at least one month")
	ErrNegativeRate     = errors.New("interest rate must not be negative")
)

// Installment due dates run on a fixed 30-day cadence from the loan start
// date, not calendar months.
const dueDateCadenceDays = 30

var (
	one          = decimal.NewFromInt(1)
	rateDivisor  = decimal.NewFromInt(1200)
	discountRate = decimal.NewFromFloat(0.05)
)

// Compute calculates the fixed monthly installment (EMI) plus total interest
// and total repayable amount for a loan.
//
//	monthlyRate = annualRatePercent / 1200
//	emi         = P * r * (1+r)^n / ((1+r)^n - 1)   (r > 0)
//	emi         = P / n                             (r == 0)
//
// Rounding to 2 decimal places happens only on the three outputs; all
// intermediate values keep full precision so rounding error does not
// compound.
func Compute(principal decimal.Decimal, tenureMonths int, annualRatePercent decimal.Decimal) (emi, totalInterest, totalAmount decimal.Decimal, err error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero, decimal.Zero, ErrInvalidPrincipal
	}
	if tenureMonths < 1 {
		return decimal.Zero, decimal.Zero, decimal.Zero, ErrInvalidTenure
	}
	if annualRatePercent.IsNegative() {
		return decimal.Zero, decimal.Zero, decimal.Zero, ErrNegativeRate
	}

	months := decimal.NewFromInt(int64(tenureMonths))
	monthlyRate := annualRatePercent.Div(rateDivisor)

	var rawEMI decimal.Decimal
	if monthlyRate.IsZero() {
		// Zero-interest: straight-line split.
		rawEMI = principal.Div(months)
	} else {
		factor := one.Add(monthlyRate).Pow(months)
		rawEMI = principal.Mul(monthlyRate).Mul(factor).Div(factor.Sub(one))
	}

	rawTotal := rawEMI.Mul(months)
	rawInterest := rawTotal.Sub(principal)

	return rawEMI.Round(2), rawInterest.Round(2), rawTotal.Round(2), nil
}

// DueDate returns the due date of installment n counted from the loan start
// date.
func DueDate(startDate time.Time, installmentNo int) time.Time {
	return startDate.AddDate(0, 0, dueDateCadenceDays*installmentNo)
}

// BuildSchedule materializes the full installment schedule for a loan:
// exactly tenureMonths entries numbered from 1, each for the flat EMI
// amount, due every 30 days after startDate.
func BuildSchedule(loanID uuid.UUID, emi decimal.Decimal, startDate time.Time, tenureMonths int) []*domain.Installment {
	schedule := make([]*domain.Installment, 0, tenureMonths)
	for no := 1; no <= tenureMonths; no++ {
		schedule = append(schedule, &domain.Installment{
			ID:            uuid.New(),
			LoanID:        loanID,
			InstallmentNo: no,
			DueDate:       DueDate(startDate, no),
			Amount:        domain.NewMoney(emi),
		})
	}
	return schedule
}

// ForeclosureFigures computes the discount and final settlement for an early
// full repayment: 5% off the loan's total interest, floored at zero.
func ForeclosureFigures(totalInterest, amountRemaining decimal.Decimal) (discount, settlement decimal.Decimal) {
	discount = totalInterest.Mul(discountRate).Round(2)
	settlement = amountRemaining.Sub(discount)
	if settlement.IsNegative() {
		settlement = decimal.Zero
	}
	return discount, settlement.Round(2)
}
