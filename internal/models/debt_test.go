package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebtApplyKeepsBalanceBounds(t *testing.T) {
	debt := Debt{TotalAmount: 100000, RemainingBalance: 100000}

	balance := debt.Apply(40000)
	assert.Equal(t, 60000.0, balance)
	assert.GreaterOrEqual(t, debt.RemainingBalance, 0.0)
	assert.LessOrEqual(t, debt.RemainingBalance, debt.TotalAmount)

	balance = debt.Apply(60000)
	assert.Equal(t, 0.0, balance)
	assert.True(t, debt.Settled())
}

func TestDebtApplyClampsAtZero(t *testing.T) {
	debt := Debt{TotalAmount: 50, RemainingBalance: 50}

	// Within tolerance a payment may overshoot by rounding noise; the
	// balance still floors at zero.
	assert.True(t, debt.CanApply(50.009))
	balance := debt.Apply(50.009)
	assert.Equal(t, 0.0, balance)
}

func TestDebtCanApplyRejectsOverpayment(t *testing.T) {
	debt := Debt{TotalAmount: 100, RemainingBalance: 30}

	assert.True(t, debt.CanApply(30))
	assert.False(t, debt.CanApply(30.02))
	assert.False(t, debt.CanApply(100))
}

func TestSettledDebtAcceptsNothing(t *testing.T) {
	debt := Debt{TotalAmount: 100, RemainingBalance: 0}

	assert.True(t, debt.Settled())
	assert.False(t, debt.CanApply(1))
	assert.False(t, debt.CanApply(0.02))
	// Even an amount inside the rounding tolerance is refused once the
	// balance is zero; the tolerance never admits payments past settlement.
	assert.False(t, debt.CanApply(0.005))
}
