package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Effect describes what a status transition does to the wallet balance.
type Effect int

const (
	// EffectNone leaves the balance untouched.
	EffectNone Effect = iota
	// EffectApply applies the transaction's delta (entering COMPLETED).
	EffectApply
	// EffectReverse undoes a previously applied delta (leaving COMPLETED).
	EffectReverse
)

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectApply:
		return "apply"
	case EffectReverse:
		return "reverse"
	}
	return fmt.Sprintf("effect(%d)", int(e))
}

// TransitionEffect compares the effective state before and after a status
// change. Only a change between settled and unsettled carries an effect.
func TransitionEffect(from, to TransactionStatus) Effect {
	switch {
	case !from.IsSettled() && to.IsSettled():
		return EffectApply
	case from.IsSettled() && !to.IsSettled():
		return EffectReverse
	}
	return EffectNone
}

// SettlementMode distinguishes the normal approval workflow from the
// administrative correction that reverses a completed transaction.
type SettlementMode int

const (
	SettlementApproval SettlementMode = iota
	SettlementReversal
)

func (m SettlementMode) String() string {
	if m == SettlementReversal {
		return "reversal"
	}
	return "approval"
}

// CheckTransition validates from -> to for the given mode. Callers handle
// from == to as an idempotent no-op before calling this.
func CheckTransition(mode SettlementMode, from, to TransactionStatus) error {
	if !to.IsValid() || to == TransactionStatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	var allowed bool
	switch mode {
	case SettlementApproval:
		switch from {
		case TransactionStatusPending:
			allowed = true
		case TransactionStatusProcessing:
			allowed = to != TransactionStatusProcessing
		case TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled:
			allowed = false
		}
	case SettlementReversal:
		switch from {
		case TransactionStatusCompleted:
			allowed = to.IsRejection()
		case TransactionStatusPending, TransactionStatusProcessing,
			TransactionStatusFailed, TransactionStatusCancelled:
			allowed = false
		}
	}

	if !allowed {
		return fmt.Errorf("%w: %s -> %s not permitted for %s", ErrInvalidTransition, from, to, mode)
	}
	return nil
}

// BalanceDelta returns the signed amount the effect adds to the wallet.
// Only deposits and withdrawals move the balance.
func (t *Transaction) BalanceDelta(effect Effect) (decimal.Decimal, error) {
	var applied decimal.Decimal
	switch t.Type {
	case TransactionTypeDeposit:
		applied = t.Amount
	case TransactionTypeWithdrawal:
		applied = t.Total().Neg()
	case TransactionTypeTransfer, TransactionTypeFee, TransactionTypeRefund:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownTransactionType, t.Type)
	}

	switch effect {
	case EffectApply:
		return applied, nil
	case EffectReverse:
		return applied.Neg(), nil
	case EffectNone:
		return decimal.Zero, nil
	}
	return decimal.Zero, fmt.Errorf("unknown effect %s", effect)
}
