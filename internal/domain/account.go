package domain

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// AccountKind classifies a user's accounts.
type AccountKind string

const (
	AccountKindBrokerage AccountKind = "brokerage"
	AccountKindBank      AccountKind = "bank"
	AccountKindOther     AccountKind = "other"
)

// Account is a brokerage or bank account owned by a user.
type Account struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Institution string      `json:"institution,omitempty"`
	Kind        AccountKind `json:"kind"`
}

// CashKind is the direction of a cash movement.
type CashKind string

const (
	CashDeposit    CashKind = "DEPOSIT"
	CashWithdrawal CashKind = "WITHDRAWAL"
)

// CashTransaction is a deposit into or withdrawal from an account.
type CashTransaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	Kind        CashKind        `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Description string          `json:"description,omitempty"`
}

// Signed returns the amount as it affects the balance.
func (c CashTransaction) Signed() decimal.Decimal {
	if c.Kind == CashWithdrawal {
		return c.Amount.Neg()
	}
	return c.Amount
}

// CashBalance is the net cash held in one account.
type CashBalance struct {
	AccountID string          `json:"accountId"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
}

// CashBalances nets transactions per account, keeping the order of accounts.
// Transactions for unknown accounts are ignored.
func CashBalances(accounts []Account, txs []CashTransaction) []CashBalance {
	byAccount := lo.GroupBy(txs, func(tx CashTransaction) string { return tx.AccountID })

	return lo.Map(accounts, func(acc Account, _ int) CashBalance {
		balance := lo.Reduce(byAccount[acc.ID], func(sum decimal.Decimal, tx CashTransaction, _ int) decimal.Decimal {
			return sum.Add(tx.Signed())
		}, decimal.Zero)
		return CashBalance{AccountID: acc.ID, Name: acc.Name, Balance: balance}
	})
}
