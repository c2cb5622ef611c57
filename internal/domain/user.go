package domain

import "time"

// Currency identifies which balance an amount is drawn from.
type Currency string

const (
	CurrencyGems      Currency = "GEMS"
	CurrencyRealMoney Currency = "REAL_MONEY"
)

func (c Currency) Valid() bool {
	return c == CurrencyGems || c == CurrencyRealMoney
}

// User represents an account holder with two internal balances. Balances are
// internal ledger values, not externally settled funds, and are mutated only
// through ledger debits and credits.
type User struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	DisplayName string  `json:"displayName"`
	Gems        int64   `json:"gems"`
	Credits     float64 `json:"credits"`
	ProofHandle *string `json:"proofHandle,omitempty"`
}

// LedgerEntryKind tags a ledger entry as a debit or a credit.
type LedgerEntryKind string

const (
	LedgerDebit  LedgerEntryKind = "DEBIT"
	LedgerCredit LedgerEntryKind = "CREDIT"
)

// LedgerEntry is the audit record written alongside every balance mutation.
type LedgerEntry struct {
	ID       string          `json:"id"`
	UserID   string          `json:"userId"`
	OathID   string          `json:"oathId"`
	Kind     LedgerEntryKind `json:"kind"`
	Amount   int64           `json:"amount"`
	Currency Currency        `json:"currency"`
	CDate    time.Time       `json:"cdate"`
}
