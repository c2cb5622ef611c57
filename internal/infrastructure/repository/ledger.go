package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/oathbound/oathbound/internal/domain"
	"github.com/oathbound/oathbound/internal/infrastructure/database/models"
)

// LedgerRepository mutates user balances. Every mutation is a conditional
// single-statement update plus an audit entry, so concurrent debits on the
// same user can never overdraw.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func balanceColumn(currency domain.Currency) (string, error) {
	switch currency {
	case domain.CurrencyGems:
		return "gems", nil
	case domain.CurrencyRealMoney:
		return "credits", nil
	default:
		return "", domain.ValidationError{Msg: "unknown currency"}
	}
}

// TotalStaked sums the debits escrowed into one oath.
func (r *LedgerRepository) TotalStaked(ctx context.Context, oathID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("oath_id = ? AND kind = ?", oathID, string(domain.LedgerDebit)).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "LedgerRepository.TotalStaked failed")
	}
	return total, nil
}

// debitTx decrements a balance inside an enclosing transaction. The
// WHERE-guarded update is what keeps two simultaneous acceptances from
// overdrawing the same user.
func debitTx(tx *gorm.DB, userID string, amount int64, currency domain.Currency, oathID string) error {
	if amount < 0 {
		return domain.ValidationError{Msg: "debit amount must not be negative"}
	}
	column, err := balanceColumn(currency)
	if err != nil {
		return err
	}

	res := tx.Model(&models.User{}).
		Where("id = ? AND "+column+" >= ?", userID, amount).
		UpdateColumn(column, gorm.Expr(column+" - ?", amount))
	if res.Error != nil {
		return errors.Wrap(res.Error, "ledger debit failed")
	}
	if res.RowsAffected == 0 {
		var user models.User
		if err := tx.Take(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFoundError{Resource: "user"}
			}
			return errors.Wrap(err, "ledger debit lookup failed")
		}
		have := user.Gems
		if currency == domain.CurrencyRealMoney {
			have = int64(user.Credits)
		}
		return domain.InsufficientFundsError{Currency: currency, Need: amount, Have: have}
	}

	return recordEntry(tx, userID, oathID, domain.LedgerDebit, amount, currency)
}

func creditTx(tx *gorm.DB, userID string, amount int64, currency domain.Currency, oathID string) error {
	if amount < 0 {
		return domain.ValidationError{Msg: "credit amount must not be negative"}
	}
	column, err := balanceColumn(currency)
	if err != nil {
		return err
	}

	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn(column, gorm.Expr(column+" + ?", amount))
	if res.Error != nil {
		return errors.Wrap(res.Error, "ledger credit failed")
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "user"}
	}

	return recordEntry(tx, userID, oathID, domain.LedgerCredit, amount, currency)
}

func recordEntry(tx *gorm.DB, userID, oathID string, kind domain.LedgerEntryKind, amount int64, currency domain.Currency) error {
	entry := models.LedgerEntry{
		ID:       uuid.NewString(),
		UserID:   userID,
		OathID:   oathID,
		Kind:     string(kind),
		Amount:   amount,
		Currency: string(currency),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return errors.Wrap(err, "ledger entry write failed")
	}
	return nil
}
