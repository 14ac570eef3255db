package database

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fanconnect/server/internal/models"
)

func (d *Database) GetBalance(userID uuid.UUID) (int, error) {
	user, err := d.GetUser(userID.String())
	if err != nil {
		return 0, err
	}
	return user.Gems, nil
}

func (d *Database) CanAfford(userID uuid.UUID, cost int) (bool, error) {
	balance, err := d.GetBalance(userID)
	if err != nil {
		return false, err
	}
	return balance >= cost, nil
}

// RecordTransaction appends a gem transaction and applies it to the user's
// balance in one database transaction: either both commit or neither does.
// Amount is a positive magnitude; spend subtracts, purchase and earn add.
// A spend that would push the balance below zero fails with
// ErrInsufficientGems and leaves no transaction record behind.
func (d *Database) RecordTransaction(userID uuid.UUID, amount int, txType models.TransactionType, description string) (*models.GemTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("transaction amount must be positive, got %d", amount)
	}

	transaction := &models.GemTransaction{
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Description: description,
	}

	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transaction).Error; err != nil {
			return err
		}

		var result *gorm.DB
		switch txType {
		case models.TransactionSpend:
			// The balance guard lives in the WHERE clause so concurrent
			// spends from the same user cannot both pass a stale check.
			result = tx.Model(&models.User{}).
				Where("id = ? AND gems >= ?", userID, amount).
				Update("gems", gorm.Expr("gems - ?", amount))
		case models.TransactionPurchase, models.TransactionEarn:
			result = tx.Model(&models.User{}).
				Where("id = ?", userID).
				Update("gems", gorm.Expr("gems + ?", amount))
		default:
			return fmt.Errorf("unknown transaction type %q", txType)
		}

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			if txType == models.TransactionSpend {
				var count int64
				if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					return ErrInsufficientGems
				}
			}
			return ErrUserNotFound
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

func (d *Database) GetGemHistory(userID uuid.UUID) ([]models.GemTransaction, error) {
	var transactions []models.GemTransaction
	err := d.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&transactions).Error
	return transactions, err
}
