package services

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mk-dev-co/supplyline-api/models"
)

// StockService is the exclusive owner of item quantities. Every mutation
// happens under a row-level exclusive lock inside the caller's transaction;
// the service never opens a transaction of its own, so a rollback by the
// caller undoes the reservation too.
type StockService struct{}

// NewStockService creates a stock service.
func NewStockService() *StockService {
	return &StockService{}
}

// Reserve locks the item row and decrements its quantity by qty. Concurrent
// reservations against the same item serialize on the lock; the loser sees
// the winner's post-decrement quantity. A reservation that would drive the
// quantity below zero is rejected without mutating anything.
func (s *StockService) Reserve(tx *gorm.DB, itemID uint, qty int) (*models.Item, error) {
	if qty <= 0 {
		return nil, &ValidationError{Code: "invalid_quantity", Message: "reserve quantity must be positive"}
	}

	item, err := s.lockItem(tx, itemID)
	if err != nil {
		return nil, err
	}

	if item.Quantity < qty {
		return nil, &ConflictError{
			Code: CodeInsufficientStock,
			Message: fmt.Sprintf("not enough stock for %q: requested %d, available %d",
				item.Name, qty, item.Quantity),
		}
	}

	if err := tx.Model(item).Update("quantity", gorm.Expr("quantity - ?", qty)).Error; err != nil {
		return nil, &SystemError{Message: "failed to decrement stock", Err: err}
	}
	item.Quantity -= qty

	return item, nil
}

// Release returns qty units to the item's stock, used when a committed order
// is cancelled. Releasing against a vanished item is logged and ignored so a
// cancellation never fails halfway for a row that no longer matters.
func (s *StockService) Release(tx *gorm.DB, itemID uint, qty int) error {
	if qty <= 0 {
		return &ValidationError{Code: "invalid_quantity", Message: "release quantity must be positive"}
	}

	item, err := s.lockItem(tx, itemID)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			log.Printf("stock release skipped: item %d no longer exists (qty %d)", itemID, qty)
			return nil
		}
		return err
	}

	if err := tx.Model(item).Update("quantity", gorm.Expr("quantity + ?", qty)).Error; err != nil {
		return &SystemError{Message: "failed to restore stock", Err: err}
	}
	item.Quantity += qty

	return nil
}

// lockItem loads the item under SELECT ... FOR UPDATE. Lock acquisition
// blocks until the holding transaction commits or rolls back. SQLite (used by
// the unit tests) has no row locks; its single-writer model already
// serializes transactions, so the clause is only applied on postgres.
func (s *StockService) lockItem(tx *gorm.DB, itemID uint) (*models.Item, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var item models.Item
	if err := q.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "item", Message: fmt.Sprintf("item %d not found", itemID)}
		}
		return nil, &SystemError{Message: "failed to lock item", Err: err}
	}
	return &item, nil
}
