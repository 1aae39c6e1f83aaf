package service

import (
	"context"

	"stockledger/internal/model"
	"stockledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerService is the only code path that changes stock quantities.
// It performs no audit logging; callers record what they did.
type LedgerService interface {
	// Get returns the quantity at (item, location), 0 when nothing was
	// ever stored there.
	Get(ctx context.Context, itemID, locationID uuid.UUID) (int, error)
	// AdjustTx applies delta and returns the new quantity. A debit that would
	// go below zero fails with *InsufficientStockError and changes nothing.
	AdjustTx(ctx context.Context, tx *gorm.DB, key model.StockKey, delta int) (int, error)
	// LockTx row-locks every key for the rest of tx and returns the locked
	// quantities. Callers that touch more than one row lock them here first.
	LockTx(ctx context.Context, tx *gorm.DB, keys ...model.StockKey) (map[model.StockKey]int, error)
}

type ledgerService struct {
	repo repository.StockRepository
}

func NewLedgerService(repo repository.StockRepository) LedgerService {
	return &ledgerService{repo: repo}
}

func (s *ledgerService) Get(ctx context.Context, itemID, locationID uuid.UUID) (int, error) {
	return s.repo.Get(ctx, itemID, locationID)
}

func (s *ledgerService) AdjustTx(_ context.Context, tx *gorm.DB, key model.StockKey, delta int) (int, error) {
	qty, applied, err := s.repo.AdjustTx(tx, key, delta)
	if err != nil {
		return 0, err
	}
	if !applied {
		available, err := s.repo.GetTx(tx, key)
		if err != nil {
			return 0, err
		}
		return 0, &InsufficientStockError{
			ItemID:     key.ItemID,
			LocationID: key.LocationID,
			Available:  available,
			Requested:  -delta,
		}
	}
	return qty, nil
}

func (s *ledgerService) LockTx(_ context.Context, tx *gorm.DB, keys ...model.StockKey) (map[model.StockKey]int, error) {
	return s.repo.LockTx(tx, keys)
}
