// Package storage persists the routerd trade history in sqlite through gorm.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrPathRequired is returned when the backing store path is missing.
var ErrPathRequired = errors.New("routerd storage path must be configured")

// TradeRecord is one completed router operation.
type TradeRecord struct {
	ID           string `gorm:"primaryKey"`
	Kind         string `gorm:"index"`
	Account      string `gorm:"index"`
	AmountIn     string
	AmountOut    string
	FeeBps       uint32
	ExternalUsed bool
	CreatedAt    time.Time
}

// Trade kinds recorded in the history.
const (
	TradeKindBuy      = "buy"
	TradeKindSell     = "sell"
	TradeKindDeposit  = "deposit"
	TradeKindWithdraw = "withdraw"
)

// Storage wraps the routerd persistence layer.
type Storage struct {
	db *gorm.DB
}

// Open initialises the backing store at the supplied sqlite path.
func Open(path string) (*Storage, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, ErrPathRequired
	}
	db, err := gorm.Open(sqlite.Open(trimmed), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&TradeRecord{}); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close releases database resources.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordTrade appends a completed operation to the history, assigning an
// identifier when the caller did not.
func (s *Storage) RecordTrade(ctx context.Context, record TradeRecord) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("storage not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", fmt.Errorf("insert trade: %w", err)
	}
	return record.ID, nil
}

// ListTrades returns the most recent records, newest first.
func (s *Storage) ListTrades(ctx context.Context, limit int) ([]TradeRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	var records []TradeRecord
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	return records, nil
}
