package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"coinfeed_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists orders in SQLite.
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance at path. An empty path
// resolves to the OS user config directory.
func NewStorage(path string) (*Storage, error) {
	dbPath := path
	if dbPath == "" {
		resolved, err := getDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
		dbPath = resolved
	}

	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.Order{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "CoinFeed", "data", "coinfeed.db"), nil
}

// List returns all orders projected to the fields the publisher and intake
// need. Storage ids are not selected.
func (s *Storage) List(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.db.WithContext(ctx).
		Select("coin_id", "unit_price", "quantity", "total").
		Order("created_at").
		Find(&orders).Error
	return orders, err
}

// Insert persists a newly accepted order.
func (s *Storage) Insert(ctx context.Context, order *domain.Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

// CoinIDs returns the distinct coin ids referenced by stored orders.
func (s *Storage) CoinIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&domain.Order{}).
		Distinct("coin_id").
		Pluck("coin_id", &ids).Error
	return ids, err
}
