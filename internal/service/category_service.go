package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"bead-inventory-service/internal/models"
	"bead-inventory-service/internal/store"
	"bead-inventory-service/internal/util"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	maxCategories    = 10
	maxCategoryRunes = 12
)

// CategoryService manages the per-user pattern category buckets.
type CategoryService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCategoryService creates a new category service
func NewCategoryService(store *store.Store) *CategoryService {
	return &CategoryService{store: store, logger: util.GetLogger()}
}

// normCategoryName trims and length-checks a category name. The limit is
// in runes, not bytes, so CJK names fit the same number of characters.
func normCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationf("missing name")
	}
	if utf8.RuneCountInString(name) > maxCategoryRunes {
		return "", validationf("name too long")
	}
	return name, nil
}

// List returns the user's categories, oldest first.
func (s *CategoryService) List(ctx context.Context, userID int64) ([]models.PatternCategory, error) {
	return s.store.ListCategories(ctx, userID)
}

// Create adds a category, enforcing the per-user cap and name uniqueness.
func (s *CategoryService) Create(ctx context.Context, userID int64, name string) (int64, error) {
	name, err := normCategoryName(name)
	if err != nil {
		return 0, err
	}
	n, err := s.store.CountCategories(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n >= maxCategories {
		return 0, validationf("category limit reached")
	}
	existing, err := s.store.GetCategoryByName(ctx, userID, name)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, validationf("category name already exists")
	}
	return s.store.CreateCategory(ctx, userID, name)
}

// Rename changes a category's name, keeping names unique.
func (s *CategoryService) Rename(ctx context.Context, userID, id int64, name string) error {
	if id <= 0 {
		return ErrInvalidID
	}
	name, err := normCategoryName(name)
	if err != nil {
		return err
	}
	existing, err := s.store.GetCategory(ctx, userID, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrCategoryNotFound
	}
	dup, err := s.store.GetCategoryByName(ctx, userID, name)
	if err != nil {
		return err
	}
	if dup != nil && dup.ID != id {
		return validationf("category name already exists")
	}
	return s.store.RenameCategory(ctx, userID, id, name)
}

// Delete removes a category, nulling out every reference from history rows
// and queued patterns first. The records survive, just uncategorised.
func (s *CategoryService) Delete(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		existed, err := store.DeleteCategoryTx(tx, userID, id)
		if err != nil {
			return err
		}
		if !existed {
			return ErrCategoryNotFound
		}
		return nil
	})
}
