package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/card-catalog/internal/models"
)

var (
	ErrCardNotFound    = errors.New("card not found")
	ErrInvalidFormat   = errors.New("format must be one of RE, RL, LI")
	ErrInvalidSeverity = errors.New("value must be a ban-list severity between 0 and 3")
	ErrEmptyCardID     = errors.New("cardId is required")
	ErrEmptyCatalog    = errors.New("catalog store returned no cards")
)

// CatalogFetcher is the read side of the authoritative catalog.
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context, includeAlternates bool) ([]models.Card, error)
}

// CatalogWriter applies mutations to the authoritative catalog. Every write
// targets a base id and fans out to all alternates sharing it.
type CatalogWriter interface {
	SetBanList(ctx context.Context, baseID string, format models.Format, value models.Severity) (int64, error)
	UpdateAttributes(ctx context.Context, baseID string, attrs models.CardAttributes) (int64, error)
}

// GormCatalogStore is the SQLite-backed catalog store
type GormCatalogStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormCatalogStore creates a catalog store over db
func NewGormCatalogStore(db *gorm.DB) *GormCatalogStore {
	return &GormCatalogStore{
		db:  db,
		now: time.Now,
	}
}

// FetchCatalog returns every card, or only base cards when includeAlternates is false.
func (s *GormCatalogStore) FetchCatalog(ctx context.Context, includeAlternates bool) ([]models.Card, error) {
	var cards []models.Card
	query := s.db.WithContext(ctx).Order("id ASC")
	if !includeAlternates {
		query = query.Where("is_alternate = ?", false)
	}
	if err := query.Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	return cards, nil
}

// GetCard looks up a single card by id.
func (s *GormCatalogStore) GetCard(ctx context.Context, id string) (*models.Card, error) {
	var card models.Card
	err := s.db.WithContext(ctx).First(&card, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	return &card, nil
}

// Count returns the number of stored cards, alternates included.
func (s *GormCatalogStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Card{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SetBanList sets the severity for format on the base card and all of its
// alternates in one statement. Returns ErrCardNotFound when no row matches.
func (s *GormCatalogStore) SetBanList(ctx context.Context, baseID string, format models.Format, value models.Severity) (int64, error) {
	if _, ok := models.ParseFormat(string(format)); !ok {
		return 0, ErrInvalidFormat
	}
	if !value.Valid() {
		return 0, ErrInvalidSeverity
	}

	result := s.db.WithContext(ctx).Model(&models.Card{}).
		Where("base_id = ?", baseID).
		UpdateColumns(map[string]interface{}{
			format.Column(): value,
			"updated_at":    s.now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update %s ban list for %s: %w", format, baseID, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, fmt.Errorf("%s: %w", baseID, ErrCardNotFound)
	}
	return result.RowsAffected, nil
}

// UpdateAttributes writes the non-nil gameplay attributes to the base card and its alternates.
func (s *GormCatalogStore) UpdateAttributes(ctx context.Context, baseID string, attrs models.CardAttributes) (int64, error) {
	cols := attrs.Columns()
	if len(cols) == 0 {
		return 0, ErrNoAttributes
	}
	cols["updated_at"] = s.now()

	result := s.db.WithContext(ctx).Model(&models.Card{}).
		Where("base_id = ?", baseID).
		UpdateColumns(cols)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update attributes for %s: %w", baseID, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, fmt.Errorf("%s: %w", baseID, ErrCardNotFound)
	}
	return result.RowsAffected, nil
}
