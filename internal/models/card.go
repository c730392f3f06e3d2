package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Card is a single catalog entry. Alternates are cosmetic variants of a base
// card and are stored as their own rows with their own ban-list columns.
type Card struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	BaseID      string    `json:"baseId" gorm:"not null;index"`
	Name        string    `json:"name" gorm:"not null;index"`
	Type        string    `json:"type"`
	Cost        int       `json:"cost"`
	Power       int       `json:"power"`
	Race        string    `json:"race"`
	Edition     string    `json:"edition" gorm:"index"`
	ImageURL    string    `json:"imageUrl"`
	BanListRE   Severity  `json:"banListRE" gorm:"column:ban_list_re;not null"`
	BanListRL   Severity  `json:"banListRL" gorm:"column:ban_list_rl;not null"`
	BanListLI   Severity  `json:"banListLI" gorm:"column:ban_list_li;not null"`
	IsAlternate bool      `json:"isAlternate" gorm:"not null;default:false;index"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BeforeSave keeps BaseID and IsAlternate derived from ID so they can never drift.
func (c *Card) BeforeSave(tx *gorm.DB) error {
	c.BaseID = BaseCardID(c.ID)
	c.IsAlternate = c.BaseID != c.ID
	return nil
}

// BaseCardID strips the variant suffix from a card id.
// Base ids look like "EDITION-NUMBER"; alternates add a third "-VARIANT" segment.
func BaseCardID(id string) string {
	id = strings.TrimSpace(id)
	parts := strings.SplitN(id, "-", 3)
	if len(parts) < 3 {
		return id
	}
	return parts[0] + "-" + parts[1]
}

// BanList returns the card's severity for a format.
func (c *Card) BanList(format Format) Severity {
	switch format {
	case FormatRE:
		return c.BanListRE
	case FormatRL:
		return c.BanListRL
	case FormatLI:
		return c.BanListLI
	default:
		return SeverityUnrestricted
	}
}

// CardAttributes is a partial update of the gameplay fields shared by a base
// card and all of its alternates. Nil fields are left untouched.
type CardAttributes struct {
	Name  *string `json:"name"`
	Type  *string `json:"type"`
	Cost  *int    `json:"cost"`
	Power *int    `json:"power"`
	Race  *string `json:"race"`
}

// Columns returns the column->value map for the non-nil fields.
func (a CardAttributes) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if a.Name != nil {
		cols["name"] = strings.TrimSpace(*a.Name)
	}
	if a.Type != nil {
		cols["type"] = *a.Type
	}
	if a.Cost != nil {
		cols["cost"] = *a.Cost
	}
	if a.Power != nil {
		cols["power"] = *a.Power
	}
	if a.Race != nil {
		cols["race"] = *a.Race
	}
	return cols
}

// CatalogResponse is the GET /api/catalog payload.
type CatalogResponse struct {
	Cards           []Card `json:"cards"`
	AlternateCards  []Card `json:"alternateCards,omitempty"`
	Total           int    `json:"total"`
	TotalAlternates *int   `json:"totalAlternates,omitempty"`
	Version         uint64 `json:"version"`
	Source          string `json:"source"`
}
