package database

import (
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/card-catalog/internal/models"
)

// RunMigrations runs any custom data migrations after schema changes.
// Safe to run on every startup.
func RunMigrations(db *gorm.DB) error {
	if err := migrateBaseIDs(db); err != nil {
		return err
	}
	if err := normalizeBanListValues(db); err != nil {
		return err
	}
	return nil
}

// migrateBaseIDs backfills base_id and is_alternate for rows written before
// those columns existed. Rows imported by raw SQL skip the BeforeSave hook,
// so the derivation is redone here in Go.
func migrateBaseIDs(db *gorm.DB) error {
	var rows []struct {
		ID     string
		BaseID string
	}
	if err := db.Model(&models.Card{}).Select("id, base_id").Find(&rows).Error; err != nil {
		return err
	}

	fixed := 0
	for _, row := range rows {
		baseID := models.BaseCardID(row.ID)
		if row.BaseID == baseID {
			continue
		}
		result := db.Model(&models.Card{}).Where("id = ?", row.ID).
			UpdateColumns(map[string]interface{}{
				"base_id":      baseID,
				"is_alternate": baseID != row.ID,
			})
		if result.Error != nil {
			return result.Error
		}
		fixed++
	}

	if fixed > 0 {
		log.Printf("Migrated base_id for %d cards", fixed)
	}
	return nil
}

// normalizeBanListValues resets NULL or out-of-range severities to unrestricted.
func normalizeBanListValues(db *gorm.DB) error {
	for _, format := range models.AllFormats() {
		col := format.Column()
		result := db.Exec(`UPDATE cards SET `+col+` = ? WHERE `+col+` IS NULL OR `+col+` < 0 OR `+col+` > 3`,
			models.SeverityUnrestricted)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			log.Printf("Warning: reset %d invalid %s ban-list values to unrestricted", result.RowsAffected, format)
		}
	}
	return nil
}

// SeedCards inserts cards that are not stored yet. Existing rows are left
// alone so an admin's ban-list edits survive restarts.
func SeedCards(db *gorm.DB, cards []models.Card) (int64, error) {
	if len(cards) == 0 {
		return 0, nil
	}

	toInsert := make([]models.Card, len(cards))
	copy(toInsert, cards)

	result := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&toInsert, 200)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
