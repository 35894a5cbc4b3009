package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/models"
)

// Refresh reloads the settings snapshot from the database.
func Refresh(ctx context.Context, conn *gorm.DB) error {
	var rows []models.Setting
	if errFind := conn.WithContext(ctx).Find(&rows).Error; errFind != nil {
		return fmt.Errorf("load settings: %w", errFind)
	}
	values := make(map[string]json.RawMessage, len(rows))
	var newest time.Time
	for _, row := range rows {
		values[row.Key] = json.RawMessage(row.Value)
		if row.UpdatedAt.After(newest) {
			newest = row.UpdatedAt
		}
	}
	StoreDBConfig(newest, values)
	return nil
}
