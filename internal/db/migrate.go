package db

import (
	"errors"
	"fmt"

	"github.com/fovdark/fovdark/internal/models"
	internalsettings "github.com/fovdark/fovdark/internal/settings"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.License{},
		&models.Review{},
		&models.Asset{},
		&models.Theme{},
		&models.Setting{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errSeed := ensureDefaultSettings(conn); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureDefaultTheme(conn); errSeed != nil {
		return errSeed
	}

	// ddl defines an index or DDL statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_products_active_bestseller_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_products_active_bestseller_created_at
				ON products (is_active, is_bestseller DESC, created_at DESC)
			`,
		},
		{
			name: "idx_orders_user_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_orders_user_id_created_at
				ON orders (user_id, created_at DESC)
			`,
		},
		{
			name: "idx_orders_status_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_orders_status_created_at
				ON orders (status, created_at DESC)
			`,
		},
		{
			name: "idx_licenses_status_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_licenses_status_created_at
				ON licenses (status, created_at DESC)
			`,
		},
		{
			name: "idx_reviews_product_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_reviews_product_id_created_at
				ON reviews (product_id, created_at DESC)
			`,
		},
		{
			name: "idx_themes_active_true",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_themes_active_true
				ON themes (id)
				WHERE is_active = true
			`,
		},
		{
			name: "idx_settings_updated_at_key",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_settings_updated_at_key
				ON settings (updated_at DESC, key DESC)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	if !IsSQLite(conn) {
		if errTrgm := migrateTrigramIndexes(conn); errTrgm != nil {
			return errTrgm
		}
	}

	return nil
}

// migrateTrigramIndexes creates trigram search indexes, falling back to
// LOWER() indexes when pg_trgm is unavailable.
func migrateTrigramIndexes(conn *gorm.DB) error {
	_ = conn.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`).Error

	// trgmIndex defines trigram and fallback index statements.
	type trgmIndex struct {
		name     string // Logical index name.
		trgmSQL  string // Trigram index SQL.
		lowerSQL string // Lowercase fallback index SQL.
	}
	trgmIndexes := []trgmIndex{
		{
			name: "idx_products_name",
			trgmSQL: `
				CREATE INDEX IF NOT EXISTS idx_products_name_trgm
				ON products USING gin (name gin_trgm_ops)
			`,
			lowerSQL: `
				CREATE INDEX IF NOT EXISTS idx_products_name_lower
				ON products (LOWER(name))
			`,
		},
		{
			name: "idx_users_email",
			trgmSQL: `
				CREATE INDEX IF NOT EXISTS idx_users_email_trgm
				ON users USING gin (email gin_trgm_ops)
			`,
			lowerSQL: `
				CREATE INDEX IF NOT EXISTS idx_users_email_lower
				ON users (LOWER(email))
			`,
		},
		{
			name: "idx_licenses_hwid",
			trgmSQL: `
				CREATE INDEX IF NOT EXISTS idx_licenses_hwid_trgm
				ON licenses USING gin (hwid gin_trgm_ops)
			`,
			lowerSQL: `
				CREATE INDEX IF NOT EXISTS idx_licenses_hwid_lower
				ON licenses (LOWER(hwid))
			`,
		},
	}
	for _, item := range trgmIndexes {
		if errIdx := conn.Exec(item.trgmSQL).Error; errIdx != nil {
			if errLower := conn.Exec(item.lowerSQL).Error; errLower != nil {
				return fmt.Errorf("db: create index %s: %w", item.name, errLower)
			}
		}
	}
	return nil
}

// ensureDefaultSettings seeds the site setting rows required by the server.
func ensureDefaultSettings(conn *gorm.DB) error {
	for key, value := range internalsettings.DefaultValues() {
		var existing models.Setting
		errFind := conn.Where("key = ?", key).First(&existing).Error
		if errFind == nil {
			continue
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fmt.Errorf("db: seed setting %s: %w", key, errFind)
		}
		row := models.Setting{Key: key, Value: value}
		if errCreate := conn.Create(&row).Error; errCreate != nil {
			return fmt.Errorf("db: seed setting %s: %w", key, errCreate)
		}
	}
	return nil
}

// ensureDefaultTheme seeds an active default theme when no theme exists.
func ensureDefaultTheme(conn *gorm.DB) error {
	var count int64
	if errCount := conn.Model(&models.Theme{}).Count(&count).Error; errCount != nil {
		return fmt.Errorf("db: count themes: %w", errCount)
	}
	if count > 0 {
		return nil
	}
	theme := models.Theme{
		Name:      "Default",
		Variables: []byte(`{"--primary":"#7c3aed","--background":"#0b0b12","--foreground":"#f4f4f5"}`),
		IsActive:  true,
	}
	if errCreate := conn.Create(&theme).Error; errCreate != nil {
		return fmt.Errorf("db: seed default theme: %w", errCreate)
	}
	return nil
}
