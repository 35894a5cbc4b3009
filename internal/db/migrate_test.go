package db

import (
	"testing"

	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/models"
	internalsettings "github.com/fovdark/fovdark/internal/settings"
)

func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	conn, errOpen := Open("file:" + name + "?mode=memory&cache=shared")
	if errOpen != nil {
		t.Fatalf("open: %v", errOpen)
	}
	return conn
}

func TestMigrateCreatesTables(t *testing.T) {
	conn := newTestDB(t, "migrate_tables")
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, model := range []any{
		&models.User{}, &models.Category{}, &models.Product{}, &models.Order{},
		&models.OrderItem{}, &models.License{}, &models.Review{}, &models.Asset{},
		&models.Theme{}, &models.Setting{},
	} {
		if !conn.Migrator().HasTable(model) {
			t.Errorf("missing table for %T", model)
		}
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn := newTestDB(t, "migrate_idempotent")
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("first migrate: %v", errMigrate)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("second migrate: %v", errMigrate)
	}
}

func TestMigrateSeedsDefaultSettings(t *testing.T) {
	conn := newTestDB(t, "migrate_settings")
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for key := range internalsettings.DefaultValues() {
		var row models.Setting
		if errFind := conn.Where("key = ?", key).First(&row).Error; errFind != nil {
			t.Errorf("setting %s not seeded: %v", key, errFind)
		}
	}
}

func TestMigrateDoesNotOverwriteSettings(t *testing.T) {
	conn := newTestDB(t, "migrate_settings_keep")
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	custom := []byte(`"Custom Shop"`)
	if errSave := conn.Model(&models.Setting{}).
		Where("key = ?", internalsettings.SiteNameKey).
		Update("value", custom).Error; errSave != nil {
		t.Fatalf("update setting: %v", errSave)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("re-migrate: %v", errMigrate)
	}
	var row models.Setting
	if errFind := conn.Where("key = ?", internalsettings.SiteNameKey).First(&row).Error; errFind != nil {
		t.Fatalf("find setting: %v", errFind)
	}
	if string(row.Value) != string(custom) {
		t.Fatalf("setting overwritten: %s", row.Value)
	}
}

func TestMigrateSeedsSingleActiveTheme(t *testing.T) {
	conn := newTestDB(t, "migrate_theme")
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	var count int64
	if errCount := conn.Model(&models.Theme{}).Where("is_active = ?", true).Count(&count).Error; errCount != nil {
		t.Fatalf("count themes: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("active themes = %d, want 1", count)
	}

	// A second migrate must not add another theme.
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("re-migrate: %v", errMigrate)
	}
	var total int64
	if errCount := conn.Model(&models.Theme{}).Count(&total).Error; errCount != nil {
		t.Fatalf("count themes: %v", errCount)
	}
	if total != 1 {
		t.Fatalf("themes = %d, want 1", total)
	}
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	if _, errOpen := Open("  "); errOpen == nil {
		t.Fatal("expected error for empty dsn")
	}
}
