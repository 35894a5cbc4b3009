package licenses

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fovdark/fovdark/internal/apperr"
	"github.com/fovdark/fovdark/internal/models"
)

func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()
	db, errOpen := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.User{}, &models.Category{}, &models.Product{}, &models.License{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM licenses")
		db.Exec("DELETE FROM products")
		db.Exec("DELETE FROM users")
	})
	e := NewEngine(db)
	return e, db
}

func seedLicense(t *testing.T, db *gorm.DB, status models.LicenseStatus, hwid string, boundAt *time.Time) models.License {
	t.Helper()
	user := models.User{Email: "buyer@example.com", Password: "x", Active: true}
	if errCreate := db.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	product := models.Product{Name: "Aim Suite", Slug: "aim-suite", PriceCents: 4990, IsActive: true}
	if errCreate := db.Create(&product).Error; errCreate != nil {
		t.Fatalf("create product: %v", errCreate)
	}
	license := models.License{UserID: user.ID, ProductID: product.ID, Status: status, HWID: hwid, BoundAt: boundAt}
	if errCreate := db.Create(&license).Error; errCreate != nil {
		t.Fatalf("create license: %v", errCreate)
	}
	return license
}

func TestBindPendingLicense(t *testing.T) {
	e, db := newTestEngine(t)
	seeded := seedLicense(t, db, models.LicenseStatusPending, "", nil)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	e.nowFn = func() time.Time { return now }

	bound, outcome, errBind := e.Bind(context.Background(), seeded.UserID, seeded.ID, "HWID-AAA")
	if errBind != nil {
		t.Fatalf("bind: %v", errBind)
	}
	if outcome != OutcomeBound {
		t.Fatalf("expected outcome bound, got %s", outcome)
	}
	if bound.Status != models.LicenseStatusActive || bound.HWID != "HWID-AAA" {
		t.Fatalf("unexpected license state: %+v", bound)
	}
	if bound.BoundAt == nil || !bound.BoundAt.Equal(now) {
		t.Fatalf("expected bound_at %v, got %v", now, bound.BoundAt)
	}

	var stored models.License
	if errFind := db.First(&stored, "id = ?", seeded.ID).Error; errFind != nil {
		t.Fatalf("reload: %v", errFind)
	}
	if stored.Status != models.LicenseStatusActive || stored.HWID != "HWID-AAA" {
		t.Fatalf("bind not persisted: %+v", stored)
	}
}

func TestBindSameHWIDIsUnchanged(t *testing.T) {
	e, db := newTestEngine(t)
	boundAt := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seeded := seedLicense(t, db, models.LicenseStatusActive, "HWID-AAA", &boundAt)

	e.nowFn = func() time.Time { return boundAt.Add(time.Hour) }

	_, outcome, errBind := e.Bind(context.Background(), seeded.UserID, seeded.ID, "HWID-AAA")
	if errBind != nil {
		t.Fatalf("bind: %v", errBind)
	}
	if outcome != OutcomeUnchanged {
		t.Fatalf("expected outcome unchanged, got %s", outcome)
	}
}

func TestRebindBlockedByCooldown(t *testing.T) {
	e, db := newTestEngine(t)
	boundAt := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seeded := seedLicense(t, db, models.LicenseStatusActive, "HWID-AAA", &boundAt)

	e.cooldownFn = func() time.Duration { return 30 * 24 * time.Hour }
	e.nowFn = func() time.Time { return boundAt.Add(10 * 24 * time.Hour) }

	_, _, errBind := e.Bind(context.Background(), seeded.UserID, seeded.ID, "HWID-BBB")
	if apperr.KindOf(errBind) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", errBind)
	}

	// HWID must be untouched after the rejected rebind.
	var stored models.License
	if errFind := db.First(&stored, "id = ?", seeded.ID).Error; errFind != nil {
		t.Fatalf("reload: %v", errFind)
	}
	if stored.HWID != "HWID-AAA" {
		t.Fatalf("expected hwid unchanged, got %q", stored.HWID)
	}
}

func TestRebindAllowedAfterCooldown(t *testing.T) {
	e, db := newTestEngine(t)
	boundAt := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seeded := seedLicense(t, db, models.LicenseStatusActive, "HWID-AAA", &boundAt)

	e.cooldownFn = func() time.Duration { return 30 * 24 * time.Hour }
	e.nowFn = func() time.Time { return boundAt.Add(31 * 24 * time.Hour) }

	rebound, outcome, errBind := e.Bind(context.Background(), seeded.UserID, seeded.ID, "HWID-BBB")
	if errBind != nil {
		t.Fatalf("bind: %v", errBind)
	}
	if outcome != OutcomeRebound {
		t.Fatalf("expected outcome rebound, got %s", outcome)
	}
	if rebound.HWID != "HWID-BBB" {
		t.Fatalf("expected new hwid, got %q", rebound.HWID)
	}
}

func TestBindBlockedLicense(t *testing.T) {
	e, db := newTestEngine(t)
	seeded := seedLicense(t, db, models.LicenseStatusBlocked, "", nil)

	_, _, errBind := e.Bind(context.Background(), seeded.UserID, seeded.ID, "HWID-AAA")
	if apperr.KindOf(errBind) != apperr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", errBind)
	}
}

func TestBindRejectsForeignLicense(t *testing.T) {
	e, db := newTestEngine(t)
	seeded := seedLicense(t, db, models.LicenseStatusPending, "", nil)

	_, _, errBind := e.Bind(context.Background(), seeded.UserID+1, seeded.ID, "HWID-AAA")
	if apperr.KindOf(errBind) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", errBind)
	}
}

func TestBindRejectsEmptyHWID(t *testing.T) {
	e, db := newTestEngine(t)
	seeded := seedLicense(t, db, models.LicenseStatusPending, "", nil)

	_, _, errBind := e.Bind(context.Background(), seeded.UserID, seeded.ID, "   ")
	if apperr.KindOf(errBind) != apperr.KindValidation {
		t.Fatalf("expected validation, got %v", errBind)
	}
}

func TestUnbindOverridesCooldown(t *testing.T) {
	e, db := newTestEngine(t)
	boundAt := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seeded := seedLicense(t, db, models.LicenseStatusActive, "HWID-AAA", &boundAt)

	unbound, errUnbind := e.Unbind(context.Background(), seeded.ID)
	if errUnbind != nil {
		t.Fatalf("unbind: %v", errUnbind)
	}
	if unbound.Status != models.LicenseStatusPending || unbound.HWID != "" || unbound.BoundAt != nil {
		t.Fatalf("unexpected state after unbind: %+v", unbound)
	}

	// A fresh bind works immediately, regardless of the old bound time.
	e.cooldownFn = func() time.Duration { return 30 * 24 * time.Hour }
	e.nowFn = func() time.Time { return boundAt.Add(time.Hour) }
	_, outcome, errBind := e.Bind(context.Background(), seeded.UserID, seeded.ID, "HWID-BBB")
	if errBind != nil {
		t.Fatalf("bind after unbind: %v", errBind)
	}
	if outcome != OutcomeBound {
		t.Fatalf("expected outcome bound, got %s", outcome)
	}
}

func TestSetStatusBlockedClearsHWID(t *testing.T) {
	e, db := newTestEngine(t)
	boundAt := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seeded := seedLicense(t, db, models.LicenseStatusActive, "HWID-AAA", &boundAt)

	blocked, errSet := e.SetStatus(context.Background(), seeded.ID, models.LicenseStatusBlocked)
	if errSet != nil {
		t.Fatalf("set status: %v", errSet)
	}
	if blocked.Status != models.LicenseStatusBlocked || blocked.HWID != "" {
		t.Fatalf("unexpected state after block: %+v", blocked)
	}

	_, _, errBind := e.Bind(context.Background(), seeded.UserID, seeded.ID, "HWID-BBB")
	if apperr.KindOf(errBind) != apperr.KindForbidden {
		t.Fatalf("expected forbidden after block, got %v", errBind)
	}
}

func TestEnsureForOrderSkipsExisting(t *testing.T) {
	_, db := newTestEngine(t)
	seeded := seedLicense(t, db, models.LicenseStatusActive, "HWID-AAA", nil)

	order := models.Order{
		UserID: seeded.UserID,
		Items:  []models.OrderItem{{ProductID: seeded.ProductID, Quantity: 1, UnitPriceCents: 4990}},
	}
	created, errEnsure := EnsureForOrder(db, &order)
	if errEnsure != nil {
		t.Fatalf("ensure: %v", errEnsure)
	}
	if len(created) != 0 {
		t.Fatalf("expected no new license, got %d", len(created))
	}

	product := models.Product{Name: "ESP Suite", Slug: "esp-suite", PriceCents: 2990, IsActive: true}
	if errCreate := db.Create(&product).Error; errCreate != nil {
		t.Fatalf("create product: %v", errCreate)
	}
	order.Items = append(order.Items, models.OrderItem{ProductID: product.ID, Quantity: 1, UnitPriceCents: 2990})

	created, errEnsure = EnsureForOrder(db, &order)
	if errEnsure != nil {
		t.Fatalf("ensure: %v", errEnsure)
	}
	if len(created) != 1 || created[0].ProductID != product.ID {
		t.Fatalf("expected one license for new product, got %+v", created)
	}
	if created[0].Status != models.LicenseStatusPending {
		t.Fatalf("expected pending license, got %s", created[0].Status)
	}
}
