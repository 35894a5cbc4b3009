// Package licenses implements the HWID binding rules for product licenses.
package licenses

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/apperr"
	"github.com/fovdark/fovdark/internal/models"
	internalsettings "github.com/fovdark/fovdark/internal/settings"
)

// BindOutcome labels the result of a successful Bind call.
type BindOutcome string

// BindOutcome constants.
const (
	// OutcomeBound is a first bind of a pending license.
	OutcomeBound BindOutcome = "bound"
	// OutcomeRebound is a bind to a new machine after the cooldown.
	OutcomeRebound BindOutcome = "rebound"
	// OutcomeUnchanged is a repeated bind of the already-bound machine.
	OutcomeUnchanged BindOutcome = "unchanged"
)

// MaxHWIDLen bounds the accepted hardware identifier length.
const MaxHWIDLen = 256

// Engine applies binding rules against the store. The rebind cooldown is
// read from the settings snapshot on every call.
type Engine struct {
	db         *gorm.DB
	nowFn      func() time.Time
	cooldownFn func() time.Duration
}

// NewEngine constructs an Engine over the database handle.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{
		db:         db,
		nowFn:      time.Now,
		cooldownFn: SnapshotCooldown,
	}
}

// SnapshotCooldown returns the configured rebind cooldown.
func SnapshotCooldown() time.Duration {
	days := internalsettings.IntValue(internalsettings.LicenseRebindCooldownDaysKey, internalsettings.DefaultLicenseRebindCooldownDays)
	if days < 0 {
		days = 0
	}
	return time.Duration(days) * 24 * time.Hour
}

// Bind attaches the license to a hardware identifier on behalf of its owner.
// A pending license binds immediately. A bound license accepts the same HWID
// at any time and a different HWID only after the cooldown has elapsed since
// the last bind. Blocked licenses reject every bind.
func (e *Engine) Bind(ctx context.Context, userID, licenseID uint64, hwid string) (*models.License, BindOutcome, error) {
	hwid = strings.TrimSpace(hwid)
	if hwid == "" || len(hwid) > MaxHWIDLen {
		return nil, "", apperr.Validation("invalid hwid")
	}

	var license models.License
	var outcome BindOutcome
	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.Where("id = ? AND user_id = ?", licenseID, userID).First(&license).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return apperr.NotFound("license not found")
			}
			return apperr.Internal("load license", errFind)
		}

		switch license.Status {
		case models.LicenseStatusBlocked:
			return apperr.Forbidden("license is blocked")
		case models.LicenseStatusActive:
			if license.HWID == hwid {
				outcome = OutcomeUnchanged
				return nil
			}
			if remaining := e.cooldownRemaining(&license); remaining > 0 {
				return apperr.Conflict("hwid rebind cooldown active")
			}
			outcome = OutcomeRebound
		case models.LicenseStatusPending:
			outcome = OutcomeBound
		default:
			return apperr.Internal("unexpected license status", nil)
		}

		now := e.nowFn().UTC()
		license.HWID = hwid
		license.Status = models.LicenseStatusActive
		license.BoundAt = &now
		if errSave := tx.Model(&models.License{}).Where("id = ?", license.ID).Updates(map[string]any{
			"hwid":     license.HWID,
			"status":   license.Status,
			"bound_at": license.BoundAt,
		}).Error; errSave != nil {
			return apperr.Internal("save license", errSave)
		}
		return nil
	})
	if errTx != nil {
		return nil, "", errTx
	}
	return &license, outcome, nil
}

// CooldownRemaining reports how long until the license may rebind to a new
// machine. Zero means a rebind is allowed now.
func (e *Engine) CooldownRemaining(license *models.License) time.Duration {
	return e.cooldownRemaining(license)
}

func (e *Engine) cooldownRemaining(license *models.License) time.Duration {
	if license == nil || license.BoundAt == nil {
		return 0
	}
	until := license.BoundAt.Add(e.cooldownFn())
	remaining := until.Sub(e.nowFn())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Unbind clears the HWID and returns the license to pending. Used by the
// back office to override the cooldown. Blocked licenses stay blocked.
func (e *Engine) Unbind(ctx context.Context, licenseID uint64) (*models.License, error) {
	var license models.License
	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.First(&license, "id = ?", licenseID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return apperr.NotFound("license not found")
			}
			return apperr.Internal("load license", errFind)
		}
		license.HWID = ""
		license.BoundAt = nil
		if license.Status == models.LicenseStatusActive {
			license.Status = models.LicenseStatusPending
		}
		if errSave := tx.Model(&models.License{}).Where("id = ?", license.ID).Updates(map[string]any{
			"hwid":     "",
			"status":   license.Status,
			"bound_at": nil,
		}).Error; errSave != nil {
			return apperr.Internal("save license", errSave)
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &license, nil
}

// SetStatus changes the license status from the back office. Moving away
// from active clears the bound HWID.
func (e *Engine) SetStatus(ctx context.Context, licenseID uint64, status models.LicenseStatus) (*models.License, error) {
	if !models.ValidLicenseStatus(status) {
		return nil, apperr.Validation("invalid license status")
	}
	var license models.License
	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.First(&license, "id = ?", licenseID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return apperr.NotFound("license not found")
			}
			return apperr.Internal("load license", errFind)
		}
		updates := map[string]any{"status": status}
		if status != models.LicenseStatusActive {
			updates["hwid"] = ""
			updates["bound_at"] = nil
			license.HWID = ""
			license.BoundAt = nil
		}
		license.Status = status
		if errSave := tx.Model(&models.License{}).Where("id = ?", license.ID).Updates(updates).Error; errSave != nil {
			return apperr.Internal("save license", errSave)
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &license, nil
}

// EnsureForOrder creates pending licenses for every item of a completed
// order that does not already have a non-blocked license. It runs inside the
// caller's transaction so order completion and license activation commit
// together.
func EnsureForOrder(tx *gorm.DB, order *models.Order) ([]models.License, error) {
	created := make([]models.License, 0, len(order.Items))
	for _, item := range order.Items {
		var count int64
		if errCount := tx.Model(&models.License{}).
			Where("user_id = ? AND product_id = ? AND status <> ?", order.UserID, item.ProductID, models.LicenseStatusBlocked).
			Count(&count).Error; errCount != nil {
			return nil, apperr.Internal("count licenses", errCount)
		}
		if count > 0 {
			continue
		}
		license := models.License{
			UserID:    order.UserID,
			ProductID: item.ProductID,
			Status:    models.LicenseStatusPending,
		}
		if errCreate := tx.Create(&license).Error; errCreate != nil {
			return nil, apperr.Internal("create license", errCreate)
		}
		created = append(created, license)
	}
	return created, nil
}
