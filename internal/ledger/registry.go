// Package ledger owns the driver registry and the append-only transaction
// ledger. A driver's balance is a cached projection of its ledger entries and
// only Ledger.Apply moves it, always in the same database transaction as the
// entry it records.
package ledger

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"courier_ledger/internal/cache"
	"courier_ledger/internal/models"
)

// DriverInput carries the mutable driver fields for Register and UpdateDetails.
type DriverInput struct {
	DriverID  string `json:"driver_id"`
	Name      string `json:"name"`
	BikePlate string `json:"bike_plate"`
	WhatsApp  string `json:"whatsapp"`
	Notes     string `json:"notes"`
	IsActive  bool   `json:"is_active"`
}

// DriverSummary is one row of the admin driver table.
type DriverSummary struct {
	models.Driver
	Deliveries int64  `json:"deliveries"`
	Status     string `gorm:"-" json:"status"`
}

// Registry owns driver identity and contact details.
type Registry struct {
	db          *gorm.DB
	cache       cache.Cache
	phoneRegion string
}

type RegistryOption func(*Registry)

// WithPhoneRegion sets the default region used to normalise WhatsApp numbers.
func WithPhoneRegion(region string) RegistryOption {
	return func(r *Registry) { r.phoneRegion = strings.ToUpper(region) }
}

func NewRegistry(db *gorm.DB, c cache.Cache, opts ...RegistryOption) *Registry {
	if c == nil {
		c = cache.Nop{}
	}
	r := &Registry{db: db, cache: c}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates a driver with a zero balance. A taken driver_id is
// reported as ErrConflict and leaves the existing row untouched.
func (r *Registry) Register(ctx context.Context, in DriverInput) (*models.Driver, error) {
	in.DriverID = strings.TrimSpace(in.DriverID)
	in.Name = strings.TrimSpace(in.Name)
	if in.DriverID == "" || in.Name == "" {
		return nil, ErrInvalidDriver
	}

	driver := models.Driver{
		DriverID:     in.DriverID,
		Name:         in.Name,
		BikePlate:    strings.TrimSpace(in.BikePlate),
		WhatsApp:     strings.TrimSpace(in.WhatsApp),
		WhatsAppE164: whatsAppE164(in.WhatsApp, r.phoneRegion),
		Notes:        in.Notes,
		IsActive:     in.IsActive,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Driver{}).Where("driver_id = ?", driver.DriverID).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrConflict
		}
		return tx.Create(&driver).Error
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrConflict), isUniqueViolation(err):
		return nil, ErrConflict
	default:
		return nil, storeErr("register", err)
	}

	cache.InvalidateDriver(ctx, r.cache, driver.DriverID)
	return &driver, nil
}

// UpdateDetails overwrites every mutable field except balance.
func (r *Registry) UpdateDetails(ctx context.Context, driverID string, in DriverInput) (*models.Driver, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidDriver
	}

	res := r.db.WithContext(ctx).Model(&models.Driver{}).
		Where("driver_id = ?", driverID).
		Updates(map[string]any{
			"name":          name,
			"bike_plate":    strings.TrimSpace(in.BikePlate),
			"whatsapp":      strings.TrimSpace(in.WhatsApp),
			"whatsapp_e164": whatsAppE164(in.WhatsApp, r.phoneRegion),
			"notes":         in.Notes,
			"is_active":     in.IsActive,
		})
	if res.Error != nil {
		return nil, storeErr("update details", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	cache.InvalidateDriver(ctx, r.cache, driverID)
	return r.Get(ctx, driverID)
}

// Get looks a driver up by exact driver_id.
func (r *Registry) Get(ctx context.Context, driverID string) (*models.Driver, error) {
	return cache.Remember(ctx, r.cache, cache.DriverKey(driverID), func() (*models.Driver, error) {
		var d models.Driver
		err := r.db.WithContext(ctx).Where("driver_id = ?", driverID).First(&d).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, storeErr("get driver", err)
		}
		return &d, nil
	})
}

// Search returns the single best match for term across driver_id, whatsapp
// (as typed or in E.164 form) and name (case-insensitive substring), the alphabetically first name winning.
func (r *Registry) Search(ctx context.Context, term string) (*models.Driver, error) {
	if strings.TrimSpace(term) == "" {
		return nil, ErrNotFound
	}
	return cache.Remember(ctx, r.cache, cache.SearchKey(term, false), func() (*models.Driver, error) {
		var matches []models.Driver
		if err := r.searchQuery(ctx, term).Limit(1).Find(&matches).Error; err != nil {
			return nil, storeErr("search", err)
		}
		if len(matches) == 0 {
			return nil, ErrNotFound
		}
		return &matches[0], nil
	})
}

// SearchAll returns every match for term in the same order Search ranks them.
func (r *Registry) SearchAll(ctx context.Context, term string) ([]models.Driver, error) {
	if strings.TrimSpace(term) == "" {
		return []models.Driver{}, nil
	}
	return cache.Remember(ctx, r.cache, cache.SearchKey(term, true), func() ([]models.Driver, error) {
		matches := []models.Driver{}
		if err := r.searchQuery(ctx, term).Find(&matches).Error; err != nil {
			return nil, storeErr("search", err)
		}
		return matches, nil
	})
}

func (r *Registry) searchQuery(ctx context.Context, term string) *gorm.DB {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(term))) + "%"
	cond := r.db.Where(`LOWER(driver_id) LIKE ? ESCAPE '\'`, pattern).
		Or(`LOWER(whatsapp) LIKE ? ESCAPE '\'`, pattern).
		Or(`whatsapp_e164 LIKE ? ESCAPE '\'`, pattern).
		Or(`LOWER(name) LIKE ? ESCAPE '\'`, pattern)
	// A number typed in another format still finds the driver by its E.164 form.
	if e164 := whatsAppE164(term, r.phoneRegion); e164 != "" {
		cond = cond.Or("whatsapp_e164 = ?", e164)
	}
	return r.db.WithContext(ctx).Where(cond).
		Order("name ASC").Order("driver_id ASC")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// ListWithDeliveryCounts returns every driver, in registration order, with its
// number of delivery debits (zero when it has none).
func (r *Registry) ListWithDeliveryCounts(ctx context.Context) ([]DriverSummary, error) {
	return cache.Remember(ctx, r.cache, cache.KeyDriverSummaries, func() ([]DriverSummary, error) {
		rows := []DriverSummary{}
		err := r.db.WithContext(ctx).Raw(`
SELECT drivers.*, COALESCE(d.deliveries, 0) AS deliveries
FROM drivers
LEFT JOIN (
    SELECT driver_id, COUNT(*) AS deliveries
    FROM transactions
    WHERE type = ?
    GROUP BY driver_id
) d ON d.driver_id = drivers.driver_id
ORDER BY drivers.id`, string(models.TransactionDeliveryDebit)).Scan(&rows).Error
		if err != nil {
			return nil, storeErr("list drivers", err)
		}
		for i := range rows {
			rows[i].Status = rows[i].StatusLabel()
		}
		return rows, nil
	})
}

// lockForUpdate reads a driver inside tx, holding its row until tx ends.
func (r *Registry) lockForUpdate(tx *gorm.DB, driverID string) (*models.Driver, error) {
	var d models.Driver
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("driver_id = ?", driverID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
