// internal/models/driver.go
package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrBalanceReadOnly is returned when an ORM update tries to change a driver's
// balance. Balance moves only through the ledger.
var ErrBalanceReadOnly = errors.New("driver balance can only change through the ledger")

// Display labels for the active flag, as shown on the admin reports.
const (
	StatusActiveLabel   = "مفعل"
	StatusInactiveLabel = "معطل"
)

type Driver struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	DriverID     string          `gorm:"size:64;uniqueIndex;not null" json:"driver_id"` // externally assigned
	Name         string          `gorm:"not null;index" json:"name"`
	BikePlate    string          `json:"bike_plate"`
	WhatsApp     string          `gorm:"column:whatsapp" json:"whatsapp"` // as entered
	WhatsAppE164 string          `gorm:"column:whatsapp_e164;size:32;index;not null;default:''" json:"whatsapp_e164"`
	Notes        string          `gorm:"type:text" json:"notes"`
	IsActive     bool            `gorm:"not null" json:"is_active"`
	Balance      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// StatusLabel renders IsActive for display.
func (d Driver) StatusLabel() string {
	if d.IsActive {
		return StatusActiveLabel
	}
	return StatusInactiveLabel
}

// Reference is the denormalized label stored on every ledger entry.
func (d Driver) Reference() string {
	return DriverReference(d.Name, d.DriverID)
}

// BeforeCreate only admits drivers that start with an empty balance.
func (d *Driver) BeforeCreate(tx *gorm.DB) error {
	if !d.Balance.IsZero() {
		return ErrBalanceReadOnly
	}
	return nil
}

// BeforeUpdate blocks balance writes that bypass the ledger.
func (d *Driver) BeforeUpdate(tx *gorm.DB) error {
	if tx.Statement.Changed("Balance") {
		return ErrBalanceReadOnly
	}

	// Save and Updates(&d) write from the model itself, where Changed sees
	// no difference. Any such write that includes balance is rejected.
	if dest, ok := tx.Statement.Dest.(*Driver); ok && dest == d {
		cols, restricted := tx.Statement.SelectAndOmitColumns(false, true)
		selected, listed := cols["balance"]
		if (listed && selected) || (!listed && !restricted && !d.Balance.IsZero()) {
			return ErrBalanceReadOnly
		}
	}
	return nil
}
