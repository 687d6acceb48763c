package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrAppendOnly is returned for any attempt to update or delete a ledger entry.
var ErrAppendOnly = errors.New("transactions are append-only")

type TransactionType string

const (
	TransactionCredit        TransactionType = "CREDIT"         // balance top-up
	TransactionDeliveryDebit TransactionType = "DELIVERY_DEBIT" // flat fee per delivery
)

// Valid reports whether t is one of the two supported kinds.
func (t TransactionType) Valid() bool {
	return t == TransactionCredit || t == TransactionDeliveryDebit
}

// Label returns the localized operation name used on reports.
func (t TransactionType) Label() string {
	switch t {
	case TransactionCredit:
		return "شحن رصيد"
	case TransactionDeliveryDebit:
		return "خصم توصيلة"
	}
	return string(t)
}

// Transaction is one immutable ledger entry. DriverID is the authoritative link to
// the driver; DriverReference is kept for display only.
type Transaction struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Ref             string          `gorm:"size:36;uniqueIndex;not null" json:"ref"`
	DriverID        string          `gorm:"size:64;index;not null;default:''" json:"driver_id"`
	DriverReference string          `gorm:"not null" json:"driver_reference"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Type            TransactionType `gorm:"size:32;index;not null" json:"type"`
	Timestamp       time.Time       `gorm:"index;not null" json:"timestamp"`
}

func (t *Transaction) BeforeUpdate(tx *gorm.DB) error { return ErrAppendOnly }

func (t *Transaction) BeforeDelete(tx *gorm.DB) error { return ErrAppendOnly }

const referenceMarker = "(ID:"

// DriverReference builds the "<name> (ID:<driver_id>)" label.
func DriverReference(name, driverID string) string {
	return fmt.Sprintf("%s %s%s)", name, referenceMarker, driverID)
}

// ParseDriverReference recovers the driver id embedded by DriverReference.
// The last marker wins so names containing "(ID:" still parse.
func ParseDriverReference(ref string) (string, bool) {
	i := strings.LastIndex(ref, referenceMarker)
	if i < 0 || !strings.HasSuffix(ref, ")") {
		return "", false
	}
	id := ref[i+len(referenceMarker) : len(ref)-1]
	if id == "" {
		return "", false
	}
	return id, true
}
