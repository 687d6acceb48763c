package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"courier_ledger/internal/cache"
	"courier_ledger/internal/models"
)

// DefaultDeliveryFee is deducted for every completed delivery.
var DefaultDeliveryFee = decimal.NewFromInt(15)

// Locker serialises applies on the same driver across processes. The row lock
// taken inside Apply already covers a single database; a Locker is optional.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Totals is the aggregate shown on the admin dashboard.
type Totals struct {
	Balance    decimal.Decimal `json:"total_balance"`  // sum of drivers.balance
	Charged    decimal.Decimal `json:"total_charged"`  // sum of credits
	Deducted   decimal.Decimal `json:"total_deducted"` // magnitude of delivery debits
	Deliveries int64           `json:"total_deliveries"`
}

// Drift is a driver whose stored balance disagrees with its ledger entries.
type Drift struct {
	DriverID      string          `json:"driver_id"`
	Balance       decimal.Decimal `json:"balance"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
}

// Ledger owns the transaction history and is the only writer of balances.
type Ledger struct {
	db       *gorm.DB
	registry *Registry
	cache    cache.Cache
	locker   Locker
	fee      decimal.Decimal
	now      func() time.Time
}

type Option func(*Ledger)

func WithDeliveryFee(fee decimal.Decimal) Option {
	return func(l *Ledger) { l.fee = fee }
}

func WithLocker(locker Locker) Option {
	return func(l *Ledger) { l.locker = locker }
}

// WithClock replaces time.Now for transaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger shares the registry's database handle and cache.
func NewLedger(registry *Registry, opts ...Option) *Ledger {
	l := &Ledger{
		db:       registry.db,
		registry: registry,
		cache:    registry.cache,
		fee:      DefaultDeliveryFee,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Fee is the flat amount Deliver deducts.
func (l *Ledger) Fee() decimal.Decimal { return l.fee }

// Apply adds amount (signed) to the driver's balance and appends the matching
// transaction, both in one database transaction. It enforces no floor: negative
// balances and inactive drivers are the caller's policy.
func (l *Ledger) Apply(ctx context.Context, driverID string, amount decimal.Decimal, kind models.TransactionType) (decimal.Decimal, error) {
	return l.apply(ctx, driverID, amount, kind, nil)
}

// Charge credits an admin-entered amount. Negative amounts are corrections.
func (l *Ledger) Charge(ctx context.Context, driverID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsZero() {
		return decimal.Zero, ErrInvalidAmount
	}
	return l.apply(ctx, driverID, amount, models.TransactionCredit, nil)
}

// Deliver deducts the delivery fee from an active driver whose balance covers it.
// Both checks run on the locked row, so they cannot race the debit.
func (l *Ledger) Deliver(ctx context.Context, driverID string) (decimal.Decimal, error) {
	return l.apply(ctx, driverID, l.fee.Neg(), models.TransactionDeliveryDebit, func(d *models.Driver) error {
		if !d.IsActive {
			return ErrInactiveDriver
		}
		if d.Balance.LessThan(l.fee) {
			return ErrInsufficientBalance
		}
		return nil
	})
}

func (l *Ledger) apply(ctx context.Context, driverID string, amount decimal.Decimal, kind models.TransactionType, check func(*models.Driver) error) (decimal.Decimal, error) {
	if !kind.Valid() {
		return decimal.Zero, ErrInvalidType
	}

	if l.locker != nil {
		unlock, err := l.locker.Lock(ctx, "driver:"+driverID)
		if err != nil {
			return decimal.Zero, storeErr("lock driver", err)
		}
		defer unlock()
	}

	var newBalance decimal.Decimal
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := l.registry.lockForUpdate(tx, driverID)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(d); err != nil {
				return err
			}
		}

		now := l.now().UTC().Truncate(time.Second)
		newBalance = d.Balance.Add(amount)
		// UpdateColumns skips the Driver hook that forbids balance writes.
		if err := tx.Model(&models.Driver{}).Where("id = ?", d.ID).
			UpdateColumns(map[string]any{"balance": newBalance, "updated_at": now}).Error; err != nil {
			return err
		}

		entry := models.Transaction{
			Ref:             uuid.NewString(),
			DriverID:        d.DriverID,
			DriverReference: d.Reference(),
			Amount:          amount,
			Type:            kind,
			Timestamp:       now,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrInactiveDriver), errors.Is(err, ErrInsufficientBalance):
			return decimal.Zero, err
		}
		return decimal.Zero, storeErr("apply", err)
	}

	cache.InvalidateDriver(ctx, l.cache, driverID)
	logrus.WithFields(logrus.Fields{
		"driver_id":   driverID,
		"type":        kind,
		"amount":      amount.String(),
		"new_balance": newBalance.String(),
	}).Info("ledger entry applied")
	return newBalance, nil
}

// History returns transactions newest first. An empty driverID returns the
// whole ledger.
func (l *Ledger) History(ctx context.Context, driverID string) ([]models.Transaction, error) {
	q := l.db.WithContext(ctx).Model(&models.Transaction{})
	if driverID != "" {
		q = q.Where("driver_id = ?", driverID)
	}
	rows := []models.Transaction{}
	if err := q.Order("timestamp DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, storeErr("history", err)
	}
	return rows, nil
}

// Totals sums driver balances and the ledger's credits and delivery debits.
// The balance sum comes from the drivers table; Reconcile reports any drift
// between the two.
func (l *Ledger) Totals(ctx context.Context) (Totals, error) {
	return cache.Remember(ctx, l.cache, cache.KeyTotals, func() (Totals, error) {
		var t Totals
		db := l.db.WithContext(ctx)

		if err := db.Model(&models.Driver{}).Select("COALESCE(SUM(balance), 0)").Row().Scan(&t.Balance); err != nil {
			return Totals{}, storeErr("totals", err)
		}

		var agg struct {
			Charged    decimal.Decimal
			Debited    decimal.Decimal
			Deliveries int64
		}
		err := db.Raw(`
SELECT
    COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0) AS charged,
    COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0) AS debited,
    COUNT(CASE WHEN type = ? THEN 1 END) AS deliveries
FROM transactions`,
			string(models.TransactionCredit),
			string(models.TransactionDeliveryDebit),
			string(models.TransactionDeliveryDebit),
		).Scan(&agg).Error
		if err != nil {
			return Totals{}, storeErr("totals", err)
		}

		t.Charged = agg.Charged
		t.Deducted = agg.Debited.Abs()
		t.Deliveries = agg.Deliveries
		return t, nil
	})
}

// DeliveriesPerDriver counts delivery debits by driver_id.
func (l *Ledger) DeliveriesPerDriver(ctx context.Context) (map[string]int64, error) {
	return cache.Remember(ctx, l.cache, cache.KeyDeliveries, func() (map[string]int64, error) {
		var rows []struct {
			DriverID   string
			Deliveries int64
		}
		err := l.db.WithContext(ctx).Model(&models.Transaction{}).
			Select("driver_id, COUNT(*) AS deliveries").
			Where("type = ?", string(models.TransactionDeliveryDebit)).
			Group("driver_id").
			Scan(&rows).Error
		if err != nil {
			return nil, storeErr("deliveries per driver", err)
		}
		out := make(map[string]int64, len(rows))
		for _, r := range rows {
			out[r.DriverID] = r.Deliveries
		}
		return out, nil
	})
}

// Reconcile lists drivers whose balance is not the sum of their transactions.
// An empty result means the ledger and the cached balances agree.
func (l *Ledger) Reconcile(ctx context.Context) ([]Drift, error) {
	var rows []struct {
		DriverID      string
		Balance       decimal.Decimal
		LedgerBalance decimal.Decimal
	}
	err := l.db.WithContext(ctx).Raw(`
SELECT drivers.driver_id, drivers.balance, COALESCE(t.total, 0) AS ledger_balance
FROM drivers
LEFT JOIN (
    SELECT driver_id, SUM(amount) AS total
    FROM transactions
    GROUP BY driver_id
) t ON t.driver_id = drivers.driver_id
ORDER BY drivers.id`).Scan(&rows).Error
	if err != nil {
		return nil, storeErr("reconcile", err)
	}

	drift := []Drift{}
	for _, r := range rows {
		if !r.Balance.Equal(r.LedgerBalance) {
			drift = append(drift, Drift{DriverID: r.DriverID, Balance: r.Balance, LedgerBalance: r.LedgerBalance})
		}
	}
	return drift, nil
}
