package ledger

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"courier_ledger/internal/cache"
	"courier_ledger/internal/config"
)

// newTestDB opens a migrated SQLite database private to the test. One
// connection keeps SQLite's writer lock out of the way.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// stepClock returns a clock that advances one second per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Second)
		return now
	}
}

type fixture struct {
	db       *gorm.DB
	registry *Registry
	ledger   *Ledger
}

func newFixture(t *testing.T, c cache.Cache, opts ...Option) fixture {
	t.Helper()
	db := newTestDB(t)
	reg := NewRegistry(db, c, WithPhoneRegion("US"))
	opts = append([]Option{WithClock(stepClock(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)))}, opts...)
	return fixture{db: db, registry: reg, ledger: NewLedger(reg, opts...)}
}

func (f fixture) register(t *testing.T, id, name string, active bool) {
	t.Helper()
	if _, err := f.registry.Register(context.Background(), DriverInput{DriverID: id, Name: name, IsActive: active}); err != nil {
		t.Fatalf("Register(%s): %v", id, err)
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s = %s, want %s", what, got, want)
	}
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}
