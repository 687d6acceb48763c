package ledger

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"courier_ledger/internal/models"
)

var (
	// ErrNotFound means no driver has the requested driver_id.
	ErrNotFound = errors.New("driver not found")

	// ErrConflict means the driver_id is already registered.
	ErrConflict = errors.New("driver id already registered")

	// ErrInvalidDriver means driver_id or name is empty.
	ErrInvalidDriver = errors.New("driver id and name are required")

	ErrInvalidType   = errors.New("unknown transaction type")
	ErrInvalidAmount = errors.New("amount must not be zero")

	// ErrInactiveDriver and ErrInsufficientBalance are policy rejections raised
	// by Deliver; Apply never returns them.
	ErrInactiveDriver      = errors.New("driver is inactive")
	ErrInsufficientBalance = errors.New("insufficient balance")

	ErrAppendOnly      = models.ErrAppendOnly
	ErrBalanceReadOnly = models.ErrBalanceReadOnly
)

// StoreError wraps any other failure from the database. Its message is
// deliberately generic; the cause is kept for logging.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return "ledger: " + e.Op + ": store error" }

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

const pgUniqueViolation = "23505"

// isUniqueViolation recognises unique-constraint failures from the drivers we run on.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// gorm.io/driver/postgres runs on pgx; pq errors only reach here from a
	// *sql.DB opened with the lib/pq driver and handed to gorm.
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) && pgxErr.Code == pgUniqueViolation {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "unique constraint failed")
}
