// Package cache memoizes read-side queries for a short freshness window.
//
// Every read path builds its key with the helpers below, and every write
// calls InvalidateDriver so a write is never followed by a stale read.
package cache

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// Cache stores JSON-encodable values under string keys with a fixed TTL.
type Cache interface {
	// Get decodes the cached value into dest and reports whether it was present.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

const (
	driverPrefix = "driver:"
	searchPrefix = "search:"

	KeyDriverSummaries = "drivers:summary"
	KeyTotals          = "ledger:totals"
	KeyDeliveries      = "ledger:deliveries"
)

func DriverKey(driverID string) string { return driverPrefix + driverID }

// SearchKey is case-folded because search matching is case-insensitive.
func SearchKey(term string, all bool) string {
	mode := "one:"
	if all {
		mode = "all:"
	}
	return searchPrefix + mode + strings.ToLower(strings.TrimSpace(term))
}

// InvalidateDriver drops every cached read a write to driverID can affect:
// the driver itself, any search result, the summary list and ledger aggregates.
// Failures are logged; the entries still expire with the TTL.
func InvalidateDriver(ctx context.Context, c Cache, driverID string) {
	if err := c.Delete(ctx, DriverKey(driverID), KeyDriverSummaries, KeyTotals, KeyDeliveries); err != nil {
		logrus.WithError(err).WithField("driver_id", driverID).Warn("cache invalidation failed")
	}
	if err := c.DeletePrefix(ctx, searchPrefix); err != nil {
		logrus.WithError(err).WithField("driver_id", driverID).Warn("search cache invalidation failed")
	}
}

// Remember returns the cached value for key or loads, stores and returns it.
// A broken cache never fails the read.
func Remember[T any](ctx context.Context, c Cache, key string, load func() (T, error)) (T, error) {
	var cached T
	ok, err := c.Get(ctx, key, &cached)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache read failed")
	} else if ok {
		return cached, nil
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if err := c.Set(ctx, key, v); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache write failed")
	}
	return v, nil
}

// Nop never stores anything; every read goes to the store.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any) error { return nil }
func (Nop) Delete(context.Context, ...string) error { return nil }
func (Nop) DeletePrefix(context.Context, string) error { return nil }
