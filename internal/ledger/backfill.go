package ledger

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"courier_ledger/internal/models"
)

// BackfillResult summarises a BackfillDriverIDs run.
type BackfillResult struct {
	Scanned     int      `json:"scanned"`
	Updated     int      `json:"updated"`
	Unparseable []uint   `json:"unparseable"` // transaction ids whose label has no driver id
	Orphaned    []string `json:"orphaned"`    // recovered ids with no matching driver
}

// BackfillDriverIDs fills transactions.driver_id for rows written before the
// column existed, recovering the id from the "<name> (ID:<id>)" label.
// Rows are updated with raw SQL: this is the only sanctioned write to an
// existing ledger entry and it never touches amount, type or timestamp.
func BackfillDriverIDs(ctx context.Context, db *gorm.DB, batch int, dryRun bool) (BackfillResult, error) {
	if batch <= 0 {
		batch = 500
	}
	var res BackfillResult
	known := map[string]bool{}
	lastID := uint(0)

	for {
		var rows []models.Transaction
		err := db.WithContext(ctx).
			Where("driver_id = ? AND id > ?", "", lastID).
			Order("id").Limit(batch).
			Find(&rows).Error
		if err != nil {
			return res, storeErr("backfill scan", err)
		}
		if len(rows) == 0 {
			return res, nil
		}

		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, row := range rows {
				lastID = row.ID
				res.Scanned++
				id, ok := models.ParseDriverReference(row.DriverReference)
				if !ok {
					res.Unparseable = append(res.Unparseable, row.ID)
					continue
				}
				exists, seen := known[id]
				if !seen {
					var n int64
					if err := tx.Model(&models.Driver{}).Where("driver_id = ?", id).Count(&n).Error; err != nil {
						return err
					}
					exists = n > 0
					known[id] = exists
					if !exists {
						res.Orphaned = append(res.Orphaned, id)
					}
				}
				if dryRun {
					res.Updated++
					continue
				}
				if err := tx.Exec("UPDATE transactions SET driver_id = ? WHERE id = ? AND driver_id = ?", id, row.ID, "").Error; err != nil {
					return err
				}
				res.Updated++
			}
			return nil
		})
		if err != nil {
			return res, storeErr("backfill update", err)
		}
		logrus.WithFields(logrus.Fields{"scanned": res.Scanned, "updated": res.Updated, "dry_run": dryRun}).Info("backfill batch done")
	}
}
