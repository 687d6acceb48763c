// Command backfill-driver-ref fills transactions.driver_id for ledger rows
// written before the column existed, using the "<name> (ID:<id>)" label.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	logrus "github.com/sirupsen/logrus"

	"courier_ledger/internal/config"
	"courier_ledger/internal/ledger"
	"courier_ledger/internal/logger"
)

func main() {
	batch := flag.Int("batch", 500, "rows per transaction")
	dryRun := flag.Bool("dry-run", false, "report what would change without writing")
	flag.Parse()

	logrus.SetLevel(logrus.InfoLevel)

	db, err := config.OpenDB(config.LoadDB(), logger.GormLogger(), 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database: %v\n", err)
		os.Exit(1)
	}
	if err := config.Migrate(db); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := ledger.BackfillDriverIDs(ctx, db, *batch, *dryRun)
	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	if err != nil {
		fmt.Fprintf(os.Stderr, "backfill stopped: %v\n", err)
		os.Exit(1)
	}
	if len(res.Unparseable) > 0 || len(res.Orphaned) > 0 {
		fmt.Fprintln(os.Stderr, "some rows need manual attention; see unparseable and orphaned")
	}
}
