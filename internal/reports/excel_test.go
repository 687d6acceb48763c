package reports

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"courier_ledger/internal/ledger"
	"courier_ledger/internal/models"
)

func cellValue(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell)
	if err != nil {
		t.Fatalf("GetCellValue(%s): %v", cell, err)
	}
	return v
}

func TestDriversWorkbook(t *testing.T) {
	rows := []ledger.DriverSummary{
		{Driver: models.Driver{DriverID: "D1", Name: "Ali", BikePlate: "123", WhatsApp: "+9647700000000", IsActive: true, Balance: decimal.RequireFromString("85")}, Deliveries: 1},
		{Driver: models.Driver{DriverID: "D2", Name: "Sami", Notes: "on leave", Balance: decimal.RequireFromString("30.5")}},
	}
	f, err := DriversWorkbook(rows)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	want := map[string]string{
		"A1": "ت", "B1": "الترقيم", "I1": "ملاحظات",
		"A2": "1", "B2": "D1", "C2": "Ali", "D2": "123", "F2": "85", "G2": "1", "H2": models.StatusActiveLabel,
		"A3": "2", "B3": "D2", "F3": "30.5", "G3": "0", "H3": models.StatusInactiveLabel, "I3": "on leave",
	}
	for cell, v := range want {
		if got := cellValue(t, f, DriversSheet, cell); got != v {
			t.Errorf("%s = %q, want %q", cell, got, v)
		}
	}
}

func TestTransactionsWorkbookRoundTrip(t *testing.T) {
	rows := []models.Transaction{
		{DriverReference: "Ali (ID:D1)", Type: models.TransactionDeliveryDebit, Amount: decimal.NewFromInt(-15), Timestamp: time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)},
		{DriverReference: "Ali (ID:D1)", Type: models.TransactionCredit, Amount: decimal.NewFromInt(100), Timestamp: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)},
	}
	f, err := TransactionsWorkbook(rows)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, f); err != nil {
		t.Fatal(err)
	}
	back, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer back.Close()

	got, err := back.GetRows(TransactionsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("rows=%d want 3", len(got))
	}
	if got[0][0] != "المندوب" || got[0][3] != "التوقيت" {
		t.Fatalf("headings %v", got[0])
	}
	if got[1][1] != "خصم توصيلة" || got[1][2] != "-15" || got[1][3] != "2026-01-02 09:30:00" {
		t.Fatalf("row 1 %v", got[1])
	}
	if got[2][1] != "شحن رصيد" || got[2][2] != "100" {
		t.Fatalf("row 2 %v", got[2])
	}
}

type closeRecorder struct {
	closed int
	err    error
}

func (c *closeRecorder) Close() error {
	c.closed++
	return c.err
}

func TestFillRowsFailureReturnsNoFile(t *testing.T) {
	f, err := fillRows(excelize.NewFile(), "missing", [][]any{{"x"}})
	if err == nil {
		t.Fatal("want error for a missing sheet")
	}
	if f != nil {
		t.Fatal("failed build returned a workbook")
	}
}

func TestAbandonClosesWorkbook(t *testing.T) {
	cause := errors.New("row failed")

	c := &closeRecorder{}
	if err := abandon(c, cause); !errors.Is(err, cause) || c.closed != 1 {
		t.Fatalf("err=%v closed=%d", err, c.closed)
	}

	closeErr := errors.New("close failed")
	c = &closeRecorder{err: closeErr}
	err := abandon(c, cause)
	if !errors.Is(err, cause) || !errors.Is(err, closeErr) || c.closed != 1 {
		t.Fatalf("err=%v closed=%d", err, c.closed)
	}
}
