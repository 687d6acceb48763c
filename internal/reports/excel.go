// Package reports renders the admin tables as XLSX workbooks.
package reports

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"courier_ledger/internal/ledger"
	"courier_ledger/internal/models"
)

const (
	DriversSheet      = "المناديب"
	TransactionsSheet = "العمليات"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	driverHeadings      = []string{"ت", "الترقيم", "الاسم", "رقم اللوحة", "واتساب", "الرصيد", "عدد التوصيلات", "الحالة", "ملاحظات"}
	transactionHeadings = []string{"المندوب", "العملية", "المبلغ", "التوقيت"}
)

const timeLayout = "2006-01-02 15:04:05"

// DriversWorkbook builds the driver table with one row per summary, numbered from 1.
func DriversWorkbook(rows []ledger.DriverSummary) (*excelize.File, error) {
	f, err := newSheet(DriversSheet, driverHeadings)
	if err != nil {
		return nil, err
	}
	values := make([][]any, len(rows))
	for i, d := range rows {
		values[i] = []any{
			i + 1,
			d.DriverID,
			d.Name,
			d.BikePlate,
			d.WhatsApp,
			d.Balance.InexactFloat64(),
			d.Deliveries,
			d.StatusLabel(),
			d.Notes,
		}
	}
	return fillRows(f, DriversSheet, values)
}

// TransactionsWorkbook builds the ledger table in the order given.
func TransactionsWorkbook(rows []models.Transaction) (*excelize.File, error) {
	f, err := newSheet(TransactionsSheet, transactionHeadings)
	if err != nil {
		return nil, err
	}
	values := make([][]any, len(rows))
	for i, t := range rows {
		values[i] = []any{
			t.DriverReference,
			t.Type.Label(),
			t.Amount.InexactFloat64(),
			t.Timestamp.UTC().Format(timeLayout),
		}
	}
	return fillRows(f, TransactionsSheet, values)
}

// Write streams f to w and closes it.
func Write(w io.Writer, f *excelize.File) error {
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func newSheet(name string, headings []string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return nil, abandon(f, err)
	}
	rtl := true
	if err := f.SetSheetView(name, -1, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
		return nil, abandon(f, err)
	}
	cells := make([]any, len(headings))
	for i, h := range headings {
		cells[i] = h
	}
	if err := setRow(f, name, 1, cells); err != nil {
		return nil, abandon(f, err)
	}
	last, _ := excelize.ColumnNumberToName(len(headings))
	if err := f.SetColWidth(name, "A", last, 18); err != nil {
		return nil, abandon(f, err)
	}
	return f, nil
}

// fillRows writes rows below the heading row. On failure f is closed and
// must not be used again.
func fillRows(f *excelize.File, sheet string, rows [][]any) (*excelize.File, error) {
	for i, values := range rows {
		if err := setRow(f, sheet, i+2, values); err != nil {
			return nil, abandon(f, err)
		}
	}
	return f, nil
}

// abandon closes a workbook that failed to build and returns err.
func abandon(f io.Closer, err error) error {
	if cerr := f.Close(); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
