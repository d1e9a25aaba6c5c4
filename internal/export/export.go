// Package export writes transaction listings as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const sheetName = "Transactions"

var headers = []string{"Date", "Account", "Name", "Memo", "Amount", "Category", "ID"}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", ext)
	}
}

func row(t *domain.Transaction) []string {
	account := ""
	if t.Account != nil {
		account = t.Account.Name
	}
	return []string{t.Date.String(), account, t.Name, t.Memo, t.Amount, t.CategoryID, t.ID}
}

// Write writes txns to w in the given format, in order.
func Write(w io.Writer, format Format, txns []*domain.Transaction) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, txns)
	case FormatXLSX:
		return WriteXLSX(w, txns)
	}
	return fmt.Errorf("Write: unsupported format %q", format)
}

// WriteCSV writes a header row followed by one row per transaction.
func WriteCSV(w io.Writer, txns []*domain.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("WriteCSV: header: %w", err)
	}
	for _, t := range txns {
		if err := cw.Write(row(t)); err != nil {
			return fmt.Errorf("WriteCSV: transaction %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("WriteCSV: flush: %w", err)
	}
	return nil
}

// WriteXLSX writes a single-sheet workbook. Amounts are numeric cells.
func WriteXLSX(w io.Writer, txns []*domain.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("WriteXLSX: naming sheet: %w", err)
	}

	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("WriteXLSX: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("WriteXLSX: header %s: %w", h, err)
		}
	}

	for idx, t := range txns {
		values := make([]interface{}, 0, len(headers))
		for i, v := range row(t) {
			values = append(values, v)
			if headers[i] == "Amount" {
				if d, err := decimal.NewFromString(v); err == nil {
					values[i] = d.InexactFloat64()
				}
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, idx+2)
		if err != nil {
			return fmt.Errorf("WriteXLSX: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("WriteXLSX: transaction %s: %w", t.ID, err)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 12)
	_ = f.SetColWidth(sheetName, "B", "B", 20)
	_ = f.SetColWidth(sheetName, "C", "D", 30)
	_ = f.SetColWidth(sheetName, "E", "F", 12)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}
	return nil
}
