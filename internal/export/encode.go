package export

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// SheetName is the single sheet of the xlsx export
const SheetName = "Rekap Data Detail"

// ParseFormat validates a requested format; empty means CSV
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns rekap-data-detail-<YYYY-MM-DD>.<ext>
func (f Format) Filename(now time.Time) string {
	return fmt.Sprintf("rekap-data-detail-%s.%s", now.Format("2006-01-02"), f)
}

// Encoder writes rows in one format. Dates are rendered in Location.
type Encoder struct {
	Format   Format
	Location *time.Location
}

// Encode renders rows fully in memory and then writes them to w, so a failure never
// leaves a partial file behind.
func (e *Encoder) Encode(w io.Writer, rows []Row) (int64, error) {
	var buf bytes.Buffer
	var err error
	switch e.Format {
	case FormatCSV, "":
		err = e.writeCSV(&buf, rows)
	case FormatXLSX:
		err = e.writeXLSX(&buf, rows)
	default:
		err = fmt.Errorf("unsupported format: %s", e.Format)
	}
	if err != nil {
		return 0, err
	}
	return buf.WriteTo(w)
}

func (e *Encoder) writeCSV(buf *bytes.Buffer, rows []Row) error {
	w := bufio.NewWriter(buf)
	writeCSVLine(w, Headers())
	for _, r := range rows {
		writeCSVLine(w, r.Values(e.Location))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// writeCSVLine quotes every field, doubling embedded quotes
func writeCSVLine(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteString("\r\n")
}

func (e *Encoder) writeXLSX(buf *bytes.Buffer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	// NewFile creates "Sheet1"; rename it instead of adding a second sheet
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, col := range Columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, name, name, col.Width); err != nil {
			return fmt.Errorf("failed to set width of column %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := writeSheetRow(f, 1, Headers()); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, header); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range rows {
		if err := writeSheetRow(f, i+2, r.Values(e.Location)); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(buf); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func writeSheetRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	vals := make([]interface{}, len(values))
	for i, v := range values {
		vals[i] = v
	}
	if err := f.SetSheetRow(SheetName, cell, &vals); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}
