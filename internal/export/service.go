package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// Columns is the fixed export header: the canonical fields, then the document name.
var Columns = constants.ExportColumns()

// SheetName is the worksheet holding the table in XLSX exports.
const SheetName = "Invoices"

// Service renders extraction results as tables.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// WriteCSV writes a header row and one row per record, in record order.
// Fields a record lacks are written as empty cells.
func (s *Service) WriteCSV(w io.Writer, records []entity.FieldRecord) error {
	start := time.Now()
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.Row(Columns)); err != nil {
			return fmt.Errorf("csv row %s: %w", r.PDFFile, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv flush: %w", err)
	}
	s.logger.Info("export.csv.ok", "rows", len(records), "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// ExportXLSX returns a workbook (as bytes) with the same table as WriteCSV.
func (s *Service) ExportXLSX(records []entity.FieldRecord) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	write := func(col, row int, v string) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellStr(SheetName, cell, v)
	}
	for i, h := range Columns {
		write(i+1, 1, h)
	}
	for i, r := range records {
		for j, v := range r.Row(Columns) {
			write(j+1, i+2, v)
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(SheetName, "A", "G", 20)
	_ = f.SetColWidth(SheetName, "H", "H", 40) // pdf_file

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok", "rows", len(records), "bytes", buf.Len(), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}
