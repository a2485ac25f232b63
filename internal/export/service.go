package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pantrytrack/receipt-parser/internal/common"
	"github.com/pantrytrack/receipt-parser/internal/repository"
)

// Service is a tiny façade over the parse store that produces XLSX bytes
// for exports.
type Service struct {
	store  repository.ParseStore
	logger *slog.Logger
}

func NewService(store repository.ParseStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// ExportItemsXLSX returns an XLSX workbook (as bytes) with every stored
// item for the household and date window, one row per purchased item.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all parses for the household.
func (s *Service) ExportItemsXLSX(ctx context.Context, householdID string, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 23, 59, 59, 0, time.UTC)
		toDate = &t
	}

	parses, err := s.store.ListResults(ctx, householdID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query parses: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Items"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Parsed At",
		"Merchant",
		"Item (as printed)",
		"Item (canonical)",
		"Price",
		"Department",
		"Source",
		"Confidence",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	rowCount := 0
	for _, p := range parses {
		for _, it := range p.Items {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(sheet, cell, v)
			}
			write(1, p.CreatedAt.Format("2006-01-02"))
			write(2, p.Merchant)
			write(3, it.RawName)
			write(4, it.ParsedName)
			write(5, common.FormatCents(it.PriceCents))
			write(6, it.Department)
			write(7, string(it.Source))
			write(8, fmt.Sprintf("%.2f", it.Confidence))
			row++
			rowCount++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 22)
	_ = f.SetColWidth(sheet, "C", "D", 30)
	_ = f.SetColWidth(sheet, "E", "E", 10)
	_ = f.SetColWidth(sheet, "F", "H", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"household_id", householdID,
		"rows", rowCount,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
