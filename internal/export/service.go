package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

// Reader is the part of the dataset store the export needs.
type Reader interface {
	ListPropertyIDs(ctx context.Context) ([]string, error)
	GetDataset(ctx context.Context, propertyID string) (*entity.Dataset, error)
}

// Service produces XLSX bytes with the user-visible fields of every stored dataset.
type Service struct {
	store  Reader
	logger *slog.Logger
}

func NewService(store Reader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

const sheet = "Datasets"

var headers = []string{
	"Property ID",
	"Tax Year",
	"Annualized Amount Due",
	"Amount Due At Closing",
	"County",
	"Parcel Number",
	"Next Tax Payment Date",
	"Following Tax Payment Date",
}

// ExportDatasetsXLSX returns a workbook with one row per property, ordered by id.
// Hidden fields never reach the sheet.
func (s *Service) ExportDatasetsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()
	ids, err := s.store.ListPropertyIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, id := range ids {
		d, err := s.store.GetDataset(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("read dataset %s: %w", id, err)
		}
		if d == nil {
			continue
		}
		v := d.Visible()
		write := func(col int, val any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, val)
		}
		write(1, id)
		write(2, str(v.TaxYear))
		write(3, num(v.AnnualizedAmountDue))
		write(4, num(v.AmountDueAtClosing))
		write(5, str(v.County))
		write(6, str(v.ParcelNumber))
		write(7, str(v.NextTaxPaymentDate))
		write(8, str(v.FollowingTaxPaymentDate))
		row++
	}

	moneyFmt := "#,##0.00"
	if style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt}); err == nil && row > 2 {
		_ = f.SetCellStyle(sheet, "C2", fmt.Sprintf("D%d", row-1), style)
	}
	_ = f.SetColWidth(sheet, "A", "A", 14)
	_ = f.SetColWidth(sheet, "B", "B", 10)
	_ = f.SetColWidth(sheet, "C", "D", 22)
	_ = f.SetColWidth(sheet, "E", "F", 20)
	_ = f.SetColWidth(sheet, "G", "H", 26)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"rows", row-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func str(p *string) any {
	if p == nil {
		return ""
	}
	return *p
}

func num(p *float64) any {
	if p == nil {
		return ""
	}
	return *p
}
