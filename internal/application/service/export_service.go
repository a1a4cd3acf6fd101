package service

import (
	"context"
	"fmt"

	"github.com/garyjia/factura-chat/internal/application/port"
	"github.com/xuri/excelize/v2"
)

const (
	ledgerSheet    = "Facturas"
	exportPageSize = 500
)

var ledgerHeaders = []string{
	"Número", "Fecha", "Tipo", "Cliente", "Tipo Doc.", "Documento",
	"Concepto", "Descripción", "Importe", "CAE", "Vencimiento CAE",
}

// ExportService renders the issued invoice ledger as an XLSX workbook
type ExportService struct {
	repo   port.IssuedInvoiceRepository
	logger Logger
}

// NewExportService creates a new ExportService
func NewExportService(repo port.IssuedInvoiceRepository, logger Logger) *ExportService {
	return &ExportService{repo: repo, logger: orNop(logger)}
}

// ExportLedgerXLSX returns every issued invoice, newest first, as XLSX bytes
func (s *ExportService) ExportLedgerXLSX(ctx context.Context) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range ledgerHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(ledgerSheet, cell, h)
	}

	row := 2
	for offset := 0; ; offset += exportPageSize {
		page, err := s.repo.List(ctx, exportPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("query invoices: %w", err)
		}

		for _, inv := range page {
			amount, _ := inv.Amount.Float64()
			values := []any{
				inv.Number,
				inv.Date,
				"Factura " + string(inv.VoucherType),
				inv.Customer.Name,
				string(inv.Customer.DocumentKind),
				inv.Customer.Document,
				string(inv.Concept),
				inv.Description,
				amount,
				inv.CAE,
				inv.CAEExpiry,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				_ = f.SetCellValue(ledgerSheet, cell, v)
			}
			row++
		}

		if len(page) < exportPageSize {
			break
		}
	}

	_ = f.SetColWidth(ledgerSheet, "A", "A", 18)
	_ = f.SetColWidth(ledgerSheet, "D", "D", 28)
	_ = f.SetColWidth(ledgerSheet, "H", "H", 40)
	_ = f.SetColWidth(ledgerSheet, "J", "J", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("Ledger exported", "rows", row-2)
	return buf.Bytes(), nil
}
