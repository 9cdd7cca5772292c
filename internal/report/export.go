package report

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/tair/stock-ledger/internal/session"
	"github.com/tair/stock-ledger/internal/sold"
)

// Sheet names in the exported workbook
const (
	SoldItemsSheet = "Sold Items"
	ProductsSheet  = "Products"
)

var (
	soldItemsHeader = []any{"Date Sold", "Product", "Customer", "Invoice", "IMEI", "Quantity", "Warranty Months", "Warranty Expiry", "Days Left", "Warranty Status"}
	productsHeader  = []any{"ID", "Name", "Category", "Price", "Quantity", "Supplier", "Expiry Date"}
)

// ExportXLSX writes a workbook with every sale (warranty state included) and the
// user's products to w
func (s *Service) ExportXLSX(ctx context.Context, sess *session.Session, w io.Writer) error {
	records, err := s.sold.List(ctx, sess, sold.Filter{Thresholds: s.opts.Thresholds})
	if err != nil {
		return err
	}
	products, err := s.inventory.List(ctx, sess)
	if err != nil {
		return err
	}

	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", SoldItemsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := file.NewSheet(ProductsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := writeRow(file, SoldItemsSheet, 1, soldItemsHeader); err != nil {
		return err
	}
	for i, r := range records {
		row := []any{
			r.DateSold.String(),
			r.ProductName,
			r.CustomerName,
			r.InvoiceNumber,
			r.IMEI,
			r.Units(),
			r.WarrantyMonths,
			r.Warranty.ExpiryDate.Format("2006-01-02"),
			r.Warranty.DaysLeft,
			string(r.Warranty.Status),
		}
		if err := writeRow(file, SoldItemsSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := writeRow(file, ProductsSheet, 1, productsHeader); err != nil {
		return err
	}
	for i, p := range products {
		row := []any{p.ID, p.Name, p.Category, p.Price, p.Quantity, p.Supplier, p.ExpiryDate.String()}
		if err := writeRow(file, ProductsSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(file *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
