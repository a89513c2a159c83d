// Package export writes the currently filtered orders or products to an
// Excel workbook.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ashendes/store-console/internal/models"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the produced workbooks
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const timeLayout = "2006-01-02 15:04"

var (
	orderHeaders   = []string{"#", "Order ID", "Order No.", "Customer", "Email", "Phone", "Shipping Address", "Items", "Total", "Payment", "Status", "Created"}
	productHeaders = []string{"#", "Product ID", "Name", "Category", "Stock", "Variants", "Images", "Description"}
)

// Orders writes orders, one row each, on a sheet named after source
func Orders(source models.SourceTag, orders []models.Order) (*bytes.Buffer, error) {
	sheetName := sheetTitle(string(source)) + " Orders"
	rows := make([][]interface{}, 0, len(orders))
	for i, o := range orders {
		created := ""
		if !o.CreatedAt.IsZero() {
			created = o.CreatedAt.Format(timeLayout)
		}
		rows = append(rows, []interface{}{
			i + 1,
			o.ID,
			o.Number,
			o.CustomerName,
			o.CustomerEmail,
			o.CustomerPhone,
			address(o.ShippingAddress),
			lineItems(o.LineItems),
			o.Total.InexactFloat64(),
			o.PaymentMethod,
			string(o.Status),
			created,
		})
	}
	return write(sheetName, orderHeaders, rows, map[int]bool{8: true})
}

// Products writes products, one row each
func Products(products []models.Product) (*bytes.Buffer, error) {
	rows := make([][]interface{}, 0, len(products))
	for i, p := range products {
		rows = append(rows, []interface{}{
			i + 1,
			p.ID,
			p.Name,
			p.Category,
			p.Stock,
			variantList(p.Variants),
			len(p.Images),
			p.Description,
		})
	}
	return write("Products", productHeaders, rows, nil)
}

func write(sheetName string, headers []string, rows [][]interface{}, money map[int]bool) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	// Style for header row
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("amount style: %w", err)
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, err
		}
		colName, _ := excelize.ColumnNumberToName(i + 1)
		width := 20.0
		if i == 0 {
			width = 6
		}
		if err := f.SetColWidth(sheetName, colName, colName, width); err != nil {
			return nil, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return nil, err
	}

	for r, row := range rows {
		start, _ := excelize.CoordinatesToCellName(1, r+2)
		values := row
		if err := f.SetSheetRow(sheetName, start, &values); err != nil {
			return nil, fmt.Errorf("row %d: %w", r+1, err)
		}
		for col := range money {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			if err := f.SetCellStyle(sheetName, cell, cell, moneyStyle); err != nil {
				return nil, err
			}
		}
	}

	if len(rows) > 0 {
		if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func address(a models.Address) string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func lineItems(items []models.LineItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		s := fmt.Sprintf("%s x%d @ %s", item.Name, item.Quantity, item.UnitPrice.StringFixed(2))
		if item.Status != "" {
			s += " [" + item.Status + "]"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "; ")
}

func variantList(variants []models.Variant) string {
	parts := make([]string, 0, len(variants))
	for _, v := range variants {
		parts = append(parts, v.Quantity+": "+v.Price.StringFixed(2))
	}
	return strings.Join(parts, ", ")
}

// sheetTitle upper-cases the first letter of a source tag
func sheetTitle(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// FileName is the attachment name for a workbook of kind
func FileName(kind string) string {
	return strings.ToLower(strings.ReplaceAll(kind, " ", "_")) + ".xlsx"
}
