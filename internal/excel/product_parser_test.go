package excel

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestParseProductRows_Excel(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"Product Name", "Description", "Unit_Price", "Qty", "Reorder Threshold"},
		{"  Desk   Lamp ", "LED", "12.50", "4", "2"},
		{"", "skipped", "1", "1", "1"},
		{"Chair", "", "1,030.00", "", ""},
	})

	rows, err := ParseProductRows("products.xlsx", buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	lamp := rows[0]
	if lamp.Name != "Desk Lamp" || lamp.Description != "LED" || lamp.Stock != 4 || lamp.ReorderThreshold != 2 {
		t.Fatalf("unexpected lamp row: %+v", lamp)
	}
	if !lamp.Price.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("expected price 12.50, got %s", lamp.Price)
	}
	chair := rows[1]
	if !chair.Price.Equal(decimal.NewFromInt(1030)) || chair.Stock != 0 {
		t.Fatalf("unexpected chair row: %+v", chair)
	}
}

func TestParseProductRows_CSV(t *testing.T) {
	data := "\ufeffnombre,precio,cantidad\nMouse,5.25,10\n"
	rows, err := ParseProductRows("export.CSV", strings.NewReader(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Mouse" || rows[0].Stock != 10 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestParseProductRows_Errors(t *testing.T) {
	cases := map[string][][]any{
		"missing price column": {{"name", "stock"}, {"A", "1"}},
		"bad price":            {{"name", "price"}, {"A", "cheap"}},
		"negative price":       {{"name", "price"}, {"A", "-1"}},
		"fractional stock":     {{"name", "price", "stock"}, {"A", "1", "1.5"}},
		"negative stock":       {{"name", "price", "stock"}, {"A", "1", "-2"}},
		"price too precise":    {{"name", "price"}, {"A", "0.00005"}},
		"stock above int32":    {{"name", "price", "stock"}, {"A", "1", "3000000000"}},
		"no data rows":         {{"name", "price"}},
	}
	for name, rows := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseProductRows("in.xlsx", buildWorkbook(t, rows)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	if _, err := ParseProductRows("in.xlsx", bytes.NewReader(nil)); err == nil {
		t.Fatalf("expected error for empty input")
	}
	if _, err := ParseProductRows("in.xlsx", strings.NewReader("not a workbook")); err == nil {
		t.Fatalf("expected error for garbage input")
	}
}
