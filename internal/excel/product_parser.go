package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"stockflow/internal/domain"
)

var headerAliases = map[string]string{
	"name":              "name",
	"product":           "name",
	"product name":      "name",
	"nombre":            "name",
	"producto":          "name",
	"description":       "description",
	"descripcion":       "description",
	"descripción":       "description",
	"price":             "price",
	"unit price":        "price",
	"sell price":        "price",
	"precio":            "price",
	"stock":             "stock",
	"quantity":          "stock",
	"qty":               "stock",
	"cantidad":          "stock",
	"reorder threshold": "reorder_threshold",
	"threshold":         "reorder_threshold",
	"min stock":         "reorder_threshold",
	"alarm":             "reorder_threshold",
	"stock minimo":      "reorder_threshold",
	"stock mínimo":      "reorder_threshold",
}

// ParseProductRows reads a product sheet. xlsx files use their first sheet;
// a .csv name switches to CSV parsing. Blank-name rows are skipped.
func ParseProductRows(fileName string, reader io.Reader) ([]domain.ProductImportRow, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}

	var rows [][]string
	if strings.EqualFold(filepath.Ext(fileName), ".csv") {
		rows, err = parseCSVRows(data)
	} else {
		rows, err = parseExcelRows(data)
	}
	if err != nil {
		return nil, err
	}
	return parseProductTable(rows)
}

func parseCSVRows(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv file is empty")
	}
	return rows, nil
}

func parseExcelRows(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open excel file: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("excel file is empty")
	}
	return rows, nil
}

func parseProductTable(rows [][]string) ([]domain.ProductImportRow, error) {
	colMap := mapColumns(rows[0])
	for _, required := range []string{"name", "price"} {
		if _, ok := colMap[required]; !ok {
			return nil, fmt.Errorf("missing required column: %s", required)
		}
	}

	result := make([]domain.ProductImportRow, 0, len(rows)-1)
	for index := 1; index < len(rows); index++ {
		cells := rows[index]
		name := cleanText(readCell(cells, colMap["name"]))
		if name == "" {
			continue
		}

		price, err := parsePrice(readCell(cells, colMap["price"]))
		if err != nil {
			return nil, fmt.Errorf("row %d invalid price: %w", index+1, err)
		}

		row := domain.ProductImportRow{
			Name:        name,
			Description: cleanText(readOptionalCell(cells, colMap, "description")),
			Price:       price,
		}
		if raw := strings.TrimSpace(readOptionalCell(cells, colMap, "stock")); raw != "" {
			if row.Stock, err = parseCount(raw); err != nil {
				return nil, fmt.Errorf("row %d invalid stock: %w", index+1, err)
			}
		}
		if raw := strings.TrimSpace(readOptionalCell(cells, colMap, "reorder_threshold")); raw != "" {
			if row.ReorderThreshold, err = parseCount(raw); err != nil {
				return nil, fmt.Errorf("row %d invalid reorder_threshold: %w", index+1, err)
			}
		}
		result = append(result, row)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("file has no valid data rows")
	}
	return result, nil
}

func mapColumns(header []string) map[string]int {
	mapped := make(map[string]int)
	for idx, col := range header {
		normalized := normalizeHeader(col)
		if normalized == "" {
			continue
		}
		canonical, ok := headerAliases[normalized]
		if !ok {
			continue
		}
		if _, exists := mapped[canonical]; !exists {
			mapped[canonical] = idx
		}
	}
	return mapped
}

func normalizeHeader(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "\ufeff")
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", " ")
	return strings.Join(strings.Fields(value), " ")
}

func readCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func readOptionalCell(cells []string, colMap map[string]int, key string) string {
	idx, ok := colMap[key]
	if !ok {
		return ""
	}
	return readCell(cells, idx)
}

func cleanText(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func parseCount(raw string) (int, error) {
	value := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if value == "" {
		return 0, fmt.Errorf("value is empty")
	}
	asFloat, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if math.Mod(asFloat, 1) != 0 {
		return 0, fmt.Errorf("must be an integer")
	}
	if asFloat < 0 {
		return 0, fmt.Errorf("cannot be negative")
	}
	if asFloat > domain.MaxQuantity {
		return 0, fmt.Errorf("must not exceed %d", domain.MaxQuantity)
	}
	return int(asFloat), nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	value := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if value == "" {
		return decimal.Zero, fmt.Errorf("value is empty")
	}
	price, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number")
	}
	if err := domain.CheckPrice(price); err != nil {
		return decimal.Zero, fmt.Errorf("price %w", err)
	}
	return price, nil
}
