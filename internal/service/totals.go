package service

import (
	"github.com/shopspring/decimal"

	"stockflow/internal/domain"
)

// AggregateTotal sums quantity * unit price over lines in exact decimal.
func AggregateTotal(lines []domain.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}
