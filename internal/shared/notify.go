package shared

import (
	"context"
	"log/slog"
)

// LowStockAlert is emitted when a deduction takes a stock item at or below
// its configured minimum.
type LowStockAlert struct {
	ItemID       int
	Name         string
	Quantity     float64
	MinimumStock float64
	Unit         string
}

// Notifier receives low-stock alerts. Implementations must not block the
// reconciliation loop on delivery.
type Notifier interface {
	LowStock(ctx context.Context, alert LowStockAlert)
}

// LogNotifier reports alerts through the application logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) LowStock(_ context.Context, alert LowStockAlert) {
	n.Logger.Warn("stock below minimum",
		"item_id", alert.ItemID,
		"item", alert.Name,
		"quantity", alert.Quantity,
		"minimum", alert.MinimumStock,
		"unit", alert.Unit,
	)
}
