package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/aquelehotdogs/comanda/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeLowStock is the task type for low-stock alerts.
	TaskTypeLowStock = "stock:low"
)

// LowStockPayload carries the alert details to the worker.
type LowStockPayload struct {
	ItemID       int     `json:"item_id"`
	Name         string  `json:"name"`
	Quantity     float64 `json:"quantity"`
	MinimumStock float64 `json:"minimum_stock"`
	Unit         string  `json:"unit"`
}

// NewLowStockTask constructs an Asynq task.
func NewLowStockTask(payload LowStockPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLowStock, data, asynq.Queue(QueueDefault)), nil
}

// LowStockHandler returns an asynq handler that logs the alert. Embedders
// that deliver alerts elsewhere register their own handler for
// TaskTypeLowStock instead.
func LowStockHandler(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LowStockPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		logger.Warn("stock below minimum",
			"item_id", payload.ItemID,
			"item", payload.Name,
			"quantity", payload.Quantity,
			"minimum", payload.MinimumStock,
			"unit", payload.Unit,
		)
		return nil
	}
}

// Notifier delivers low-stock alerts through the task queue instead of the
// logger. Enqueue failures are logged and dropped: alerting must never block
// or fail a sale.
type Notifier struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewNotifier builds a queue-backed notifier on the given Redis address.
func NewNotifier(redisAddr string, logger *slog.Logger) *Notifier {
	return &Notifier{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
		logger: logger,
	}
}

func (n *Notifier) LowStock(ctx context.Context, alert shared.LowStockAlert) {
	task, err := NewLowStockTask(LowStockPayload{
		ItemID:       alert.ItemID,
		Name:         alert.Name,
		Quantity:     alert.Quantity,
		MinimumStock: alert.MinimumStock,
		Unit:         alert.Unit,
	})
	if err != nil {
		n.logger.Warn("jobs: low-stock task encode failed", "err", err)
		return
	}
	if _, err := n.client.EnqueueContext(ctx, task); err != nil {
		n.logger.Warn("jobs: low-stock enqueue failed", "err", err)
	}
}

// Close releases the queue connection.
func (n *Notifier) Close() error {
	return n.client.Close()
}
