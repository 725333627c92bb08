package sales

import (
	"context"
	"log/slog"
	"time"

	"github.com/aquelehotdogs/comanda/internal/shared"
	"github.com/aquelehotdogs/comanda/internal/store"
)

// RemotePort is the slice of the backend API this service uses. Sales are
// immutable, so only creation exists.
type RemotePort interface {
	CreateSale(ctx context.Context, body store.Sale) (store.Sale, error)
}

// FallbackPort persists the local snapshot after each mutation.
type FallbackPort interface {
	SaveSales(ctx context.Context, list []store.Sale) error
}

// StockWriter applies a deduction to one stock item, persisting it
// remote-first with local fallback.
type StockWriter interface {
	SetQuantity(ctx context.Context, id int, qty float64) (store.StockItem, error)
}

// Service records sales and runs the stock-deduction reconciliation that
// follows each one.
type Service struct {
	store    *store.Store
	remote   RemotePort
	fallback FallbackPort
	stock    StockWriter
	notifier shared.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(st *store.Store, remote RemotePort, fallback FallbackPort, stock StockWriter, notifier shared.Notifier, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		remote:   remote,
		fallback: fallback,
		stock:    stock,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Record persists a new sale and reconciles stock for its sold items. It is
// called exactly once per order payment; the sale is immutable afterwards.
func (s *Service) Record(ctx context.Context, sale store.Sale) (store.Sale, error) {
	sale.ID = 0
	if sale.Date.IsZero() {
		sale.Date = s.now()
	}
	recorded, err := s.remote.CreateSale(ctx, sale)
	if err != nil {
		s.logger.Warn("sales: remote create failed, assigning local id", "err", err)
		s.store.MarkDegraded()
		sale.ID = s.store.NextSaleID()
		recorded = sale
	}
	s.store.UpsertSale(recorded)
	if err := s.fallback.SaveSales(ctx, s.store.Sales()); err != nil {
		s.logger.Warn("sales: fallback persist failed", "err", err)
	}
	s.Reconcile(ctx, recorded.Items)
	return recorded, nil
}

// List serves the in-memory collection.
func (s *Service) List() []store.Sale {
	return s.store.Sales()
}

// Reconcile walks sold items back through the association table and deducts
// stock. Items run strictly in input order, one persisted write at a time:
// two sold items in the same sale can share a stock item, and concurrent
// read-modify-write would lose a deduction.
//
// Failures are absorbed per item so one bad line never aborts the rest of
// the sale's bookkeeping.
func (s *Service) Reconcile(ctx context.Context, items []store.SoldItem) {
	for _, sold := range items {
		product, ok := s.store.ProductByName(sold.Name)
		if !ok {
			// Legacy orders carry free-text item names; not an error.
			s.logger.Info("sales: sold item has no matching product, skipping", "item", sold.Name)
			continue
		}
		links := s.store.AssociationsForProduct(product.ID)
		if len(links) == 0 {
			continue
		}
		for _, link := range links {
			s.deduct(ctx, sold, link)
		}
	}
}

func (s *Service) deduct(ctx context.Context, sold store.SoldItem, link store.Association) {
	item, ok := s.store.StockItemByID(link.StockItemID)
	if !ok {
		s.logger.Warn("sales: associated stock item missing, skipping", "item_id", link.StockItemID)
		return
	}
	before := item.Quantity
	newQty := before - float64(sold.Quantity)*link.QuantityPerUnit
	if newQty < 0 {
		newQty = 0
	}
	updated, err := s.stock.SetQuantity(ctx, item.ID, newQty)
	if err != nil {
		s.logger.Warn("sales: stock deduction failed, continuing", "item", item.Name, "err", err)
		return
	}
	// Edge-triggered: alert only on the deduction that crosses the
	// threshold, not on every sale while already below it.
	if before > updated.MinimumStock && updated.Quantity <= updated.MinimumStock {
		s.notifier.LowStock(ctx, shared.LowStockAlert{
			ItemID:       updated.ID,
			Name:         updated.Name,
			Quantity:     updated.Quantity,
			MinimumStock: updated.MinimumStock,
			Unit:         string(updated.Unit),
		})
	}
}
