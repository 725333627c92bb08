package stock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aquelehotdogs/comanda/internal/shared"
	"github.com/aquelehotdogs/comanda/internal/store"
)

// RemotePort is the slice of the backend API this service uses.
type RemotePort interface {
	CreateStockItem(ctx context.Context, body store.StockItem) (store.StockItem, error)
	UpdateStockItem(ctx context.Context, body store.StockItem) error
	DeleteStockItem(ctx context.Context, id int) error
	GetStockItem(ctx context.Context, id int) (store.StockItem, error)
}

// FallbackPort persists local snapshots. Stock deletion cascades over the
// association table and the product embedded views, so all three collections
// are saved.
type FallbackPort interface {
	SaveStock(ctx context.Context, list []store.StockItem) error
	SaveProducts(ctx context.Context, list []store.Product) error
	SaveAssociations(ctx context.Context, list []store.Association) error
}

// Service is the stock item repository.
type Service struct {
	store    *store.Store
	remote   RemotePort
	fallback FallbackPort
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(st *store.Store, remote RemotePort, fallback FallbackPort, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		remote:   remote,
		fallback: fallback,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// CreateInput carries the caller-supplied fields of a new stock item.
type CreateInput struct {
	Name         string  `validate:"required"`
	Quantity     float64 `validate:"gte=0"`
	Unit         string  `validate:"required,oneof=unidade kg g l ml caixa pacote"`
	UnitPrice    float64 `validate:"gt=0"`
	Category     string  `validate:"required"`
	MinimumStock float64 `validate:"gte=0"`
}

// Create adds a stock item, stamping LastUpdated.
func (s *Service) Create(ctx context.Context, in CreateInput) (store.StockItem, error) {
	if err := s.validate.Struct(in); err != nil {
		return store.StockItem{}, fmt.Errorf("stock: %w: %v", shared.ErrValidation, err)
	}
	it := store.StockItem{
		Name:         strings.TrimSpace(in.Name),
		Quantity:     in.Quantity,
		Unit:         store.Unit(in.Unit),
		UnitPrice:    in.UnitPrice,
		Category:     in.Category,
		LastUpdated:  s.now(),
		MinimumStock: in.MinimumStock,
	}
	created, err := s.remote.CreateStockItem(ctx, it)
	if err != nil {
		s.logger.Warn("stock: remote create failed, assigning local id", "err", err)
		s.store.MarkDegraded()
		it.ID = s.store.NextStockItemID()
		created = it
	}
	s.store.UpsertStockItem(created)
	s.persist(ctx)
	return created, nil
}

// Update replaces the stored item and stamps LastUpdated. A negative
// quantity is rejected before any persistence attempt.
func (s *Service) Update(ctx context.Context, it store.StockItem) error {
	if _, ok := s.store.StockItemByID(it.ID); !ok {
		return fmt.Errorf("stock: %d: %w", it.ID, shared.ErrNotFound)
	}
	if it.Quantity < 0 {
		return fmt.Errorf("stock: %w: quantity must not be negative", shared.ErrValidation)
	}
	if !store.ValidUnit(it.Unit) {
		return fmt.Errorf("stock: %w: unknown unit %q", shared.ErrValidation, it.Unit)
	}
	it.LastUpdated = s.now()
	s.write(ctx, it)
	return nil
}

// SetQuantity sets an item's quantity, clamping at zero, and persists it
// remote-first. The reconciliation engine calls this once per deduction.
func (s *Service) SetQuantity(ctx context.Context, id int, qty float64) (store.StockItem, error) {
	it, ok := s.store.StockItemByID(id)
	if !ok {
		return store.StockItem{}, fmt.Errorf("stock: %d: %w", id, shared.ErrNotFound)
	}
	if qty < 0 {
		qty = 0
	}
	it.Quantity = qty
	it.LastUpdated = s.now()
	s.write(ctx, it)
	return it, nil
}

// Adjust adds or removes quantity. Removing more than the current quantity
// is rejected, matching the stock adjustment dialog.
func (s *Service) Adjust(ctx context.Context, id int, delta float64) (store.StockItem, error) {
	if delta == 0 {
		return store.StockItem{}, fmt.Errorf("stock: %w: adjustment must not be zero", shared.ErrValidation)
	}
	it, ok := s.store.StockItemByID(id)
	if !ok {
		return store.StockItem{}, fmt.Errorf("stock: %d: %w", id, shared.ErrNotFound)
	}
	if delta < 0 && -delta > it.Quantity {
		return store.StockItem{}, fmt.Errorf("stock: %w: cannot remove %.2f, only %.2f in stock", shared.ErrValidation, -delta, it.Quantity)
	}
	return s.SetQuantity(ctx, id, it.Quantity+delta)
}

// Delete removes the item, every association referencing it, and the
// reference on any product embedded view.
func (s *Service) Delete(ctx context.Context, id int) error {
	if _, ok := s.store.StockItemByID(id); !ok {
		return fmt.Errorf("stock: %d: %w", id, shared.ErrNotFound)
	}
	if err := s.remote.DeleteStockItem(ctx, id); err != nil {
		s.logger.Warn("stock: remote delete failed, removing locally", "id", id, "err", err)
		s.store.MarkDegraded()
	}
	s.store.DeleteStockItem(id)
	s.persist(ctx)
	if err := s.fallback.SaveAssociations(ctx, s.store.Associations()); err != nil {
		s.logger.Warn("stock: fallback persist failed", "err", err)
	}
	if err := s.fallback.SaveProducts(ctx, s.store.Products()); err != nil {
		s.logger.Warn("stock: fallback persist failed", "err", err)
	}
	return nil
}

// Get fetches one item from the backend, falling back to the in-memory view
// when the call fails.
func (s *Service) Get(ctx context.Context, id int) (store.StockItem, error) {
	it, err := s.remote.GetStockItem(ctx, id)
	if err == nil {
		s.store.UpsertStockItem(it)
		return it, nil
	}
	s.logger.Warn("stock: remote get failed, serving local copy", "id", id, "err", err)
	if it, ok := s.store.StockItemByID(id); ok {
		return it, nil
	}
	return store.StockItem{}, fmt.Errorf("stock: %d: %w", id, shared.ErrNotFound)
}

// List serves the in-memory collection.
func (s *Service) List() []store.StockItem {
	return s.store.StockItems()
}

// ListLowStock returns the items sitting at or below their minimum.
func (s *Service) ListLowStock() []store.StockItem {
	var out []store.StockItem
	for _, it := range s.store.StockItems() {
		if it.Low() {
			out = append(out, it)
		}
	}
	return out
}

// write applies a mutation remote-first and degrades to local-only on
// failure.
func (s *Service) write(ctx context.Context, it store.StockItem) {
	if err := s.remote.UpdateStockItem(ctx, it); err != nil {
		s.logger.Warn("stock: remote update failed, keeping local copy", "id", it.ID, "err", err)
		s.store.MarkDegraded()
	}
	s.store.UpsertStockItem(it)
	s.persist(ctx)
}

func (s *Service) persist(ctx context.Context) {
	if err := s.fallback.SaveStock(ctx, s.store.StockItems()); err != nil {
		s.logger.Warn("stock: fallback persist failed", "err", err)
	}
}
