package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aquelehotdogs/comanda/internal/shared"
	"github.com/aquelehotdogs/comanda/internal/store"
)

// ErrDuplicateAssociation indicates the (product, stock item) pair is
// already associated.
var ErrDuplicateAssociation = errors.New("association already exists")

// ProductPusher sends the updated product record to the backend so the
// remote copy carries the embedded relation view. Failures are logged, not
// surfaced: the local relation table is the source of truth.
type ProductPusher interface {
	Push(ctx context.Context, p store.Product) error
}

// AssociationFallback persists the relation table and the refreshed product
// views.
type AssociationFallback interface {
	SaveAssociations(ctx context.Context, list []store.Association) error
	SaveProducts(ctx context.Context, list []store.Product) error
}

// AssociationManager maintains the many-to-many relation between products
// and the stock items they consume per unit sold. One product can consume
// several stock items and one stock item can back several products.
type AssociationManager struct {
	store    *store.Store
	pusher   ProductPusher
	fallback AssociationFallback
	logger   *slog.Logger
}

func NewAssociationManager(st *store.Store, pusher ProductPusher, fallback AssociationFallback, logger *slog.Logger) *AssociationManager {
	return &AssociationManager{
		store:    st,
		pusher:   pusher,
		fallback: fallback,
		logger:   logger,
	}
}

// Associate links a product to a stock item with a consumption quantity per
// unit sold. The pair must not already exist.
func (m *AssociationManager) Associate(ctx context.Context, productID, stockItemID int, quantityPerUnit float64) (store.Association, error) {
	if quantityPerUnit <= 0 {
		return store.Association{}, fmt.Errorf("stock: %w: quantity per unit must be positive", shared.ErrValidation)
	}
	if _, ok := m.store.ProductByID(productID); !ok {
		return store.Association{}, fmt.Errorf("stock: product %d: %w", productID, shared.ErrNotFound)
	}
	if _, ok := m.store.StockItemByID(stockItemID); !ok {
		return store.Association{}, fmt.Errorf("stock: item %d: %w", stockItemID, shared.ErrNotFound)
	}
	if _, ok := m.store.FindAssociation(productID, stockItemID); ok {
		return store.Association{}, fmt.Errorf("stock: product %d, item %d: %w", productID, stockItemID, ErrDuplicateAssociation)
	}
	a := store.Association{
		ProductID:       productID,
		StockItemID:     stockItemID,
		QuantityPerUnit: quantityPerUnit,
	}
	m.store.PutAssociation(a)
	m.pushProduct(ctx, productID)
	m.persist(ctx)
	return a, nil
}

// Disassociate removes the link for the pair.
func (m *AssociationManager) Disassociate(ctx context.Context, productID, stockItemID int) error {
	if !m.store.RemoveAssociation(productID, stockItemID) {
		return fmt.Errorf("stock: product %d, item %d: association %w", productID, stockItemID, shared.ErrNotFound)
	}
	m.pushProduct(ctx, productID)
	m.persist(ctx)
	return nil
}

// UpdateQuantity mutates the consumption quantity of an existing link.
func (m *AssociationManager) UpdateQuantity(ctx context.Context, productID, stockItemID int, quantityPerUnit float64) error {
	if quantityPerUnit <= 0 {
		return fmt.Errorf("stock: %w: quantity per unit must be positive", shared.ErrValidation)
	}
	a, ok := m.store.FindAssociation(productID, stockItemID)
	if !ok {
		return fmt.Errorf("stock: product %d, item %d: association %w", productID, stockItemID, shared.ErrNotFound)
	}
	a.QuantityPerUnit = quantityPerUnit
	m.store.PutAssociation(a)
	m.pushProduct(ctx, productID)
	m.persist(ctx)
	return nil
}

// ListForProduct returns every association of a product, empty if none.
func (m *AssociationManager) ListForProduct(productID int) []store.Association {
	return m.store.AssociationsForProduct(productID)
}

// AvailableStockItems returns every stock item. Under the relation-table
// model any item can be attached to any product, already-linked or not.
func (m *AssociationManager) AvailableStockItems() []store.StockItem {
	return m.store.StockItems()
}

func (m *AssociationManager) pushProduct(ctx context.Context, productID int) {
	p, ok := m.store.ProductByID(productID)
	if !ok {
		return
	}
	if err := m.pusher.Push(ctx, p); err != nil {
		m.logger.Warn("stock: remote push of product relation failed", "product_id", productID, "err", err)
		m.store.MarkDegraded()
	}
}

func (m *AssociationManager) persist(ctx context.Context) {
	if err := m.fallback.SaveAssociations(ctx, m.store.Associations()); err != nil {
		m.logger.Warn("stock: fallback persist failed", "err", err)
	}
	if err := m.fallback.SaveProducts(ctx, m.store.Products()); err != nil {
		m.logger.Warn("stock: fallback persist failed", "err", err)
	}
}
