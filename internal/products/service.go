package products

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aquelehotdogs/comanda/internal/shared"
	"github.com/aquelehotdogs/comanda/internal/store"
)

// RemotePort is the slice of the backend API this service uses.
type RemotePort interface {
	CreateProduct(ctx context.Context, body store.Product) (store.Product, error)
	UpdateProduct(ctx context.Context, body store.Product) error
	DeleteProduct(ctx context.Context, id int) error
	GetProduct(ctx context.Context, id int) (store.Product, error)
}

// FallbackPort persists the local snapshot after each mutation. Product
// deletion cascades over the association table, so both collections are
// saved.
type FallbackPort interface {
	SaveProducts(ctx context.Context, list []store.Product) error
	SaveAssociations(ctx context.Context, list []store.Association) error
}

// Service is the product repository.
type Service struct {
	store    *store.Store
	remote   RemotePort
	fallback FallbackPort
	validate *validator.Validate
	logger   *slog.Logger
}

func NewService(st *store.Store, remote RemotePort, fallback FallbackPort, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		remote:   remote,
		fallback: fallback,
		validate: validator.New(),
		logger:   logger,
	}
}

// CreateInput carries the caller-supplied fields of a new product.
type CreateInput struct {
	Name     string  `validate:"required"`
	Price    float64 `validate:"gte=0"`
	Image    string
	Category string `validate:"required"`
	Active   bool
}

// Create adds a product. On remote success the server-assigned id is
// adopted; otherwise the id is synthesized with the same max+1 rule.
func (s *Service) Create(ctx context.Context, in CreateInput) (store.Product, error) {
	if err := s.validate.Struct(in); err != nil {
		return store.Product{}, fmt.Errorf("products: %w: %v", shared.ErrValidation, err)
	}
	p := store.Product{
		Name:     strings.TrimSpace(in.Name),
		Price:    in.Price,
		Image:    in.Image,
		Category: in.Category,
		Active:   in.Active,
	}
	created, err := s.remote.CreateProduct(ctx, p)
	if err != nil {
		s.logger.Warn("products: remote create failed, assigning local id", "err", err)
		s.store.MarkDegraded()
		p.ID = s.store.NextProductID()
		created = p
	}
	s.store.UpsertProduct(created)
	s.persist(ctx)
	created, _ = s.store.ProductByID(created.ID)
	return created, nil
}

// Update replaces the stored product.
func (s *Service) Update(ctx context.Context, p store.Product) error {
	if _, ok := s.store.ProductByID(p.ID); !ok {
		return fmt.Errorf("products: %d: %w", p.ID, shared.ErrNotFound)
	}
	if err := s.remote.UpdateProduct(ctx, p); err != nil {
		s.logger.Warn("products: remote update failed, keeping local copy", "id", p.ID, "err", err)
		s.store.MarkDegraded()
	}
	s.store.UpsertProduct(p)
	s.persist(ctx)
	return nil
}

// Push sends the current remote representation of a product without touching
// local state. The association manager uses it to piggyback relation changes
// onto the product record.
func (s *Service) Push(ctx context.Context, p store.Product) error {
	return s.remote.UpdateProduct(ctx, p)
}

// Delete removes the product and every association referencing it.
func (s *Service) Delete(ctx context.Context, id int) error {
	if _, ok := s.store.ProductByID(id); !ok {
		return fmt.Errorf("products: %d: %w", id, shared.ErrNotFound)
	}
	if err := s.remote.DeleteProduct(ctx, id); err != nil {
		s.logger.Warn("products: remote delete failed, removing locally", "id", id, "err", err)
		s.store.MarkDegraded()
	}
	s.store.DeleteProduct(id)
	s.persist(ctx)
	if err := s.fallback.SaveAssociations(ctx, s.store.Associations()); err != nil {
		s.logger.Warn("products: fallback persist failed", "err", err)
	}
	return nil
}

// Get fetches one product from the backend, falling back to the in-memory
// view when the call fails.
func (s *Service) Get(ctx context.Context, id int) (store.Product, error) {
	p, err := s.remote.GetProduct(ctx, id)
	if err == nil {
		s.store.UpsertProduct(p)
		p, _ = s.store.ProductByID(id)
		return p, nil
	}
	s.logger.Warn("products: remote get failed, serving local copy", "id", id, "err", err)
	if p, ok := s.store.ProductByID(id); ok {
		return p, nil
	}
	return store.Product{}, fmt.Errorf("products: %d: %w", id, shared.ErrNotFound)
}

// List serves the in-memory collection.
func (s *Service) List() []store.Product {
	return s.store.Products()
}

func (s *Service) persist(ctx context.Context) {
	if err := s.fallback.SaveProducts(ctx, s.store.Products()); err != nil {
		s.logger.Warn("products: fallback persist failed", "err", err)
	}
}
