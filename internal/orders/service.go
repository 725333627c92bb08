package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aquelehotdogs/comanda/internal/shared"
	"github.com/aquelehotdogs/comanda/internal/store"
)

// ErrInvalidStatus indicates an order status transition that the lifecycle
// does not allow.
var ErrInvalidStatus = errors.New("invalid status transition")

// RemotePort is the slice of the backend API this service uses.
type RemotePort interface {
	CreateOrder(ctx context.Context, body store.Order) (store.Order, error)
	UpdateOrder(ctx context.Context, body store.Order) error
	DeleteOrder(ctx context.Context, id int) error
	GetOrder(ctx context.Context, id int) (store.Order, error)
}

// FallbackPort persists the local snapshot after each mutation.
type FallbackPort interface {
	SaveOrders(ctx context.Context, list []store.Order) error
}

// ClientDirectory resolves and registers the clients a comanda names.
type ClientDirectory interface {
	ByName(name string) (store.Client, bool)
	Register(ctx context.Context, name string) (store.Client, error)
	AppendOrderHistory(ctx context.Context, clientID string, orderID int) error
}

// SaleRecorder creates the sale record that payment finalization produces.
type SaleRecorder interface {
	Record(ctx context.Context, sale store.Sale) (store.Sale, error)
}

// Service owns the comanda lifecycle: aberto → fechado → pago, with reopen
// from fechado while unpaid. Totals are recomputed on every item mutation.
type Service struct {
	store    *store.Store
	remote   RemotePort
	fallback FallbackPort
	clients  ClientDirectory
	sales    SaleRecorder
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(st *store.Store, remote RemotePort, fallback FallbackPort, clients ClientDirectory, sales SaleRecorder, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		remote:   remote,
		fallback: fallback,
		clients:  clients,
		sales:    sales,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// ItemInput is one comanda line as supplied by the caller.
type ItemInput struct {
	Name      string  `validate:"required"`
	Quantity  int     `validate:"gt=0"`
	UnitPrice float64 `validate:"gte=0"`
	Note      string
}

// CreateInput carries the caller-supplied fields of a new comanda.
type CreateInput struct {
	Table      string      `validate:"required"`
	ClientName string      `validate:"required"`
	ClientID   string
	Items      []ItemInput `validate:"required,min=1,dive"`
}

// Create opens a comanda. When the named client is unknown it is registered
// on the spot, and either way the order id lands on the client's history.
func (s *Service) Create(ctx context.Context, in CreateInput) (store.Order, error) {
	if err := s.validate.Struct(in); err != nil {
		return store.Order{}, fmt.Errorf("orders: %w: %v", shared.ErrValidation, err)
	}
	clientID := in.ClientID
	if clientID == "" {
		clientID = s.resolveClient(ctx, in.ClientName)
	}
	items := make([]store.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, store.OrderItem{
			Name:      strings.TrimSpace(it.Name),
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Note:      it.Note,
		})
	}
	o := store.Order{
		ClientID:   clientID,
		Table:      in.Table,
		ClientName: strings.TrimSpace(in.ClientName),
		Items:      items,
		Status:     store.OrderStatusOpen,
		CreatedAt:  s.now(),
		Total:      store.OrderTotal(items),
	}
	created, err := s.remote.CreateOrder(ctx, o)
	if err != nil {
		s.logger.Warn("orders: remote create failed, assigning local id", "err", err)
		s.store.MarkDegraded()
		o.ID = s.store.NextOrderID()
		created = o
	}
	s.store.UpsertOrder(created)
	s.persist(ctx)
	if created.ClientID != "" {
		if err := s.clients.AppendOrderHistory(ctx, created.ClientID, created.ID); err != nil {
			s.logger.Warn("orders: client history append failed", "client_id", created.ClientID, "err", err)
		}
	}
	return created, nil
}

// UpdateItems replaces the item list of an open comanda and refreshes the
// denormalized total.
func (s *Service) UpdateItems(ctx context.Context, orderID int, items []store.OrderItem) (store.Order, error) {
	o, ok := s.store.OrderByID(orderID)
	if !ok {
		return store.Order{}, fmt.Errorf("orders: %d: %w", orderID, shared.ErrNotFound)
	}
	if o.Status != store.OrderStatusOpen {
		return store.Order{}, fmt.Errorf("orders: edit %s order: %w", o.Status, ErrInvalidStatus)
	}
	if len(items) == 0 {
		return store.Order{}, fmt.Errorf("orders: %w: a comanda needs at least one item", shared.ErrValidation)
	}
	for _, it := range items {
		if it.Name == "" || it.Quantity <= 0 || it.UnitPrice < 0 {
			return store.Order{}, fmt.Errorf("orders: %w: item %q", shared.ErrValidation, it.Name)
		}
	}
	o.Items = append([]store.OrderItem(nil), items...)
	o.Total = store.OrderTotal(o.Items)
	s.write(ctx, o)
	return o, nil
}

// Close transitions aberto → fechado. No side effects beyond the status.
func (s *Service) Close(ctx context.Context, orderID int) (store.Order, error) {
	return s.transition(ctx, orderID, store.OrderStatusOpen, store.OrderStatusClosed)
}

// Reopen transitions fechado → aberto, allowed any time before payment.
func (s *Service) Reopen(ctx context.Context, orderID int) (store.Order, error) {
	return s.transition(ctx, orderID, store.OrderStatusClosed, store.OrderStatusOpen)
}

func (s *Service) transition(ctx context.Context, orderID int, from, to store.OrderStatus) (store.Order, error) {
	o, ok := s.store.OrderByID(orderID)
	if !ok {
		return store.Order{}, fmt.Errorf("orders: %d: %w", orderID, shared.ErrNotFound)
	}
	if o.Status != from {
		return store.Order{}, fmt.Errorf("orders: %s → %s: %w", o.Status, to, ErrInvalidStatus)
	}
	o.Status = to
	s.write(ctx, o)
	return o, nil
}

// PayInput carries the payment-finalization fields.
type PayInput struct {
	OrderID        int                 `validate:"gt=0"`
	Method         store.PaymentMethod `validate:"required,oneof=pix dinheiro cartao_credito cartao_debito"`
	AmountReceived float64
}

// Pay finalizes a fechado comanda: stamps method, amount received and
// change, marks it pago and records exactly one sale, which triggers the
// stock reconciliation. Paying an aberto order is rejected; it must be
// closed first.
func (s *Service) Pay(ctx context.Context, in PayInput) (store.Order, store.Sale, error) {
	if err := s.validate.Struct(in); err != nil {
		return store.Order{}, store.Sale{}, fmt.Errorf("orders: %w: %v", shared.ErrValidation, err)
	}
	o, ok := s.store.OrderByID(in.OrderID)
	if !ok {
		return store.Order{}, store.Sale{}, fmt.Errorf("orders: %d: %w", in.OrderID, shared.ErrNotFound)
	}
	if o.Status != store.OrderStatusClosed {
		return store.Order{}, store.Sale{}, fmt.Errorf("orders: pay %s order: %w", o.Status, ErrInvalidStatus)
	}

	received := in.AmountReceived
	change := 0.0
	if in.Method == store.PaymentCash {
		if received <= 0 {
			return store.Order{}, store.Sale{}, fmt.Errorf("orders: %w: amount received is required for cash", shared.ErrValidation)
		}
		if received > o.Total {
			change = received - o.Total
		}
	} else {
		received = o.Total
	}

	o.Status = store.OrderStatusPaid
	o.PaymentMethod = in.Method
	o.AmountReceived = received
	o.Change = change
	s.write(ctx, o)

	sold := make([]store.SoldItem, 0, len(o.Items))
	for _, it := range o.Items {
		sold = append(sold, store.SoldItem{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	sale, err := s.sales.Record(ctx, store.Sale{
		OrderID:       o.ID,
		Amount:        o.Total,
		PaymentMethod: string(in.Method),
		Date:          s.now(),
		Items:         sold,
	})
	if err != nil {
		return o, store.Sale{}, fmt.Errorf("orders: record sale: %w", err)
	}
	return o, sale, nil
}

// Delete removes a comanda in any state.
func (s *Service) Delete(ctx context.Context, orderID int) error {
	if _, ok := s.store.OrderByID(orderID); !ok {
		return fmt.Errorf("orders: %d: %w", orderID, shared.ErrNotFound)
	}
	if err := s.remote.DeleteOrder(ctx, orderID); err != nil {
		s.logger.Warn("orders: remote delete failed, removing locally", "id", orderID, "err", err)
		s.store.MarkDegraded()
	}
	s.store.DeleteOrder(orderID)
	s.persist(ctx)
	return nil
}

// Get fetches one comanda from the backend, falling back to the in-memory
// view when the call fails.
func (s *Service) Get(ctx context.Context, orderID int) (store.Order, error) {
	o, err := s.remote.GetOrder(ctx, orderID)
	if err == nil {
		s.store.UpsertOrder(o)
		return o, nil
	}
	s.logger.Warn("orders: remote get failed, serving local copy", "id", orderID, "err", err)
	if o, ok := s.store.OrderByID(orderID); ok {
		return o, nil
	}
	return store.Order{}, fmt.Errorf("orders: %d: %w", orderID, shared.ErrNotFound)
}

// GetLocal is the synchronous in-memory lookup the UI uses while rendering.
func (s *Service) GetLocal(orderID int) (store.Order, bool) {
	return s.store.OrderByID(orderID)
}

// List serves the in-memory collection.
func (s *Service) List() []store.Order {
	return s.store.Orders()
}

// resolveClient finds the named client or registers one. Registration
// failure only costs the history link, never the order.
func (s *Service) resolveClient(ctx context.Context, name string) string {
	if c, ok := s.clients.ByName(name); ok {
		return c.ID
	}
	c, err := s.clients.Register(ctx, name)
	if err != nil {
		s.logger.Warn("orders: client registration failed, order kept unlinked", "client", name, "err", err)
		return ""
	}
	return c.ID
}

func (s *Service) write(ctx context.Context, o store.Order) {
	if err := s.remote.UpdateOrder(ctx, o); err != nil {
		s.logger.Warn("orders: remote update failed, keeping local copy", "id", o.ID, "err", err)
		s.store.MarkDegraded()
	}
	s.store.UpsertOrder(o)
	s.persist(ctx)
}

func (s *Service) persist(ctx context.Context) {
	if err := s.fallback.SaveOrders(ctx, s.store.Orders()); err != nil {
		s.logger.Warn("orders: fallback persist failed", "err", err)
	}
}
