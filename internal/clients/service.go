package clients

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/aquelehotdogs/comanda/internal/shared"
	"github.com/aquelehotdogs/comanda/internal/store"
)

// RemotePort is the slice of the backend API this service uses.
type RemotePort interface {
	CreateClient(ctx context.Context, body store.Client) (store.Client, error)
	UpdateClient(ctx context.Context, body store.Client) error
	GetClient(ctx context.Context, id string) (store.Client, error)
}

// FallbackPort persists the local snapshot after each mutation.
type FallbackPort interface {
	SaveClients(ctx context.Context, list []store.Client) error
}

// Service is the client repository: remote-first writes with local fallback,
// reads from the in-memory store.
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

// CreateInput carries the caller-supplied fields of a new client.
type CreateInput struct {
	Name  string `validate:"required"`
	Phone string
}

// Create registers a client. The id is a generated opaque token; the remote
// copy is best-effort.
func (s *Service) Create(ctx context.Context, in CreateInput) (store.Client, error) {
	if err := s.validate.Struct(in); err != nil {
		return store.Client{}, fmt.Errorf("clients: %w: %v", shared.ErrValidation, err)
	}
	c := store.Client{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		OrderHistory: []int{},
	}
	created, err := s.remote.CreateClient(ctx, c)
	if err != nil {
		s.logger.Warn("clients: remote create failed, keeping local copy", "err", err)
		s.store.MarkDegraded()
		created = c
	}
	s.store.UpsertClient(created)
	s.persist(ctx)
	return created, nil
}

// Register is Create with just a name, used when an order names a client the
// system has not seen before.
func (s *Service) Register(ctx context.Context, name string) (store.Client, error) {
	return s.Create(ctx, CreateInput{Name: name})
}

// Update replaces the stored client. Remote failure degrades to local-only.
func (s *Service) Update(ctx context.Context, c store.Client) error {
	if _, ok := s.store.ClientByID(c.ID); !ok {
		return fmt.Errorf("clients: %s: %w", c.ID, shared.ErrNotFound)
	}
	if err := s.remote.UpdateClient(ctx, c); err != nil {
		s.logger.Warn("clients: remote update failed, keeping local copy", "err", err)
		s.store.MarkDegraded()
	}
	s.store.UpsertClient(c)
	s.persist(ctx)
	return nil
}

// Get fetches one client from the backend, falling back to the in-memory
// view when the call fails.
func (s *Service) Get(ctx context.Context, id string) (store.Client, error) {
	c, err := s.remote.GetClient(ctx, id)
	if err == nil {
		s.store.UpsertClient(c)
		return c, nil
	}
	s.logger.Warn("clients: remote get failed, serving local copy", "id", id, "err", err)
	if c, ok := s.store.ClientByID(id); ok {
		return c, nil
	}
	return store.Client{}, fmt.Errorf("clients: %s: %w", id, shared.ErrNotFound)
}

// List serves the in-memory collection.
func (s *Service) List() []store.Client {
	return s.store.Clients()
}

// ByName is a synchronous in-memory lookup, insensitive to case and accents
// ("João" matches "joao"). It never hits the network.
func (s *Service) ByName(name string) (store.Client, bool) {
	want := foldName(name)
	for _, c := range s.store.Clients() {
		if foldName(c.Name) == want {
			return c, true
		}
	}
	return store.Client{}, false
}

// AppendOrderHistory records an order id on the client's history.
func (s *Service) AppendOrderHistory(ctx context.Context, clientID string, orderID int) error {
	c, ok := s.store.ClientByID(clientID)
	if !ok {
		return fmt.Errorf("clients: %s: %w", clientID, shared.ErrNotFound)
	}
	c.OrderHistory = append(c.OrderHistory, orderID)
	return s.Update(ctx, c)
}

func (s *Service) persist(ctx context.Context) {
	if err := s.fallback.SaveClients(ctx, s.store.Clients()); err != nil {
		s.logger.Warn("clients: fallback persist failed", "err", err)
	}
}

// nameFold strips combining marks so accented and plain spellings compare
// equal.
var nameFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldName(s string) string {
	folded, _, err := transform.String(nameFold, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
