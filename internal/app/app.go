package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/aquelehotdogs/comanda/internal/clients"
	"github.com/aquelehotdogs/comanda/internal/orders"
	"github.com/aquelehotdogs/comanda/internal/platform/cache"
	"github.com/aquelehotdogs/comanda/internal/platform/rest"
	"github.com/aquelehotdogs/comanda/internal/products"
	"github.com/aquelehotdogs/comanda/internal/sales"
	"github.com/aquelehotdogs/comanda/internal/shared"
	"github.com/aquelehotdogs/comanda/internal/stock"
	"github.com/aquelehotdogs/comanda/internal/store"
	"github.com/aquelehotdogs/comanda/jobs"
)

// App wires the data core together and exposes it to the UI collaborators.
type App struct {
	cfg    *Config
	logger *slog.Logger
	store  *store.Store

	remote   *rest.Client
	fallback *store.Fallback

	Clients      *clients.Service
	Products     *products.Service
	Stock        *stock.Service
	Associations *stock.AssociationManager
	Sales        *sales.Service
	Orders       *orders.Service

	mu      sync.Mutex
	loading bool
	lastErr string
}

// New builds the application around an established Redis connection. The
// notifier defaults to the logger unless the caller provides one (e.g. the
// background queue).
func New(cfg *Config, logger *slog.Logger, rdb *redis.Client, notifier shared.Notifier) *App {
	st := store.New()
	remote := rest.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	fallback := store.NewFallback(rdb)
	if notifier == nil {
		notifier = shared.LogNotifier{Logger: logger}
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		remote:   remote,
		fallback: fallback,
	}
	a.Clients = clients.NewService(st, remote, fallback, logger)
	a.Products = products.NewService(st, remote, fallback, logger)
	a.Stock = stock.NewService(st, remote, fallback, logger)
	a.Associations = stock.NewAssociationManager(st, a.Products, fallback, logger)
	a.Sales = sales.NewService(st, remote, fallback, a.Stock, notifier, logger)
	a.Orders = orders.NewService(st, remote, fallback, a.Clients, a.Sales, logger)
	return a
}

// Bootstrap loads config, builds the logger, connects Redis and returns the
// wired application. Embedders with their own Redis connection or notifier
// use New directly.
func Bootstrap(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg)

	rdb, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}

	var notifier shared.Notifier
	if cfg.LowStockQueue {
		notifier = jobs.NewNotifier(cfg.RedisAddr, logger)
	}
	return New(cfg, logger, rdb, notifier), nil
}

// Store exposes the shared in-memory view, mainly for its Degraded flag.
func (a *App) Store() *store.Store {
	return a.store
}

// Status reports the loading/error pair the UI renders its blocking overlay
// from.
func (a *App) Status() (loading bool, errMsg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading, a.lastErr
}

// Refresh re-fetches all five collections from the backend, falling back to
// the local store when any fetch fails. Associations always load locally:
// the relation table is persisted on this side only.
//
// The returned error is non-nil only when both sources fail; a degraded
// (fallback-served) refresh succeeds from the caller's perspective and is
// reported through the status pair and the store's Degraded flag.
func (a *App) Refresh(ctx context.Context) error {
	a.setStatus(true, "")

	var snap store.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Clients, err = a.remote.ListClients(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Products, err = a.remote.ListProducts(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Orders, err = a.remote.ListOrders(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Stock, err = a.remote.ListStock(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Sales, err = a.remote.ListSales(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		a.logger.Warn("refresh: backend unavailable, loading fallback", "err", err)
		local, ferr := a.fallback.LoadSnapshot(ctx)
		if ferr != nil {
			a.setStatus(false, "backend and fallback store unavailable")
			return ferr
		}
		a.store.ReplaceAll(local)
		a.store.MarkDegraded()
		a.seed(ctx)
		a.setStatus(false, "backend unavailable, serving local data")
		return nil
	}

	assocs, err := a.fallback.LoadAssociations(ctx)
	if err != nil {
		a.logger.Warn("refresh: association table unavailable", "err", err)
	}
	snap.Associations = assocs

	a.store.ReplaceAll(snap)
	a.store.ClearDegraded()
	a.seed(ctx)
	if err := a.fallback.SaveSnapshot(ctx, a.snapshot()); err != nil {
		a.logger.Warn("refresh: fallback persist failed", "err", err)
	}
	a.setStatus(false, "")
	return nil
}

func (a *App) snapshot() store.Snapshot {
	return store.Snapshot{
		Clients:      a.store.Clients(),
		Products:     a.store.Products(),
		Orders:       a.store.Orders(),
		Stock:        a.store.StockItems(),
		Sales:        a.store.Sales(),
		Associations: a.store.Associations(),
	}
}

func (a *App) setStatus(loading bool, errMsg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loading = loading
	a.lastErr = errMsg
}
