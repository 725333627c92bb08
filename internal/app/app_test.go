package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aquelehotdogs/comanda/internal/orders"
	"github.com/aquelehotdogs/comanda/internal/products"
	"github.com/aquelehotdogs/comanda/internal/shared"
	"github.com/aquelehotdogs/comanda/internal/stock"
	"github.com/aquelehotdogs/comanda/internal/store"
)

type captureNotifier struct {
	alerts []shared.LowStockAlert
}

func (n *captureNotifier) LowStock(_ context.Context, alert shared.LowStockAlert) {
	n.alerts = append(n.alerts, alert)
}

func newTestApp(t *testing.T, baseURL string, seed bool) (*App, *miniredis.Miniredis, *captureNotifier) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &Config{
		APIBaseURL:   baseURL,
		APITimeout:   2 * time.Second,
		RedisAddr:    mr.Addr(),
		SeedDefaults: seed,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := &captureNotifier{}
	return New(cfg, logger, rdb, notifier), mr, notifier
}

// backendStub serves fixed collections on the five list endpoints.
func backendStub(t *testing.T) *httptest.Server {
	t.Helper()
	now := time.Date(2025, 8, 30, 12, 0, 0, 0, time.UTC)
	fixtures := map[string]any{
		"/clientes": []store.Client{{ID: "c1", Name: "João Silva"}},
		"/produtos": []store.Product{{ID: 1, Name: "Hot Dog Tradicional", Price: 12, Category: "Hot Dogs", Active: true}},
		"/pedidos":  []store.Order{},
		"/estoque":  []store.StockItem{{ID: 1, Name: "Pão para Hot Dog", Quantity: 50, Unit: store.UnitUnidade, UnitPrice: 1.5, LastUpdated: now, MinimumStock: 20}},
		"/vendas":   []store.Sale{},
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := fixtures[r.URL.Path]
		if !ok || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestRefreshLoadsBackendAndPersistsFallback(t *testing.T) {
	srv := backendStub(t)
	defer srv.Close()

	a, mr, _ := newTestApp(t, srv.URL, false)
	require.NoError(t, a.Refresh(context.Background()))

	require.Len(t, a.Store().Clients(), 1)
	require.Len(t, a.Store().Products(), 1)
	require.Len(t, a.Store().StockItems(), 1)
	require.False(t, a.Store().Degraded())

	loading, errMsg := a.Status()
	require.False(t, loading)
	require.Empty(t, errMsg)

	// the fetched snapshot is written through to the fallback store
	require.True(t, mr.Exists(store.KeyProducts))
	require.True(t, mr.Exists(store.KeyStock))
}

func TestRefreshServesFallbackWhenBackendDown(t *testing.T) {
	a, _, _ := newTestApp(t, "http://127.0.0.1:1", false)

	snap := store.Snapshot{
		Products:     []store.Product{{ID: 1, Name: "Hot Dog Tradicional", Price: 12}},
		Stock:        []store.StockItem{{ID: 1, Name: "Pão para Hot Dog", Quantity: 50}},
		Associations: []store.Association{{ProductID: 1, StockItemID: 1, QuantityPerUnit: 2}},
	}
	require.NoError(t, a.fallback.SaveSnapshot(context.Background(), snap))

	require.NoError(t, a.Refresh(context.Background()), "a degraded refresh still succeeds")
	require.True(t, a.Store().Degraded())
	require.Len(t, a.Store().Products(), 1)
	require.Len(t, a.Store().Associations(), 1)

	loading, errMsg := a.Status()
	require.False(t, loading)
	require.Equal(t, "backend unavailable, serving local data", errMsg)
}

func TestRefreshFailsWhenBothSourcesDown(t *testing.T) {
	a, mr, _ := newTestApp(t, "http://127.0.0.1:1", false)
	mr.Close()

	err := a.Refresh(context.Background())
	require.Error(t, err)

	_, errMsg := a.Status()
	require.Equal(t, "backend and fallback store unavailable", errMsg)
}

func TestRefreshSeedsFreshInstall(t *testing.T) {
	a, _, _ := newTestApp(t, "http://127.0.0.1:1", true)

	require.NoError(t, a.Refresh(context.Background()))
	require.Len(t, a.Store().Products(), 9)
	require.Len(t, a.Store().StockItems(), 6)
}

func TestRefreshLoadsLocalAssociationsOnSuccess(t *testing.T) {
	srv := backendStub(t)
	defer srv.Close()

	a, _, _ := newTestApp(t, srv.URL, false)
	require.NoError(t, a.fallback.SaveAssociations(context.Background(),
		[]store.Association{{ProductID: 1, StockItemID: 1, QuantityPerUnit: 2}}))

	require.NoError(t, a.Refresh(context.Background()))
	require.Len(t, a.Store().Associations(), 1)

	p, ok := a.Store().ProductByID(1)
	require.True(t, ok)
	require.Len(t, p.StockLinks, 1, "embedded views rebuilt from the relation table")
}

// The whole flow with the backend down: catalogue and stock built locally,
// a comanda opened, closed and paid in cash, the sale recorded and the
// stock deducted through the association.
func TestOfflineSaleLifecycle(t *testing.T) {
	a, _, notifier := newTestApp(t, "http://127.0.0.1:1", false)
	ctx := context.Background()

	p, err := a.Products.Create(ctx, products.CreateInput{
		Name: "Hot Dog Tradicional", Price: 10, Category: "Hot Dogs", Active: true,
	})
	require.NoError(t, err)
	require.Equal(t, 1, p.ID)
	require.True(t, a.Store().Degraded())

	bun, err := a.Stock.Create(ctx, stock.CreateInput{
		Name: "Pão para Hot Dog", Quantity: 50, Unit: "unidade", UnitPrice: 1.5, Category: "Pães", MinimumStock: 20,
	})
	require.NoError(t, err)
	require.Equal(t, 1, bun.ID)

	_, err = a.Associations.Associate(ctx, p.ID, bun.ID, 2)
	require.NoError(t, err)

	o, err := a.Orders.Create(ctx, orders.CreateInput{
		Table:      "Mesa 1",
		ClientName: "João Silva",
		Items:      []orders.ItemInput{{Name: "Hot Dog Tradicional", Quantity: 5, UnitPrice: 10}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, o.ID)
	require.InDelta(t, 50.0, o.Total, 0.0001)

	// the client named on the comanda was registered on the spot
	client, ok := a.Clients.ByName("joão silva")
	require.True(t, ok)
	require.Equal(t, []int{o.ID}, client.OrderHistory)

	_, err = a.Orders.Close(ctx, o.ID)
	require.NoError(t, err)

	paid, sale, err := a.Orders.Pay(ctx, orders.PayInput{OrderID: o.ID, Method: store.PaymentCash, AmountReceived: 60})
	require.NoError(t, err)
	require.Equal(t, store.OrderStatusPaid, paid.Status)
	require.InDelta(t, 10.0, paid.Change, 0.0001)
	require.InDelta(t, 50.0, sale.Amount, 0.0001)
	require.Len(t, a.Sales.List(), 1)

	// 5 sold * 2 buns per unit
	got, ok := a.Store().StockItemByID(bun.ID)
	require.True(t, ok)
	require.InDelta(t, 40.0, got.Quantity, 0.0001)
	require.Empty(t, notifier.alerts, "40 is still above the minimum of 20")
}

// A second sale drives the bun below its minimum and fires exactly one
// alert.
func TestOfflineSaleCrossesMinimum(t *testing.T) {
	a, _, notifier := newTestApp(t, "http://127.0.0.1:1", false)
	ctx := context.Background()

	p, err := a.Products.Create(ctx, products.CreateInput{Name: "Hot Dog", Price: 12, Category: "Hot Dogs", Active: true})
	require.NoError(t, err)
	bun, err := a.Stock.Create(ctx, stock.CreateInput{
		Name: "Pão para Hot Dog", Quantity: 22, Unit: "unidade", UnitPrice: 1.5, Category: "Pães", MinimumStock: 20,
	})
	require.NoError(t, err)
	_, err = a.Associations.Associate(ctx, p.ID, bun.ID, 1)
	require.NoError(t, err)

	sell := func(qty int) {
		o, err := a.Orders.Create(ctx, orders.CreateInput{
			Table:      "Balcão",
			ClientName: "Maria Oliveira",
			Items:      []orders.ItemInput{{Name: "Hot Dog", Quantity: qty, UnitPrice: 12}},
		})
		require.NoError(t, err)
		_, err = a.Orders.Close(ctx, o.ID)
		require.NoError(t, err)
		_, _, err = a.Orders.Pay(ctx, orders.PayInput{OrderID: o.ID, Method: store.PaymentPix})
		require.NoError(t, err)
	}

	sell(3)
	require.Len(t, notifier.alerts, 1)
	require.Equal(t, "Pão para Hot Dog", notifier.alerts[0].Name)
	require.InDelta(t, 19.0, notifier.alerts[0].Quantity, 0.0001)

	// already below the minimum, no second alert
	sell(2)
	require.Len(t, notifier.alerts, 1)

	got, _ := a.Store().StockItemByID(bun.ID)
	require.InDelta(t, 17.0, got.Quantity, 0.0001)
}
