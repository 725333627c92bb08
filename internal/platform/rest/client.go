package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aquelehotdogs/comanda/internal/store"
)

// Collection paths served by the backend API.
const (
	pathClients  = "/clientes"
	pathProducts = "/produtos"
	pathOrders   = "/pedidos"
	pathStock    = "/estoque"
	pathSales    = "/vendas"
)

// Client wraps the backend REST API, one JSON collection per entity.
// Responses are decoded into typed entities at this boundary; anything the
// server returns that does not parse is a hard error, never a silent cast.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client for the given base URL (e.g.
// "http://localhost:3000/api").
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ---- clients ----

func (c *Client) ListClients(ctx context.Context) ([]store.Client, error) {
	return listJSON[store.Client](ctx, c, pathClients)
}

func (c *Client) CreateClient(ctx context.Context, body store.Client) (store.Client, error) {
	return postJSON(ctx, c, pathClients, body)
}

func (c *Client) UpdateClient(ctx context.Context, body store.Client) error {
	return putJSON(ctx, c, fmt.Sprintf("%s/%s", pathClients, body.ID), body)
}

func (c *Client) GetClient(ctx context.Context, id string) (store.Client, error) {
	return getJSON[store.Client](ctx, c, fmt.Sprintf("%s/%s", pathClients, id))
}

// ---- products ----

func (c *Client) ListProducts(ctx context.Context) ([]store.Product, error) {
	return listJSON[store.Product](ctx, c, pathProducts)
}

func (c *Client) CreateProduct(ctx context.Context, body store.Product) (store.Product, error) {
	return postJSON(ctx, c, pathProducts, body)
}

func (c *Client) UpdateProduct(ctx context.Context, body store.Product) error {
	return putJSON(ctx, c, fmt.Sprintf("%s/%d", pathProducts, body.ID), body)
}

func (c *Client) DeleteProduct(ctx context.Context, id int) error {
	return c.deletePath(ctx, fmt.Sprintf("%s/%d", pathProducts, id))
}

func (c *Client) GetProduct(ctx context.Context, id int) (store.Product, error) {
	return getJSON[store.Product](ctx, c, fmt.Sprintf("%s/%d", pathProducts, id))
}

// ---- orders ----

func (c *Client) ListOrders(ctx context.Context) ([]store.Order, error) {
	return listJSON[store.Order](ctx, c, pathOrders)
}

func (c *Client) CreateOrder(ctx context.Context, body store.Order) (store.Order, error) {
	return postJSON(ctx, c, pathOrders, body)
}

func (c *Client) UpdateOrder(ctx context.Context, body store.Order) error {
	return putJSON(ctx, c, fmt.Sprintf("%s/%d", pathOrders, body.ID), body)
}

func (c *Client) DeleteOrder(ctx context.Context, id int) error {
	return c.deletePath(ctx, fmt.Sprintf("%s/%d", pathOrders, id))
}

func (c *Client) GetOrder(ctx context.Context, id int) (store.Order, error) {
	return getJSON[store.Order](ctx, c, fmt.Sprintf("%s/%d", pathOrders, id))
}

// ---- stock ----

func (c *Client) ListStock(ctx context.Context) ([]store.StockItem, error) {
	return listJSON[store.StockItem](ctx, c, pathStock)
}

func (c *Client) CreateStockItem(ctx context.Context, body store.StockItem) (store.StockItem, error) {
	return postJSON(ctx, c, pathStock, body)
}

func (c *Client) UpdateStockItem(ctx context.Context, body store.StockItem) error {
	return putJSON(ctx, c, fmt.Sprintf("%s/%d", pathStock, body.ID), body)
}

func (c *Client) DeleteStockItem(ctx context.Context, id int) error {
	return c.deletePath(ctx, fmt.Sprintf("%s/%d", pathStock, id))
}

func (c *Client) GetStockItem(ctx context.Context, id int) (store.StockItem, error) {
	return getJSON[store.StockItem](ctx, c, fmt.Sprintf("%s/%d", pathStock, id))
}

// ---- sales ----

func (c *Client) ListSales(ctx context.Context) ([]store.Sale, error) {
	return listJSON[store.Sale](ctx, c, pathSales)
}

func (c *Client) CreateSale(ctx context.Context, body store.Sale) (store.Sale, error) {
	return postJSON(ctx, c, pathSales, body)
}

// ---- transport ----

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("rest: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rest: %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 400 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("rest: %s %s: status %d", method, path, resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) deletePath(ctx context.Context, path string) error {
	resp, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func listJSON[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	var out []T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("rest: decode %s: %w", path, err)
	}
	return out, nil
}

func getJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out T
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return out, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("rest: decode %s: %w", path, err)
	}
	return out, nil
}

// postJSON sends the entity and adopts the server-returned representation,
// which carries the server-assigned id.
func postJSON[T any](ctx context.Context, c *Client, path string, body T) (T, error) {
	var out T
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return out, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("rest: decode %s: %w", path, err)
	}
	return out, nil
}

func putJSON[T any](ctx context.Context, c *Client, path string, body T) error {
	resp, err := c.do(ctx, http.MethodPut, path, body)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
