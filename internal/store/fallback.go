package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Fallback persists JSON-serialized snapshots of each collection in a
// process-wide key-value store. It is written through on every successful
// in-memory mutation and read back when the backend is unreachable.
//
// It is a best-effort cache, not a durable ledger: there is no transactional
// grouping across keys.
type Fallback struct {
	rdb *redis.Client
}

func NewFallback(rdb *redis.Client) *Fallback {
	return &Fallback{rdb: rdb}
}

func (f *Fallback) SaveClients(ctx context.Context, list []Client) error {
	return saveCollection(ctx, f.rdb, KeyClients, list)
}

func (f *Fallback) SaveProducts(ctx context.Context, list []Product) error {
	return saveCollection(ctx, f.rdb, KeyProducts, list)
}

func (f *Fallback) SaveOrders(ctx context.Context, list []Order) error {
	return saveCollection(ctx, f.rdb, KeyOrders, list)
}

func (f *Fallback) SaveStock(ctx context.Context, list []StockItem) error {
	return saveCollection(ctx, f.rdb, KeyStock, list)
}

func (f *Fallback) SaveSales(ctx context.Context, list []Sale) error {
	return saveCollection(ctx, f.rdb, KeySales, list)
}

func (f *Fallback) SaveAssociations(ctx context.Context, list []Association) error {
	return saveCollection(ctx, f.rdb, KeyAssociations, list)
}

func (f *Fallback) LoadClients(ctx context.Context) ([]Client, error) {
	return loadCollection[Client](ctx, f.rdb, KeyClients)
}

func (f *Fallback) LoadProducts(ctx context.Context) ([]Product, error) {
	return loadCollection[Product](ctx, f.rdb, KeyProducts)
}

func (f *Fallback) LoadOrders(ctx context.Context) ([]Order, error) {
	return loadCollection[Order](ctx, f.rdb, KeyOrders)
}

func (f *Fallback) LoadStock(ctx context.Context) ([]StockItem, error) {
	return loadCollection[StockItem](ctx, f.rdb, KeyStock)
}

func (f *Fallback) LoadSales(ctx context.Context) ([]Sale, error) {
	return loadCollection[Sale](ctx, f.rdb, KeySales)
}

func (f *Fallback) LoadAssociations(ctx context.Context) ([]Association, error) {
	return loadCollection[Association](ctx, f.rdb, KeyAssociations)
}

// LoadSnapshot reads every collection. Missing keys yield empty collections.
func (f *Fallback) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if snap.Clients, err = f.LoadClients(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Products, err = f.LoadProducts(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Orders, err = f.LoadOrders(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Stock, err = f.LoadStock(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Sales, err = f.LoadSales(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Associations, err = f.LoadAssociations(ctx); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// SaveSnapshot writes every non-empty collection back out.
func (f *Fallback) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	if err := f.SaveClients(ctx, snap.Clients); err != nil {
		return err
	}
	if err := f.SaveProducts(ctx, snap.Products); err != nil {
		return err
	}
	if err := f.SaveOrders(ctx, snap.Orders); err != nil {
		return err
	}
	if err := f.SaveStock(ctx, snap.Stock); err != nil {
		return err
	}
	if err := f.SaveSales(ctx, snap.Sales); err != nil {
		return err
	}
	return f.SaveAssociations(ctx, snap.Associations)
}

// saveCollection skips empty collections so a transient empty in-memory view
// never wipes a previously persisted snapshot.
func saveCollection[T any](ctx context.Context, rdb *redis.Client, key string, list []T) error {
	if len(list) == 0 {
		return nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("fallback: encode %s: %w", key, err)
	}
	if err := rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("fallback: save %s: %w", key, err)
	}
	return nil
}

func loadCollection[T any](ctx context.Context, rdb *redis.Client, key string) ([]T, error) {
	data, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fallback: load %s: %w", key, err)
	}
	var list []T
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("fallback: decode %s: %w", key, err)
	}
	return list, nil
}
