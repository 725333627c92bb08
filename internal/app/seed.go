package app

import (
	"context"
	"time"

	"github.com/aquelehotdogs/comanda/internal/store"
)

// seed populates the default catalogue and stock on a fresh install, when
// neither the backend nor the fallback store had anything to offer.
func (a *App) seed(ctx context.Context) {
	if a.cfg == nil || !a.cfg.SeedDefaults {
		return
	}
	now := time.Now()
	if len(a.store.Products()) == 0 {
		for _, p := range defaultProducts() {
			a.store.UpsertProduct(p)
		}
		if err := a.fallback.SaveProducts(ctx, a.store.Products()); err != nil {
			a.logger.Warn("seed: fallback persist failed", "err", err)
		}
		a.logger.Info("seed: default catalogue loaded")
	}
	if len(a.store.StockItems()) == 0 {
		for _, it := range defaultStock(now) {
			a.store.UpsertStockItem(it)
		}
		if err := a.fallback.SaveStock(ctx, a.store.StockItems()); err != nil {
			a.logger.Warn("seed: fallback persist failed", "err", err)
		}
		a.logger.Info("seed: default stock loaded")
	}
}

func defaultProducts() []store.Product {
	placeholder := "/placeholder.svg?height=100&width=100"
	return []store.Product{
		{ID: 1, Name: "Hot Dog Tradicional", Price: 12.0, Image: placeholder, Category: "Hot Dogs", Active: true},
		{ID: 2, Name: "Hot Dog Bacon", Price: 15.0, Image: placeholder, Category: "Hot Dogs", Active: true},
		{ID: 3, Name: "Hot Dog Frango", Price: 14.0, Image: placeholder, Category: "Hot Dogs", Active: true},
		{ID: 4, Name: "Hot Dog Vegetariano", Price: 16.0, Image: placeholder, Category: "Hot Dogs", Active: true},
		{ID: 5, Name: "Refrigerante Lata", Price: 6.0, Image: placeholder, Category: "Bebidas", Active: true},
		{ID: 6, Name: "Água Mineral", Price: 4.0, Image: placeholder, Category: "Bebidas", Active: true},
		{ID: 7, Name: "Suco Natural", Price: 8.0, Image: placeholder, Category: "Bebidas", Active: true},
		{ID: 8, Name: "Batata Frita", Price: 10.0, Image: placeholder, Category: "Acompanhamentos", Active: true},
		{ID: 9, Name: "Onion Rings", Price: 12.0, Image: placeholder, Category: "Acompanhamentos", Active: true},
	}
}

func defaultStock(now time.Time) []store.StockItem {
	return []store.StockItem{
		{ID: 1, Name: "Pão para Hot Dog", Quantity: 50, Unit: store.UnitUnidade, UnitPrice: 1.5, Category: "Pães", LastUpdated: now, MinimumStock: 20},
		{ID: 2, Name: "Salsicha", Quantity: 40, Unit: store.UnitUnidade, UnitPrice: 2.0, Category: "Carnes", LastUpdated: now, MinimumStock: 15},
		{ID: 3, Name: "Refrigerante Lata", Quantity: 24, Unit: store.UnitUnidade, UnitPrice: 3.0, Category: "Bebidas", LastUpdated: now, MinimumStock: 12},
		{ID: 4, Name: "Batata Palito", Quantity: 10, Unit: store.UnitKg, UnitPrice: 8.0, Category: "Acompanhamentos", LastUpdated: now, MinimumStock: 5},
		{ID: 5, Name: "Cebola", Quantity: 5, Unit: store.UnitKg, UnitPrice: 3.0, Category: "Vegetais", LastUpdated: now, MinimumStock: 2},
		{ID: 6, Name: "Queijo Mussarela", Quantity: 3, Unit: store.UnitKg, UnitPrice: 25.0, Category: "Laticínios", LastUpdated: now, MinimumStock: 1},
	}
}
