package store

import (
	"sync"
	"sync/atomic"
)

// Store owns the in-memory view of the five collections plus the
// product–stock association table. Reads are always served from here;
// repositories merge remote or fallback state in and persist out.
//
// All accessors return copies. Mutators are synchronous over the guarded
// state, so a caller that resumed after a network round trip sees the latest
// committed view (last write wins, no versioning).
type Store struct {
	mu           sync.RWMutex
	clients      []Client
	products     []Product
	orders       []Order
	stock        []StockItem
	sales        []Sale
	associations []Association

	degraded atomic.Bool
}

// Snapshot groups the full collection set, as loaded from the backend or the
// fallback store.
type Snapshot struct {
	Clients      []Client
	Products     []Product
	Orders       []Order
	Stock        []StockItem
	Sales        []Sale
	Associations []Association
}

func New() *Store {
	return &Store{}
}

// ReplaceAll swaps the entire in-memory view, then rebuilds the embedded
// association views on products.
func (s *Store) ReplaceAll(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = append([]Client(nil), snap.Clients...)
	s.products = append([]Product(nil), snap.Products...)
	s.orders = append([]Order(nil), snap.Orders...)
	s.stock = append([]StockItem(nil), snap.Stock...)
	s.sales = append([]Sale(nil), snap.Sales...)
	s.associations = append([]Association(nil), snap.Associations...)
	s.syncAllProductLinks()
}

// MarkDegraded flags that at least one write has been served from the local
// fallback path since the last successful refresh.
func (s *Store) MarkDegraded() { s.degraded.Store(true) }

// ClearDegraded resets the flag after a fully remote refresh.
func (s *Store) ClearDegraded() { s.degraded.Store(false) }

// Degraded reports whether the store is running on local-only writes.
func (s *Store) Degraded() bool { return s.degraded.Load() }

// ---- clients ----

func (s *Store) Clients() []Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Client(nil), s.clients...)
}

func (s *Store) ClientByID(id string) (Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.ID == id {
			return c, true
		}
	}
	return Client{}, false
}

// UpsertClient inserts or replaces by id.
func (s *Store) UpsertClient(c Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.clients {
		if s.clients[i].ID == c.ID {
			s.clients[i] = c
			return
		}
	}
	s.clients = append(s.clients, c)
}

// ---- products ----

func (s *Store) Products() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Product(nil), s.products...)
}

func (s *Store) ProductByID(id int) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// ProductByName resolves a sold-item name to a product by exact match.
func (s *Store) ProductByName(name string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.Name == name {
			return p, true
		}
	}
	return Product{}, false
}

// NextProductID follows the backend's assignment rule: max existing id plus
// one, or one when the collection is empty.
func (s *Store) NextProductID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	next := 1
	for _, p := range s.products {
		if p.ID >= next {
			next = p.ID + 1
		}
	}
	return next
}

func (s *Store) UpsertProduct(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.StockLinks = s.linksFor(p.ID)
	for i := range s.products {
		if s.products[i].ID == p.ID {
			s.products[i] = p
			return
		}
	}
	s.products = append(s.products, p)
}

// DeleteProduct removes the product and cascades over the association table.
func (s *Store) DeleteProduct(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.products[:0]
	found := false
	for _, p := range s.products {
		if p.ID == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	s.products = kept
	if found {
		s.removeAssociations(func(a Association) bool { return a.ProductID == id })
	}
	return found
}

// ---- orders ----

func (s *Store) Orders() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Order(nil), s.orders...)
}

func (s *Store) OrderByID(id int) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.ID == id {
			return o, true
		}
	}
	return Order{}, false
}

func (s *Store) NextOrderID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	next := 1
	for _, o := range s.orders {
		if o.ID >= next {
			next = o.ID + 1
		}
	}
	return next
}

func (s *Store) UpsertOrder(o Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == o.ID {
			s.orders[i] = o
			return
		}
	}
	s.orders = append(s.orders, o)
}

func (s *Store) DeleteOrder(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.orders[:0]
	found := false
	for _, o := range s.orders {
		if o.ID == id {
			found = true
			continue
		}
		kept = append(kept, o)
	}
	s.orders = kept
	return found
}

// ---- stock ----

func (s *Store) StockItems() []StockItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]StockItem(nil), s.stock...)
}

func (s *Store) StockItemByID(id int) (StockItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.stock {
		if it.ID == id {
			return it, true
		}
	}
	return StockItem{}, false
}

func (s *Store) NextStockItemID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	next := 1
	for _, it := range s.stock {
		if it.ID >= next {
			next = it.ID + 1
		}
	}
	return next
}

func (s *Store) UpsertStockItem(it StockItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.stock {
		if s.stock[i].ID == it.ID {
			s.stock[i] = it
			return
		}
	}
	s.stock = append(s.stock, it)
}

// DeleteStockItem removes the item and every association referencing it, and
// drops the reference from product embedded views.
func (s *Store) DeleteStockItem(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.stock[:0]
	found := false
	for _, it := range s.stock {
		if it.ID == id {
			found = true
			continue
		}
		kept = append(kept, it)
	}
	s.stock = kept
	if found {
		s.removeAssociations(func(a Association) bool { return a.StockItemID == id })
	}
	return found
}

// ---- sales ----

func (s *Store) Sales() []Sale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Sale(nil), s.sales...)
}

func (s *Store) NextSaleID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	next := 1
	for _, v := range s.sales {
		if v.ID >= next {
			next = v.ID + 1
		}
	}
	return next
}

func (s *Store) UpsertSale(v Sale) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sales {
		if s.sales[i].ID == v.ID {
			s.sales[i] = v
			return
		}
	}
	s.sales = append(s.sales, v)
}

// ---- associations ----

func (s *Store) Associations() []Association {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Association(nil), s.associations...)
}

func (s *Store) AssociationsForProduct(productID int) []Association {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Association
	for _, a := range s.associations {
		if a.ProductID == productID {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) FindAssociation(productID, stockItemID int) (Association, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.associations {
		if a.ProductID == productID && a.StockItemID == stockItemID {
			return a, true
		}
	}
	return Association{}, false
}

// PutAssociation inserts or replaces the association for the pair and
// refreshes the product's embedded view.
func (s *Store) PutAssociation(a Association) {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := false
	for i := range s.associations {
		if s.associations[i].ProductID == a.ProductID && s.associations[i].StockItemID == a.StockItemID {
			s.associations[i] = a
			replaced = true
			break
		}
	}
	if !replaced {
		s.associations = append(s.associations, a)
	}
	s.syncProductLinks(a.ProductID)
}

func (s *Store) RemoveAssociation(productID, stockItemID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeAssociations(func(a Association) bool {
		return a.ProductID == productID && a.StockItemID == stockItemID
	})
}

// removeAssociations filters the table and refreshes the embedded views of
// every touched product. Callers hold the write lock.
func (s *Store) removeAssociations(match func(Association) bool) bool {
	kept := s.associations[:0]
	touched := map[int]bool{}
	removed := false
	for _, a := range s.associations {
		if match(a) {
			touched[a.ProductID] = true
			removed = true
			continue
		}
		kept = append(kept, a)
	}
	s.associations = kept
	for pid := range touched {
		s.syncProductLinks(pid)
	}
	return removed
}

// linksFor returns the association rows for a product. Callers hold a lock.
func (s *Store) linksFor(productID int) []Association {
	var out []Association
	for _, a := range s.associations {
		if a.ProductID == productID {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) syncProductLinks(productID int) {
	for i := range s.products {
		if s.products[i].ID == productID {
			s.products[i].StockLinks = s.linksFor(productID)
			return
		}
	}
}

func (s *Store) syncAllProductLinks() {
	for i := range s.products {
		s.products[i].StockLinks = s.linksFor(s.products[i].ID)
	}
}
