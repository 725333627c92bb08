package store

import "time"

// Fallback store keys, one per collection. They match the collection names the
// backend serves so a snapshot read from either side has the same shape.
const (
	KeyClients      = "clientes"
	KeyProducts     = "produtos"
	KeyOrders       = "pedidos"
	KeyStock        = "estoque"
	KeySales        = "vendas"
	KeyAssociations = "produtoEstoqueRelacoes"
)

// OrderStatus tracks the comanda lifecycle.
type OrderStatus string

const (
	OrderStatusOpen   OrderStatus = "aberto"
	OrderStatusClosed OrderStatus = "fechado"
	OrderStatusPaid   OrderStatus = "pago"
)

// PaymentMethod is stamped on an order when it is paid.
type PaymentMethod string

const (
	PaymentPix    PaymentMethod = "pix"
	PaymentCash   PaymentMethod = "dinheiro"
	PaymentCredit PaymentMethod = "cartao_credito"
	PaymentDebit  PaymentMethod = "cartao_debito"
)

// Unit is the measurement unit of a stock item.
type Unit string

const (
	UnitUnidade Unit = "unidade"
	UnitKg      Unit = "kg"
	UnitG       Unit = "g"
	UnitL       Unit = "l"
	UnitMl      Unit = "ml"
	UnitCaixa   Unit = "caixa"
	UnitPacote  Unit = "pacote"
)

// Client is a returning customer. Clients are registered explicitly or on
// first order placement and are never hard-deleted.
type Client struct {
	ID           string `json:"id"`
	Name         string `json:"nome"`
	Phone        string `json:"telefone,omitempty"`
	OrderHistory []int  `json:"historicoPedidos"`
}

// Association declares that producing one unit of a product consumes
// QuantityPerUnit units of a stock item. At most one association exists per
// (product, stock item) pair.
type Association struct {
	ProductID       int     `json:"produtoId"`
	StockItemID     int     `json:"itemEstoqueId"`
	QuantityPerUnit float64 `json:"quantidadePorUnidade"`
}

// Product is a sellable menu entry. StockLinks is a denormalized view of the
// association table, kept in sync by the Store and pushed to the backend
// best-effort so the remote copy carries the relation too.
type Product struct {
	ID         int           `json:"id"`
	Name       string        `json:"nome"`
	Price      float64       `json:"preco"`
	Image      string        `json:"imagem"`
	Category   string        `json:"categoria"`
	Active     bool          `json:"ativo"`
	StockLinks []Association `json:"itensEstoque,omitempty"`
}

// StockItem is a consumable. Quantity never goes negative: deductions clamp
// at zero.
type StockItem struct {
	ID           int       `json:"id"`
	Name         string    `json:"nome"`
	Quantity     float64   `json:"quantidade"`
	Unit         Unit      `json:"unidade"`
	UnitPrice    float64   `json:"precoUnitario"`
	Category     string    `json:"categoria"`
	LastUpdated  time.Time `json:"ultimaAtualizacao"`
	MinimumStock float64   `json:"estoqueMinimo"`
}

// Low reports whether the item sits at or below its minimum.
func (s StockItem) Low() bool {
	return s.Quantity <= s.MinimumStock
}

// OrderItem is a line of a comanda.
type OrderItem struct {
	Name      string  `json:"nome"`
	Quantity  int     `json:"quantidade"`
	UnitPrice float64 `json:"preco"`
	Note      string  `json:"observacao,omitempty"`
}

// Order is a running tab for a table/customer.
type Order struct {
	ID             int           `json:"id"`
	ClientID       string        `json:"clienteId,omitempty"`
	Table          string        `json:"mesa"`
	ClientName     string        `json:"cliente"`
	Items          []OrderItem   `json:"itens"`
	Status         OrderStatus   `json:"status"`
	PaymentMethod  PaymentMethod `json:"formaPagamento,omitempty"`
	CreatedAt      time.Time     `json:"timestamp"`
	Total          float64       `json:"valorTotal"`
	AmountReceived float64       `json:"valorRecebido,omitempty"`
	Change         float64       `json:"troco,omitempty"`
}

// SoldItem is a line of a recorded sale.
type SoldItem struct {
	Name      string  `json:"nome"`
	Quantity  int     `json:"quantidade"`
	UnitPrice float64 `json:"valorUnitario"`
}

// Sale is created exactly once per order payment and is immutable thereafter.
type Sale struct {
	ID            int        `json:"id"`
	OrderID       int        `json:"pedidoId"`
	Amount        float64    `json:"valor"`
	PaymentMethod string     `json:"formaPagamento"`
	Date          time.Time  `json:"data"`
	Items         []SoldItem `json:"itensVendidos"`
}

// OrderTotal recomputes a comanda total from its items. The Total field on
// Order is a denormalized cache of this sum and must be refreshed on every
// item mutation.
func OrderTotal(items []OrderItem) float64 {
	var total float64
	for _, it := range items {
		total += it.UnitPrice * float64(it.Quantity)
	}
	return total
}

// ValidUnit reports whether u is one of the accepted measurement units.
func ValidUnit(u Unit) bool {
	switch u {
	case UnitUnidade, UnitKg, UnitG, UnitL, UnitMl, UnitCaixa, UnitPacote:
		return true
	}
	return false
}
