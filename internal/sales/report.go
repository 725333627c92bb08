package sales

import (
	"sort"
	"time"
)

// Summary aggregates recorded sales over a window. The UI draws the charts;
// the numbers come from here.
type Summary struct {
	Count    int
	Total    float64
	ByMethod map[string]float64
	TopItems []ItemSales
}

// ItemSales ranks one sold item across the window.
type ItemSales struct {
	Name     string
	Quantity int
	Revenue  float64
}

// Summarize aggregates sales with Date in [from, to]. A zero bound leaves
// that side open.
func (s *Service) Summarize(from, to time.Time) Summary {
	sum := Summary{ByMethod: map[string]float64{}}
	items := map[string]*ItemSales{}
	for _, sale := range s.store.Sales() {
		if !from.IsZero() && sale.Date.Before(from) {
			continue
		}
		if !to.IsZero() && sale.Date.After(to) {
			continue
		}
		sum.Count++
		sum.Total += sale.Amount
		sum.ByMethod[sale.PaymentMethod] += sale.Amount
		for _, it := range sale.Items {
			entry, ok := items[it.Name]
			if !ok {
				entry = &ItemSales{Name: it.Name}
				items[it.Name] = entry
			}
			entry.Quantity += it.Quantity
			entry.Revenue += float64(it.Quantity) * it.UnitPrice
		}
	}
	for _, entry := range items {
		sum.TopItems = append(sum.TopItems, *entry)
	}
	sort.Slice(sum.TopItems, func(i, j int) bool {
		if sum.TopItems[i].Quantity != sum.TopItems[j].Quantity {
			return sum.TopItems[i].Quantity > sum.TopItems[j].Quantity
		}
		return sum.TopItems[i].Name < sum.TopItems[j].Name
	})
	return sum
}
