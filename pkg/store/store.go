// Package store provides the read-only order dataset backing the voice
// assistant. The dataset is loaded once at startup from a static JSON
// snapshot and is immutable for the process lifetime.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Status is an order's fulfillment state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Product is a catalog entry.
type Product struct {
	ID            int
	Name          string
	Description   string
	Price         float64
	StockQuantity int
	SKU           string
}

// Order is one customer order.
type Order struct {
	ID          int
	CustomerID  int
	OrderDate   time.Time
	TotalAmount float64
	Status      Status
}

// LineItem is one order line joined with its product.
type LineItem struct {
	Product   Product
	Quantity  int
	UnitPrice float64
}

// orderItem is the raw snapshot record before the product join.
type orderItem struct {
	OrderID   int
	ProductID int
	Quantity  int
	UnitPrice float64
}

// Store is an in-memory index over the snapshot.
type Store struct {
	path         string
	products     map[int]Product
	orders       map[int]Order
	itemsByOrder map[int][]orderItem
	logger       *slog.Logger
}

// snapshot mirrors the JSON layout of the static dataset.
type snapshot struct {
	Products []struct {
		ID            int     `json:"id"`
		Name          string  `json:"name"`
		Description   string  `json:"description"`
		Price         float64 `json:"price"`
		StockQuantity int     `json:"stock_quantity"`
		SKU           string  `json:"sku"`
	} `json:"products"`
	Orders []struct {
		ID          int     `json:"id"`
		CustomerID  int     `json:"customer_id"`
		OrderDate   string  `json:"order_date"`
		TotalAmount float64 `json:"total_amount"`
		Status      string  `json:"status"`
	} `json:"orders"`
	OrderItems []struct {
		OrderID   int     `json:"order_id"`
		ProductID int     `json:"product_id"`
		Quantity  int     `json:"quantity"`
		UnitPrice float64 `json:"unit_price"`
	} `json:"order_items"`
}

// dateLayouts accepted for order_date values in the snapshot.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

// Load reads the snapshot at path and builds the in-memory index.
// On failure it returns an empty but usable Store alongside the error;
// Health keeps reporting the underlying condition.
func Load(path string) (*Store, error) {
	s := &Store{
		path:         path,
		products:     make(map[int]Product),
		orders:       make(map[int]Order),
		itemsByOrder: make(map[int][]orderItem),
		logger:       slog.Default().With("component", "store"),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("store: read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return s, fmt.Errorf("store: parse snapshot: %w", err)
	}

	for _, p := range snap.Products {
		s.products[p.ID] = Product{
			ID:            p.ID,
			Name:          p.Name,
			Description:   p.Description,
			Price:         p.Price,
			StockQuantity: p.StockQuantity,
			SKU:           p.SKU,
		}
	}
	for _, o := range snap.Orders {
		s.orders[o.ID] = Order{
			ID:          o.ID,
			CustomerID:  o.CustomerID,
			OrderDate:   parseDate(o.OrderDate),
			TotalAmount: o.TotalAmount,
			Status:      Status(o.Status),
		}
	}
	for _, it := range snap.OrderItems {
		s.itemsByOrder[it.OrderID] = append(s.itemsByOrder[it.OrderID], orderItem{
			OrderID:   it.OrderID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	s.logger.Info("snapshot loaded",
		"path", path,
		"products", len(s.products),
		"orders", len(s.orders))
	return s, nil
}

func parseDate(value string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Order looks up an order by id.
func (s *Store) Order(id int) (Order, bool) {
	o, ok := s.orders[id]
	return o, ok
}

// Items returns the order's line items in snapshot order, joined with
// their products. Items referencing a missing product are skipped.
func (s *Store) Items(orderID int) []LineItem {
	raw := s.itemsByOrder[orderID]
	items := make([]LineItem, 0, len(raw))
	for _, it := range raw {
		product, ok := s.products[it.ProductID]
		if !ok {
			s.logger.Warn("order item references unknown product",
				"order_id", it.OrderID, "product_id", it.ProductID)
			continue
		}
		items = append(items, LineItem{
			Product:   product,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return items
}

// FormatOrderDetails renders a human-readable order summary for the LLM
// context. Subtotals are quantity × unit price; the total amount is the
// stored field and is never recomputed from the lines.
func (s *Store) FormatOrderDetails(o Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%d Details:\n", o.ID)
	fmt.Fprintf(&b, "- Order Date: %s\n", o.OrderDate.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "- Status: %s\n", o.Status)
	fmt.Fprintf(&b, "- Total Amount: $%.2f\n", o.TotalAmount)
	b.WriteString("\nItems:")

	items := s.Items(o.ID)
	if len(items) == 0 {
		b.WriteString("\n  No items recorded for this order.")
		return b.String()
	}
	for _, item := range items {
		fmt.Fprintf(&b, "\n  - %s", item.Product.Name)
		fmt.Fprintf(&b, "\n    Quantity: %d", item.Quantity)
		fmt.Fprintf(&b, "\n    Price: $%.2f each", item.UnitPrice)
		fmt.Fprintf(&b, "\n    Subtotal: $%.2f", float64(item.Quantity)*item.UnitPrice)
	}
	return b.String()
}

// Health describes the snapshot's current condition for the health endpoint.
type Health struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Message  string `json:"message"`
}

// CheckHealth re-verifies the snapshot file. A missing or malformed
// snapshot is a distinct unhealthy condition, never "no orders".
func (s *Store) CheckHealth() Health {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Health{Status: "unhealthy", Database: "missing", Message: "Static dataset not found"}
	}
	if !json.Valid(data) {
		return Health{Status: "unhealthy", Database: "invalid", Message: "Static dataset is malformed"}
	}
	return Health{Status: "healthy", Database: "static-json", Message: "Static dataset loaded successfully"}
}
