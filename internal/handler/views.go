package handler

import (
	"strings"
	"time"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stats"
)

type productView struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Price       string        `json:"price"`
	Category    string        `json:"category,omitempty"`
	Stock       int           `json:"stock"`
	StockLevel  string        `json:"stock_level"`
	InStock     bool          `json:"in_stock"`
	ImageURL    string        `json:"image_url,omitempty"`
	ImageURLs   []string      `json:"image_urls"`
	Specs       product.Specs `json:"specs"`
}

func (h *Handler) productView(p product.Product) productView {
	images := make([]string, len(p.ImageURLs))
	for i, u := range p.ImageURLs {
		images[i] = h.imageURL(u)
	}
	return productView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       pricing.Format(p.Price),
		Category:    p.Category,
		Stock:       p.Stock,
		StockLevel:  string(product.LevelOf(p.Stock)),
		InStock:     p.Available(),
		ImageURL:    h.imageURL(p.PrimaryImage()),
		ImageURLs:   images,
		Specs:       p.Specs,
	}
}

// imageURL prefixes relative paths with the configured base URL.
func (h *Handler) imageURL(path string) string {
	if path == "" || h.imageBaseURL == "" || strings.Contains(path, "://") {
		return path
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

type cartLineView struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	ImageURL  string `json:"image_url,omitempty"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type cartView struct {
	Session   string         `json:"session,omitempty"`
	Lines     []cartLineView `json:"lines"`
	ItemCount int            `json:"item_count"`
	Subtotal  string         `json:"subtotal"`
	Tax       string         `json:"tax"`
	Shipping  string         `json:"shipping"`
	Total     string         `json:"total"`
}

func (h *Handler) cartView(session string, c cart.Cart) cartView {
	s := pricing.Summarize(c)
	lines := make([]cartLineView, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = cartLineView{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: pricing.Format(l.UnitPrice),
			ImageURL:  h.imageURL(l.ImageURL),
			Quantity:  l.Quantity,
			LineTotal: pricing.Format(l.LineTotal),
		}
	}
	return cartView{
		Session:   session,
		Lines:     lines,
		ItemCount: s.ItemCount,
		Subtotal:  pricing.Format(s.Subtotal),
		Tax:       s.Tax,
		Shipping:  s.Shipping,
		Total:     pricing.Format(s.Total),
	}
}

type orderItemView struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

type customerView struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone,omitempty"`
	ShippingAddress string `json:"shipping_address"`
}

type orderView struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Customer    customerView    `json:"customer"`
	Items       []orderItemView `json:"items"`
	ItemCount   int             `json:"item_count"`
	TotalAmount string          `json:"total_amount"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func newOrderView(o *order.Order) orderView {
	items := make([]orderItemView, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemView{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   pricing.Format(it.UnitPrice),
			Subtotal:    pricing.Format(it.Subtotal),
		}
	}
	return orderView{
		ID:     o.ID,
		Status: string(o.Status),
		Customer: customerView{
			Name:            o.Customer.Name,
			Email:           o.Customer.Email,
			Phone:           o.Customer.Phone,
			ShippingAddress: o.Customer.ShippingAddress,
		},
		Items:       items,
		ItemCount:   o.ItemCount(),
		TotalAmount: pricing.Format(o.TotalAmount),
		Notes:       o.Notes,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func newOrderViews(orders []order.Order) []orderView {
	views := make([]orderView, len(orders))
	for i := range orders {
		views[i] = newOrderView(&orders[i])
	}
	return views
}

type dashboardView struct {
	TotalProducts     int            `json:"total_products"`
	LowStock          int            `json:"low_stock"`
	OutOfStock        int            `json:"out_of_stock"`
	OrdersByStatus    map[string]int `json:"orders_by_status"`
	PendingOrders     int            `json:"pending_orders"`
	CompletedOrders   int            `json:"completed_orders"`
	Revenue           string         `json:"revenue"`
	AverageOrderValue string         `json:"average_order_value"`
}

func newDashboardView(d *stats.Dashboard) dashboardView {
	byStatus := make(map[string]int, len(d.OrdersByStatus))
	for s, n := range d.OrdersByStatus {
		byStatus[string(s)] = n
	}
	return dashboardView{
		TotalProducts:     d.TotalProducts,
		LowStock:          d.LowStock,
		OutOfStock:        d.OutOfStock,
		OrdersByStatus:    byStatus,
		PendingOrders:     d.PendingOrders,
		CompletedOrders:   d.CompletedOrders,
		Revenue:           pricing.Format(d.Revenue),
		AverageOrderValue: pricing.Format(d.AverageOrderValue),
	}
}
