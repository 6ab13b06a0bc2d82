package model

import "github.com/shopspring/decimal"

// Product is a catalog item as reported by the commerce platform.
type Product struct {
	RetailerID   string          `json:"retailer_id"`
	Name         string          `json:"name"`
	Price        string          `json:"price"`
	ImageURL     string          `json:"image_url"`
	Availability string          `json:"availability"`
	UnitAmount   decimal.Decimal `json:"-"`
}

// Available reports whether the product can currently be ordered.
func (p Product) Available() bool {
	return p.Availability == "in stock" || p.Availability == ""
}
