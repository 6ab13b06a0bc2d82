package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderFields is the sparse set of order attributes captured across
// conversational turns. Pointer fields distinguish "not provided" from
// zero values; merging only ever adds or overwrites, never clears.
type OrderFields struct {
	Bouquet        *string `json:"bouquet,omitempty"`
	RetailerID     *string `json:"retailer_id,omitempty"`
	Quantity       *int    `json:"quantity,omitempty"`
	Price          *string `json:"price,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	Date           *string `json:"date,omitempty"`
	Time           *string `json:"time,omitempty"`
	DeliveryNeeded *bool   `json:"delivery_needed,omitempty"`
	Address        *string `json:"address,omitempty"`
	CardNeeded     *bool   `json:"card_needed,omitempty"`
	CardText       *string `json:"card_text,omitempty"`
	RecipientName  *string `json:"recipient_name,omitempty"`
	RecipientPhone *string `json:"recipient_phone,omitempty"`
	CustomerName   *string `json:"customer_name,omitempty"`
	CustomerPhone  *string `json:"customer_phone,omitempty"`
}

// Merge overwrites the receiver's fields with every field set on other.
func (f *OrderFields) Merge(other OrderFields) {
	if other.Bouquet != nil {
		f.Bouquet = other.Bouquet
	}
	if other.RetailerID != nil {
		f.RetailerID = other.RetailerID
	}
	if other.Quantity != nil {
		f.Quantity = other.Quantity
	}
	if other.Price != nil {
		f.Price = other.Price
	}
	if other.Notes != nil {
		f.Notes = other.Notes
	}
	if other.Date != nil {
		f.Date = other.Date
	}
	if other.Time != nil {
		f.Time = other.Time
	}
	if other.DeliveryNeeded != nil {
		f.DeliveryNeeded = other.DeliveryNeeded
	}
	if other.Address != nil {
		f.Address = other.Address
	}
	if other.CardNeeded != nil {
		f.CardNeeded = other.CardNeeded
	}
	if other.CardText != nil {
		f.CardText = other.CardText
	}
	if other.RecipientName != nil {
		f.RecipientName = other.RecipientName
	}
	if other.RecipientPhone != nil {
		f.RecipientPhone = other.RecipientPhone
	}
	if other.CustomerName != nil {
		f.CustomerName = other.CustomerName
	}
	if other.CustomerPhone != nil {
		f.CustomerPhone = other.CustomerPhone
	}
}

// IsEmpty reports whether no field is set.
func (f OrderFields) IsEmpty() bool {
	return f == (OrderFields{})
}

// MissingRequired returns the required fields that are still absent.
// A confirmable order needs at least a product: a bouquet name or a
// catalog retailer id.
func (f OrderFields) MissingRequired() []string {
	var missing []string
	if deref(f.Bouquet) == "" && deref(f.RetailerID) == "" {
		missing = append(missing, "bouquet")
	}
	if f.DeliveryNeeded != nil && *f.DeliveryNeeded && deref(f.Address) == "" {
		missing = append(missing, "address")
	}
	if f.CardNeeded != nil && *f.CardNeeded && deref(f.CardText) == "" {
		missing = append(missing, "card_text")
	}
	return missing
}

// OperatorSummary renders the plain-text order summary sent to the
// fulfillment channel. No emoji, one attribute per line.
func (f OrderFields) OperatorSummary(senderID string) string {
	var b strings.Builder
	b.WriteString("NEW ORDER\n")
	fmt.Fprintf(&b, "customer: %s (%s)\n", orDash(deref(f.CustomerName)), senderID)

	qty := 1
	if f.Quantity != nil && *f.Quantity > 0 {
		qty = *f.Quantity
	}
	fmt.Fprintf(&b, "item: %s x%d\n", orDash(deref(f.Bouquet)), qty)
	if deref(f.RetailerID) != "" {
		fmt.Fprintf(&b, "product ref: %s\n", *f.RetailerID)
	}
	if deref(f.Price) != "" {
		fmt.Fprintf(&b, "price: %s\n", *f.Price)
		if unit, ok := ParsePrice(*f.Price); ok {
			total := unit.Mul(decimal.NewFromInt(int64(qty)))
			fmt.Fprintf(&b, "total: %s\n", total.String())
		}
	}
	fmt.Fprintf(&b, "date: %s\n", orDash(deref(f.Date)))
	fmt.Fprintf(&b, "time: %s\n", orDash(deref(f.Time)))
	if f.DeliveryNeeded != nil && *f.DeliveryNeeded {
		fmt.Fprintf(&b, "delivery: yes, %s\n", orDash(deref(f.Address)))
	} else {
		b.WriteString("delivery: no, pickup\n")
	}
	if f.CardNeeded != nil && *f.CardNeeded {
		fmt.Fprintf(&b, "card: %q\n", deref(f.CardText))
	}
	fmt.Fprintf(&b, "recipient: %s %s\n", orDash(deref(f.RecipientName)), deref(f.RecipientPhone))
	if deref(f.Notes) != "" {
		fmt.Fprintf(&b, "notes: %s\n", *f.Notes)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ParsePrice extracts a decimal amount from a catalog price string such
// as "1,500 THB" or "฿1500.00".
func ParsePrice(s string) (decimal.Decimal, bool) {
	var digits strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(digits.String())
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// OrderDraft is the per-session order accumulator persisted alongside
// the session row.
type OrderDraft struct {
	SessionID string
	Fields    OrderFields
	Status    OrderStatus
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
