package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func TestOrderFieldsMergeOverwritesOnlyProvided(t *testing.T) {
	draft := OrderFields{
		Bouquet:  strPtr("Spirit"),
		Quantity: intPtr(1),
		Date:     strPtr("2026-09-01"),
	}
	draft.Merge(OrderFields{
		Quantity: intPtr(2),
		Address:  strPtr("99 Thalang Rd"),
	})

	assert.Equal(t, "Spirit", *draft.Bouquet)
	assert.Equal(t, 2, *draft.Quantity)
	assert.Equal(t, "2026-09-01", *draft.Date)
	assert.Equal(t, "99 Thalang Rd", *draft.Address)
	assert.Nil(t, draft.Notes)
}

func TestOrderFieldsMissingRequired(t *testing.T) {
	tests := []struct {
		name   string
		fields OrderFields
		want   []string
	}{
		{"empty", OrderFields{}, []string{"bouquet"}},
		{"bouquet set", OrderFields{Bouquet: strPtr("Spirit")}, nil},
		{"retailer id counts as product", OrderFields{RetailerID: strPtr("rl7vdxcifo")}, nil},
		{
			"delivery without address",
			OrderFields{Bouquet: strPtr("Spirit"), DeliveryNeeded: boolPtr(true)},
			[]string{"address"},
		},
		{
			"card without text",
			OrderFields{Bouquet: strPtr("Spirit"), CardNeeded: boolPtr(true)},
			[]string{"card_text"},
		},
		{
			"everything missing at once",
			OrderFields{DeliveryNeeded: boolPtr(true), CardNeeded: boolPtr(true)},
			[]string{"bouquet", "address", "card_text"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fields.MissingRequired())
		})
	}
}

func TestOrderFieldsIsEmpty(t *testing.T) {
	assert.True(t, OrderFields{}.IsEmpty())
	assert.False(t, OrderFields{Notes: strPtr("pink ribbon")}.IsEmpty())
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1,500 THB", "1500", true},
		{"฿1500.00", "1500", true},
		{"2200", "2200", true},
		{"call us", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, ok := ParsePrice(tt.in)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, d.String())
			}
		})
	}
}

func TestOperatorSummaryTotalsAndDelivery(t *testing.T) {
	fields := OrderFields{
		Bouquet:        strPtr("Spirit"),
		Quantity:       intPtr(2),
		Price:          strPtr("1,500 THB"),
		Date:           strPtr("2026-09-01"),
		Time:           strPtr("14:00"),
		DeliveryNeeded: boolPtr(true),
		Address:        strPtr("99 Thalang Rd"),
		CustomerName:   strPtr("Anna"),
		RecipientName:  strPtr("Mali"),
		RecipientPhone: strPtr("+66801234567"),
	}

	summary := fields.OperatorSummary("15550001111")

	assert.Contains(t, summary, "NEW ORDER")
	assert.Contains(t, summary, "customer: Anna (15550001111)")
	assert.Contains(t, summary, "item: Spirit x2")
	assert.Contains(t, summary, "total: 3000")
	assert.Contains(t, summary, "delivery: yes, 99 Thalang Rd")
	assert.NotContains(t, summary, "\U0001F338")
}

func TestOperatorSummaryPickupDefaults(t *testing.T) {
	fields := OrderFields{Bouquet: strPtr("Velvet")}

	summary := fields.OperatorSummary("15550001111")

	assert.Contains(t, summary, "item: Velvet x1")
	assert.Contains(t, summary, "delivery: no, pickup")
	assert.Contains(t, summary, "date: -")
}
