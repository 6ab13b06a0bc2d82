// Package catalog reads the shop's product list from the commerce
// platform's catalog endpoint.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/auraflora/shopbot-server-go/internal/errors"
	"github.com/auraflora/shopbot-server-go/internal/model"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v23.0"

// Provider is the catalog surface the rest of the service depends on.
type Provider interface {
	// ListAvailable returns in-stock products, newest first as the
	// platform orders them.
	ListAvailable(ctx context.Context) ([]model.Product, error)
	// Validate looks up a retailer id and returns the matching product,
	// or a validation error when the id is unknown or out of stock.
	Validate(ctx context.Context, retailerID string) (*model.Product, error)
}

type Client struct {
	baseURL    string
	token      string
	catalogID  string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(token, catalogID string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultGraphBaseURL,
		token:      token,
		catalogID:  catalogID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type productsPage struct {
	Data   []model.Product `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

func (c *Client) ListAvailable(ctx context.Context) ([]model.Product, error) {
	var products []model.Product

	pageURL := fmt.Sprintf("%s/%s/products?fields=%s&limit=100",
		c.baseURL, c.catalogID,
		url.QueryEscape("retailer_id,name,price,image_url,availability"))

	// Paging.Next is an absolute URL; follow it until exhausted.
	for pageURL != "" {
		page, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		for _, p := range page.Data {
			if !p.Available() {
				continue
			}
			if amount, ok := model.ParsePrice(p.Price); ok {
				p.UnitAmount = amount
			}
			products = append(products, p)
		}
		pageURL = page.Paging.Next
	}
	return products, nil
}

func (c *Client) Validate(ctx context.Context, retailerID string) (*model.Product, error) {
	if retailerID == "" {
		return nil, apperrors.ValidationError("retailer id is empty")
	}
	products, err := c.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].RetailerID == retailerID {
			return &products[i], nil
		}
	}
	return nil, apperrors.ValidationError(fmt.Sprintf("unknown or unavailable product %q", retailerID))
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (*productsPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.ExternalTimeout("catalog", err)
		}
		return nil, apperrors.External("catalog", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, apperrors.External("catalog",
			fmt.Errorf("unexpected status %d: %s", res.StatusCode, string(buf)))
	}

	var page productsPage
	if err := json.NewDecoder(io.LimitReader(res.Body, 4<<20)).Decode(&page); err != nil {
		return nil, apperrors.External("catalog", fmt.Errorf("decode page: %w", err))
	}
	return &page, nil
}

// FormatForPrompt renders the catalog as one line per product for the
// assistant's system prompt.
func FormatForPrompt(products []model.Product) string {
	if len(products) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range products {
		fmt.Fprintf(&b, "- %s (id: %s, price: %s)\n", p.Name, p.RetailerID, p.Price)
	}
	return strings.TrimRight(b.String(), "\n")
}
