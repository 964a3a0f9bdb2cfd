package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tair/favorite-products/pkg/logger"
)

const requestTimeout = 3 * time.Second

// Product is a product record as served by the external catalog API
type Product struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Rating      *Rating         `json:"rating,omitempty"`
}

// Rating is the aggregate review value attached to a catalog product
type Rating struct {
	Rate  decimal.Decimal `json:"rate"`
	Count int             `json:"count"`
}

// Client fetches products from the external catalog API. It is a pure
// read-through: no retries, no caching, no local mutation.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a catalog client for the given base URL
func NewClient(baseURL string) *Client {
	client := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   requestTimeout,
		},
	}

	logger.Logger.Info().
		Str("base_url", baseURL).
		Msg("External catalog client initialized")

	return client
}

// FetchOne fetches a single product by its external identifier
func (c *Client) FetchOne(ctx context.Context, id int) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/products/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransientError{Op: "fetch product", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Op: "fetch product", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransientError{
			Op:  "fetch product",
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var product *Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, &TransientError{Op: "decode product", Err: err}
	}

	// The upstream API answers unknown ids with 200 and a null body
	if product == nil || product.ID == 0 {
		return nil, ErrNotFound
	}

	return product, nil
}

// FetchAll fetches the full product catalog
func (c *Client) FetchAll(ctx context.Context) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products", nil)
	if err != nil {
		return nil, &TransientError{Op: "fetch catalog", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Op: "fetch catalog", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransientError{
			Op:  "fetch catalog",
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var products []Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, &TransientError{Op: "decode catalog", Err: err}
	}

	return products, nil
}
