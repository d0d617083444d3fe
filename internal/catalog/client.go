package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront-service/internal/domain"
)

// Client fetches the product catalog and category list from the upstream REST
// API. The two resources live behind independent endpoints and are fetched
// concurrently, but partial success is not supported: if either request fails,
// the whole fetch fails and no catalog is produced.
type Client struct {
	httpClient    *http.Client
	productsURL   string
	categoriesURL string
}

// NewClient creates an upstream catalog client. timeout bounds each request.
func NewClient(productsURL, categoriesURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		productsURL:   productsURL,
		categoriesURL: categoriesURL,
	}
}

// FetchCatalog issues the two GETs jointly and waits for both. There is no
// retry; the caller decides the recovery path (a manual refresh).
func (c *Client) FetchCatalog(ctx context.Context) ([]domain.Product, []string, error) {
	var (
		products   []domain.Product
		categories []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getJSON(gctx, c.productsURL, &products)
	})
	g.Go(func() error {
		return c.getJSON(gctx, c.categoriesURL, &categories)
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("catalog: fetch failed: %w", err)
	}

	return products, categories, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("catalog: failed to build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: request to %s failed: %w", url, err)
	}
	defer res.Body.Close()

	// Any non-2xx status is treated as total failure.
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("catalog: unexpected status %d from %s", res.StatusCode, url)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("catalog: failed to decode response from %s: %w", url, err)
	}
	return nil
}
