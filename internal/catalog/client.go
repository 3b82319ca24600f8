// Package catalog implements the HTTP client for the catalog service,
// which owns branch and item definitions.  The booking service only
// reads item facts from it; any failure to obtain them aborts the
// submission (fail-closed).
package catalog

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/domination/booking-service/internal/engine"
    "github.com/domination/booking-service/internal/model"
)

// Client fetches ResourceFacts over HTTP.  It implements
// engine.CatalogGateway.
type Client struct {
    baseURL string
    http    *http.Client
}

var _ engine.CatalogGateway = (*Client)(nil)

// NewClient returns a Client for the catalog service at baseURL.
// Requests are bounded by a short timeout so a slow catalog cannot
// stall submissions indefinitely.
func NewClient(baseURL string) *Client {
    return &Client{
        baseURL: strings.TrimRight(baseURL, "/"),
        http:    &http.Client{Timeout: 5 * time.Second},
    }
}

// ResourceFacts resolves a rentable item.  A 404 from the catalog maps
// to engine.ErrResourceNotFound; every other non-200 outcome or
// transport fault is an error.
func (c *Client) ResourceFacts(ctx context.Context, itemID uint64) (*model.ResourceFacts, error) {
    url := fmt.Sprintf("%s/api/catalog/items/%d", c.baseURL, itemID)
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
    if err != nil {
        return nil, err
    }
    resp, err := c.http.Do(req)
    if err != nil {
        return nil, fmt.Errorf("catalog request: %w", err)
    }
    defer resp.Body.Close()
    switch resp.StatusCode {
    case http.StatusOK:
        // fallthrough to decode
    case http.StatusNotFound:
        return nil, fmt.Errorf("item %d: %w", itemID, engine.ErrResourceNotFound)
    default:
        return nil, fmt.Errorf("catalog returned status %d for item %d", resp.StatusCode, itemID)
    }
    var facts model.ResourceFacts
    if err := json.NewDecoder(resp.Body).Decode(&facts); err != nil {
        return nil, fmt.Errorf("decode catalog response: %w", err)
    }
    return &facts, nil
}
