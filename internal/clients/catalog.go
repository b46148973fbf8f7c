package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apierr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
)

type CatalogClient struct{ c *Client }

func NewCatalogClient(c *Client) *CatalogClient { return &CatalogClient{c: c} }

// ListCoins fetches the whole catalog. A body that is not a JSON array, null
// included, is a NetworkError; [] is a valid empty catalog.
func (cc *CatalogClient) ListCoins(ctx context.Context) ([]catalog.Item, error) {
	var items []catalog.Item
	if err := cc.c.call(ctx, "list coins", http.MethodGet, "/coins", nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		return nil, apierr.Network("list coins", errors.New("response is not an array"))
	}
	return items, nil
}

// GetCoin fetches one item. A 404 is reported as catalog.ErrNotFound.
func (cc *CatalogClient) GetCoin(ctx context.Context, id string) (catalog.Item, error) {
	var it catalog.Item
	err := cc.c.call(ctx, "get coin", http.MethodGet, "/coins/"+url.PathEscape(id), nil, &it)
	if apierr.IsStatus(err, http.StatusNotFound) {
		return catalog.Item{}, fmt.Errorf("get coin %s: %w", id, errors.Join(catalog.ErrNotFound, err))
	}
	if err != nil {
		return catalog.Item{}, err
	}
	return it, nil
}
