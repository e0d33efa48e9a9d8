// Package crawl implements the crawl controller: frontier management,
// deduplication, pagination, and termination for one scrape run.
package crawl

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/product"
)

const searchBase = "https://www.aliexpress.com/w/wholesale-%s.html"

// BuildSearchURL constructs the deterministic search URL for a keyword and
// page number. The page parameter is omitted on page 1; sort, price bounds,
// and category appear only when provided.
func BuildSearchURL(params product.SearchParams, page int) string {
	keyword := strings.Join(strings.Fields(strings.TrimSpace(params.Keyword)), "-")
	u, err := url.Parse(fmt.Sprintf(searchBase, url.PathEscape(keyword)))
	if err != nil {
		// The base is a constant; only a hostile keyword could get here.
		return fmt.Sprintf(searchBase, url.QueryEscape(keyword))
	}

	q := u.Query()
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	switch params.SortBy {
	case product.SortPriceAsc:
		q.Set("SortType", "price_asc")
	case product.SortPriceDesc:
		q.Set("SortType", "price_desc")
	case product.SortOrders:
		q.Set("SortType", "total_tranpro_desc")
	}
	if params.MinPrice != "" {
		q.Set("minPrice", params.MinPrice)
	}
	if params.MaxPrice != "" {
		q.Set("maxPrice", params.MaxPrice)
	}
	if params.Category != "" {
		q.Set("CatId", params.Category)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// FirstPageURL returns the seed URL for a run: the caller-supplied start URL
// when present, otherwise the built search URL for page 1.
func FirstPageURL(params product.SearchParams) string {
	if params.StartURL != "" {
		return params.StartURL
	}
	return BuildSearchURL(params, 1)
}
