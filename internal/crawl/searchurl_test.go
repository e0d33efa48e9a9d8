package crawl

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/product"
)

func TestBuildSearchURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params product.SearchParams
		page   int
		want   string
	}{
		{
			name:   "page one omits page param",
			params: product.SearchParams{Keyword: "usb hub"},
			page:   1,
			want:   "https://www.aliexpress.com/w/wholesale-usb-hub.html",
		},
		{
			name:   "page two carries page param",
			params: product.SearchParams{Keyword: "usb hub"},
			page:   2,
			want:   "https://www.aliexpress.com/w/wholesale-usb-hub.html?page=2",
		},
		{
			name:   "keyword whitespace collapses to hyphens",
			params: product.SearchParams{Keyword: "  mechanical   keyboard "},
			page:   1,
			want:   "https://www.aliexpress.com/w/wholesale-mechanical-keyboard.html",
		},
		{
			name:   "sort by price ascending",
			params: product.SearchParams{Keyword: "lamp", SortBy: product.SortPriceAsc},
			page:   1,
			want:   "https://www.aliexpress.com/w/wholesale-lamp.html?SortType=price_asc",
		},
		{
			name:   "sort by orders",
			params: product.SearchParams{Keyword: "lamp", SortBy: product.SortOrders},
			page:   1,
			want:   "https://www.aliexpress.com/w/wholesale-lamp.html?SortType=total_tranpro_desc",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, BuildSearchURL(tt.params, tt.page))
		})
	}
}

func TestBuildSearchURLAllFilters(t *testing.T) {
	t.Parallel()

	got := BuildSearchURL(product.SearchParams{
		Keyword:  "phone case",
		MinPrice: "1.50",
		MaxPrice: "20",
		Category: "509",
		SortBy:   product.SortPriceDesc,
	}, 3)

	u, err := url.Parse(got)
	require.NoError(t, err)
	require.Equal(t, "/w/wholesale-phone-case.html", u.Path)

	q := u.Query()
	require.Equal(t, "3", q.Get("page"))
	require.Equal(t, "price_desc", q.Get("SortType"))
	require.Equal(t, "1.50", q.Get("minPrice"))
	require.Equal(t, "20", q.Get("maxPrice"))
	require.Equal(t, "509", q.Get("CatId"))
}

func TestFirstPageURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://example.com/w/custom.html",
		FirstPageURL(product.SearchParams{Keyword: "lamp", StartURL: "https://example.com/w/custom.html"}))
	require.Equal(t, "https://www.aliexpress.com/w/wholesale-lamp.html",
		FirstPageURL(product.SearchParams{Keyword: "lamp"}))
}
