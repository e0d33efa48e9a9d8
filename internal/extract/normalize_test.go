package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeFullItem(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"itemType":  "productV3",
		"productId": float64(1005001234),
		"title":     map[string]any{"displayTitle": "Soft Bath Towel"},
		"prices": map[string]any{
			"salePrice":     map[string]any{"formattedPrice": "$12.99"},
			"originalPrice": map[string]any{"formattedPrice": "$19.99"},
		},
		"evaluation": map[string]any{
			"starRating": 4.7,
			"totalCount": float64(321),
		},
		"trade": map[string]any{"tradeDesc": "10,000+ sold"},
		"store": map[string]any{
			"storeName": "Towel World",
			"storeUrl":  "//www.aliexpress.com/store/123",
		},
		"image":            map[string]any{"imgUrl": "//ae01.alicdn.com/kf/abc.jpg_220x220.jpg_.webp"},
		"productDetailUrl": "//www.aliexpress.com/item/1005001234.html",
	}

	rec, ok := Normalizer{}.Normalize(raw)
	require.True(t, ok)
	require.Equal(t, "1005001234", rec.ProductID)
	require.Equal(t, "Soft Bath Towel", rec.Title)
	require.Equal(t, "$12.99", rec.Price)
	require.Equal(t, "$19.99", rec.OriginalPrice)
	require.Equal(t, "USD", rec.Currency)
	require.Equal(t, "4.7", rec.Rating)
	require.NotNil(t, rec.ReviewsCount)
	require.Equal(t, 321, *rec.ReviewsCount)
	require.NotNil(t, rec.Orders)
	require.Equal(t, 10000, *rec.Orders)
	require.Equal(t, "Towel World", rec.StoreName)
	require.Equal(t, "https://www.aliexpress.com/store/123", rec.StoreURL)
	require.Equal(t, "https://ae01.alicdn.com/kf/abc.jpg", rec.ImageURL)
	require.Equal(t, "https://www.aliexpress.com/item/1005001234.html", rec.ProductURL)
}

func TestNormalizeRejectsNonProducts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"missing id", map[string]any{"title": "Towel"}},
		{"missing title", map[string]any{"productId": "1"}},
		{"nil item", nil},
		{"ad widget", map[string]any{"itemType": "bannerV1", "productId": "1", "title": "Towel"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, ok := Normalizer{}.Normalize(tt.raw)
			require.False(t, ok)
		})
	}
}

func TestNormalizeEuroPriceObject(t *testing.T) {
	t.Parallel()

	rec, ok := Normalizer{}.Normalize(map[string]any{
		"productId": "42",
		"title":     "Towel",
		"price":     map[string]any{"formattedPrice": "€12.99"},
	})
	require.True(t, ok)
	require.Equal(t, "€12.99", rec.Price)
	require.Equal(t, "EUR", rec.Currency)
}

func TestNormalizeIDFallbackChain(t *testing.T) {
	t.Parallel()

	rec, ok := Normalizer{}.Normalize(map[string]any{
		"itemId": "777",
		"title":  "Towel",
	})
	require.True(t, ok)
	require.Equal(t, "777", rec.ProductID)
	// URL synthesized from the id when the item carries none.
	require.Equal(t, "https://www.aliexpress.com/item/777.html", rec.ProductURL)
}

func TestNormalizeUnwrapsInnerItem(t *testing.T) {
	t.Parallel()

	rec, ok := Normalizer{}.Normalize(map[string]any{
		"item": map[string]any{
			"productId": "55",
			"title":     "Towel",
			"sold":      "3,500 sold",
		},
	})
	require.True(t, ok)
	require.Equal(t, "55", rec.ProductID)
	require.NotNil(t, rec.Orders)
	require.Equal(t, 3500, *rec.Orders)
}

func TestNormalizeStoreURLFromID(t *testing.T) {
	t.Parallel()

	rec, ok := Normalizer{}.Normalize(map[string]any{
		"productId": "1",
		"title":     "Towel",
		"store":     map[string]any{"storeId": float64(998877)},
	})
	require.True(t, ok)
	require.Equal(t, "https://www.aliexpress.com/store/998877", rec.StoreURL)
}

func TestParseSoldCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want *int
	}{
		{"10,000+ sold", intp(10000)},
		{"500 orders", intp(500)},
		{"1.200 pcs", intp(1200)},
		{"sold out", nil},
		{"", nil},
		{"0 sold", nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			got := ParseSoldCount(tt.text)
			if tt.want == nil {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, *tt.want, *got)
		})
	}
}

func intp(n int) *int { return &n }

func TestNormalizeImageURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"protocol relative with size suffix", "//ae01.alicdn.com/kf/abc.jpg_220x220.jpg_.webp", "https://ae01.alicdn.com/kf/abc.jpg"},
		{"query stripped", "https://ae01.alicdn.com/kf/abc.png?width=200", "https://ae01.alicdn.com/kf/abc.png"},
		{"extension appended", "https://ae01.alicdn.com/kf/abc", "https://ae01.alicdn.com/kf/abc.jpg"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NormalizeImageURL(tt.in)
			require.Equal(t, tt.want, got)
			// Normalization must be idempotent.
			require.Equal(t, got, NormalizeImageURL(got))
		})
	}
}

func TestCurrencyFromText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"$12.99", "USD"},
		{"€12.99", "EUR"},
		{"£5", "GBP"},
		{"¥100", "JPY"},
		{"₹250", "INR"},
		{"12.99", ""},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, CurrencyFromText(tt.text))
	}
}

func TestNormalizeSurvivesHostileShapes(t *testing.T) {
	t.Parallel()

	// Every field carrying an unexpected shape must degrade to "absent",
	// never panic or reject the batch.
	rec, ok := Normalizer{}.Normalize(map[string]any{
		"productId":  "1",
		"title":      "Towel",
		"prices":     "not-an-object",
		"evaluation": []any{"weird"},
		"trade":      map[string]any{"tradeDesc": map[string]any{}},
		"store":      map[string]any{"storeName": []any{}},
		"image":      42,
	})
	require.True(t, ok)
	require.Equal(t, "USD", rec.Currency)
	require.Empty(t, rec.Rating)
	require.Nil(t, rec.Orders)
	require.Empty(t, rec.StoreName)
}
