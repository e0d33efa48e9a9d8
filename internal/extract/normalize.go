package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/product"
)

const (
	baseOrigin         = "https://www.aliexpress.com"
	productURLTemplate = baseOrigin + "/item/%s.html"
	storeURLTemplate   = baseOrigin + "/store/%s"
	defaultCurrency    = "USD"
)

// currencySymbols maps the symbols the site renders into ISO-like codes.
var currencySymbols = map[rune]string{
	'$': "USD",
	'€': "EUR",
	'£': "GBP",
	'¥': "JPY",
	'₹': "INR",
}

var (
	soldCountPattern = regexp.MustCompile(`([\d][\d,.\s]*)`)
	imageExtPattern  = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp|gif)$`)
	numericRunStrip  = strings.NewReplacer(",", "", ".", "", " ", "")
)

// Normalizer reconciles the many observed field spellings and shapes of one
// raw item into a canonical product.Record. Every resolver is tolerant: an
// unusable field is treated as absent, never as a failure of the item or the
// batch.
type Normalizer struct{}

// Normalize produces a Record from one raw item, or reports false when the
// item is not a product (missing identity or title, or explicitly tagged as
// a non-product widget).
func (Normalizer) Normalize(raw map[string]any) (product.Record, bool) {
	if raw == nil {
		return product.Record{}, false
	}
	item := unwrapItem(raw)

	// Search pages interleave ad/widget entries tagged by itemType.
	if kind := asString(item["itemType"]); kind != "" && kind != "productV3" {
		return product.Record{}, false
	}

	id := firstString(item, "productId", "itemId", "id")
	title := resolveTitle(item)
	if id == "" || title == "" {
		return product.Record{}, false
	}

	price, currency := resolvePrice(coalesce(dig(item, "prices", "salePrice"), item["price"]))
	originalPrice, _ := resolvePrice(coalesce(dig(item, "prices", "originalPrice"), item["oriPrice"]))
	if currency == "" {
		currency = firstString(item, "currency", "currencyCode")
	}
	if currency == "" {
		currency = defaultCurrency
	}

	orders := resolveOrders(item)

	rec := product.Record{
		ProductID:     id,
		Title:         title,
		Price:         price,
		OriginalPrice: originalPrice,
		Currency:      currency,
		Rating:        asString(coalesce(dig(item, "evaluation", "starRating"), item["starRating"], item["averageStar"])),
		ReviewsCount:  asInt(coalesce(dig(item, "evaluation", "totalCount"), dig(item, "evaluation", "reviewCount"), item["reviewCount"])),
		Orders:        orders,
		StoreName:     asString(coalesce(dig(item, "store", "storeName"), item["storeName"])),
		StoreURL:      resolveStoreURL(item),
		ImageURL:      NormalizeImageURL(firstString(item, "imageUrl", "img", "image")),
		ProductURL:    resolveProductURL(item, id),
	}
	if img := asString(dig(item, "image", "imgUrl")); img != "" {
		rec.ImageURL = NormalizeImageURL(img)
	}
	return rec, true
}

// unwrapItem peels an outer wrapper off raw items shaped like
// {"item": {...}} when the wrapper itself carries no identity.
func unwrapItem(raw map[string]any) map[string]any {
	inner, ok := raw["item"].(map[string]any)
	if !ok {
		return raw
	}
	if hasAnyKey(raw, identityKeys) {
		return raw
	}
	return inner
}

func resolveTitle(item map[string]any) string {
	if s := asString(dig(item, "title", "displayTitle")); s != "" {
		return s
	}
	if s := asString(dig(item, "title", "seoTitle")); s != "" {
		return s
	}
	if s, ok := item["title"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return asString(item["subject"])
}

// resolvePrice accepts the common price shapes: a plain string, a number, or
// a price object with one of several sub-keys. It returns the free-form
// formatted amount and the currency derived from any symbol in it.
func resolvePrice(v any) (amount, currency string) {
	switch price := v.(type) {
	case nil:
		return "", ""
	case string:
		amount = strings.TrimSpace(price)
	case map[string]any:
		amount = firstString(price, "formattedPrice", "minPrice", "formatted", "value", "amount")
		if currency = firstString(price, "currencyCode", "currency"); currency != "" {
			return amount, currency
		}
	default:
		amount = asString(v)
	}
	return amount, CurrencyFromText(amount)
}

// CurrencyFromText returns the code for the first recognized currency symbol
// in text, or "" when none is present.
func CurrencyFromText(text string) string {
	for _, r := range text {
		if code, ok := currencySymbols[r]; ok {
			return code
		}
	}
	return ""
}

func resolveOrders(item map[string]any) *int {
	if n := ParseSoldCount(asString(dig(item, "trade", "tradeDesc"))); n != nil {
		return n
	}
	if n := asInt(item["soldCount"]); n != nil && *n > 0 {
		return n
	}
	return ParseSoldCount(asString(item["sold"]))
}

// ParseSoldCount extracts the leading numeric run from free-form sold/orders
// text ("10,000+ sold"), stripping thousands separators. It returns nil when
// the text contains no usable number.
func ParseSoldCount(text string) *int {
	if text == "" {
		return nil
	}
	match := soldCountPattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	n, err := strconv.Atoi(numericRunStrip.Replace(match[1]))
	if err != nil || n == 0 {
		return nil
	}
	return &n
}

// NormalizeImageURL canonicalizes a listing thumbnail URL: upgrades
// protocol-relative references to https, strips the query string and the
// size-variant suffix, and ensures a recognized image extension. The
// operation is idempotent.
func NormalizeImageURL(raw string) string {
	if raw == "" {
		return ""
	}
	clean := raw
	if strings.HasPrefix(clean, "//") {
		clean = "https:" + clean
	}
	if i := strings.IndexByte(clean, '?'); i >= 0 {
		clean = clean[:i]
	}
	// Thumbnails are served as <name>.<ext>_<WxH>.<ext>_.webp; everything
	// from the first underscore on is the size variant.
	if i := strings.IndexByte(clean, '_'); i >= 0 {
		clean = clean[:i]
	}
	if !imageExtPattern.MatchString(clean) {
		clean += ".jpg"
	}
	return clean
}

func resolveStoreURL(item map[string]any) string {
	if u := asString(dig(item, "store", "storeUrl")); u != "" {
		return AbsoluteURL(u)
	}
	if u := asString(item["storeUrl"]); u != "" {
		return AbsoluteURL(u)
	}
	if id := asString(dig(item, "store", "storeId")); id != "" {
		return strings.Replace(storeURLTemplate, "%s", id, 1)
	}
	return ""
}

func resolveProductURL(item map[string]any, id string) string {
	if u := firstString(item, "productDetailUrl", "productUrl"); u != "" {
		return AbsoluteURL(u)
	}
	return strings.Replace(productURLTemplate, "%s", id, 1)
}

// AbsoluteURL resolves protocol-relative and site-relative URLs against the
// site's base origin.
func AbsoluteURL(raw string) string {
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/"):
		return baseOrigin + raw
	default:
		return raw
	}
}

// dig walks nested mappings; any missing hop yields nil.
func dig(m map[string]any, keys ...string) any {
	var current any = m
	for _, key := range keys {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = node[key]
	}
	return current
}

func coalesce(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := asString(m[key]); s != "" {
			return s
		}
	}
	return ""
}

// asString coerces scalar JSON values to a trimmed string. Anything else is
// "field unavailable", represented as "".
func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func asInt(v any) *int {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		i := int(n)
		return &i
	case int:
		return &n
	case int64:
		i := int(n)
		return &i
	case json.Number:
		i64, err := n.Int64()
		if err != nil {
			return nil
		}
		i := int(i64)
		return &i
	case string:
		i, err := strconv.Atoi(numericRunStrip.Replace(strings.TrimSpace(n)))
		if err != nil {
			return nil
		}
		return &i
	default:
		return nil
	}
}
