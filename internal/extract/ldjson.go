package extract

import "github.com/JakeFAU/aliexpress-search-crawler/internal/product"

// linkedDataMapper maps schema.org linked-data values to product records.
// The shape is standardized, so unlike the embedded-data path no locator
// search is needed; only Product nodes (alone, in arrays, or inside an
// ItemList) are accepted.
type linkedDataMapper struct{}

func (m linkedDataMapper) products(root any) []product.Record {
	var recs []product.Record
	switch node := root.(type) {
	case []any:
		for _, elem := range node {
			recs = append(recs, m.products(elem)...)
		}
	case map[string]any:
		switch asString(node["@type"]) {
		case "Product":
			if rec, ok := m.mapProduct(node); ok {
				recs = append(recs, rec)
			}
		case "ItemList":
			if elems, ok := node["itemListElement"].([]any); ok {
				for _, elem := range elems {
					recs = append(recs, m.products(elem)...)
				}
			}
		case "ListItem":
			recs = append(recs, m.products(node["item"])...)
		}
	}
	return recs
}

func (m linkedDataMapper) mapProduct(node map[string]any) (product.Record, bool) {
	rawURL := asString(node["url"])
	id := firstString(node, "productID", "sku", "@id")
	if id == "" {
		if match := productIDFromHref.FindStringSubmatch(rawURL); match != nil {
			id = match[1]
		}
	}
	title := firstString(node, "name")
	if id == "" || title == "" {
		return product.Record{}, false
	}

	offers, _ := node["offers"].(map[string]any)
	price := firstString(offers, "price", "lowPrice")
	currency := firstString(offers, "priceCurrency")
	if currency == "" {
		currency = CurrencyFromText(price)
	}
	if currency == "" {
		currency = defaultCurrency
	}

	rating, _ := node["aggregateRating"].(map[string]any)

	rec := product.Record{
		ProductID:    id,
		Title:        title,
		Price:        price,
		Currency:     currency,
		Rating:       firstString(rating, "ratingValue"),
		ReviewsCount: asInt(coalesce(rating["reviewCount"], rating["ratingCount"])),
		ImageURL:     NormalizeImageURL(m.image(node["image"])),
		ProductURL:   AbsoluteURL(rawURL),
	}
	if rec.ProductURL == "" {
		rec.ProductURL = resolveProductURL(node, id)
	}
	return rec, true
}

func (m linkedDataMapper) image(v any) string {
	switch img := v.(type) {
	case string:
		return img
	case []any:
		if len(img) > 0 {
			return asString(img[0])
		}
	case map[string]any:
		return firstString(img, "url", "contentUrl")
	}
	return ""
}
