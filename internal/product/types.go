// Package product defines the core types shared across the scraper subsystems.
package product

import "fmt"

// SortOrder selects the search result ordering requested from the site.
type SortOrder string

// Supported sort orders. The zero value falls back to SortDefault.
const (
	SortDefault   SortOrder = "default"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortOrders    SortOrder = "orders"
)

// Valid reports whether the sort order is one of the supported values.
func (s SortOrder) Valid() bool {
	switch s {
	case SortDefault, SortPriceAsc, SortPriceDesc, SortOrders, "":
		return true
	default:
		return false
	}
}

// SearchParams captures one crawl run's search configuration.
type SearchParams struct {
	Keyword       string    `json:"keyword"`
	StartURL      string    `json:"start_url,omitempty"`
	Category      string    `json:"category,omitempty"`
	MinPrice      string    `json:"min_price,omitempty"`
	MaxPrice      string    `json:"max_price,omitempty"`
	SortBy        SortOrder `json:"sort_by"`
	ResultsWanted int       `json:"results_wanted"`
}

// Validate enforces the invariants a run cannot start without.
func (p SearchParams) Validate() error {
	if p.Keyword == "" && p.StartURL == "" {
		return fmt.Errorf("either keyword or start_url is required")
	}
	if p.ResultsWanted <= 0 {
		return fmt.Errorf("results_wanted must be > 0")
	}
	if !p.SortBy.Valid() {
		return fmt.Errorf("unknown sort order %q", p.SortBy)
	}
	return nil
}

// Record is the canonical normalized product emitted by the pipeline.
// ProductID and Title are required; a record missing either is never emitted.
type Record struct {
	ProductID     string `json:"product_id"`
	Title         string `json:"title"`
	Price         string `json:"price,omitempty"`
	OriginalPrice string `json:"original_price,omitempty"`
	Currency      string `json:"currency"`
	Rating        string `json:"rating,omitempty"`
	ReviewsCount  *int   `json:"reviews_count,omitempty"`
	Orders        *int   `json:"orders,omitempty"`
	StoreName     string `json:"store_name,omitempty"`
	StoreURL      string `json:"store_url,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
	ProductURL    string `json:"product_url"`
}

// Complete reports whether the record satisfies the required-field invariant.
func (r Record) Complete() bool {
	return r.ProductID != "" && r.Title != ""
}

// PageRequest is one pending fetch in the frontier. It is consumed once by
// the fetch engine and may be re-issued with an incremented RetryCount.
type PageRequest struct {
	URL           string `json:"url"`
	PageNumber    int    `json:"page_number"`
	RetryCount    int    `json:"retry_count"`
	FreshIdentity bool   `json:"fresh_identity"`
}
