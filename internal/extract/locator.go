// Package extract turns raw search-result pages into normalized product
// records. The site ships the same logical product list under shifting
// variable names, nesting depths, and field spellings, so everything in this
// package is built around bounded searches and per-field fallback chains
// rather than fixed paths.
package extract

import (
	"sort"
	"strconv"
)

// Candidate is an array of raw items that plausibly represents the product
// list, tagged with the key path taken to reach it.
type Candidate struct {
	Path  []string
	Items []any
}

// Locator performs a bounded depth-first search over a decoded JSON value
// for candidate product arrays.
type Locator struct {
	maxDepth int
}

const defaultMaxDepth = 12

// Keys the product list is usually nested under, tried before the remaining
// keys of a mapping. Layouts vary by page revision, so this is a heuristic
// ordering, not a fixed path.
var priorityKeys = []string{
	"itemList", "content", "items", "mods", "data",
	"fields", "root", "list", "results", "products",
}

var identityKeys = []string{"productId", "itemId", "id"}
var titleKeys = []string{"title", "subject"}
var priceKeys = []string{"prices", "price", "salePrice"}

// NewLocator builds a Locator with the given depth bound. Values <= 0 fall
// back to the default bound.
func NewLocator(maxDepth int) *Locator {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	return &Locator{maxDepth: maxDepth}
}

// Locate returns every candidate array found within the depth bound, each
// with its path. It never fails; malformed or unrecognized input yields an
// empty slice.
func (l *Locator) Locate(root any) []Candidate {
	var found []Candidate
	l.walk(root, nil, 0, &found)
	return found
}

func (l *Locator) walk(value any, path []string, depth int, found *[]Candidate) {
	if depth > l.maxDepth {
		return
	}
	switch v := value.(type) {
	case []any:
		if plausibleItemList(v) {
			*found = append(*found, Candidate{
				Path:  append([]string(nil), path...),
				Items: v,
			})
		}
		for i, elem := range v {
			l.walk(elem, append(path, strconv.Itoa(i)), depth+1, found)
		}
	case map[string]any:
		remaining := make([]string, 0, len(v))
		seen := make(map[string]struct{}, len(priorityKeys))
		for _, key := range priorityKeys {
			if child, ok := v[key]; ok {
				seen[key] = struct{}{}
				l.walk(child, append(path, key), depth+1, found)
			}
		}
		for key := range v {
			if _, done := seen[key]; !done {
				remaining = append(remaining, key)
			}
		}
		sort.Strings(remaining)
		for _, key := range remaining {
			l.walk(v[key], append(path, key), depth+1, found)
		}
	}
}

// plausibleItemList accepts a non-empty array whose first element is a
// mapping carrying an identity-indicator key, or both a title-like and a
// price-like key.
func plausibleItemList(items []any) bool {
	if len(items) == 0 {
		return false
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		return false
	}
	if inner, ok := first["item"].(map[string]any); ok {
		first = inner
	}
	if hasAnyKey(first, identityKeys) {
		return true
	}
	return hasAnyKey(first, titleKeys) && hasAnyKey(first, priceKeys)
}

func hasAnyKey(m map[string]any, keys []string) bool {
	for _, key := range keys {
		if _, ok := m[key]; ok {
			return true
		}
	}
	return false
}
