package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func productItem(id string) map[string]any {
	return map[string]any{"productId": id, "title": "Towel"}
}

func TestLocateFindsNestedItemList(t *testing.T) {
	t.Parallel()

	root := map[string]any{
		"data": map[string]any{
			"root": map[string]any{
				"fields": map[string]any{
					"mods": map[string]any{
						"itemList": map[string]any{
							"content": []any{productItem("1"), productItem("2")},
						},
					},
				},
			},
		},
	}

	found := NewLocator(12).Locate(root)
	require.Len(t, found, 1)
	require.Equal(t, []string{"data", "root", "fields", "mods", "itemList", "content"}, found[0].Path)
	require.Len(t, found[0].Items, 2)
}

func TestLocateReturnsAllMatches(t *testing.T) {
	t.Parallel()

	root := map[string]any{
		"recommendations": []any{productItem("9")},
		"itemList": map[string]any{
			"content": []any{productItem("1"), productItem("2"), productItem("3")},
		},
	}

	found := NewLocator(12).Locate(root)
	require.Len(t, found, 2)
	// Priority keys are descended first, so the itemList match comes first.
	require.Equal(t, []string{"itemList", "content"}, found[0].Path)
	require.Equal(t, []string{"recommendations"}, found[1].Path)
}

func TestLocateAcceptsTitleAndPriceWithoutID(t *testing.T) {
	t.Parallel()

	root := map[string]any{
		"list": []any{
			map[string]any{"title": "Towel", "price": "$1.99"},
		},
	}
	require.Len(t, NewLocator(12).Locate(root), 1)
}

func TestLocateRejectsImplausibleArrays(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		root any
	}{
		{"empty array", map[string]any{"content": []any{}}},
		{"scalar elements", map[string]any{"content": []any{"a", "b"}}},
		{"no indicator keys", map[string]any{"content": []any{map[string]any{"color": "blue"}}}},
		{"scalar root", "just a string"},
		{"nil root", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Empty(t, NewLocator(12).Locate(tt.root))
		})
	}
}

func TestLocateTerminatesWithinDepthBound(t *testing.T) {
	t.Parallel()

	// Bury the list 60 levels down, well past the bound: the search must
	// terminate and come back empty instead of erroring.
	leaf := any(map[string]any{"content": []any{productItem("1")}})
	for range 60 {
		leaf = map[string]any{"wrapper": leaf}
	}

	require.Empty(t, NewLocator(12).Locate(leaf))
}

func TestLocateDescendsIntoArrayElements(t *testing.T) {
	t.Parallel()

	root := map[string]any{
		"sections": []any{
			map[string]any{"kind": "banner"},
			map[string]any{
				"items": []any{productItem("7")},
			},
		},
	}

	found := NewLocator(12).Locate(root)
	require.Len(t, found, 1)
	require.Equal(t, []string{"sections", "1", "items"}, found[0].Path)
}
