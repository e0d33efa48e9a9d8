package sink

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/product"
)

func sampleRecords() []product.Record {
	orders := 412
	return []product.Record{
		{
			ProductID:  "1005001",
			Title:      "USB C Hub 7 in 1",
			Price:      "12.99",
			Currency:   "USD",
			Orders:     &orders,
			ProductURL: "https://www.aliexpress.com/item/1005001.html",
		},
		{
			ProductID:  "1005002",
			Title:      "USB C Hub 4 in 1",
			Price:      "7.50",
			Currency:   "USD",
			ProductURL: "https://www.aliexpress.com/item/1005002.html",
		},
	}
}

func TestJSONLWritesOneObjectPerLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewJSONLWriter(&buf)

	require.NoError(t, s.Push(context.Background(), sampleRecords()))
	require.NoError(t, s.Close(context.Background()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"product_id":"1005001"`)
	require.Contains(t, lines[0], `"orders":412`)
	require.Contains(t, lines[1], `"product_id":"1005002"`)
}

func TestJSONLFileAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "products.jsonl")

	s, err := NewJSONLFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Push(context.Background(), sampleRecords()[:1]))
	require.NoError(t, s.Close(context.Background()))

	s, err = NewJSONLFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Push(context.Background(), sampleRecords()[1:]))
	require.NoError(t, s.Close(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
}

func TestMultiFansOutAndJoinsErrors(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	multi := NewMulti(NewJSONLWriter(&a), NewJSONLWriter(&b))

	require.NoError(t, multi.Push(context.Background(), sampleRecords()))
	require.Equal(t, a.String(), b.String())
	require.NotEmpty(t, a.String())
	require.NoError(t, multi.Close(context.Background()))
}
