package conversion

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStructuredDataFlattensNestedObjects(t *testing.T) {
	payload := `[
		{"name": "Ada", "address": {"city": "London", "zip": "N1"}},
		{"name": "Alan", "address": {"city": "Manchester"}}
	]`
	res := StructuredData([]byte(payload))
	require.Equal(t, []string{"name", "address.city", "address.zip"}, res.Header)
	require.Equal(t, [][]string{
		{"Ada", "London", "N1"},
		{"Alan", "Manchester", ""},
	}, res.Rows)
}

func TestStructuredDataUnifiedHeaderAcrossRecords(t *testing.T) {
	payload := `[
		{"a": 1},
		{"b": 2},
		{"a": 3, "c": 4}
	]`
	res := StructuredData([]byte(payload))
	require.Equal(t, []string{"a", "b", "c"}, res.Header)
	for _, row := range res.Rows {
		require.Len(t, row, len(res.Header))
	}
	require.Equal(t, [][]string{
		{"1", "", ""},
		{"", "2", ""},
		{"3", "", "4"},
	}, res.Rows)
}

func TestStructuredDataIndexesArrays(t *testing.T) {
	payload := `{"items": [{"sku": "x"}, {"sku": "y"}], "total": "9.99"}`
	res := StructuredData([]byte(payload))
	require.Equal(t, []string{"items.0.sku", "items.1.sku", "total"}, res.Header)
	require.Equal(t, [][]string{{"x", "y", "9.99"}}, res.Rows)
}

func TestStructuredDataScalarRendering(t *testing.T) {
	payload := `[{"n": 1.50, "b": true, "z": null, "s": "txt"}]`
	res := StructuredData([]byte(payload))
	require.Equal(t, []string{"n", "b", "z", "s"}, res.Header)
	require.Equal(t, [][]string{{"1.50", "true", "", "txt"}}, res.Rows)
}

func TestStructuredDataMalformedFallsBack(t *testing.T) {
	payload := "this is not json"
	res := StructuredData([]byte(payload))
	require.Equal(t, []string{FallbackHeader}, res.Header)
	require.Equal(t, [][]string{{"this is not json"}}, res.Rows)
}

func TestStructuredDataEmptyObjectFallsBack(t *testing.T) {
	res := StructuredData([]byte(`{}`))
	require.Equal(t, []string{FallbackHeader}, res.Header)
}

func TestStructuredDataIdempotent(t *testing.T) {
	payload := `[{"b": 1, "a": 2}, {"c": 3}]`
	first := StructuredData([]byte(payload))
	second := StructuredData([]byte(payload))
	require.Equal(t, first, second)
	// Column order follows the document, not Go map iteration.
	require.Equal(t, []string{"b", "a", "c"}, first.Header)
}
