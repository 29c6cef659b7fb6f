package conversion

import "github.com/joseph-ayodele/docparse/constants"

// ForVariant resolves the converter for a variant. The variant set is closed;
// anything unrecognized falls back to the table converter, which itself never
// fails.
func ForVariant(v constants.Variant) func([]byte) Result {
	if v == constants.VariantStructured {
		return StructuredData
	}
	return MarkdownTables
}
