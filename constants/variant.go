package constants

// Variant selects the conversion mode for a job: which endpoint the document
// is submitted to and which structural converter runs over the result. The
// set is closed; the boundary rejects anything else.
type Variant string

const (
	// VariantTable converts markdown pipe tables into rows.
	VariantTable Variant = "table"
	// VariantStructured flattens a nested JSON document into rows.
	VariantStructured Variant = "structured"
)

// ValidVariant reports whether v is a member of the closed variant set.
func ValidVariant(v Variant) bool {
	return v == VariantTable || v == VariantStructured
}

// OutputFormat is the serialization applied to the tabular result.
type OutputFormat string

const (
	OutputCSV  OutputFormat = "csv"
	OutputXLSX OutputFormat = "xlsx"
)

// ValidOutputFormat reports whether f is a supported output format.
// The empty string is valid and means OutputCSV.
func ValidOutputFormat(f OutputFormat) bool {
	return f == "" || f == OutputCSV || f == OutputXLSX
}

// Ext returns the file extension for the format, without the dot.
func (f OutputFormat) Ext() string {
	if f == OutputXLSX {
		return "xlsx"
	}
	return "csv"
}
