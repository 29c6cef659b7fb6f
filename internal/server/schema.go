package server

import "github.com/santhosh-tekuri/jsonschema/v5"

// parseRequestSchema validates submission bodies before anything touches the
// queue. Kept as a schema (draft 2020-12 subset) so the contract is stated
// in one place and validated the same way everywhere.
const parseRequestSchema = `{
	"type": "object",
	"properties": {
		"s3_bucket":     {"type": "string", "minLength": 1},
		"s3_key":        {"type": "string", "minLength": 1},
		"webhook_url":   {"type": "string", "pattern": "^https?://.+"},
		"output_format": {"type": "string", "enum": ["csv", "xlsx"]}
	},
	"required": ["s3_bucket", "s3_key", "webhook_url"]
}`

func compileParseRequestSchema() *jsonschema.Schema {
	return jsonschema.MustCompileString("parse_request.json", parseRequestSchema)
}
