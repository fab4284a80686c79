// Package schemas embeds the JSON schemas of the input files.
package schemas

import _ "embed"

//go:embed problem.schema.json
var ProblemSchemaJSON string

//go:embed rules.schema.json
var RulesSchemaJSON string
