package validation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ai-research-disi/Logic-HADA/schemas"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// problemSchema is the compiled JSON Schema for problem YAML files.
var problemSchema *jsonschema.Schema

// rulesSchema is the compiled JSON Schema for rule catalog files.
var rulesSchema *jsonschema.Schema

func init() {
	problemSchema = mustCompileSchema(schemas.ProblemSchemaJSON, "problem.schema.json")
	rulesSchema = mustCompileSchema(schemas.RulesSchemaJSON, "rules.schema.json")
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ValidateProblemFile validates a problem file and the rule catalog it
// references. Catalog errors are keyed by the catalog path as written in the
// problem file.
func ValidateProblemFile(path string) (problemErrs []string, rulesErrs map[string][]string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading problem file: %w", err)
	}

	problemErrs = ValidateProblemBytes(data)

	var spec struct {
		Rules string `yaml:"rules"`
	}
	if yamlErr := yaml.Unmarshal(data, &spec); yamlErr != nil || spec.Rules == "" {
		return problemErrs, nil, nil
	}

	rulesPath := spec.Rules
	if !filepath.IsAbs(rulesPath) {
		rulesPath = filepath.Join(filepath.Dir(path), rulesPath)
	}
	rulesData, readErr := os.ReadFile(rulesPath)
	if readErr != nil {
		return problemErrs, map[string][]string{spec.Rules: {readErr.Error()}}, nil
	}
	if errs := ValidateRulesBytes(rulesData); len(errs) > 0 {
		rulesErrs = map[string][]string{spec.Rules: errs}
	}
	return problemErrs, rulesErrs, nil
}

// ValidateProblemBytes validates raw YAML bytes against the problem schema.
func ValidateProblemBytes(data []byte) []string {
	return validateYAMLBytes(problemSchema, data)
}

// ValidateRulesBytes validates raw YAML bytes against the rule catalog schema.
func ValidateRulesBytes(data []byte) []string {
	return validateYAMLBytes(rulesSchema, data)
}

// Error joins schema messages into one error, or returns nil when there are
// none.
func Error(file string, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s does not match its schema:\n  %s", file, strings.Join(errs, "\n  "))
}

func validateYAMLBytes(schema *jsonschema.Schema, data []byte) []string {
	var yamlDoc any
	if err := yaml.Unmarshal(data, &yamlDoc); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}
	return validateAgainstSchema(schema, convertToJSONCompatible(yamlDoc))
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}

// convertToJSONCompatible rewrites YAML-decoded values into JSON-compatible
// types. Mappings with non-string keys get their keys formatted.
func convertToJSONCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[k] = convertToJSONCompatible(v2)
		}
		return result
	case map[any]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[fmt.Sprint(k)] = convertToJSONCompatible(v2)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v2 := range val {
			result[i] = convertToJSONCompatible(v2)
		}
		return result
	default:
		return val
	}
}
