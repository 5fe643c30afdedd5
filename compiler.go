package oasvalidator

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-openapi/strfmt"
	"github.com/xeipuuv/gojsonschema"
)

// contextDelimiter separates JSON context segments when reading error locations back.
// Property names are unlikely to contain it.
const contextDelimiter = "\x1f"

// rootContext is the head gojsonschema gives the document root.
const rootContext = "(root)"

// OpenAPI formats gojsonschema does not know about, served from the strfmt registry.
var bridgedFormats = []string{
	"byte",
	"password",
	"mac",
	"hexcolor",
	"rgbcolor",
	"isbn",
	"isbn10",
	"isbn13",
	"creditcard",
	"ssn",
	"bsonobjectid",
	"duration",
}

var formatsMu sync.Mutex

// keywordNames maps gojsonschema error types onto JSON-Schema keywords.
var keywordNames = map[string]string{
	"false":                           "false schema",
	"required":                        "required",
	"invalid_type":                    "type",
	"number_any_of":                   "anyOf",
	"number_one_of":                   "oneOf",
	"number_all_of":                   "allOf",
	"number_not":                      "not",
	"missing_dependency":              "dependencies",
	"const":                           "const",
	"enum":                            "enum",
	"array_no_additional_items":       "additionalItems",
	"array_min_items":                 "minItems",
	"array_max_items":                 "maxItems",
	"unique":                          "uniqueItems",
	"contains":                        "contains",
	"array_min_properties":            "minProperties",
	"array_max_properties":            "maxProperties",
	"additional_property_not_allowed": "additionalProperties",
	"invalid_property_pattern":        "patternProperties",
	"invalid_property_name":           "propertyNames",
	"string_gte":                      "minLength",
	"string_lte":                      "maxLength",
	"pattern":                         "pattern",
	"multiple_of":                     "multipleOf",
	"number_gte":                      "minimum",
	"number_gt":                       "exclusiveMinimum",
	"number_lte":                      "maximum",
	"number_lt":                       "exclusiveMaximum",
	"condition_then":                  "if",
	"condition_else":                  "if",
	"format":                          "format",
}

// FormatFunc reports whether a string value satisfies a custom format.
type FormatFunc func(value string) bool

// IsFormat implements gojsonschema.FormatChecker.
// Non-string values are left to the type keyword.
func (f FormatFunc) IsFormat(input any) bool {
	s, ok := input.(string)
	if !ok {
		return true
	}
	return f(s)
}

// Compiler turns JSON-Schema documents into reusable compiled schemas.
type Compiler struct {
	draft gojsonschema.Draft
}

// NewCompiler creates a compiler for the given draft and registers custom formats.
// gojsonschema keeps format checkers globally, so formats are shared by all compilers.
func NewCompiler(draft gojsonschema.Draft, formats map[string]FormatFunc) *Compiler {
	registerFormats(formats)
	return &Compiler{draft: draft}
}

// Compile compiles doc. The document is not retained.
func (c *Compiler) Compile(doc map[string]any) (*CompiledSchema, error) {
	loader := gojsonschema.NewSchemaLoader()
	loader.Draft = c.draft
	loader.AutoDetect = false

	schema, err := loader.Compile(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return &CompiledSchema{schema: schema}, nil
}

// CompiledSchema is a schema ready to validate data.
type CompiledSchema struct {
	schema *gojsonschema.Schema
}

// Validate checks data and translates engine errors into records.
func (s *CompiledSchema) Validate(data any) (bool, ErrorRecords) {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return false, ErrorRecords{{
			Keyword:    "type",
			DataPath:   "",
			SchemaPath: "#/type",
			Params:     map[string]any{},
			Message:    err.Error(),
		}}
	}
	if result.Valid() {
		return true, nil
	}

	records := make(ErrorRecords, 0, len(result.Errors()))
	for _, resErr := range result.Errors() {
		records = append(records, newErrorRecord(resErr))
	}
	return false, records
}

func newErrorRecord(resErr gojsonschema.ResultError) *ErrorRecord {
	keyword, ok := keywordNames[resErr.Type()]
	if !ok {
		keyword = resErr.Type()
	}

	var segments []string
	if ctx := resErr.Context(); ctx != nil {
		segments = strings.Split(ctx.String(contextDelimiter), contextDelimiter)
		if len(segments) > 0 && segments[0] == rootContext {
			segments = segments[1:]
		}
	}

	params := make(map[string]any)
	for key, value := range resErr.Details() {
		if key == "field" || key == "context" {
			continue
		}
		params[key] = value
	}
	switch keyword {
	case "required":
		if prop, ok := params["property"]; ok {
			params["missingProperty"] = prop
			delete(params, "property")
		}
	case "additionalProperties":
		if prop, ok := params["property"]; ok {
			params["additionalProperty"] = prop
			delete(params, "property")
		}
	}

	return &ErrorRecord{
		Keyword:    keyword,
		DataPath:   dataPath(segments),
		SchemaPath: schemaPath(segments, keyword),
		Params:     params,
		Message:    resErr.Description(),
	}
}

// dataPath renders location segments as `.a.b[0]['x-key']`.
func dataPath(segments []string) string {
	var b strings.Builder
	for _, seg := range segments {
		switch {
		case isIndex(seg):
			b.WriteString("[" + seg + "]")
		case isIdentifier(seg):
			b.WriteString("." + seg)
		default:
			b.WriteString("['" + strings.ReplaceAll(seg, "'", `\'`) + "']")
		}
	}
	return b.String()
}

// schemaPath approximates where the failed keyword lives.
// The engine does not expose the schema location.
func schemaPath(segments []string, keyword string) string {
	parts := []string{"#"}
	for _, seg := range segments {
		if isIndex(seg) {
			parts = append(parts, "items")
			continue
		}
		parts = append(parts, "properties", escapePointer(seg))
	}
	parts = append(parts, keyword)
	return strings.Join(parts, "/")
}

func escapePointer(seg string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(seg)
}

func isIndex(seg string) bool {
	if seg == "" {
		return false
	}
	_, err := strconv.Atoi(seg)
	return err == nil
}

func isIdentifier(seg string) bool {
	if seg == "" {
		return false
	}
	for i, r := range seg {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func registerFormats(formats map[string]FormatFunc) {
	formatsMu.Lock()
	defer formatsMu.Unlock()

	for _, name := range bridgedFormats {
		if gojsonschema.FormatCheckers.Has(name) || !strfmt.Default.ContainsName(name) {
			continue
		}
		format := name
		gojsonschema.FormatCheckers.Add(format, FormatFunc(func(value string) bool {
			return strfmt.Default.Validates(format, value)
		}))
	}

	for name, fn := range formats {
		if fn == nil {
			continue
		}
		gojsonschema.FormatCheckers.Add(name, fn)
	}
}
