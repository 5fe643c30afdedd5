package oasvalidator

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cubahno/oasvalidator/internal/types"
	"github.com/getkin/kin-openapi/openapi3"
)

const (
	TypeArray   = "array"
	TypeBoolean = "boolean"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeObject  = "object"
	TypeString  = "string"
	TypeNull    = "null"
	TypeFile    = "file"
)

const definitionsPrefix = "#/definitions/"

// schemaConverter turns kin-openapi schemas into JSON-Schema documents for the engine.
// Referenced schemas end up in a shared definitions section, so recursive schemas stay finite.
// A converter is used for one document only.
type schemaConverter struct {
	definitions map[string]any
	keys        map[string]string
}

func newSchemaConverter() *schemaConverter {
	return &schemaConverter{
		definitions: make(map[string]any),
		keys:        make(map[string]string),
	}
}

// document converts schema as an inline root and attaches the definitions gathered so far.
func (c *schemaConverter) document(schema *openapi3.Schema) map[string]any {
	return c.attach(c.convertSchema(schema))
}

// attach adds the collected definitions to root.
// Safe to call again after more conversions, the map is shared.
func (c *schemaConverter) attach(root map[string]any) map[string]any {
	if len(c.definitions) > 0 {
		root["definitions"] = c.definitions
	}
	return root
}

func (c *schemaConverter) convertRef(ref *openapi3.SchemaRef) map[string]any {
	if ref == nil {
		return map[string]any{}
	}
	if ref.Ref == "" {
		return c.convertSchema(ref.Value)
	}

	key := c.definitionKey(ref.Ref)
	if _, known := c.definitions[key]; !known {
		// reserve the key first, the schema may point back to itself
		c.definitions[key] = map[string]any{}
		c.definitions[key] = c.convertSchema(ref.Value)
	}
	return map[string]any{"$ref": definitionsPrefix + key}
}

func (c *schemaConverter) definitionKey(ref string) string {
	if key, ok := c.keys[ref]; ok {
		return key
	}

	base := refName(ref)
	if base == "" {
		base = "schema"
	}
	key := base
	for i := 2; c.isKeyTaken(key); i++ {
		key = base + "_" + strconv.Itoa(i)
	}
	c.keys[ref] = key
	return key
}

func (c *schemaConverter) isKeyTaken(key string) bool {
	for _, existing := range c.keys {
		if existing == key {
			return true
		}
	}
	return false
}

func (c *schemaConverter) convertSchema(s *openapi3.Schema) map[string]any {
	out := make(map[string]any)
	if s == nil {
		return out
	}

	if s.Type != "" {
		if s.Nullable {
			out["type"] = []any{s.Type, TypeNull}
		} else {
			out["type"] = s.Type
		}
	}
	if s.Format != "" {
		out["format"] = s.Format
	}
	if len(s.Enum) > 0 {
		enum := make([]any, 0, len(s.Enum)+1)
		enum = append(enum, s.Enum...)
		if s.Nullable && !containsNil(enum) {
			enum = append(enum, nil)
		}
		out["enum"] = enum
	}

	if s.MultipleOf != nil {
		out["multipleOf"] = *s.MultipleOf
	}
	if s.Min != nil {
		if s.ExclusiveMin {
			out["exclusiveMinimum"] = *s.Min
		} else {
			out["minimum"] = *s.Min
		}
	}
	if s.Max != nil {
		if s.ExclusiveMax {
			out["exclusiveMaximum"] = *s.Max
		} else {
			out["maximum"] = *s.Max
		}
	}

	if s.MinLength > 0 {
		out["minLength"] = s.MinLength
	}
	if s.MaxLength != nil {
		out["maxLength"] = *s.MaxLength
	}
	if s.Pattern != "" {
		out["pattern"] = s.Pattern
	}

	if s.MinItems > 0 {
		out["minItems"] = s.MinItems
	}
	if s.MaxItems != nil {
		out["maxItems"] = *s.MaxItems
	}
	if s.UniqueItems {
		out["uniqueItems"] = true
	}
	if s.Items != nil {
		out["items"] = c.convertRef(s.Items)
	}

	if s.MinProps > 0 {
		out["minProperties"] = s.MinProps
	}
	if s.MaxProps != nil {
		out["maxProperties"] = *s.MaxProps
	}
	if required := requestRequired(s); len(required) > 0 {
		out["required"] = required
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = c.convertRef(prop)
		}
		out["properties"] = props
	}
	if s.AdditionalProperties.Schema != nil {
		out["additionalProperties"] = c.convertRef(s.AdditionalProperties.Schema)
	} else if s.AdditionalProperties.Has != nil {
		out["additionalProperties"] = *s.AdditionalProperties.Has
	}

	if len(s.AllOf) > 0 {
		out["allOf"] = c.convertRefs(s.AllOf)
	}
	// discriminated alternatives are dispatched by the discriminator tree
	if s.Discriminator == nil {
		if len(s.OneOf) > 0 {
			out["oneOf"] = c.convertRefs(s.OneOf)
		}
		if len(s.AnyOf) > 0 {
			out["anyOf"] = c.convertRefs(s.AnyOf)
		}
	}
	if s.Not != nil {
		out["not"] = c.convertRef(s.Not)
	}

	return out
}

func (c *schemaConverter) convertRefs(refs openapi3.SchemaRefs) []any {
	res := make([]any, 0, len(refs))
	for _, ref := range refs {
		res = append(res, c.convertRef(ref))
	}
	return res
}

// requestRequired drops readOnly properties from required: they are only sent in responses.
func requestRequired(s *openapi3.Schema) []any {
	res := make([]any, 0, len(s.Required))
	for _, name := range s.Required {
		if prop, ok := s.Properties[name]; ok && prop != nil && prop.Value != nil && prop.Value.ReadOnly {
			continue
		}
		res = append(res, name)
	}
	return res
}

// binaryProperties lists top-level properties uploaded as files in multipart bodies.
func binaryProperties(s *openapi3.Schema) (required []string, optional []string) {
	if s == nil {
		return nil, nil
	}
	for name, prop := range s.Properties {
		if prop == nil || prop.Value == nil {
			continue
		}
		v := prop.Value
		isFile := v.Type == TypeString && v.Format == "binary"
		if v.Type == TypeArray && v.Items != nil && v.Items.Value != nil {
			isFile = v.Items.Value.Type == TypeString && v.Items.Value.Format == "binary"
		}
		if !isFile {
			continue
		}
		if types.SliceContains(s.Required, name) {
			required = append(required, name)
		} else {
			optional = append(optional, name)
		}
	}
	sort.Strings(required)
	sort.Strings(optional)
	return required, optional
}

// refName returns the last segment of a reference, `Dog` for `#/components/schemas/Dog`.
func refName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	if i := strings.LastIndex(ref, "#"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

func containsNil(values []any) bool {
	for _, v := range values {
		if v == nil {
			return true
		}
	}
	return false
}
