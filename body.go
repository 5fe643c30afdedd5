package oasvalidator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cubahno/oasvalidator/internal/types"
	"github.com/xeipuuv/gojsonschema"
)

const (
	MediaTypeJSON      = "application/json"
	MediaTypeMultipart = "multipart/form-data"
	MediaTypeForm      = "application/x-www-form-urlencoded"
)

type bodyContent struct {
	validator Validator
	// fields are form fields coerced from strings before validation
	fields map[string]*Parameter
}

// BodyValidator validates request bodies of one operation, per media type.
type BodyValidator struct {
	contents   map[string]*bodyContent
	mediaTypes []string
	required   bool

	requiredFiles []string
	optionalFiles []string
}

// MediaTypes returns the media types the operation accepts.
func (v *BodyValidator) MediaTypes() []string {
	return v.mediaTypes
}

// Files returns the file fields multipart bodies carry.
func (v *BodyValidator) Files() (required []string, optional []string) {
	return v.requiredFiles, v.optionalFiles
}

// Validate implements Validator using the preferred media type.
func (v *BodyValidator) Validate(data any) (bool, ErrorRecords) {
	return v.ValidateContent("", data)
}

// ValidateContent validates data with the schema of the media type matching contentType.
// Bodies of media types the operation does not declare are not checked here.
func (v *BodyValidator) ValidateContent(contentType string, data any) (bool, ErrorRecords) {
	if data == nil && !v.required {
		return true, nil
	}

	content := v.content(contentType)
	if content == nil {
		return true, nil
	}

	if obj, ok := data.(map[string]any); ok && len(content.fields) > 0 {
		coerced := make(map[string]any, len(obj))
		for name, value := range obj {
			if p, declared := content.fields[name]; declared {
				coerced[name] = coerceParameter(p, value)
			} else {
				coerced[name] = value
			}
		}
		data = coerced
	}
	return content.validator.Validate(data)
}

func (v *BodyValidator) content(contentType string) *bodyContent {
	base := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if base != "" {
		if c, ok := v.contents[base]; ok {
			return c
		}
		for _, mediaType := range v.mediaTypes {
			if mediaTypeMatches(mediaType, base) {
				return v.contents[mediaType]
			}
		}
	}

	if len(v.mediaTypes) == 1 {
		return v.contents[v.mediaTypes[0]]
	}
	if base == "" || isJSONMediaType(base) {
		return v.contents[MediaTypeJSON]
	}
	return nil
}

// mediaTypeMatches supports `*/*` and `application/*` ranges.
func mediaTypeMatches(pattern, mediaType string) bool {
	if pattern == "*/*" {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		return strings.HasPrefix(mediaType, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == mediaType
}

func isJSONMediaType(mediaType string) bool {
	return mediaType == MediaTypeJSON || strings.HasSuffix(mediaType, "+json")
}

func isFormMediaType(mediaType string) bool {
	return mediaType == MediaTypeMultipart || mediaType == MediaTypeForm
}

func (v *BodyValidator) add(mediaType string, content *bodyContent) {
	mediaType = strings.ToLower(mediaType)
	v.contents[mediaType] = content
	v.mediaTypes = append(v.mediaTypes, mediaType)
}

// BuildBodyValidation compiles the request body contract of the operation at path and method.
// It returns nil when the operation takes no body.
func BuildBodyValidation(doc *Document, path, method string, opts *Options) (*BodyValidator, error) {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	method = strings.ToUpper(method)

	if doc.IsSwagger2() {
		return buildSwaggerBody(doc.Swagger, path, method, opts)
	}
	return buildOpenAPIBody(doc, path, method, opts)
}

func buildOpenAPIBody(doc *Document, path, method string, opts *Options) (*BodyValidator, error) {
	pathItem, ok := doc.OpenAPI.Paths[path]
	if !ok || pathItem == nil {
		return nil, nil
	}
	op := pathItem.GetOperation(method)
	if op == nil || op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil, nil
	}
	requestBody := op.RequestBody.Value

	compiler := NewCompiler(gojsonschema.Draft7, opts.Formats)
	v := &BodyValidator{
		contents: make(map[string]*bodyContent),
		required: requestBody.Required,
	}

	mediaTypes := make([]string, 0, len(requestBody.Content))
	for mediaType := range requestBody.Content {
		mediaTypes = append(mediaTypes, mediaType)
	}
	sort.Strings(mediaTypes)

	for _, mediaType := range mediaTypes {
		media := requestBody.Content[mediaType]
		if media == nil || media.Schema == nil || media.Schema.Value == nil {
			continue
		}

		if !isFormMediaType(strings.ToLower(mediaType)) {
			validator, err := buildDiscriminatorValidation(compiler, media.Schema, opts)
			if err != nil {
				return nil, fmt.Errorf("%s %s %s: %w", method, path, mediaType, err)
			}
			v.add(mediaType, &bodyContent{validator: validator})
			continue
		}

		schemaDoc := newSchemaConverter().document(media.Schema.Value)
		var files []string
		if strings.EqualFold(mediaType, MediaTypeMultipart) {
			required, optional := binaryProperties(media.Schema.Value)
			v.requiredFiles = types.SliceUnion(v.requiredFiles, required...)
			v.optionalFiles = types.SliceUnion(v.optionalFiles, optional...)
			files = append(required, optional...)
			removeProperties(schemaDoc, files)
		}

		compiled, err := compileConverted(compiler, schemaDoc, opts)
		if err != nil {
			return nil, fmt.Errorf("%s %s %s: %w", method, path, mediaType, err)
		}
		v.add(mediaType, &bodyContent{
			validator: NewSimpleValidator(compiled),
			fields:    formFields(schemaDoc),
		})
	}

	if len(v.mediaTypes) == 0 {
		return nil, nil
	}
	sort.Strings(v.requiredFiles)
	sort.Strings(v.optionalFiles)
	return v, nil
}

func buildSwaggerBody(doc *SwaggerDocument, path, method string, opts *Options) (*BodyValidator, error) {
	pathItem, ok := doc.Paths[path]
	if !ok || pathItem == nil {
		return nil, nil
	}
	op, ok := pathItem.Operations()[method]
	if !ok {
		return nil, nil
	}

	var (
		body   *SwaggerParameter
		fields []*SwaggerParameter
	)
	for _, list := range [][]*SwaggerParameter{pathItem.Parameters, op.Parameters} {
		for _, raw := range list {
			p, err := doc.resolveParameter(raw)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", method, path, err)
			}
			switch {
			case p == nil:
			case p.In == ParameterInBody:
				body = p
			case p.In == ParameterInFormData && p.Type != TypeFile:
				fields = append(fields, p)
			}
		}
	}

	mediaTypes := op.Consumes
	if len(mediaTypes) == 0 {
		mediaTypes = doc.Consumes
	}
	if len(mediaTypes) == 0 {
		mediaTypes = []string{MediaTypeJSON}
	}

	compiler := NewCompiler(gojsonschema.Draft4, opts.Formats)
	content := &bodyContent{}
	required := false

	switch {
	case body != nil:
		schema := body.Schema
		if schema == nil {
			schema = map[string]any{}
		}
		validator, err := buildInheritanceValidation(compiler, doc, schema, opts)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		content.validator = validator
		required = body.Required

	case len(fields) > 0 && opts.ExpectFormFieldsInBody:
		schema, params := formDataSchema(fields)
		validator, err := compileSwaggerSchema(compiler, doc, schema, opts)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		content.validator = validator
		content.fields = params
		required = len(schema["required"].([]any)) > 0

	default:
		return nil, nil
	}

	v := &BodyValidator{
		contents: make(map[string]*bodyContent),
		required: required,
	}
	for _, mediaType := range types.SliceUnique(mediaTypes) {
		v.add(mediaType, content)
	}
	return v, nil
}

// formDataSchema synthesizes an object schema from scalar Swagger 2 form fields.
func formDataSchema(fields []*SwaggerParameter) (map[string]any, map[string]*Parameter) {
	properties := make(map[string]any, len(fields))
	required := make([]any, 0)
	params := make(map[string]*Parameter, len(fields))

	for _, f := range fields {
		schema := f.JSONSchema()
		properties[f.Name] = schema
		if f.Required && !containsValue(required, f.Name) {
			required = append(required, f.Name)
		}
		collectionFormat := f.CollectionFormat
		if collectionFormat == "" {
			collectionFormat = "csv"
		}
		params[f.Name] = &Parameter{
			Name:             f.Name,
			In:               ParameterInFormData,
			Required:         f.Required,
			Schema:           schema,
			CollectionFormat: collectionFormat,
		}
	}

	return map[string]any{
		"type":       TypeObject,
		"properties": properties,
		"required":   required,
	}, params
}

// formFields describes top-level properties of a converted form body for coercion.
func formFields(schemaDoc map[string]any) map[string]*Parameter {
	props, _ := schemaDoc["properties"].(map[string]any)
	if len(props) == 0 {
		return nil
	}
	res := make(map[string]*Parameter, len(props))
	for name, raw := range props {
		schema, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		res[name] = &Parameter{
			Name:   name,
			In:     ParameterInFormData,
			Schema: schema,
			Style:  "form",
		}
	}
	return res
}

// removeProperties drops names from the converted schema's properties and required list.
func removeProperties(schemaDoc map[string]any, names []string) {
	if len(names) == 0 {
		return
	}
	if props, ok := schemaDoc["properties"].(map[string]any); ok {
		for _, name := range names {
			delete(props, name)
		}
	}
	if required, ok := schemaDoc["required"].([]any); ok {
		kept := make([]any, 0, len(required))
		for _, name := range required {
			if s, isString := name.(string); isString && types.SliceContains(names, s) {
				continue
			}
			kept = append(kept, name)
		}
		if len(kept) == 0 {
			delete(schemaDoc, "required")
		} else {
			schemaDoc["required"] = kept
		}
	}
}

func containsValue(values []any, value any) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
