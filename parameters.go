package oasvalidator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/cubahno/oasvalidator/internal/types"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/xeipuuv/gojsonschema"
)

const (
	ParameterInHeader   = "header"
	ParameterInPath     = "path"
	ParameterInQuery    = "query"
	ParameterInCookie   = "cookie"
	ParameterInFormData = "formData"
	ParameterInBody     = "body"
)

// Sections of the request envelope validated by a ParametersValidator.
const (
	SourceHeaders = "headers"
	SourcePath    = "path"
	SourceQuery   = "query"
	SourceFiles   = "files"
	SourceFields  = "fields"
)

// Parameter is an operation parameter, OpenAPI 3 and Swagger 2 alike.
// Schema is a JSON-Schema document, File marks Swagger 2 `type: file` form fields.
type Parameter struct {
	Name             string
	In               string
	Required         bool
	Schema           map[string]any
	Style            string
	Explode          *bool
	CollectionFormat string
	File             bool
}

// resolveParameterSource returns the envelope section holding p, empty for parameters not validated.
func resolveParameterSource(p *Parameter) string {
	switch p.In {
	case ParameterInHeader:
		return SourceHeaders
	case ParameterInPath:
		return SourcePath
	case ParameterInQuery:
		return SourceQuery
	case ParameterInFormData:
		if p.File {
			return SourceFiles
		}
		return SourceFields
	}
	return ""
}

// parametersFromKin normalizes path level and operation parameters.
// Operation parameters replace path level ones with the same location and name.
func parametersFromKin(pathParams, opParams openapi3.Parameters) []*Parameter {
	var res []*Parameter
	index := make(map[string]int)

	for _, list := range []openapi3.Parameters{pathParams, opParams} {
		for _, ref := range list {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := ref.Value
			param := &Parameter{
				Name:     p.Name,
				In:       p.In,
				Required: p.Required || p.In == ParameterInPath,
				Style:    p.Style,
				Explode:  p.Explode,
			}
			if param.Style == "" {
				param.Style = defaultStyle(p.In)
			}
			if p.Schema != nil && p.Schema.Value != nil {
				param.Schema = newSchemaConverter().document(p.Schema.Value)
			}

			key := parameterKey(param)
			if i, exists := index[key]; exists {
				res[i] = param
				continue
			}
			index[key] = len(res)
			res = append(res, param)
		}
	}
	return res
}

// parametersFromSwagger normalizes Swagger 2 parameters, body parameters excluded.
func parametersFromSwagger(doc *SwaggerDocument, pathParams, opParams []*SwaggerParameter) ([]*Parameter, error) {
	var res []*Parameter
	index := make(map[string]int)

	for _, list := range [][]*SwaggerParameter{pathParams, opParams} {
		for _, raw := range list {
			p, err := doc.resolveParameter(raw)
			if err != nil {
				return nil, err
			}
			if p == nil || p.In == ParameterInBody {
				continue
			}
			param := &Parameter{
				Name:             p.Name,
				In:               p.In,
				Required:         p.Required || p.In == ParameterInPath,
				CollectionFormat: p.CollectionFormat,
				File:             p.In == ParameterInFormData && p.Type == TypeFile,
			}
			if !param.File {
				param.Schema = p.JSONSchema()
				rewriteExclusiveBounds(param.Schema)
			}
			if param.CollectionFormat == "" {
				param.CollectionFormat = "csv"
			}

			key := parameterKey(param)
			if i, exists := index[key]; exists {
				res[i] = param
				continue
			}
			index[key] = len(res)
			res = append(res, param)
		}
	}
	return res, nil
}

func defaultStyle(in string) string {
	switch in {
	case ParameterInQuery, ParameterInCookie:
		return "form"
	}
	return "simple"
}

func parameterKey(p *Parameter) string {
	name := p.Name
	if p.In == ParameterInHeader {
		name = strings.ToLower(name)
	}
	return p.In + ":" + name
}

// ParametersValidator checks the request envelope: headers, path, query and files.
type ParametersValidator struct {
	schema     *CompiledSchema
	parameters map[string]map[string]*Parameter

	contentTypes    []string
	contentPatterns []*regexp.Regexp

	requiredFiles []string
	optionalFiles []string
}

// BuildParametersValidation compiles the envelope schema for params.
// With content type validation on, the request Content-Type must match one of contentTypes.
func BuildParametersValidation(params []*Parameter, contentTypes []string, opts *Options) (*ParametersValidator, error) {
	if opts == nil {
		opts = NewDefaultOptions()
	}

	v := &ParametersValidator{
		parameters: map[string]map[string]*Parameter{
			SourceHeaders: {},
			SourcePath:    {},
			SourceQuery:   {},
		},
	}

	sections := map[string]*envelopeSection{
		SourceHeaders: {properties: map[string]any{}, additional: true},
		SourcePath:    {properties: map[string]any{}},
		SourceQuery:   {properties: map[string]any{}, additional: opts.AllowUnknownQueryParameters},
	}
	definitions := make(map[string]any)

	for _, p := range params {
		if p == nil || p.Name == "" {
			return nil, fmt.Errorf("%w: parameter without name", ErrInvalidParameter)
		}

		source := resolveParameterSource(p)
		switch source {
		case SourceFiles:
			if p.Required {
				v.requiredFiles = append(v.requiredFiles, p.Name)
			} else {
				v.optionalFiles = append(v.optionalFiles, p.Name)
			}
			continue
		case SourceHeaders, SourcePath, SourceQuery:
		default:
			continue
		}

		name := p.Name
		if source == SourceHeaders {
			name = strings.ToLower(name)
		}

		schema := hoistDefinitions(p.Schema, definitions)
		section := sections[source]
		section.properties[name] = schema
		if p.Required {
			section.required = append(section.required, name)
		}
		v.parameters[source][name] = p
	}

	properties := make(map[string]any, len(sections))
	for source, section := range sections {
		properties[source] = section.schema()
	}
	doc := map[string]any{
		"type":       TypeObject,
		"properties": properties,
	}
	if len(definitions) > 0 {
		doc["definitions"] = definitions
	}

	compiled, err := NewCompiler(gojsonschema.Draft7, opts.Formats).Compile(doc)
	if err != nil {
		return nil, err
	}
	v.schema = compiled

	if opts.ContentTypeValidation {
		for _, contentType := range types.SliceUnique(contentTypes) {
			if contentType == "" {
				continue
			}
			v.contentTypes = append(v.contentTypes, contentType)
			v.contentPatterns = append(v.contentPatterns, contentTypePattern(contentType))
		}
	}

	sort.Strings(v.requiredFiles)
	sort.Strings(v.optionalFiles)
	return v, nil
}

type envelopeSection struct {
	properties map[string]any
	required   []string
	additional bool
}

func (s *envelopeSection) schema() map[string]any {
	res := map[string]any{
		"type":                 TypeObject,
		"properties":           s.properties,
		"additionalProperties": s.additional,
	}
	if len(s.required) > 0 {
		required := make([]any, 0, len(s.required))
		for _, name := range types.SliceUnique(s.required) {
			required = append(required, name)
		}
		res["required"] = required
	}
	return res
}

// hoistDefinitions moves a parameter schema's definitions to the envelope root.
func hoistDefinitions(schema map[string]any, definitions map[string]any) map[string]any {
	if schema == nil {
		return map[string]any{}
	}
	defs, ok := schema["definitions"].(map[string]any)
	if !ok {
		return schema
	}

	res := make(map[string]any, len(schema))
	for key, value := range schema {
		if key != "definitions" {
			res[key] = value
		}
	}
	for name, def := range defs {
		if _, exists := definitions[name]; !exists {
			definitions[name] = def
		}
	}
	return res
}

// contentTypePattern matches the media type with optional parameters, `application/json; charset=utf-8`.
func contentTypePattern(contentType string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(strings.TrimSpace(contentType)) + `(\s*;.*)?$`)
}

// Validate implements Validator.
// data is the envelope map. Values are coerced to their declared types first.
func (v *ParametersValidator) Validate(data any) (bool, ErrorRecords) {
	envelope, _ := data.(map[string]any)

	coerced := make(map[string]any, 3)
	for _, source := range []string{SourceHeaders, SourcePath, SourceQuery} {
		section, ok := envelope[source].(map[string]any)
		if !ok {
			continue
		}
		coerced[source] = v.coerceSection(source, section)
	}

	var records ErrorRecords
	if ok, errs := v.schema.Validate(coerced); !ok {
		records = append(records, errs...)
	}

	headers, _ := coerced[SourceHeaders].(map[string]any)
	if rec := v.validateContentType(headers); rec != nil {
		records = append(records, rec)
	}
	records = append(records, v.validateFiles(envelope[SourceFiles])...)

	return len(records) == 0, records
}

func (v *ParametersValidator) coerceSection(source string, section map[string]any) map[string]any {
	res := make(map[string]any, len(section))
	declared := v.parameters[source]
	for name, value := range section {
		key := name
		if source == SourceHeaders {
			key = strings.ToLower(name)
		}
		if p, ok := declared[key]; ok {
			res[key] = coerceParameter(p, value)
		} else {
			res[key] = value
		}
	}
	return res
}

func (v *ParametersValidator) validateContentType(headers map[string]any) *ErrorRecord {
	if len(v.contentPatterns) == 0 || !hasBody(headers) {
		return nil
	}

	contentType, _ := headers["content-type"].(string)
	for _, pattern := range v.contentPatterns {
		if pattern.MatchString(contentType) {
			return nil
		}
	}

	allowed := make([]string, len(v.contentTypes))
	copy(allowed, v.contentTypes)
	return &ErrorRecord{
		Keyword:    "content",
		DataPath:   ".headers['content-type']",
		SchemaPath: "#/properties/headers/content",
		Params:     map[string]any{"types": allowed},
		Message:    fmt.Sprintf("should be one of %s", strings.Join(allowed, ", ")),
	}
}

// hasBody reports whether the headers announce a request body.
func hasBody(headers map[string]any) bool {
	if _, chunked := headers["transfer-encoding"]; chunked {
		return true
	}
	length, ok := headers["content-length"]
	if !ok {
		return false
	}
	s := strings.TrimSpace(fmt.Sprint(length))
	return s != "" && s != "0"
}

func (v *ParametersValidator) validateFiles(raw any) ErrorRecords {
	if len(v.requiredFiles) == 0 && len(v.optionalFiles) == 0 {
		return nil
	}

	var files []string
	switch list := raw.(type) {
	case []string:
		files = list
	case []any:
		for _, item := range list {
			files = append(files, fmt.Sprint(item))
		}
	}

	var records ErrorRecords
	for _, name := range v.requiredFiles {
		if !types.SliceContains(files, name) {
			records = append(records, &ErrorRecord{
				Keyword:    "files",
				DataPath:   ".files",
				SchemaPath: "#/files",
				Params:     map[string]any{"missingFile": name},
				Message:    fmt.Sprintf("should have required file '%s'", name),
			})
		}
	}
	for _, name := range types.SliceUnique(files) {
		if types.SliceContains(v.requiredFiles, name) || types.SliceContains(v.optionalFiles, name) {
			continue
		}
		records = append(records, &ErrorRecord{
			Keyword:    "files",
			DataPath:   ".files",
			SchemaPath: "#/files",
			Params:     map[string]any{"additionalFile": name},
			Message:    fmt.Sprintf("should not have file '%s'", name),
		})
	}
	return records
}

// Files returns the declared required and optional file fields.
func (v *ParametersValidator) Files() (required []string, optional []string) {
	return v.requiredFiles, v.optionalFiles
}
