package oasvalidator

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/invopop/yaml"
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/copystructure"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const swaggerParametersPrefix = "#/parameters/"

// SwaggerDocument is the part of a Swagger 2.0 document request validation needs.
// Schemas stay raw: Swagger 2 schemas are Draft 4 JSON-Schema already.
type SwaggerDocument struct {
	Swagger     string                       `json:"swagger"`
	BasePath    string                       `json:"basePath,omitempty"`
	Consumes    []string                     `json:"consumes,omitempty"`
	Paths       map[string]*SwaggerPathItem  `json:"paths"`
	Definitions map[string]any               `json:"definitions,omitempty"`
	Parameters  map[string]*SwaggerParameter `json:"parameters,omitempty"`
}

type SwaggerPathItem struct {
	Parameters []*SwaggerParameter `json:"parameters,omitempty"`
	Get        *SwaggerOperation   `json:"get,omitempty"`
	Put        *SwaggerOperation   `json:"put,omitempty"`
	Post       *SwaggerOperation   `json:"post,omitempty"`
	Delete     *SwaggerOperation   `json:"delete,omitempty"`
	Options    *SwaggerOperation   `json:"options,omitempty"`
	Head       *SwaggerOperation   `json:"head,omitempty"`
	Patch      *SwaggerOperation   `json:"patch,omitempty"`
}

// Operations returns the declared operations keyed by upper-case method.
func (p *SwaggerPathItem) Operations() map[string]*SwaggerOperation {
	res := make(map[string]*SwaggerOperation)
	for method, op := range map[string]*SwaggerOperation{
		http.MethodGet:     p.Get,
		http.MethodPut:     p.Put,
		http.MethodPost:    p.Post,
		http.MethodDelete:  p.Delete,
		http.MethodOptions: p.Options,
		http.MethodHead:    p.Head,
		http.MethodPatch:   p.Patch,
	} {
		if op != nil {
			res[method] = op
		}
	}
	return res
}

type SwaggerOperation struct {
	OperationID string              `json:"operationId,omitempty"`
	Consumes    []string            `json:"consumes,omitempty"`
	Parameters  []*SwaggerParameter `json:"parameters,omitempty"`
}

// SwaggerParameter keeps the named fields plus the raw object for schema keywords.
type SwaggerParameter struct {
	Ref              string         `json:"$ref,omitempty"`
	Name             string         `json:"name,omitempty"`
	In               string         `json:"in,omitempty"`
	Required         bool           `json:"required,omitempty"`
	Type             string         `json:"type,omitempty"`
	CollectionFormat string         `json:"collectionFormat,omitempty"`
	Schema           map[string]any `json:"schema,omitempty"`

	Raw map[string]any `json:"-"`
}

func (p *SwaggerParameter) UnmarshalJSON(data []byte) error {
	type plain SwaggerParameter
	var res plain
	if err := json.Unmarshal(data, &res); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &res.Raw); err != nil {
		return err
	}
	*p = SwaggerParameter(res)
	return nil
}

// parameterKeys are not JSON-Schema keywords.
var parameterKeys = []string{
	"$ref", "name", "in", "required", "description", "collectionFormat", "allowEmptyValue", "schema",
}

// JSONSchema returns the parameter's schema keywords as a Draft 4 JSON-Schema.
func (p *SwaggerParameter) JSONSchema() map[string]any {
	res := make(map[string]any, len(p.Raw))
	for key, value := range p.Raw {
		skip := false
		for _, k := range parameterKeys {
			if k == key {
				skip = true
				break
			}
		}
		if skip || strings.HasPrefix(key, "x-") {
			continue
		}
		res[key] = deepCopy(value)
	}
	return res
}

// rewriteExclusiveBounds turns `minimum: 1, exclusiveMinimum: true` into `exclusiveMinimum: 1`.
func rewriteExclusiveBounds(schema map[string]any) {
	for bound, exclusive := range map[string]string{"minimum": "exclusiveMinimum", "maximum": "exclusiveMaximum"} {
		flag, isBool := schema[exclusive].(bool)
		if !isBool {
			continue
		}
		delete(schema, exclusive)
		if value, ok := schema[bound]; ok && flag {
			schema[exclusive] = value
			delete(schema, bound)
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		rewriteExclusiveBounds(items)
	}
}

func newSwaggerDocument(data []byte) (*SwaggerDocument, error) {
	doc := &SwaggerDocument{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// resolveParameter follows a `#/parameters/` reference.
func (d *SwaggerDocument) resolveParameter(param *SwaggerParameter) (*SwaggerParameter, error) {
	if param == nil || param.Ref == "" {
		return param, nil
	}
	if !strings.HasPrefix(param.Ref, swaggerParametersPrefix) {
		return nil, fmt.Errorf("%w: unsupported reference %s", ErrInvalidParameter, param.Ref)
	}
	target, ok := d.Parameters[strings.TrimPrefix(param.Ref, swaggerParametersPrefix)]
	if !ok || target == nil {
		return nil, fmt.Errorf("%w: unresolved reference %s", ErrInvalidParameter, param.Ref)
	}
	return target, nil
}

// definition returns the named definition as an object.
func (d *SwaggerDocument) definition(name string) (map[string]any, bool) {
	raw, ok := d.Definitions[name]
	if !ok {
		return nil, false
	}
	res, ok := raw.(map[string]any)
	return res, ok
}

// schemaDocument embeds a copy of all definitions next to schema so local references resolve.
func (d *SwaggerDocument) schemaDocument(schema map[string]any) map[string]any {
	res, _ := deepCopy(schema).(map[string]any)
	if res == nil {
		res = make(map[string]any)
	}
	if len(d.Definitions) > 0 {
		res["definitions"] = deepCopy(d.Definitions)
	}
	return res
}

// deepCopy copies decoded JSON values, the input is never shared with compiled documents.
func deepCopy(value any) any {
	res, err := copystructure.Copy(value)
	if err != nil {
		return value
	}
	return res
}
