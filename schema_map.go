package oasvalidator

import (
	"fmt"
	"sort"
	"strings"
)

// Route holds the compiled validators of one operation.
type Route struct {
	Path       string
	Method     string
	Parameters *ParametersValidator
	Body       *BodyValidator
}

// SchemaMap indexes routes by full path template, then upper-case method.
type SchemaMap map[string]map[string]*Route

// Get returns the route for path and method.
func (m SchemaMap) Get(path, method string) (*Route, bool) {
	methods, ok := m[path]
	if !ok {
		return nil, false
	}
	route, ok := methods[strings.ToUpper(method)]
	return route, ok
}

// BuildSchemaMap compiles every operation of doc.
// Any error aborts the build, a partial map is never returned.
func BuildSchemaMap(doc *Document, opts *Options) (SchemaMap, error) {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	logger := opts.logger()

	operations, err := documentOperations(doc)
	if err != nil {
		return nil, err
	}

	res := make(SchemaMap)
	basePaths := doc.BasePaths()
	for _, op := range operations {
		route, err := buildRoute(doc, op, opts)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", op.method, op.path, err)
		}

		for _, base := range basePaths {
			fullPath := base + op.path
			if _, ok := res[fullPath]; !ok {
				res[fullPath] = make(map[string]*Route)
			}
			entry := *route
			entry.Path = fullPath
			res[fullPath][op.method] = &entry
			logger.Debug("route compiled", "method", op.method, "path", fullPath, "body", route.Body != nil)
		}
	}

	logger.Info("schema map built", "version", doc.Version, "operations", len(operations), "paths", len(res))
	return res, nil
}

type operationRef struct {
	path   string
	method string
	params []*Parameter
}

// documentOperations lists operations sorted by path and method with normalized parameters.
func documentOperations(doc *Document) ([]*operationRef, error) {
	var res []*operationRef

	if doc.IsSwagger2() {
		for path, item := range doc.Swagger.Paths {
			if item == nil {
				continue
			}
			for method, op := range item.Operations() {
				params, err := parametersFromSwagger(doc.Swagger, item.Parameters, op.Parameters)
				if err != nil {
					return nil, fmt.Errorf("%s %s: %w", method, path, err)
				}
				res = append(res, &operationRef{path: path, method: method, params: params})
			}
		}
	} else {
		for path, item := range doc.OpenAPI.Paths {
			if item == nil {
				continue
			}
			for method, op := range item.Operations() {
				params := parametersFromKin(item.Parameters, op.Parameters)
				res = append(res, &operationRef{path: path, method: strings.ToUpper(method), params: params})
			}
		}
	}

	sort.Slice(res, func(i, j int) bool {
		if res[i].path != res[j].path {
			return res[i].path < res[j].path
		}
		return res[i].method < res[j].method
	})
	return res, nil
}

func buildRoute(doc *Document, op *operationRef, opts *Options) (*Route, error) {
	body, err := BuildBodyValidation(doc, op.path, op.method, opts)
	if err != nil {
		return nil, err
	}

	params := op.params
	var contentTypes []string
	if body != nil {
		contentTypes = body.MediaTypes()
		required, optional := body.Files()
		for _, name := range required {
			params = append(params, &Parameter{Name: name, In: ParameterInFormData, Required: true, File: true})
		}
		for _, name := range optional {
			params = append(params, &Parameter{Name: name, In: ParameterInFormData, File: true})
		}
	}

	parameters, err := BuildParametersValidation(params, contentTypes, opts)
	if err != nil {
		return nil, err
	}

	return &Route{
		Path:       op.path,
		Method:     op.method,
		Parameters: parameters,
		Body:       body,
	}, nil
}
