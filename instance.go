package oasvalidator

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Request is what a request looks like to the validator.
// Adapters build it from framework requests.
type Request struct {
	Method string
	// Path is the concrete request path, used when RoutePath is empty.
	Path string
	// RoutePath is the pattern the router matched, like `/pets/:id`.
	RoutePath   string
	Headers     http.Header
	PathParams  map[string]string
	Query       url.Values
	Body        any
	Files       []string
	ContentType string
}

// Instance validates requests against one document.
// Instances are independent of each other and safe for concurrent use.
type Instance struct {
	options  *Options
	routes   SchemaMap
	resolver *Resolver
	metrics  *metrics
	logger   *slog.Logger
}

// New compiles doc into an Instance.
func New(doc *Document, opts ...Option) (*Instance, error) {
	options := newOptions(opts)

	routes, err := BuildSchemaMap(doc, options)
	if err != nil {
		return nil, err
	}
	resolver, err := NewResolver(routes, options.RouteCacheSize)
	if err != nil {
		return nil, err
	}

	return &Instance{
		options:  options,
		routes:   routes,
		resolver: resolver,
		metrics:  newMetrics(options.Registerer),
		logger:   options.logger(),
	}, nil
}

// NewFromFile loads the document at filePath and compiles it.
func NewFromFile(filePath string, opts ...Option) (*Instance, error) {
	doc, err := LoadDocumentFromFile(filePath, opts...)
	if err != nil {
		return nil, err
	}
	return New(doc, opts...)
}

// Routes returns the compiled schema map.
func (i *Instance) Routes() SchemaMap {
	return i.routes
}

// Options returns a copy of the options the instance was built with.
func (i *Instance) Options() Options {
	return *i.options
}

// Validate checks req against its operation.
// It returns *InputValidationError with every parameter and body failure, or nil.
// Requests to routes the document does not declare are not validated.
func (i *Instance) Validate(req *Request) error {
	route, pathParams, ok := i.route(req)
	if !ok {
		i.logger.Debug("no route to validate", "method", req.Method, "path", req.Path, "route", req.RoutePath)
		i.metrics.observe(resultSkipped, 0, 0)
		return nil
	}

	_, paramErrs := route.Parameters.Validate(i.envelope(req, pathParams))

	var bodyErrs ErrorRecords
	if route.Body != nil {
		_, bodyErrs = route.Body.ValidateContent(i.contentType(req), req.Body)
	}

	if len(paramErrs) == 0 && len(bodyErrs) == 0 {
		i.metrics.observe(resultValid, 0, 0)
		return nil
	}

	i.metrics.observe(resultInvalid, len(paramErrs), len(bodyErrs))
	return &InputValidationError{
		Parameters: paramErrs,
		Body:       bodyErrs,
		beautify:   i.options.BeautifyErrors,
		firstError: i.options.FirstError,
	}
}

func (i *Instance) route(req *Request) (*Route, map[string]string, bool) {
	if req.RoutePath != "" {
		if route, ok := i.resolver.ResolveTemplate(req.Method, req.RoutePath); ok {
			return route, renameParams(req.RoutePath, route.Path, req.PathParams), true
		}
	}

	route, params, ok := i.resolver.Resolve(req.Method, req.Path)
	if !ok {
		return nil, nil, false
	}
	for name, value := range req.PathParams {
		params[name] = value
	}
	return route, params, true
}

// renameParams maps router parameter names onto the document's names by position.
func renameParams(routePath, templatePath string, params map[string]string) map[string]string {
	from := templateNames(NormalizeRoutePattern(routePath))
	to := templateNames(templatePath)
	if len(from) != len(to) {
		return params
	}

	res := make(map[string]string, len(params))
	for name, value := range params {
		res[name] = value
	}
	for j, name := range from {
		if name == to[j] {
			continue
		}
		if value, ok := params[name]; ok {
			delete(res, name)
			res[to[j]] = value
		}
	}
	return res
}

func templateNames(path string) []string {
	var res []string
	for _, m := range templateParam.FindAllStringSubmatch(path, -1) {
		res = append(res, m[1])
	}
	return res
}

func (i *Instance) contentType(req *Request) string {
	if req.ContentType != "" {
		return req.ContentType
	}
	return req.Headers.Get("Content-Type")
}

// envelope lays the request out the way ParametersValidator expects.
func (i *Instance) envelope(req *Request, pathParams map[string]string) map[string]any {
	headers := make(map[string]any, len(req.Headers)+1)
	for name, values := range req.Headers {
		headers[strings.ToLower(name)] = strings.Join(values, ",")
	}
	if _, ok := headers["content-type"]; !ok && req.ContentType != "" {
		headers["content-type"] = req.ContentType
	}
	// a body passed without transport headers still counts as present
	if _, ok := headers["content-length"]; !ok && req.Body != nil {
		if _, chunked := headers["transfer-encoding"]; !chunked {
			headers["content-length"] = "1"
		}
	}

	path := make(map[string]any, len(pathParams))
	for name, value := range pathParams {
		path[name] = value
	}

	query := make(map[string]any, len(req.Query))
	for name, values := range req.Query {
		switch len(values) {
		case 0:
			query[name] = ""
		case 1:
			query[name] = values[0]
		default:
			list := make([]any, len(values))
			for j, value := range values {
				list[j] = value
			}
			query[name] = list
		}
	}

	files := make([]any, 0, len(req.Files))
	for _, name := range req.Files {
		files = append(files, name)
	}

	return map[string]any{
		SourceHeaders: headers,
		SourcePath:    path,
		SourceQuery:   query,
		SourceFiles:   files,
	}
}
