package oasvalidator

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

type routeTemplate struct {
	path     string
	skeleton string
	pattern  *regexp.Regexp
	names    []string
	literals int
	segments int
}

// Resolver finds the route template matching a concrete request path.
// Matches are memoized per method and path. Safe for concurrent use.
type Resolver struct {
	routes    SchemaMap
	templates []*routeTemplate
	skeletons map[string][]string
	cache     *lru.Cache[string, int]
}

// NewResolver indexes routes. A cacheSize of 0 disables memoization.
func NewResolver(routes SchemaMap, cacheSize int) (*Resolver, error) {
	r := &Resolver{
		routes:    routes,
		skeletons: make(map[string][]string),
	}

	for path := range routes {
		tpl := compileTemplate(path)
		r.templates = append(r.templates, tpl)
		r.skeletons[tpl.skeleton] = append(r.skeletons[tpl.skeleton], path)
	}
	sort.Slice(r.templates, func(i, j int) bool {
		a, b := r.templates[i], r.templates[j]
		if a.literals != b.literals {
			return a.literals > b.literals
		}
		if a.segments != b.segments {
			return a.segments > b.segments
		}
		return a.path < b.path
	})
	for _, paths := range r.skeletons {
		sort.Strings(paths)
	}

	if cacheSize > 0 {
		cache, err := lru.New[string, int](cacheSize)
		if err != nil {
			return nil, err
		}
		r.cache = cache
	}
	return r, nil
}

// Resolve matches a concrete path like `/pets/12` and returns the route with its path parameters.
func (r *Resolver) Resolve(method, path string) (*Route, map[string]string, bool) {
	method = strings.ToUpper(method)
	path = cleanRequestPath(path)
	key := method + " " + path

	if r.cache != nil {
		if i, ok := r.cache.Get(key); ok {
			if i < 0 {
				return nil, nil, false
			}
			return r.match(r.templates[i], method, path)
		}
	}

	for i, tpl := range r.templates {
		if route, params, ok := r.match(tpl, method, path); ok {
			if r.cache != nil {
				r.cache.Add(key, i)
			}
			return route, params, true
		}
	}

	if r.cache != nil {
		r.cache.Add(key, -1)
	}
	return nil, nil, false
}

// ResolveTemplate looks a route up by the pattern a router matched, like `/pets/:id` or `/pets/{id:[0-9]+}`.
func (r *Resolver) ResolveTemplate(method, pattern string) (*Route, bool) {
	normalized := NormalizeRoutePattern(pattern)
	if route, ok := r.routes.Get(normalized, method); ok {
		return route, true
	}
	for _, path := range r.skeletons[skeletonOf(normalized)] {
		if route, ok := r.routes.Get(path, method); ok {
			return route, true
		}
	}
	return nil, false
}

func (r *Resolver) match(tpl *routeTemplate, method, path string) (*Route, map[string]string, bool) {
	found := tpl.pattern.FindStringSubmatch(path)
	if found == nil {
		return nil, nil, false
	}
	route, ok := r.routes.Get(tpl.path, method)
	if !ok {
		return nil, nil, false
	}

	params := make(map[string]string, len(tpl.names))
	for i, name := range tpl.names {
		value := found[i+1]
		if unescaped, err := url.PathUnescape(value); err == nil {
			value = unescaped
		}
		params[name] = value
	}
	return route, params, true
}

var templateParam = regexp.MustCompile(`\{([^{}]+)\}`)

func compileTemplate(path string) *routeTemplate {
	tpl := &routeTemplate{path: path, skeleton: skeletonOf(path)}

	var b strings.Builder
	b.WriteString("^")
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		b.WriteString("/")
		if segment == "" {
			continue
		}
		tpl.segments++

		matches := templateParam.FindAllStringSubmatchIndex(segment, -1)
		if len(matches) == 0 {
			tpl.literals++
			b.WriteString(regexp.QuoteMeta(segment))
			continue
		}
		last := 0
		for _, m := range matches {
			b.WriteString(regexp.QuoteMeta(segment[last:m[0]]))
			b.WriteString("([^/]+)")
			tpl.names = append(tpl.names, segment[m[2]:m[3]])
			last = m[1]
		}
		b.WriteString(regexp.QuoteMeta(segment[last:]))
	}
	b.WriteString("/?$")

	tpl.pattern = regexp.MustCompile(b.String())
	return tpl
}

// skeletonOf replaces parameter names so templates differing only in names compare equal.
func skeletonOf(path string) string {
	return templateParam.ReplaceAllString(path, "{}")
}

// NormalizeRoutePattern rewrites router patterns into OpenAPI templates.
// `:id` and `{id:[0-9]+}` both become `{id}`.
func NormalizeRoutePattern(pattern string) string {
	segments := strings.Split(pattern, "/")
	for i, segment := range segments {
		if strings.HasPrefix(segment, ":") && len(segment) > 1 {
			segments[i] = "{" + segment[1:] + "}"
			continue
		}
		segments[i] = stripParamRegex(segment)
	}
	return strings.Join(segments, "/")
}

// stripParamRegex drops `:regex` from `{name:regex}`, nested braces included.
func stripParamRegex(segment string) string {
	var b strings.Builder
	depth := 0
	skipping := false
	for _, r := range segment {
		switch {
		case r == '{':
			depth++
			if depth == 1 {
				b.WriteRune(r)
				continue
			}
		case r == '}':
			depth--
			if depth == 0 {
				skipping = false
				b.WriteRune(r)
				continue
			}
		case r == ':' && depth == 1:
			skipping = true
			continue
		}
		if !skipping {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cleanRequestPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
