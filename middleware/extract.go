package middleware

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cubahno/oasvalidator"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrInvalidBody is returned when a body cannot be decoded as its Content-Type says.
var ErrInvalidBody = errors.New("invalid request body")

const maxMultipartMemory = 32 << 20

// Extract builds the validator's view of r.
// The body is read and put back, handlers downstream still see it.
func Extract(r *http.Request, framework Framework) (*oasvalidator.Request, error) {
	headers := r.Header.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	if r.ContentLength > 0 {
		headers.Set("Content-Length", strconv.FormatInt(r.ContentLength, 10))
	}
	if len(r.TransferEncoding) > 0 {
		headers.Set("Transfer-Encoding", strings.Join(r.TransferEncoding, ","))
	}

	req := &oasvalidator.Request{
		Method:      r.Method,
		Path:        r.URL.Path,
		Headers:     headers,
		PathParams:  map[string]string{},
		Query:       r.URL.Query(),
		ContentType: r.Header.Get("Content-Type"),
	}

	switch framework {
	case Chi:
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			req.RoutePath = rctx.RoutePattern()
			for i, key := range rctx.URLParams.Keys {
				if key == "*" || i >= len(rctx.URLParams.Values) {
					continue
				}
				req.PathParams[key] = rctx.URLParams.Values[i]
			}
		}
	case GorillaMux:
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				req.RoutePath = tpl
			}
		}
		for key, value := range mux.Vars(r) {
			req.PathParams[key] = value
		}
	}

	if err := readBody(r, req); err != nil {
		return nil, err
	}
	return req, nil
}

func readBody(r *http.Request, req *oasvalidator.Request) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	data, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if len(data) == 0 {
		return nil
	}

	mediaType, params, _ := mime.ParseMediaType(req.ContentType)
	mediaType = strings.ToLower(mediaType)

	switch {
	case mediaType == oasvalidator.MediaTypeJSON || strings.HasSuffix(mediaType, "+json"):
		var body any
		if err = json.Unmarshal(data, &body); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		req.Body = body

	case mediaType == oasvalidator.MediaTypeForm:
		values, err := url.ParseQuery(string(data))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		req.Body = formValues(values)

	case mediaType == oasvalidator.MediaTypeMultipart:
		form, err := multipart.NewReader(bytes.NewReader(data), params["boundary"]).ReadForm(maxMultipartMemory)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		defer func() {
			_ = form.RemoveAll()
		}()
		req.Body = formValues(form.Value)
		for name := range form.File {
			req.Files = append(req.Files, name)
		}
		sort.Strings(req.Files)

	default:
		req.Body = string(data)
	}
	return nil
}

func formValues(values map[string][]string) map[string]any {
	res := make(map[string]any, len(values))
	for name, list := range values {
		if len(list) == 1 {
			res[name] = list[0]
			continue
		}
		items := make([]any, len(list))
		for i, value := range list {
			items[i] = value
		}
		res[name] = items
	}
	return res
}
