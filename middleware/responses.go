package middleware

import (
	"net/http"
)

// Reply writes a JSON payload for a rejected request.
type Reply struct {
	w      http.ResponseWriter
	status int
	header http.Header
}

// NewReply starts a reply with status 400.
func NewReply(w http.ResponseWriter) *Reply {
	return &Reply{w: w, status: http.StatusBadRequest, header: http.Header{}}
}

// Status overrides the response status.
func (r *Reply) Status(code int) *Reply {
	if code > 0 {
		r.status = code
	}
	return r
}

// Header sets an extra response header.
func (r *Reply) Header(key, value string) *Reply {
	r.header.Set(key, value)
	return r
}

// JSON encodes payload with json-iterator and writes it.
// An unencodable payload turns into a 500 with a fixed body.
func (r *Reply) JSON(payload any) {
	out := r.w.Header()
	for key, values := range r.header {
		out[key] = values
	}
	out.Set("Content-Type", "application/json")

	body, err := json.Marshal(payload)
	if err != nil {
		r.w.WriteHeader(http.StatusInternalServerError)
		_, _ = r.w.Write([]byte(`{"errors":["response encoding failed"]}`))
		return
	}
	r.w.WriteHeader(r.status)
	_, _ = r.w.Write(body)
}
