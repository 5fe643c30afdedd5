package middleware

import (
	"fmt"
	"strings"

	"github.com/cubahno/oasvalidator"
)

// Framework selects how route patterns and path parameters are read from a request.
type Framework int

const (
	// Std reads nothing router specific: routes are found by the request path.
	Std Framework = iota
	Chi
	GorillaMux
)

func (f Framework) String() string {
	switch f {
	case Chi:
		return "chi"
	case GorillaMux:
		return "mux"
	}
	return "std"
}

// ParseFramework parses the framework option value.
func ParseFramework(name string) (Framework, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "std", "http", "net/http":
		return Std, nil
	case "chi":
		return Chi, nil
	case "mux", "gorilla", "gorilla/mux":
		return GorillaMux, nil
	}
	return Std, fmt.Errorf("%w: %s", oasvalidator.ErrUnknownFramework, name)
}
