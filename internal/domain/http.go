package domain

import (
	"fmt"
	"strings"
)

// ParseError reports malformed input handed to one of the Parse functions.
// The session stays usable after one; the offending flow is simply not recorded.
type ParseError struct {
	Field string
	Value string
}

func (e *ParseError) Error() string { return fmt.Sprintf("invalid %s: %q", e.Field, e.Value) }

// HTTPVersion is the canonical wire form of the protocol version.
type HTTPVersion string

const (
	HTTP09 HTTPVersion = "HTTP/0.9"
	HTTP10 HTTPVersion = "HTTP/1.0"
	HTTP11 HTTPVersion = "HTTP/1.1"
	HTTP2  HTTPVersion = "HTTP/2.0"
	HTTP3  HTTPVersion = "HTTP/3.0"
)

func ParseHTTPVersion(s string) (HTTPVersion, error) {
	switch v := HTTPVersion(s); v {
	case HTTP09, HTTP10, HTTP11, HTTP2, HTTP3:
		return v, nil
	default:
		return "", &ParseError{Field: "http version", Value: s}
	}
}

// Method is an upper-cased HTTP method. Unknown methods pass through unchanged,
// so parsing never fails.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
	MethodConnect Method = "CONNECT"
	MethodPatch   Method = "PATCH"
	MethodTrace   Method = "TRACE"
)

func ParseMethod(s string) Method { return Method(strings.ToUpper(s)) }

// Header is one name/value pair. Headers preserves wire order and duplicates.
type Header struct {
	Name  string `json:"name" cbor:"name"`
	Value string `json:"value" cbor:"value"`
}

type Headers []Header

// Get returns the first value for name, matched case-insensitively.
func (hs Headers) Get(name string) string {
	for _, h := range hs {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
