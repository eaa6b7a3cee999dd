package request

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrMalformedRequest is returned when a byte stream cannot be turned into a Request
var ErrMalformedRequest = errors.New("malformed request")

// headerBoundary separates the header section from the body
var headerBoundary = []byte("\r\n\r\n")

const (
	crlf            = "\r\n"
	headerSeparator = ": "
)

// Method is the request method
type Method int

const (
	// MethodUnrecognized is any method token other than GET or POST
	MethodUnrecognized Method = iota
	// MethodGet is GET
	MethodGet
	// MethodPost is POST
	MethodPost
)

// ParseMethod maps a method token to a Method
func ParseMethod(s string) Method {
	switch s {
	case "GET":
		return MethodGet
	case "POST":
		return MethodPost
	default:
		return MethodUnrecognized
	}
}

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	default:
		return "Unknown"
	}
}

// Version is the protocol version from the request line
type Version int

const (
	// VersionUnrecognized is any version token other than HTTP/1.1
	VersionUnrecognized Version = iota
	// Version11 is HTTP/1.1
	Version11
)

// ParseVersion maps a version token to a Version
func ParseVersion(s string) Version {
	if s == "HTTP/1.1" {
		return Version11
	}
	return VersionUnrecognized
}

func (v Version) String() string {
	if v == Version11 {
		return "HTTP/1.1"
	}
	return "Unknown"
}

// Request is a parsed HTTP request.
//
// Headers keep the names exactly as received; a repeated name keeps its last value.
// PathParams stays empty until the router has resolved the request.
type Request struct {
	Method     Method
	Path       string
	Version    Version
	Headers    map[string]string
	Body       []byte
	PathParams map[string]string
}

// Parse turns a raw byte buffer into a Request.
//
// The body is everything after the first blank line, taken verbatim; Content-Length
// is not consulted. Unrecognized methods and versions are returned as such and
// left for the caller to reject.
func Parse(raw []byte) (*Request, error) {
	end := bytes.Index(raw, headerBoundary)
	if end < 0 {
		return nil, fmt.Errorf("%w: no header/body boundary found", ErrMalformedRequest)
	}

	head := raw[:end]
	body := raw[end+len(headerBoundary):]

	if !utf8.Valid(head) {
		return nil, fmt.Errorf("%w: header section is not valid UTF-8", ErrMalformedRequest)
	}

	lines := strings.Split(string(head), crlf)

	fields := strings.Fields(lines[0])
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: invalid request line %q", ErrMalformedRequest, lines[0])
	}

	headers := make(map[string]string)
	for _, line := range lines[1:] {
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, headerSeparator)
		if !ok {
			// a line without ": " ends the header block
			break
		}
		headers[name] = value
	}

	return &Request{
		Method:     ParseMethod(fields[0]),
		Path:       fields[1],
		Version:    ParseVersion(fields[2]),
		Headers:    headers,
		Body:       append([]byte{}, body...),
		PathParams: map[string]string{},
	}, nil
}

// Param returns the named path parameter, or "" when it is absent
func (r *Request) Param(name string) string {
	return r.PathParams[name]
}
