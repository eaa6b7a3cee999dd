package response

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// ProtocolVersion is the version written on every status line
const ProtocolVersion = "HTTP/1.1"

// Status codes the server emits itself
const (
	StatusOK                  = 200
	StatusBadRequest          = 400
	StatusNotFound            = 404
	StatusInternalServerError = 500
)

var statusText = map[int]string{
	StatusOK:                  "OK",
	StatusBadRequest:          "Bad Request",
	StatusNotFound:            "Not Found",
	StatusInternalServerError: "Internal Server Error",
}

// StatusText returns the reason phrase for a status code, or "" if it is not known
func StatusText(code int) string {
	return statusText[code]
}

// Response is what a handler hands back to the dispatcher
type Response struct {
	Version    string
	StatusCode int
	StatusText string
	Headers    map[string]string
	Body       []byte
}

// New creates a response. A nil headers map defaults to Content-Type: text/html,
// a nil body means the response has no body at all.
func New(statusCode int, headers map[string]string, body []byte) *Response {
	if headers == nil {
		headers = map[string]string{"Content-Type": "text/html"}
	}
	return &Response{
		Version:    ProtocolVersion,
		StatusCode: statusCode,
		StatusText: StatusText(statusCode),
		Headers:    headers,
		Body:       body,
	}
}

// Text creates a 200 response carrying body
func Text(body string) *Response {
	return New(StatusOK, nil, []byte(body))
}

// WriteTo serializes the response onto w.
//
// Header order is whatever map iteration yields. Content-Length is added when
// a body is present and the caller did not set it.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	fmt.Fprintf(bw, "%s %d %s\r\n", r.Version, r.StatusCode, r.StatusText)
	for name, value := range r.Headers {
		fmt.Fprintf(bw, "%s: %s\r\n", name, value)
	}
	if r.Body != nil {
		if _, ok := r.Headers["Content-Length"]; !ok {
			fmt.Fprintf(bw, "Content-Length: %s\r\n", strconv.Itoa(len(r.Body)))
		}
	}
	bw.WriteString("\r\n")
	if r.Body != nil {
		bw.Write(r.Body)
	}

	// bufio keeps the first write error and returns it from Flush
	err := bw.Flush()
	return cw.n, err
}

// Bytes returns the serialized response
func (r *Response) Bytes() []byte {
	var buf bytes.Buffer
	r.WriteTo(&buf)
	return buf.Bytes()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
