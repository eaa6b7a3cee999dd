package router

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dlclark/regexp2"
	"github.com/niels/minihttpd/pkg/request"
	"github.com/niels/minihttpd/pkg/response"
)

var (
	// ErrRouteNotFound is returned by Resolve when no route matches
	ErrRouteNotFound = errors.New("route not found")
	// ErrUnsupportedMethod is returned when registering a route for a method without a table
	ErrUnsupportedMethod = errors.New("unsupported method")
)

// Handler produces the response for a resolved request
type Handler interface {
	ServeRequest(req *request.Request) *response.Response
}

// HandlerFunc adapts a plain function to Handler
type HandlerFunc func(req *request.Request) *response.Response

// ServeRequest calls f(req)
func (f HandlerFunc) ServeRequest(req *request.Request) *response.Response {
	return f(req)
}

// Router keeps one ordered route table per supported method.
//
// Routes are tried in registration order and the first match wins, so literal
// routes have to be registered before parameterized routes of the same shape.
type Router struct {
	mu     sync.RWMutex
	tables map[request.Method][]*Route
}

// New creates an empty router
func New() *Router {
	return &Router{
		tables: map[request.Method][]*Route{
			request.MethodGet:  nil,
			request.MethodPost: nil,
		},
	}
}

// Get registers handler for GET requests matching template
func (r *Router) Get(template string, handler HandlerFunc) error {
	return r.Register(request.MethodGet, template, handler)
}

// Post registers handler for POST requests matching template
func (r *Router) Post(template string, handler HandlerFunc) error {
	return r.Register(request.MethodPost, template, handler)
}

// Register compiles template and appends it to the table for method.
// Registering a template whose pattern is already present replaces the handler
// but keeps the original position.
func (r *Router) Register(method request.Method, template string, handler Handler) error {
	if f, ok := handler.(HandlerFunc); handler == nil || (ok && f == nil) {
		return fmt.Errorf("nil handler for %s %s", method, template)
	}

	route, err := Compile(template)
	if err != nil {
		return err
	}
	route.handler = handler

	r.mu.Lock()
	defer r.mu.Unlock()

	table, ok := r.tables[method]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	// readers hold on to the old slice, so never write into it
	updated := make([]*Route, 0, len(table)+1)
	replaced := false
	for _, existing := range table {
		if existing.Pattern == route.Pattern {
			updated = append(updated, route)
			replaced = true
			continue
		}
		updated = append(updated, existing)
	}
	if !replaced {
		updated = append(updated, route)
	}
	r.tables[method] = updated
	return nil
}

// Resolve finds the first route for method whose pattern matches path and
// returns its handler along with the extracted path parameters.
func (r *Router) Resolve(method request.Method, path string) (Handler, map[string]string, error) {
	r.mu.RLock()
	table := r.tables[method]
	r.mu.RUnlock()

	for _, route := range table {
		ok, err := route.Match(path)
		if err != nil {
			return nil, nil, fmt.Errorf("matching %s against %s: %w", path, route.Template, err)
		}
		if ok {
			return route.handler, route.Params(path), nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %s %s", ErrRouteNotFound, method, path)
}

// Routes lists the templates registered for method in registration order
func (r *Router) Routes(method request.Method) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	templates := make([]string, 0, len(r.tables[method]))
	for _, route := range r.tables[method] {
		templates = append(templates, route.Template)
	}
	return templates
}

// Route is a compiled path template
type Route struct {
	// Template is the path template as registered
	Template string
	// Pattern is the anchored expression the matcher was built from
	Pattern string

	matcher *regexp2.Regexp
	params  map[int]string // segment position -> parameter name
	handler Handler
}

// Compile turns a path template into a Route. The matcher and the parameter
// positions come from the same normalized template so their segment indices agree.
func Compile(template string) (*Route, error) {
	pattern := Pattern(template)
	matcher, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("failed to compile template %q: %w", template, err)
	}
	return &Route{
		Template: template,
		Pattern:  pattern,
		matcher:  matcher,
		params:   FindParams(template),
	}, nil
}

// Match reports whether path matches the route's pattern as a whole
func (rt *Route) Match(path string) (bool, error) {
	return rt.matcher.MatchString(path)
}

// Params extracts the route's parameters from a path that matched it
func (rt *Route) Params(path string) map[string]string {
	values := make(map[string]string, len(rt.params))
	if len(rt.params) == 0 {
		return values
	}
	segments := strings.Split(Normalize(path), "/")
	for pos, name := range rt.params {
		if pos < len(segments) {
			values[name] = segments[pos]
		}
	}
	return values
}

// ParamPositions returns a copy of the position -> name map
func (rt *Route) ParamPositions() map[int]string {
	out := make(map[int]string, len(rt.params))
	for k, v := range rt.params {
		out[k] = v
	}
	return out
}
