package routes

import (
	"fmt"

	"github.com/niels/minihttpd/pkg/request"
	"github.com/niels/minihttpd/pkg/response"
	"github.com/niels/minihttpd/pkg/router"
)

// Register adds the demo routes to r. Literal routes go first so they are not
// shadowed by the parameterized ones.
func Register(r *router.Router) error {
	routes := []struct {
		method   request.Method
		template string
		handler  router.HandlerFunc
	}{
		{request.MethodGet, "/hello", Hello},
		{request.MethodGet, "/hello/{name}", Greeting},
		{request.MethodGet, "/users/{user_id}/orders/{order_id}", UserOrderDetails},
		{request.MethodPost, "/echo", Echo},
	}

	for _, rt := range routes {
		if err := r.Register(rt.method, rt.template, rt.handler); err != nil {
			return fmt.Errorf("failed to register %s %s: %w", rt.method, rt.template, err)
		}
	}
	return nil
}

// Hello answers with a fixed greeting
func Hello(req *request.Request) *response.Response {
	return response.Text("Hello World!")
}

// Greeting greets the {name} path parameter
func Greeting(req *request.Request) *response.Response {
	name, ok := req.PathParams["name"]
	if !ok {
		return response.New(response.StatusBadRequest, nil, nil)
	}
	return response.Text(fmt.Sprintf("Hello %s!", name))
}

// UserOrderDetails answers with the user_id and order_id path parameters
func UserOrderDetails(req *request.Request) *response.Response {
	return response.Text(fmt.Sprintf("UserId: %s, OrderId: %s", req.Param("user_id"), req.Param("order_id")))
}

// Echo sends the request body back, keeping the client's Content-Type
func Echo(req *request.Request) *response.Response {
	contentType := req.Headers["Content-Type"]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return response.New(response.StatusOK, map[string]string{"Content-Type": contentType}, req.Body)
}
