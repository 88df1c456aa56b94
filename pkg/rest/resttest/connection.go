// Package resttest provides an in-memory rest.Connection for tests
package resttest

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/sre-norns/ags/pkg/rest"
)

// Call records a single request made through the Connection
type Call struct {
	Method rest.Method
	Path   string
	Params url.Values
	Body   map[string]any
	Files  []rest.File
}

// Responder computes response to a call dynamically
type Responder func(call Call) (any, error)

// Connection serves canned responses keyed by request path and records all calls
type Connection struct {
	lock      sync.Mutex
	responses map[string]any
	calls     []Call
}

var _ rest.Connection = (*Connection)(nil)

// New creates a connection serving the given responses.
// A response value may be a Responder or an error, any other value is returned as is.
func New(responses map[string]any) *Connection {
	if responses == nil {
		responses = map[string]any{}
	}

	return &Connection{
		responses: responses,
	}
}

func (c *Connection) Respond(path string, response any) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.responses[path] = response
}

func (c *Connection) Get(ctx context.Context, path string, params url.Values) (any, error) {
	return c.serve(Call{Method: rest.MethodGet, Path: path, Params: params})
}

func (c *Connection) Post(ctx context.Context, path string, body map[string]any, files ...rest.File) (any, error) {
	return c.serve(Call{Method: rest.MethodPost, Path: path, Body: body, Files: files})
}

func (c *Connection) serve(call Call) (any, error) {
	c.lock.Lock()
	c.calls = append(c.calls, call)
	response, ok := c.responses[call.Path]
	if !ok {
		response, ok = c.responses[strings.TrimSuffix(call.Path, "/")]
	}
	c.lock.Unlock()

	if !ok {
		return nil, &rest.ErrorResponse{Code: 404, Message: "not found: " + call.Path}
	}

	switch value := response.(type) {
	case Responder:
		return value(call)
	case error:
		return nil, value
	}

	return response, nil
}

// Calls returns all calls made so far
func (c *Connection) Calls() []Call {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]Call(nil), c.calls...)
}

// Count returns number of calls made to the given path
func (c *Connection) Count(path string) int {
	c.lock.Lock()
	defer c.lock.Unlock()

	count := 0
	for _, call := range c.calls {
		if call.Path == path {
			count++
		}
	}
	return count
}

func (c *Connection) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.calls = nil
}
