package rest

import (
	"context"
	"net/url"
)

type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// File describes a local file to be uploaded as part of a multipart POST request
type File struct {
	// Name of the form field the file content is sent under
	Field string
	// Local path of the file to upload
	Path string
	// File name reported to the server, defaults to the base name of Path
	Filename string
}

// Connection is a transport that performs authenticated requests against an ArcGIS Server.
// Every request carries `f=json` and returns decoded JSON value of the response.
type Connection interface {
	// Get issues a GET request for the given path, absolute URL or a path relative to the connection base URL.
	Get(ctx context.Context, path string, params url.Values) (any, error)

	// Post issues a POST request with the body encoded as form values.
	// If files are given the request is sent as multipart form.
	Post(ctx context.Context, path string, body map[string]any, files ...File) (any, error)
}
