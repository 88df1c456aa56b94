package catalog

import (
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidServerURL = fmt.Errorf("invalid server URL")

const defaultInstance = "arcgis"

// ServerURL is the set of well known roots of an ArcGIS Server instance
type ServerURL struct {
	// REST API root, i.e. https://host/arcgis/rest
	Rest string
	// Catalog root, i.e. https://host/arcgis/rest/services
	Services string
	// Administration API root, i.e. https://host/arcgis/admin
	Admin string
}

// ParseServerURL derives server roots from any URL pointing into the server.
// The first path segment names the server instance, "arcgis" is assumed when the path is empty.
func ParseServerURL(rawURL string) (ServerURL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ServerURL{}, fmt.Errorf("%w: %w", ErrInvalidServerURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return ServerURL{}, fmt.Errorf("%w: %q has no scheme or host", ErrInvalidServerURL, rawURL)
	}

	instance := defaultInstance
	if segments := strings.Split(strings.Trim(u.Path, "/"), "/"); segments[0] != "" {
		instance = segments[0]
	}

	base := fmt.Sprintf("%s://%s/%s", u.Scheme, u.Host, instance)
	return ServerURL{
		Rest:     base + "/rest",
		Services: base + "/rest/services",
		Admin:    base + "/admin",
	}, nil
}
