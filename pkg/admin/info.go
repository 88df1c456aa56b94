package admin

import (
	"context"
	"fmt"

	"github.com/sre-norns/ags/pkg/resource"
	"github.com/sre-norns/ags/pkg/rest"
)

var ErrUnhealthy = fmt.Errorf("site is not healthy")

type ServerInfo struct {
	FullVersion           string         `json:"fullVersion"`
	CurrentVersion        float64        `json:"currentVersion"`
	CurrentBuild          string         `json:"currentBuild"`
	TimeZone              map[string]any `json:"timezone"`
	LoggedInUser          string         `json:"loggedInUser"`
	LoggedInUserPrivilege string         `json:"loggedInUserPrivilege"`
}

// Info is a read-only resource with meta information about the server
type Info struct {
	*resource.Resource[ServerInfo]
}

func NewInfo(ctx context.Context, infoUrl string, conn rest.Connection, opts ...Option) (*Info, error) {
	if conn == nil {
		return nil, resource.ErrInvalidConnection
	}

	r, err := resource.New[ServerInfo](ctx, withSuffix(infoUrl, "/info"), conn, newOptions(opts).resourceOptions()...)
	if err != nil {
		return nil, err
	}
	return &Info{r}, nil
}

// HealthCheck reports if the site is able to receive requests.
// A site that responds without `"success": true` is reported with ErrUnhealthy.
func (i *Info) HealthCheck(ctx context.Context) (map[string]any, error) {
	payload, err := call(ctx, i.Connection(), rest.MethodGet, i.URL()+"/healthCheck", nil)
	if err != nil {
		return nil, err
	}

	if success, _ := payload["success"].(bool); !success {
		return payload, ErrUnhealthy
	}
	return payload, nil
}

// TimeZones returns all the time zones known to the server
func (i *Info) TimeZones(ctx context.Context) (map[string]any, error) {
	return call(ctx, i.Connection(), rest.MethodGet, i.URL()+"/getAvailableTimeZones", nil)
}
