package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/sre-norns/ags/pkg/resource"
	"github.com/sre-norns/ags/pkg/rest"
)

var ErrInvalidSiteMode = fmt.Errorf("invalid site mode")

type SiteMode string

const (
	SiteModeReadOnly SiteMode = "READ_ONLY"
	SiteModeEditable SiteMode = "EDITABLE"
)

type ModeInfo struct {
	SiteMode        SiteMode `json:"siteMode"`
	CopyConfigLocal bool     `json:"copyConfigLocal"`
	LastModified    int64    `json:"lastModified"`
}

// Mode controls whether changes to the site are allowed
type Mode struct {
	*resource.Resource[ModeInfo]
}

func NewMode(ctx context.Context, modeUrl string, conn rest.Connection, opts ...Option) (*Mode, error) {
	if conn == nil {
		return nil, resource.ErrInvalidConnection
	}

	r, err := resource.New[ModeInfo](ctx, withSuffix(modeUrl, "/mode"), conn, newOptions(opts).resourceOptions()...)
	if err != nil {
		return nil, err
	}
	return &Mode{r}, nil
}

// Update switches the site mode and re-fetches the resource
func (m *Mode) Update(ctx context.Context, siteMode SiteMode, runAsync bool) (map[string]any, error) {
	siteMode = SiteMode(strings.ToUpper(string(siteMode)))
	if siteMode != SiteModeReadOnly && siteMode != SiteModeEditable {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSiteMode, siteMode)
	}

	payload, err := call(ctx, m.Connection(), rest.MethodPost, m.URL()+"/update", map[string]any{
		"siteMode": string(siteMode),
		"runAsync": runAsync,
	})
	if err != nil {
		return nil, err
	}

	return payload, m.Refresh(ctx)
}
