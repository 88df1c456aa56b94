// Package admin provides access to the administration API of an ArcGIS Server site
package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-kit/log"
	"github.com/sre-norns/ags/pkg/resource"
	"github.com/sre-norns/ags/pkg/rest"
	"github.com/sre-norns/ags/pkg/version"
)

type SiteInfo struct {
	CurrentVersion float64  `json:"currentVersion"`
	FullVersion    string   `json:"fullVersion"`
	AcceptLanguage string   `json:"acceptLanguage"`
	Resources      []string `json:"resources"`
}

// Site is the root resource of the administration API
type Site struct {
	*resource.Resource[SiteInfo]

	logger log.Logger
}

type options struct {
	initialize bool
	logger     log.Logger
}

type Option func(opts *options)

func WithInitialize(initialize bool) Option {
	return func(opts *options) {
		opts.initialize = initialize
	}
}

func WithLogger(logger log.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

func newOptions(opts []Option) options {
	config := options{
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return config
}

func (o options) resourceOptions() []resource.Option {
	return []resource.Option{
		resource.WithLogger(o.logger),
		resource.WithInitialize(o.initialize),
	}
}

// New creates the site resource, "/admin" is appended to the URL if missing
func New(ctx context.Context, adminUrl string, conn rest.Connection, opts ...Option) (*Site, error) {
	if conn == nil {
		return nil, resource.ErrInvalidConnection
	}

	config := newOptions(opts)
	r, err := resource.New[SiteInfo](ctx, withSuffix(adminUrl, "/admin"), conn, config.resourceOptions()...)
	if err != nil {
		return nil, err
	}

	return &Site{Resource: r, logger: config.logger}, nil
}

func (s *Site) CurrentVersion(ctx context.Context) (float64, error) {
	info, err := s.Fields(ctx)
	return info.CurrentVersion, err
}

func (s *Site) FullVersion(ctx context.Context) (string, error) {
	info, err := s.Fields(ctx)
	return info.FullVersion, err
}

// Resources lists names of child resources of the site
func (s *Site) Resources(ctx context.Context) ([]string, error) {
	info, err := s.Fields(ctx)
	return info.Resources, err
}

// SupportsVersion reports if the site runs the given or a newer version
func (s *Site) SupportsVersion(ctx context.Context, minimal string) (bool, error) {
	info, err := s.Fields(ctx)
	if err != nil {
		return false, err
	}

	current := any(info.FullVersion)
	if info.FullVersion == "" {
		current = info.CurrentVersion
	}
	return version.AtLeast(current, minimal)
}

// Info returns the server information resource of the site
func (s *Site) Info(ctx context.Context, opts ...Option) (*Info, error) {
	return NewInfo(ctx, s.child("info"), s.Connection(), s.inherit(opts)...)
}

// Mode returns the site mode resource
func (s *Site) Mode(ctx context.Context, opts ...Option) (*Mode, error) {
	return NewMode(ctx, s.child("mode"), s.Connection(), s.inherit(opts)...)
}

func (s *Site) child(name string) string {
	return strings.TrimRight(s.URL(), "/") + "/" + name
}

func (s *Site) inherit(opts []Option) []Option {
	return append([]Option{WithLogger(s.logger)}, opts...)
}

func withSuffix(target, suffix string) string {
	target = strings.TrimRight(target, "/")
	if strings.HasSuffix(strings.ToLower(target), suffix) {
		return target
	}
	return target + suffix
}

// call invokes an operation of the administration API expecting a JSON object in return
func call(ctx context.Context, conn rest.Connection, method rest.Method, target string, body map[string]any) (map[string]any, error) {
	var (
		value any
		err   error
	)
	switch method {
	case rest.MethodPost:
		value, err = conn.Post(ctx, target, body)
	default:
		value, err = conn.Get(ctx, target, nil)
	}
	if err != nil {
		return nil, err
	}

	payload, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q returned %T", resource.ErrRemoteResponse, target, value)
	}
	return payload, nil
}
