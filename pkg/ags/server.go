// Package ags is the entry point to an ArcGIS Server: its catalog, administration API and services
package ags

import (
	"context"
	"strings"

	"github.com/go-kit/log"
	"github.com/sre-norns/ags/pkg/admin"
	"github.com/sre-norns/ags/pkg/catalog"
	"github.com/sre-norns/ags/pkg/resource"
	"github.com/sre-norns/ags/pkg/rest"
	"github.com/sre-norns/ags/pkg/service"
)

type Server struct {
	urls   catalog.ServerURL
	conn   rest.Connection
	logger log.Logger
}

type Option func(s *Server)

func WithLogger(logger log.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server for any URL pointing into it
func NewServer(rawURL string, conn rest.Connection, opts ...Option) (*Server, error) {
	if conn == nil {
		return nil, resource.ErrInvalidConnection
	}

	urls, err := catalog.ParseServerURL(rawURL)
	if err != nil {
		return nil, err
	}

	result := &Server{
		urls:   urls,
		conn:   conn,
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(result)
	}

	return result, nil
}

func (s *Server) URLs() catalog.ServerURL {
	return s.urls
}

func (s *Server) Connection() rest.Connection {
	return s.conn
}

// Catalog returns the user's view of the server with its root folder fetched
func (s *Server) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	return catalog.New(ctx, s.urls.Services, s.conn,
		catalog.WithLogger(s.logger),
		catalog.WithInitialize(true),
	)
}

// Admin returns the root resource of the administration API, fetched on first use
func (s *Server) Admin(ctx context.Context) (*admin.Site, error) {
	return admin.New(ctx, s.urls.Admin, s.conn, admin.WithLogger(s.logger))
}

// Service creates a service for an absolute URL or a path relative to the services root
func (s *Server) Service(ctx context.Context, serviceUrl string, opts ...service.Option) (service.Service, error) {
	if !strings.Contains(serviceUrl, "://") {
		serviceUrl = s.urls.Services + "/" + strings.TrimLeft(serviceUrl, "/")
	}

	return service.Create(ctx, serviceUrl, append([]service.Option{
		service.WithConnection(s.conn),
		service.WithLogger(s.logger),
	}, opts...)...)
}
