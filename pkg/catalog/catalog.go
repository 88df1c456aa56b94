// Package catalog provides a user's view of services published on an ArcGIS Server
package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/sre-norns/ags/pkg/resource"
	"github.com/sre-norns/ags/pkg/rest"
	"github.com/sre-norns/ags/pkg/service"
	"github.com/sre-norns/ags/pkg/version"
)

var ErrUnknownFolder = fmt.Errorf("unknown folder")

// RootFolder is the name of the top level folder of the catalog
const RootFolder = "root"

type ServiceRef struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Directory lists the content of a catalog folder
type Directory struct {
	CurrentVersion float64      `json:"currentVersion"`
	Folders        []string     `json:"folders"`
	Services       []ServiceRef `json:"services"`
}

type ServerInfo struct {
	CurrentVersion  float64        `json:"currentVersion"`
	FullVersion     string         `json:"fullVersion"`
	SoapURL         string         `json:"soapUrl"`
	SecureSoapURL   string         `json:"secureSoapUrl"`
	OwningSystemURL string         `json:"owningSystemUrl"`
	AuthInfo        map[string]any `json:"authInfo"`
}

type User struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// Catalog browses folders of a server, one folder at a time
type Catalog struct {
	lock sync.Mutex

	urls   ServerURL
	conn   rest.Connection
	logger log.Logger

	root    *resource.Resource[Directory]
	current *resource.Resource[Directory]
	folder  string
}

type options struct {
	initialize bool
	logger     log.Logger
}

type Option func(opts *options)

// WithInitialize fetches the root folder as part of the construction
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

// New creates a catalog for the server the URL points into
func New(ctx context.Context, serverUrl string, conn rest.Connection, opts ...Option) (*Catalog, error) {
	if conn == nil {
		return nil, resource.ErrInvalidConnection
	}

	urls, err := ParseServerURL(serverUrl)
	if err != nil {
		return nil, err
	}

	config := options{
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(&config)
	}

	root, err := resource.New[Directory](ctx, urls.Services, conn,
		resource.WithLogger(config.logger),
		resource.WithInitialize(config.initialize),
	)
	if err != nil {
		return nil, err
	}

	return &Catalog{
		urls:    urls,
		conn:    conn,
		logger:  config.logger,
		root:    root,
		current: root,
		folder:  RootFolder,
	}, nil
}

// Root returns URL of the top level folder
func (c *Catalog) Root() string {
	return c.urls.Services
}

// AdminURL returns root of the administration API of the server
func (c *Catalog) AdminURL() string {
	return c.urls.Admin
}

func (c *Catalog) Connection() rest.Connection {
	return c.conn
}

// Folder returns name of the current folder
func (c *Catalog) Folder() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.folder
}

// Location returns URL of the current folder
func (c *Catalog) Location() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.current.URL()
}

// Folders returns names of all folders of the server, the root folder first
func (c *Catalog) Folders(ctx context.Context) ([]string, error) {
	dir, err := c.root.Fields(ctx)
	if err != nil {
		return nil, err
	}

	return append([]string{RootFolder}, dir.Folders...), nil
}

// SetFolder changes the current folder and fetches its content
func (c *Catalog) SetFolder(ctx context.Context, name string) error {
	folders, err := c.Folders(ctx)
	if err != nil {
		return err
	}

	found := false
	for _, folder := range folders {
		if folder == name {
			found = true
			break
		}
	}
	if !found && !strings.EqualFold(name, RootFolder) {
		return fmt.Errorf("%w: %q", ErrUnknownFolder, name)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if strings.EqualFold(name, RootFolder) {
		c.folder = RootFolder
		c.current = c.root
		return c.root.Refresh(ctx)
	}

	current, err := resource.New[Directory](ctx, c.urls.Services+"/"+name, c.conn,
		resource.WithLogger(c.logger),
		resource.WithInitialize(true),
	)
	if err != nil {
		return err
	}

	c.folder = name
	c.current = current
	return nil
}

// Services creates a service for each entry of the current folder.
// Entries of a kind the dispatch factory does not recognise are skipped.
func (c *Catalog) Services(ctx context.Context) ([]service.Service, error) {
	c.lock.Lock()
	current, folder := c.current, c.folder
	c.lock.Unlock()

	dir, err := current.Fields(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]service.Service, 0, len(dir.Services))
	for _, ref := range dir.Services {
		// Names of services in a folder carry the folder prefix
		name := strings.TrimPrefix(ref.Name, folder+"/")
		serviceUrl := fmt.Sprintf("%s/%s/%s", current.URL(), name, ref.Type)

		s, err := service.Create(ctx, serviceUrl,
			service.WithConnection(c.conn),
			service.WithUnknownKind(service.UnknownKindNil),
			service.WithLogger(c.logger),
		)
		if err != nil {
			return nil, err
		}
		if s == nil {
			level.Warn(c.logger).Log("msg", "skipping service of unknown type", "url", serviceUrl, "type", ref.Type)
			continue
		}

		result = append(result, s)
	}

	return result, nil
}

// CurrentVersion returns version of the server as reported by the catalog
func (c *Catalog) CurrentVersion(ctx context.Context) (float64, error) {
	dir, err := c.root.Fields(ctx)
	if err != nil {
		return 0, err
	}
	return dir.CurrentVersion, nil
}

// AtLeast reports if the server version is equal to or newer than the given one
func (c *Catalog) AtLeast(ctx context.Context, minimal string) (bool, error) {
	current, err := c.CurrentVersion(ctx)
	if err != nil {
		return false, err
	}
	return version.AtLeast(current, minimal)
}

// Info returns the site information resource of the server
func (c *Catalog) Info(ctx context.Context) (*resource.Resource[ServerInfo], error) {
	return resource.New[ServerInfo](ctx, c.urls.Rest+"/info", c.conn,
		resource.WithLogger(c.logger),
		resource.WithInitialize(true),
	)
}

// User returns the resource describing the user of the connection
func (c *Catalog) User(ctx context.Context) (*resource.Resource[User], error) {
	return resource.New[User](ctx, c.urls.Rest+"/self", c.conn,
		resource.WithLogger(c.logger),
		resource.WithInitialize(true),
	)
}

// Refresh re-fetches the current folder
func (c *Catalog) Refresh(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.current.Refresh(ctx)
}

func (c *Catalog) String() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.current.String()
}

func (c *Catalog) MarshalJSON() ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.current.MarshalJSON()
}
