package service

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/sre-norns/ags/pkg/resource"
	"github.com/sre-norns/ags/pkg/rest"
)

var (
	ErrUnrecognizedResourceKind = fmt.Errorf("unrecognized resource kind")
	ErrMissingURL               = fmt.Errorf("either an item or a URL must be provided")
	ErrMissingConnection        = fmt.Errorf("a connection is required to access the service")
	ErrNilConstructor           = fmt.Errorf("service constructor is nil")
	ErrKindRegistered           = fmt.Errorf("resource kind is already registered")
)

// Service is a remote ArcGIS Server resource created by the dispatch factory
type Service interface {
	Kind() Kind
	URL() string
	Connection() rest.Connection
	Materialized() bool
	Refresh(ctx context.Context) error
	Get(ctx context.Context, name string) (any, error)
	Raw(ctx context.Context) (map[string]any, error)
	String() string
}

// Constructor creates a service for the given URL
type Constructor func(ctx context.Context, serviceUrl string, conn rest.Connection, opts ...resource.Option) (Service, error)

type KindRegistration struct {
	// Constructor of the service resource addressed by the URL
	Service Constructor

	// Optional constructor used when URL addresses a numbered sub-layer of the service
	Layer Constructor
}

type kindEntry struct {
	tag string
	KindRegistration
}

// Registrar of resource kinds, order of registration is the order of matching
var (
	kindsLock sync.RWMutex
	kinds     []kindEntry
)

// RegisterKind adds new resource kind identified by the trailing segment of a URL, compared case-insensitively
func RegisterKind(tag string, info KindRegistration) error {
	if info.Service == nil {
		return ErrNilConstructor
	}

	tag = strings.ToLower(tag)

	kindsLock.Lock()
	defer kindsLock.Unlock()

	for _, entry := range kinds {
		if entry.tag == tag {
			return fmt.Errorf("%w: %q", ErrKindRegistered, tag)
		}
	}

	kinds = append(kinds, kindEntry{tag: tag, KindRegistration: info})
	return nil
}

func UnregisterKind(tag string) {
	tag = strings.ToLower(tag)

	kindsLock.Lock()
	defer kindsLock.Unlock()

	for i, entry := range kinds {
		if entry.tag == tag {
			kinds = append(kinds[:i:i], kinds[i+1:]...)
			return
		}
	}
}

// ListKinds returns tags of all registered resource kinds in matching order
func ListKinds() []string {
	kindsLock.RLock()
	defer kindsLock.RUnlock()

	result := make([]string, 0, len(kinds))
	for _, entry := range kinds {
		result = append(result, entry.tag)
	}
	return result
}

func findKind(tag string) (KindRegistration, bool) {
	kindsLock.RLock()
	defer kindsLock.RUnlock()

	for _, entry := range kinds {
		if entry.tag == tag {
			return entry.KindRegistration, true
		}
	}
	return KindRegistration{}, false
}

// Discriminant extracts resource kind tag from a URL.
// A numeric trailing segment addresses a layer, in which case the parent segment is the tag.
func Discriminant(serviceUrl string) (tag string, layer bool) {
	p := serviceUrl
	if u, err := url.Parse(serviceUrl); err == nil {
		p = u.Path
	}

	p = strings.TrimRight(p, "/")
	base := path.Base(p)
	if isNumeric(base) {
		layer = true
		base = path.Base(path.Dir(p))
	}

	return strings.ToLower(base), layer
}

func isNumeric(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// UnknownKindPolicy controls result of Create for URLs of unrecognized kind
type UnknownKindPolicy int

const (
	// UnknownKindError returns ErrUnrecognizedResourceKind
	UnknownKindError UnknownKindPolicy = iota
	// UnknownKindNil returns nil service and no error
	UnknownKindNil
)

// Item is a portal item that references a service
type Item struct {
	ID         string
	Title      string
	Type       string
	URL        string
	Connection rest.Connection
}

// GIS is a portal providing connection to the services it hosts
type GIS interface {
	Connection() rest.Connection
}

type options struct {
	conn       rest.Connection
	item       *Item
	gis        GIS
	initialize bool
	unknown    UnknownKindPolicy
	logger     log.Logger
}

type Option func(opts *options)

func WithConnection(conn rest.Connection) Option {
	return func(opts *options) {
		opts.conn = conn
	}
}

// WithItem provides URL and connection from a portal item when not given explicitly
func WithItem(item Item) Option {
	return func(opts *options) {
		opts.item = &item
	}
}

// WithGIS provides connection from a portal when not given explicitly
func WithGIS(gis GIS) Option {
	return func(opts *options) {
		opts.gis = gis
	}
}

// WithInitialize fetches service properties as part of its creation
func WithInitialize(initialize bool) Option {
	return func(opts *options) {
		opts.initialize = initialize
	}
}

func WithUnknownKind(policy UnknownKindPolicy) Option {
	return func(opts *options) {
		opts.unknown = policy
	}
}

func WithLogger(logger log.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// Create picks concrete service kind from the URL and creates it
func Create(ctx context.Context, serviceUrl string, opts ...Option) (Service, error) {
	config := options{
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(&config)
	}

	conn := config.conn
	if config.item != nil {
		if serviceUrl == "" {
			serviceUrl = config.item.URL
		}
		if conn == nil {
			conn = config.item.Connection
		}
	}
	if conn == nil && config.gis != nil {
		conn = config.gis.Connection()
	}

	if serviceUrl == "" {
		return nil, ErrMissingURL
	}
	if conn == nil {
		return nil, ErrMissingConnection
	}

	tag, layer := Discriminant(serviceUrl)
	info, ok := findKind(tag)
	if !ok {
		level.Debug(config.logger).Log("msg", "unrecognized resource kind", "url", serviceUrl, "tag", tag)
		if config.unknown == UnknownKindNil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %q in %q", ErrUnrecognizedResourceKind, tag, serviceUrl)
	}

	ctor := info.Service
	if layer && info.Layer != nil {
		ctor = info.Layer
	}

	return ctor(ctx, serviceUrl, conn,
		resource.WithInitialize(config.initialize),
		resource.WithLogger(config.logger),
	)
}
