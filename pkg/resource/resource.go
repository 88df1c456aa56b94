package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/sre-norns/ags/pkg/rest"
)

var (
	ErrRemoteResponse    = fmt.Errorf("remote response is not a JSON object")
	ErrInvalidConnection = fmt.Errorf("invalid connection")
	ErrUnknownAttribute  = fmt.Errorf("unknown attribute")
)

// Resource is a lazily fetched client side mirror of a remote JSON object.
// Keys of the payload declared by the schema type T are decoded into T,
// all other keys are kept in an extra map.
type Resource[T any] struct {
	lock sync.Mutex

	url    string
	conn   rest.Connection
	method rest.Method
	params url.Values
	logger log.Logger

	raw          map[string]any
	fields       T
	extra        map[string]any
	materialized bool
}

type options struct {
	initialize bool
	method     rest.Method
	params     url.Values
	logger     log.Logger
}

type Option func(opts *options)

// WithInitialize fetches the resource as part of its construction
func WithInitialize(initialize bool) Option {
	return func(opts *options) {
		opts.initialize = initialize
	}
}

func WithMethod(method rest.Method) Option {
	return func(opts *options) {
		opts.method = method
	}
}

// WithParams sets extra parameters sent with each fetch request
func WithParams(params url.Values) Option {
	return func(opts *options) {
		opts.params = params
	}
}

func WithLogger(logger log.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

func New[T any](ctx context.Context, resourceUrl string, conn rest.Connection, opts ...Option) (*Resource[T], error) {
	config := options{
		method: rest.MethodGet,
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(&config)
	}

	result := &Resource[T]{
		url:    resourceUrl,
		conn:   conn,
		method: config.method,
		params: config.params,
		logger: config.logger,
	}

	if config.initialize {
		if err := result.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (r *Resource[T]) URL() string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.url
}

func (r *Resource[T]) Connection() rest.Connection {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.conn
}

func (r *Resource[T]) Materialized() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.materialized
}

// Fetch loads resource payload using the given connection, or the stored one if conn is nil
func (r *Resource[T]) Fetch(ctx context.Context, conn rest.Connection) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.fetch(ctx, conn)
}

// Refresh re-fetches resource payload using the stored connection
func (r *Resource[T]) Refresh(ctx context.Context) error {
	return r.Fetch(ctx, nil)
}

// SetURL changes identity of the resource and re-fetches it
func (r *Resource[T]) SetURL(ctx context.Context, resourceUrl string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.url = resourceUrl
	r.invalidate()
	return r.fetch(ctx, nil)
}

// SetConnection swaps connection of the resource and re-fetches it.
// Nil connection is rejected before any state changes.
func (r *Resource[T]) SetConnection(ctx context.Context, conn rest.Connection) error {
	if conn == nil || reflect.ValueOf(conn).Kind() == reflect.Pointer && reflect.ValueOf(conn).IsNil() {
		return ErrInvalidConnection
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	r.conn = conn
	r.invalidate()
	return r.fetch(ctx, nil)
}

// Get returns value of a declared or an extra field, fetching the resource first if needed
func (r *Resource[T]) Get(ctx context.Context, name string) (any, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.ensureMaterialized(ctx); err != nil {
		return nil, err
	}

	if value, ok := r.extra[name]; ok {
		return value, nil
	}
	if value, ok := schemaOf(reflect.TypeOf((*T)(nil)).Elem()).value(r.fields, name); ok {
		return value, nil
	}

	return nil, fmt.Errorf("%w: %q of %s", ErrUnknownAttribute, name, r.url)
}

// Fields returns declared fields of the resource
func (r *Resource[T]) Fields(ctx context.Context) (T, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.ensureMaterialized(ctx); err != nil {
		var empty T
		return empty, err
	}

	return r.fields, nil
}

// Extra returns a copy of the payload keys not declared by the resource schema
func (r *Resource[T]) Extra(ctx context.Context) (map[string]any, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.ensureMaterialized(ctx); err != nil {
		return nil, err
	}

	return copyMap(r.extra), nil
}

// Raw returns a copy of the last fetched payload
func (r *Resource[T]) Raw(ctx context.Context) (map[string]any, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.ensureMaterialized(ctx); err != nil {
		return nil, err
	}

	return copyMap(r.raw), nil
}

func (r *Resource[T]) String() string {
	data, err := r.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(data)
}

// MarshalJSON encodes the raw payload, an absent payload is encoded as an empty object
func (r *Resource[T]) MarshalJSON() ([]byte, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.ensureMaterialized(context.Background()); err != nil {
		level.Warn(r.logger).Log("msg", "failed to fetch resource", "url", r.url, "err", err)
	}

	if r.raw == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(r.raw)
}

func (r *Resource[T]) MarshalYAML() (interface{}, error) {
	raw, err := r.Raw(context.Background())
	if err != nil || raw == nil {
		return map[string]any{}, nil
	}
	return raw, nil
}

func (r *Resource[T]) invalidate() {
	var empty T
	r.raw = nil
	r.fields = empty
	r.extra = nil
	r.materialized = false
}

func (r *Resource[T]) ensureMaterialized(ctx context.Context) error {
	if r.materialized {
		return nil
	}
	return r.fetch(ctx, nil)
}

func (r *Resource[T]) fetch(ctx context.Context, conn rest.Connection) error {
	if conn == nil {
		conn = r.conn
	}
	if conn == nil {
		return fmt.Errorf("%w: no connection to fetch %q", ErrInvalidConnection, r.url)
	}

	var (
		value any
		err   error
	)
	switch r.method {
	case rest.MethodPost:
		value, err = conn.Post(ctx, r.url, paramsBody(r.params))
	default:
		value, err = conn.Get(ctx, r.url, r.params)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch %q: %w", r.url, err)
	}

	payload, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: %q returned %T", ErrRemoteResponse, r.url, value)
	}

	fields, extra, mismatched := split[T](payload)
	if len(mismatched) > 0 {
		level.Debug(r.logger).Log("msg", "declared fields kept as extra", "url", r.url, "fields", fmt.Sprint(mismatched))
	}

	r.raw = payload
	r.fields = fields
	r.extra = extra
	r.materialized = true
	level.Debug(r.logger).Log("msg", "resource fetched", "url", r.url, "method", r.method, "keys", len(payload))

	return nil
}

func paramsBody(params url.Values) map[string]any {
	if len(params) == 0 {
		return nil
	}

	result := make(map[string]any, len(params))
	for k := range params {
		result[k] = params.Get(k)
	}
	return result
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}
