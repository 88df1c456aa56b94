package rest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/martian/har"
)

// Client is an HTTP implementation of the Connection
type Client struct {
	baseUrl    *url.URL
	httpClient *http.Client

	token   string
	referer string

	logger    log.Logger
	metrics   *Metrics
	harLogger *har.Logger

	requestSeq atomic.Uint64
}

type Option func(c *Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithToken sets a token sent with every request as a `token` query parameter
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func WithReferer(referer string) Option {
	return func(c *Client) {
		c.referer = referer
	}
}

func WithLogger(logger log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithHAR records every request and response into the given HAR logger
func WithHAR(harLogger *har.Logger) Option {
	return func(c *Client) {
		c.harLogger = harLogger
	}
}

// NewClient creates a new client. Relative paths are resolved against baseUrl, which may be empty
// if only absolute URLs are used.
func NewClient(baseUrl string, options ...Option) (*Client, error) {
	result := &Client{
		httpClient: &http.Client{},
		logger:     log.NewNopLogger(),
	}

	if baseUrl != "" {
		u, err := url.Parse(baseUrl)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", baseUrl, err)
		}
		result.baseUrl = u
	}

	for _, opt := range options {
		opt(result)
	}

	return result, nil
}

// ClientConfig holds user configurable options of a Client
type ClientConfig struct {
	Token    string        `help:"Token used to authenticate requests" env:"AGS_TOKEN"`
	Referer  string        `help:"Referer header value sent with each request" env:"AGS_REFERER"`
	Timeout  time.Duration `help:"Maximum duration of a single request" default:"30s"`
	Insecure bool          `help:"Skip TLS certificate verification"`
	HAR      string        `help:"Write HAR log of all requests into the file" type:"path" name:"har"`
}

func (c ClientConfig) NewClient(baseUrl string, options ...Option) (*Client, error) {
	httpClient := &http.Client{
		Timeout: c.Timeout,
	}
	if c.Insecure {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	opts := []Option{
		WithHTTPClient(httpClient),
		WithToken(c.Token),
		WithReferer(c.Referer),
	}

	return NewClient(baseUrl, append(opts, options...)...)
}

func (c *Client) BaseURL() *url.URL {
	return c.baseUrl
}

func (c *Client) Get(ctx context.Context, apiPath string, params url.Values) (any, error) {
	target, err := c.urlFor(apiPath, c.withDefaults(params, true))
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}

	return c.doJSON(request)
}

func (c *Client) Post(ctx context.Context, apiPath string, body map[string]any, files ...File) (any, error) {
	target, err := c.urlFor(apiPath, nil)
	if err != nil {
		return nil, err
	}

	form, err := formValues(body)
	if err != nil {
		return nil, err
	}
	form = c.withDefaults(form, true)

	var (
		payload     io.Reader
		contentType string
	)
	if len(files) > 0 {
		payload, contentType, err = multipartBody(form, files)
		if err != nil {
			return nil, err
		}
	} else {
		payload = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), payload)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", contentType)

	return c.doJSON(request)
}

// Download streams content of the given resource into w, returning number of bytes written
func (c *Client) Download(ctx context.Context, apiPath string, params url.Values, w io.Writer) (int64, error) {
	target, err := c.urlFor(apiPath, c.withDefaults(params, false))
	if err != nil {
		return 0, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.do(request)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, readApiError(resp)
	}

	return io.Copy(w, resp.Body)
}

func (c *Client) withDefaults(params url.Values, asJSON bool) url.Values {
	result := url.Values{}
	for k, v := range params {
		result[k] = append([]string(nil), v...)
	}

	if asJSON {
		result.Set("f", "json")
	}
	if c.token != "" {
		result.Set("token", c.token)
	}

	return result
}

func (c *Client) do(request *http.Request) (*http.Response, error) {
	request.Header.Set("Accept", "application/json")
	if c.referer != "" {
		request.Header.Set("Referer", c.referer)
	}

	id := strconv.FormatUint(c.requestSeq.Add(1), 10)
	if c.harLogger != nil {
		if err := c.harLogger.RecordRequest(id, request); err != nil {
			level.Warn(c.logger).Log("msg", "failed to record request", "id", id, "err", err)
		}
	}

	started := time.Now()
	resp, err := c.httpClient.Do(request)
	took := time.Since(started)
	if err != nil {
		c.metrics.observe(request.Method, 0, took)
		level.Error(c.logger).Log("msg", "request failed", "method", request.Method, "url", redact(request.URL), "took", took, "err", err)
		return nil, err
	}

	c.metrics.observe(request.Method, resp.StatusCode, took)
	level.Debug(c.logger).Log("msg", "request", "method", request.Method, "url", redact(request.URL), "status", resp.StatusCode, "took", took)

	if c.harLogger != nil {
		if err := c.harLogger.RecordResponse(id, resp); err != nil {
			level.Warn(c.logger).Log("msg", "failed to record response", "id", id, "err", err)
		}
	}

	return resp, nil
}

func (c *Client) doJSON(request *http.Request) (any, error) {
	resp, err := c.do(request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readApiError(resp)
	}

	var result any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON from %s: %w", redact(request.URL), err)
	}

	if apiErr, ok := errorFromEnvelope(result); ok {
		return nil, apiErr
	}

	return result, nil
}

func readApiError(resp *http.Response) error {
	errorResponse := &ErrorResponse{
		Code:    resp.StatusCode,
		Message: resp.Status,
	}

	var value any
	if err := json.NewDecoder(resp.Body).Decode(&value); err != nil {
		// Failed to unmarshal error message, fallback to HTTP status code
		return errorResponse
	}

	if apiErr, ok := errorFromEnvelope(value); ok {
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		return apiErr
	}

	return errorResponse
}

func (c *Client) urlFor(apiPath string, query url.Values) (*url.URL, error) {
	rawQuery := ""
	if query != nil {
		rawQuery = query.Encode()
	}

	target, err := url.Parse(apiPath)
	if err != nil {
		return nil, err
	}

	if target.IsAbs() {
		if rawQuery != "" {
			merged := target.Query()
			for k, v := range query {
				merged[k] = v
			}
			target.RawQuery = merged.Encode()
		}
		return target, nil
	}

	if c.baseUrl == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoBaseURL, apiPath)
	}

	return &url.URL{
		Scheme:   c.baseUrl.Scheme,
		Opaque:   c.baseUrl.Opaque,
		User:     c.baseUrl.User,
		Host:     c.baseUrl.Host,
		Path:     path.Join(c.baseUrl.Path, target.Path),
		RawQuery: rawQuery,
	}, nil
}

// formValues encodes body as form values: strings are sent as is, everything else as JSON
func formValues(body map[string]any) (url.Values, error) {
	result := url.Values{}
	for k, v := range body {
		switch value := v.(type) {
		case nil:
			continue
		case string:
			result.Set(k, value)
		case bool:
			result.Set(k, strconv.FormatBool(value))
		case int:
			result.Set(k, strconv.Itoa(value))
		case float64:
			result.Set(k, strconv.FormatFloat(value, 'f', -1, 64))
		default:
			data, err := json.Marshal(value)
			if err != nil {
				return nil, fmt.Errorf("failed to encode parameter %q: %w", k, err)
			}
			result.Set(k, string(data))
		}
	}

	return result, nil
}

func multipartBody(form url.Values, files []File) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for k, values := range form {
		for _, v := range values {
			if err := writer.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
	}

	for _, f := range files {
		if err := writeFilePart(writer, f); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return &buf, writer.FormDataContentType(), nil
}

func writeFilePart(writer *multipart.Writer, f File) error {
	content, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("failed to open upload file: %w", err)
	}
	defer content.Close()

	filename := f.Filename
	if filename == "" {
		filename = filepath.Base(f.Path)
	}

	part, err := writer.CreateFormFile(f.Field, filename)
	if err != nil {
		return err
	}

	_, err = io.Copy(part, content)
	return err
}

// redact strips query of the URL so tokens never end up in logs
func redact(u *url.URL) string {
	stripped := *u
	stripped.RawQuery = ""
	stripped.User = nil
	return stripped.String()
}
