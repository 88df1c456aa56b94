package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/martian/har"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sre-norns/ags/pkg/rest"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestClient_GetAddsFormatAndToken(t *testing.T) {
	var gotQuery url.Values
	var gotPath string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotPath = r.URL.Path
		w.Write([]byte(`{"currentVersion": 10.91}`))
	})

	client, err := rest.NewClient(server.URL+"/arcgis/rest", rest.WithToken("secret"))
	require.NoError(t, err)

	got, err := client.Get(context.Background(), "services", url.Values{"where": []string{"1=1"}})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"currentVersion": 10.91}, got)

	require.Equal(t, "/arcgis/rest/services", gotPath)
	require.Equal(t, "json", gotQuery.Get("f"))
	require.Equal(t, "secret", gotQuery.Get("token"))
	require.Equal(t, "1=1", gotQuery.Get("where"))
}

func TestClient_GetAbsoluteURL(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/other/MapServer", r.URL.Path)
		require.Equal(t, "json", r.URL.Query().Get("f"))
		require.Equal(t, "kept", r.URL.Query().Get("extra"))
		w.Write([]byte(`[1, 2]`))
	})

	client, err := rest.NewClient("")
	require.NoError(t, err)

	got, err := client.Get(context.Background(), server.URL+"/other/MapServer?extra=kept", nil)
	require.NoError(t, err)
	require.Equal(t, []any{1.0, 2.0}, got)
}

func TestClient_RelativePathWithoutBase(t *testing.T) {
	client, err := rest.NewClient("")
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "services", nil)
	require.ErrorIs(t, err, rest.ErrNoBaseURL)
}

func TestClient_Errors(t *testing.T) {
	testCases := map[string]struct {
		status int
		body   string
		expect rest.ErrorResponse
	}{
		"error-envelope": {
			status: http.StatusOK,
			body:   `{"error":{"code":498,"message":"Invalid token.","details":["expired"]}}`,
			expect: rest.ErrorResponse{Code: 498, Message: "Invalid token.", Details: []string{"expired"}},
		},
		"http-status": {
			status: http.StatusNotFound,
			body:   `not json`,
			expect: rest.ErrorResponse{Code: 404, Message: "404 Not Found"},
		},
		"http-status-with-envelope": {
			status: http.StatusForbidden,
			body:   `{"error":{"message":"denied"}}`,
			expect: rest.ErrorResponse{Code: 403, Message: "denied"},
		},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(test.status)
				w.Write([]byte(test.body))
			})

			client, err := rest.NewClient(server.URL)
			require.NoError(t, err)

			_, err = client.Get(context.Background(), "x", nil)
			var apiErr *rest.ErrorResponse
			require.True(t, errors.As(err, &apiErr), "expected ErrorResponse, got: %v", err)
			require.Equal(t, test.expect, *apiErr)
		})
	}
}

func TestClient_PostForm(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.Equal(t, "https://example.com/app", r.Header.Get("Referer"))
		require.NoError(t, r.ParseForm())

		require.Equal(t, "json", r.PostForm.Get("f"))
		require.Equal(t, "READ_ONLY", r.PostForm.Get("siteMode"))
		require.Equal(t, "true", r.PostForm.Get("runAsync"))
		require.Equal(t, "4326", r.PostForm.Get("outSR"))
		require.JSONEq(t, `{"wkid":3857}`, r.PostForm.Get("inSR"))
		require.False(t, r.PostForm.Has("skipped"))

		w.Write([]byte(`{"status":"success"}`))
	})

	client, err := rest.NewClient(server.URL, rest.WithReferer("https://example.com/app"))
	require.NoError(t, err)

	got, err := client.Post(context.Background(), "admin/mode/update", map[string]any{
		"siteMode": "READ_ONLY",
		"runAsync": true,
		"outSR":    4326,
		"inSR":     map[string]any{"wkid": 3857},
		"skipped":  nil,
	})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"status": "success"}, got)
}

func TestClient_PostMultipart(t *testing.T) {
	dir := t.TempDir()
	uploadPath := filepath.Join(dir, "data.zip")
	require.NoError(t, os.WriteFile(uploadPath, []byte("zip-content"), 0o600))

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "json", r.FormValue("f"))
		require.Equal(t, "shapes", r.FormValue("description"))

		file, header, err := r.FormFile("itemFile")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "upload.zip", header.Filename)

		content, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "zip-content", string(content))

		w.Write([]byte(`{"status":"success","item":{"itemID":"i1"}}`))
	})

	client, err := rest.NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.Post(context.Background(), "uploads/upload", map[string]any{"description": "shapes"},
		rest.File{Field: "itemFile", Path: uploadPath, Filename: "upload.zip"})
	require.NoError(t, err)
}

func TestClient_Download(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.False(t, r.URL.Query().Has("f"))
		require.Equal(t, "t0k", r.URL.Query().Get("token"))
		w.Write([]byte("binary-content"))
	})

	client, err := rest.NewClient(server.URL, rest.WithToken("t0k"))
	require.NoError(t, err)

	var buf strings.Builder
	n, err := client.Download(context.Background(), "data/file.zip", nil, &buf)
	require.NoError(t, err)
	require.EqualValues(t, len("binary-content"), n)
	require.Equal(t, "binary-content", buf.String())
}

func TestClient_MetricsAndHAR(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	registry := prometheus.NewRegistry()
	metrics, err := rest.NewMetrics(registry)
	require.NoError(t, err)

	// Second registration reuses already registered collectors
	again, err := rest.NewMetrics(registry)
	require.NoError(t, err)
	require.NotNil(t, again)

	harLogger := har.NewLogger()
	client, err := rest.NewClient(server.URL, rest.WithMetrics(metrics), rest.WithHAR(harLogger))
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "a", nil)
	require.NoError(t, err)
	_, err = client.Post(context.Background(), "b", nil)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(registry, "ags_client_requests_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	exported := harLogger.Export()
	require.Len(t, exported.Log.Entries, 2)
}

func TestClientConfig_NewClient(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "cfg-token", r.URL.Query().Get("token"))
		w.Write([]byte(`{}`))
	})

	client, err := rest.ClientConfig{Token: "cfg-token"}.NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "info", nil)
	require.NoError(t, err)
}
