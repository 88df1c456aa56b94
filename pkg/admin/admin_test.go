package admin_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/sre-norns/ags/pkg/admin"
	"github.com/sre-norns/ags/pkg/resource"
	"github.com/sre-norns/ags/pkg/rest"
	"github.com/sre-norns/ags/pkg/rest/resttest"
	"github.com/stretchr/testify/require"
)

const adminUrl = "https://gis.example.com/arcgis/admin"

func TestNew(t *testing.T) {
	testCases := map[string]struct {
		given  string
		expect string
	}{
		"admin":           {given: adminUrl, expect: adminUrl},
		"admin-slash":     {given: adminUrl + "/", expect: adminUrl},
		"instance":        {given: "https://gis.example.com/arcgis", expect: adminUrl},
		"admin-uppercase": {given: "https://gis.example.com/arcgis/ADMIN", expect: "https://gis.example.com/arcgis/ADMIN"},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			site, err := admin.New(context.Background(), test.given, resttest.New(nil))
			require.NoError(t, err)
			require.Equal(t, test.expect, site.URL())
			require.False(t, site.Materialized())
		})
	}

	_, err := admin.New(context.Background(), adminUrl, nil)
	require.ErrorIs(t, err, resource.ErrInvalidConnection)
}

func TestSite(t *testing.T) {
	conn := resttest.New(map[string]any{
		adminUrl: map[string]any{
			"currentVersion": 10.91,
			"fullVersion":    "10.9.1",
			"acceptLanguage": nil,
			"resources":      []any{"machines", "clusters", "services", "info", "mode"},
		},
	})

	site, err := admin.New(context.Background(), adminUrl, conn, admin.WithInitialize(true))
	require.NoError(t, err)
	require.Len(t, conn.Calls(), 1)
	require.Equal(t, rest.MethodGet, conn.Calls()[0].Method)

	current, err := site.CurrentVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10.91, current)

	full, err := site.FullVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, "10.9.1", full)

	resources, err := site.Resources(context.Background())
	require.NoError(t, err)
	require.Contains(t, resources, "mode")

	testCases := map[string]struct {
		minimal string
		expect  bool
	}{
		"older": {minimal: "10.8", expect: true},
		"same":  {minimal: "10.9.1", expect: true},
		"newer": {minimal: "11.0", expect: false},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			ok, err := site.SupportsVersion(context.Background(), test.minimal)
			require.NoError(t, err)
			require.Equal(t, test.expect, ok)
		})
	}

	require.Len(t, conn.Calls(), 1)
}

func TestInfo(t *testing.T) {
	conn := resttest.New(map[string]any{
		adminUrl + "/info": map[string]any{
			"fullVersion":           "11.1.0",
			"currentBuild":          "41500",
			"loggedInUser":          "siteadmin",
			"loggedInUserPrivilege": "ADMINISTER",
			"timezone":              map[string]any{"olsonZone": "UTC"},
		},
		adminUrl + "/info/healthCheck":           map[string]any{"success": true},
		adminUrl + "/info/getAvailableTimeZones": map[string]any{"timezones": []any{"UTC"}},
	})

	site, err := admin.New(context.Background(), adminUrl, conn)
	require.NoError(t, err)

	info, err := site.Info(context.Background())
	require.NoError(t, err)
	require.Equal(t, adminUrl+"/info", info.URL())

	fields, err := info.Fields(context.Background())
	require.NoError(t, err)
	require.Equal(t, "siteadmin", fields.LoggedInUser)
	require.Equal(t, "UTC", fields.TimeZone["olsonZone"])

	health, err := info.HealthCheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, true, health["success"])

	zones, err := info.TimeZones(context.Background())
	require.NoError(t, err)
	require.Equal(t, []any{"UTC"}, zones["timezones"])

	conn.Respond(adminUrl+"/info/healthCheck", map[string]any{"success": false, "messages": []any{"site is being created"}})
	health, err = info.HealthCheck(context.Background())
	require.ErrorIs(t, err, admin.ErrUnhealthy)
	require.NotNil(t, health["messages"])

	conn.Respond(adminUrl+"/info/healthCheck", fmt.Errorf("connection refused"))
	_, err = info.HealthCheck(context.Background())
	require.Error(t, err)
}

func TestMode_Update(t *testing.T) {
	mode := "EDITABLE"
	var updates []resttest.Call

	conn := resttest.New(map[string]any{
		adminUrl + "/mode": resttest.Responder(func(call resttest.Call) (any, error) {
			return map[string]any{"siteMode": mode, "copyConfigLocal": false, "lastModified": 1700000000000.0}, nil
		}),
		adminUrl + "/mode/update": resttest.Responder(func(call resttest.Call) (any, error) {
			updates = append(updates, call)
			mode = call.Body["siteMode"].(string)
			return map[string]any{"status": "success"}, nil
		}),
	})

	site, err := admin.New(context.Background(), adminUrl, conn)
	require.NoError(t, err)

	m, err := site.Mode(context.Background())
	require.NoError(t, err)

	fields, err := m.Fields(context.Background())
	require.NoError(t, err)
	require.Equal(t, admin.SiteModeEditable, fields.SiteMode)
	require.Equal(t, int64(1700000000000), fields.LastModified)

	result, err := m.Update(context.Background(), "read_only", true)
	require.NoError(t, err)
	require.Equal(t, "success", result["status"])
	require.Len(t, updates, 1)
	require.Equal(t, map[string]any{"siteMode": "READ_ONLY", "runAsync": true}, updates[0].Body)

	fields, err = m.Fields(context.Background())
	require.NoError(t, err)
	require.Equal(t, admin.SiteModeReadOnly, fields.SiteMode)

	_, err = m.Update(context.Background(), "FROZEN", false)
	require.ErrorIs(t, err, admin.ErrInvalidSiteMode)
	require.Len(t, updates, 1)
}
