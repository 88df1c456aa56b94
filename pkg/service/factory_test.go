package service_test

import (
	"context"
	"testing"

	"github.com/sre-norns/ags/pkg/resource"
	"github.com/sre-norns/ags/pkg/rest"
	"github.com/sre-norns/ags/pkg/rest/resttest"
	"github.com/sre-norns/ags/pkg/service"
	"github.com/stretchr/testify/require"
)

const root = "https://example.com/arcgis/rest/services"

func TestDiscriminant(t *testing.T) {
	testCases := map[string]struct {
		given       string
		expectTag   string
		expectLayer bool
	}{
		"service":         {given: root + "/Census/MapServer", expectTag: "mapserver"},
		"trailing-slash":  {given: root + "/Census/MapServer/", expectTag: "mapserver"},
		"layer":           {given: root + "/Census/MapServer/3", expectTag: "mapserver", expectLayer: true},
		"layer-slash":     {given: root + "/Census/FeatureServer/12/", expectTag: "featureserver", expectLayer: true},
		"query-string":    {given: root + "/Tools/GPServer?token=abc", expectTag: "gpserver"},
		"mixed-case":      {given: root + "/Utilities/Geometry/GeometryServer", expectTag: "geometryserver"},
		"relative":        {given: "Hosted/Trees/FeatureServer/0", expectTag: "featureserver", expectLayer: true},
		"not-a-service":   {given: root, expectTag: "services"},
		"numeric-service": {given: root + "/2024", expectTag: "services", expectLayer: true},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			tag, layer := service.Discriminant(test.given)
			require.Equal(t, test.expectTag, tag)
			require.Equal(t, test.expectLayer, layer)
		})
	}
}

func TestCreate_Kinds(t *testing.T) {
	testCases := map[string]struct {
		url    string
		expect service.Kind
	}{
		"map-service":        {url: root + "/Census/MapServer", expect: service.KindMapService},
		"map-layer":          {url: root + "/Census/MapServer/0", expect: service.KindFeatureLayer},
		"feature-service":    {url: root + "/Trees/FeatureServer", expect: service.KindFeatureService},
		"feature-layer":      {url: root + "/Trees/FeatureServer/1", expect: service.KindFeatureLayer},
		"image-service":      {url: root + "/Elevation/ImageServer", expect: service.KindImageService},
		"image-service-num":  {url: root + "/Elevation/ImageServer/1", expect: service.KindImageService},
		"gp-service":         {url: root + "/Hotspot/GPServer", expect: service.KindGPService},
		"geometry-service":   {url: root + "/Utilities/Geometry/GeometryServer", expect: service.KindGeometryService},
		"mobile-service":     {url: root + "/Field/MobileServer", expect: service.KindMobileService},
		"geocode-service":    {url: root + "/World/GeocodeServer", expect: service.KindGeocodeService},
		"globe-service":      {url: root + "/Earth/GlobeServer", expect: service.KindGlobeService},
		"globe-layer":        {url: root + "/Earth/GlobeServer/2", expect: service.KindGlobeLayer},
		"geodata-service":    {url: root + "/Parcels/GeoDataServer", expect: service.KindGeoDataService},
		"network-service":    {url: root + "/Streets/NAServer", expect: service.KindNetworkService},
		"scene-service":      {url: root + "/Buildings/SceneServer", expect: service.KindSceneService},
		"schematics-service": {url: root + "/Grid/SchematicsServer", expect: service.KindSchematicsService},
		"vector-tiles":       {url: root + "/Basemap/VectorTileServer", expect: service.KindVectorTileService},
		"lower-case":         {url: root + "/Census/mapserver", expect: service.KindMapService},
		"upper-case":         {url: root + "/Census/MAPSERVER/4", expect: service.KindFeatureLayer},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			conn := resttest.New(nil)

			s, err := service.Create(context.Background(), test.url, service.WithConnection(conn))
			require.NoError(t, err)
			require.Equal(t, test.expect, s.Kind())
			require.Equal(t, test.url, s.URL())
			require.False(t, s.Materialized())
			require.Empty(t, conn.Calls())
		})
	}
}

func TestCreate_ConcreteTypes(t *testing.T) {
	conn := resttest.New(nil)
	ctx := context.Background()

	s, err := service.Create(ctx, root+"/Census/MapServer", service.WithConnection(conn))
	require.NoError(t, err)
	require.IsType(t, &service.MapService{}, s)

	s, err = service.Create(ctx, root+"/Census/MapServer/1", service.WithConnection(conn))
	require.NoError(t, err)
	require.IsType(t, &service.FeatureLayer{}, s)

	s, err = service.Create(ctx, root+"/Earth/GlobeServer/0", service.WithConnection(conn))
	require.NoError(t, err)
	require.IsType(t, &service.GlobeLayer{}, s)
}

func TestCreate_UnknownKind(t *testing.T) {
	conn := resttest.New(nil)
	ctx := context.Background()

	_, err := service.Create(ctx, root+"/Census/TeleportServer", service.WithConnection(conn))
	require.ErrorIs(t, err, service.ErrUnrecognizedResourceKind)

	s, err := service.Create(ctx, root+"/Census/TeleportServer",
		service.WithConnection(conn),
		service.WithUnknownKind(service.UnknownKindNil),
	)
	require.NoError(t, err)
	require.Nil(t, s)
	require.Empty(t, conn.Calls())
}

func TestCreate_Initialize(t *testing.T) {
	serviceUrl := root + "/Census/MapServer"
	conn := resttest.New(map[string]any{
		serviceUrl: map[string]any{
			"currentVersion": 10.91,
			"mapName":        "Layers",
			"layers":         []any{map[string]any{"id": 0.0, "name": "Cities"}},
			"documentInfo":   map[string]any{"Title": "Census"},
		},
	})

	s, err := service.Create(context.Background(), serviceUrl, service.WithConnection(conn), service.WithInitialize(true))
	require.NoError(t, err)
	require.True(t, s.Materialized())

	calls := conn.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, rest.MethodPost, calls[0].Method)

	mapService := s.(*service.MapService)
	info, err := mapService.Fields(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Layers", info.MapName)
	require.Equal(t, []service.LayerInfo{{ID: 0, Name: "Cities"}}, info.Layers)

	documentInfo, err := s.Get(context.Background(), "documentInfo")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"Title": "Census"}, documentInfo)
	require.Len(t, conn.Calls(), 1)
}

type portal struct {
	conn rest.Connection
}

func (p portal) Connection() rest.Connection {
	return p.conn
}

func TestCreate_Sources(t *testing.T) {
	serviceUrl := root + "/Trees/FeatureServer"
	itemConn := resttest.New(nil)
	gisConn := resttest.New(nil)
	explicitConn := resttest.New(nil)

	testCases := map[string]struct {
		url         string
		options     []service.Option
		expectConn  rest.Connection
		expectError error
	}{
		"item-url-and-connection": {
			options:    []service.Option{service.WithItem(service.Item{ID: "abc", URL: serviceUrl, Connection: itemConn})},
			expectConn: itemConn,
		},
		"explicit-connection-wins": {
			url: serviceUrl,
			options: []service.Option{
				service.WithItem(service.Item{Connection: itemConn}),
				service.WithConnection(explicitConn),
			},
			expectConn: explicitConn,
		},
		"gis-connection": {
			url:        serviceUrl,
			options:    []service.Option{service.WithGIS(portal{conn: gisConn})},
			expectConn: gisConn,
		},
		"item-before-gis": {
			options: []service.Option{
				service.WithGIS(portal{conn: gisConn}),
				service.WithItem(service.Item{URL: serviceUrl, Connection: itemConn}),
			},
			expectConn: itemConn,
		},
		"no-url": {
			options:     []service.Option{service.WithConnection(explicitConn)},
			expectError: service.ErrMissingURL,
		},
		"no-connection": {
			url:         serviceUrl,
			expectError: service.ErrMissingConnection,
		},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			s, err := service.Create(context.Background(), test.url, test.options...)
			if test.expectError != nil {
				require.ErrorIs(t, err, test.expectError)
				return
			}

			require.NoError(t, err)
			require.Equal(t, serviceUrl, s.URL())
			require.Same(t, test.expectConn, s.Connection())
		})
	}
}

type tileInfo struct {
	Format string `json:"format"`
}

type tileService struct {
	*resource.Resource[tileInfo]
}

func (*tileService) Kind() service.Kind { return "TileService" }

func TestRegisterKind(t *testing.T) {
	ctor := func(ctx context.Context, serviceUrl string, conn rest.Connection, opts ...resource.Option) (service.Service, error) {
		r, err := resource.New[tileInfo](ctx, serviceUrl, conn, opts...)
		if err != nil {
			return nil, err
		}
		return &tileService{r}, nil
	}

	require.ErrorIs(t, service.RegisterKind("TileServer", service.KindRegistration{}), service.ErrNilConstructor)
	require.NoError(t, service.RegisterKind("TileServer", service.KindRegistration{Service: ctor}))
	t.Cleanup(func() { service.UnregisterKind("tileserver") })

	require.ErrorIs(t, service.RegisterKind("tileserver", service.KindRegistration{Service: ctor}), service.ErrKindRegistered)
	require.ErrorIs(t, service.RegisterKind("MapServer", service.KindRegistration{Service: ctor}), service.ErrKindRegistered)

	kinds := service.ListKinds()
	require.Equal(t, "mapserver", kinds[0])
	require.Equal(t, "tileserver", kinds[len(kinds)-1])

	s, err := service.Create(context.Background(), root+"/Tiles/TileServer/7", service.WithConnection(resttest.New(nil)))
	require.NoError(t, err)
	require.Equal(t, service.Kind("TileService"), s.Kind())
}

func TestListKinds(t *testing.T) {
	require.Equal(t, []string{
		"mapserver", "featureserver", "imageserver", "gpserver", "geometryserver", "mobileserver", "geocodeserver",
		"globeserver", "geodataserver", "naserver", "sceneserver", "schematicsserver", "vectortileserver",
	}, service.ListKinds()[:13])
}
