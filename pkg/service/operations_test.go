package service_test

import (
	"context"
	"testing"

	"github.com/sre-norns/ags/pkg/geom"
	"github.com/sre-norns/ags/pkg/resource"
	"github.com/sre-norns/ags/pkg/rest/resttest"
	"github.com/sre-norns/ags/pkg/service"
	"github.com/stretchr/testify/require"
)

const layerUrl = root + "/Trees/FeatureServer/0"

func newLayer(t *testing.T, conn *resttest.Connection) *service.FeatureLayer {
	t.Helper()

	s, err := service.Create(context.Background(), layerUrl, service.WithConnection(conn))
	require.NoError(t, err)
	require.IsType(t, &service.FeatureLayer{}, s)
	return s.(*service.FeatureLayer)
}

func TestFeatureLayer_Query(t *testing.T) {
	var got resttest.Call
	conn := resttest.New(map[string]any{
		layerUrl + "/query": resttest.Responder(func(call resttest.Call) (any, error) {
			got = call
			return map[string]any{
				"objectIdFieldName": "OBJECTID",
				"geometryType":      "esriGeometryPoint",
				"spatialReference":  map[string]any{"wkid": 4326.0},
				"fields": []any{
					map[string]any{"name": "OBJECTID", "type": "esriFieldTypeOID"},
				},
				"features": []any{
					map[string]any{"geometry": map[string]any{"x": 1.0, "y": 2.0}, "attributes": map[string]any{"OBJECTID": 1.0}},
					map[string]any{"geometry": map[string]any{"x": 3.0, "y": 4.0}, "attributes": map[string]any{"OBJECTID": 2.0}},
				},
			}, nil
		}),
	})

	layer := newLayer(t, conn)
	area := geom.NewEnvelope(0, 0, 5, 5, geom.WithSpatialReference(geom.NewSpatialReference(4326)))

	fs, err := layer.Query(context.Background(), service.Query{
		Where:         "HEIGHT > 10",
		OutFields:     []string{"OBJECTID", "HEIGHT"},
		Geometry:      area,
		OutSR:         3857,
		OrderByFields: []string{"HEIGHT DESC"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, fs.Len())
	require.Equal(t, geom.GeometryPoint, fs.GeometryType())
	require.Equal(t, "OBJECTID", fs.ObjectIdFieldName())

	require.Equal(t, map[string]any{
		"where":          "HEIGHT > 10",
		"outFields":      "OBJECTID,HEIGHT",
		"returnGeometry": true,
		"geometry":       area.Map(),
		"geometryType":   "esriGeometryEnvelope",
		"inSR":           map[string]any{"wkid": 4326},
		"spatialRel":     "esriSpatialRelIntersects",
		"outSR":          3857,
		"orderByFields":  "HEIGHT DESC",
	}, got.Body)

	// Query does not need layer properties
	require.Len(t, conn.Calls(), 1)
}

func TestFeatureLayer_QueryEmptyResult(t *testing.T) {
	conn := resttest.New(map[string]any{
		layerUrl: map[string]any{
			"id":           0.0,
			"name":         "Trees",
			"geometryType": "esriGeometryPoint",
		},
		layerUrl + "/query": map[string]any{"features": []any{}},
	})

	fs, err := newLayer(t, conn).Query(context.Background(), service.Query{ObjectIDs: []int{7, 9}, NoGeometry: true})
	require.NoError(t, err)
	require.Zero(t, fs.Len())
	require.Equal(t, geom.GeometryPoint, fs.GeometryType())

	calls := conn.Calls()
	require.Len(t, calls, 2)
	require.Equal(t, "7,9", calls[0].Body["objectIds"])
	require.Equal(t, false, calls[0].Body["returnGeometry"])
}

func TestFeatureLayer_QueryEmptyTable(t *testing.T) {
	testCases := map[string]struct {
		layer map[string]any
	}{
		"table":            {layer: map[string]any{"id": 3.0, "name": "Inspections", "type": "Table"}},
		"no-geometry-type": {layer: map[string]any{"id": 3.0, "name": "Inspections"}},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			conn := resttest.New(map[string]any{
				layerUrl:            test.layer,
				layerUrl + "/query": map[string]any{"features": []any{}},
			})

			fs, err := newLayer(t, conn).Query(context.Background(), service.Query{Where: "1=0"})
			require.NoError(t, err)
			require.Zero(t, fs.Len())
			require.True(t, fs.IsTable())
			require.Empty(t, fs.GeometryType())
		})
	}
}

func TestFeatureLayer_Count(t *testing.T) {
	conn := resttest.New(map[string]any{
		layerUrl + "/query": resttest.Responder(func(call resttest.Call) (any, error) {
			require.Equal(t, true, call.Body["returnCountOnly"])
			require.Equal(t, "1=1", call.Body["where"])
			return map[string]any{"count": 42.0}, nil
		}),
	})

	count, err := newLayer(t, conn).Count(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 42, count)

	conn.Respond(layerUrl+"/query", map[string]any{"error": "nope"})
	_, err = newLayer(t, conn).Count(context.Background(), "")
	require.ErrorIs(t, err, resource.ErrRemoteResponse)
}

func TestMapService_Layers(t *testing.T) {
	serviceUrl := root + "/Census/MapServer"
	conn := resttest.New(map[string]any{
		serviceUrl: map[string]any{
			"layers": []any{map[string]any{"id": 0.0, "name": "Cities"}, map[string]any{"id": 1.0, "name": "States"}},
			"tables": []any{map[string]any{"id": 5.0, "name": "Counts"}},
		},
	})

	s, err := service.Create(context.Background(), serviceUrl, service.WithConnection(conn))
	require.NoError(t, err)

	layers, err := s.(*service.MapService).Layers(context.Background())
	require.NoError(t, err)
	require.Len(t, layers, 3)

	urls := make([]string, 0, len(layers))
	for _, layer := range layers {
		require.Equal(t, service.KindFeatureLayer, layer.Kind())
		require.Same(t, conn, layer.Connection())
		urls = append(urls, layer.URL())
	}
	require.Equal(t, []string{serviceUrl + "/0", serviceUrl + "/1", serviceUrl + "/5"}, urls)
}

func TestFeatureService_Layers(t *testing.T) {
	serviceUrl := root + "/Trees/FeatureServer"
	conn := resttest.New(map[string]any{
		serviceUrl: map[string]any{"layers": []any{map[string]any{"id": 0.0, "name": "Trees"}}},
	})

	s, err := service.Create(context.Background(), serviceUrl, service.WithConnection(conn))
	require.NoError(t, err)

	layers, err := s.(*service.FeatureService).Layers(context.Background())
	require.NoError(t, err)
	require.Len(t, layers, 1)
	require.Equal(t, serviceUrl+"/0", layers[0].URL())
}

const geometryUrl = root + "/Utilities/Geometry/GeometryServer"

func newGeometryService(t *testing.T, conn *resttest.Connection) *service.GeometryService {
	t.Helper()

	s, err := service.Create(context.Background(), geometryUrl, service.WithConnection(conn))
	require.NoError(t, err)
	return s.(*service.GeometryService)
}

func TestGeometryService_Project(t *testing.T) {
	conn := resttest.New(map[string]any{
		geometryUrl + "/project": resttest.Responder(func(call resttest.Call) (any, error) {
			require.Equal(t, map[string]any{
				"geometryType": "esriGeometryPoint",
				"geometries":   []any{map[string]any{"x": -117.0, "y": 34.0}},
			}, call.Body["geometries"])
			require.Equal(t, map[string]any{"wkid": 4326}, call.Body["inSR"])
			require.Equal(t, map[string]any{"wkid": 3857}, call.Body["outSR"])

			return map[string]any{
				"geometries": []any{map[string]any{"x": -13024380.42, "y": 4028802.03}},
			}, nil
		}),
	})

	result, err := newGeometryService(t, conn).Project(context.Background(),
		[]*geom.Geometry{geom.NewPoint(-117, 34)},
		geom.NewSpatialReference(4326), geom.NewSpatialReference(3857))
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, geom.Point, result[0].Variant())

	_, err = newGeometryService(t, conn).Project(context.Background(), nil, nil, geom.NewSpatialReference(3857))
	require.ErrorIs(t, err, service.ErrNoGeometries)

	_, err = newGeometryService(t, conn).Project(context.Background(),
		[]*geom.Geometry{geom.NewPoint(0, 0), geom.NewPolyline(nil)}, nil, geom.NewSpatialReference(3857))
	require.ErrorIs(t, err, geom.ErrUnrecognizedGeometry)
}

func TestGeometryService_Buffer(t *testing.T) {
	conn := resttest.New(map[string]any{
		geometryUrl + "/buffer": resttest.Responder(func(call resttest.Call) (any, error) {
			require.Equal(t, "10,20.5", call.Body["distances"])
			require.Equal(t, "9001", call.Body["unit"])
			require.Equal(t, true, call.Body["unionResults"])
			require.Equal(t, false, call.Body["geodesic"])
			require.Equal(t, map[string]any{"wkid": 3857}, call.Body["inSR"])

			return map[string]any{
				"geometries": []any{map[string]any{"rings": []any{}}},
			}, nil
		}),
	})

	sr := geom.NewSpatialReference(3857)
	result, err := newGeometryService(t, conn).Buffer(context.Background(), service.BufferRequest{
		Geometries:   []*geom.Geometry{geom.NewPoint(1, 2, geom.WithSpatialReference(sr))},
		Distances:    []float64{10, 20.5},
		Unit:         "9001",
		UnionResults: true,
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, geom.Polygon, result[0].Variant())
}

func TestGeometryService_AreasAndLengths(t *testing.T) {
	square := geom.NewPolygon([][][]float64{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}},
		geom.WithSpatialReference(geom.NewSpatialReference(3857)))

	conn := resttest.New(map[string]any{
		geometryUrl + "/areasAndLengths": resttest.Responder(func(call resttest.Call) (any, error) {
			require.Equal(t, map[string]any{"wkid": 3857}, call.Body["sr"])
			require.Equal(t, map[string]any{"areaUnit": "esriSquareMeters"}, call.Body["areaUnit"])
			require.Len(t, call.Body["polygons"], 1)

			return map[string]any{"areas": []any{1.0}, "lengths": []any{4.0}}, nil
		}),
	})

	gs := newGeometryService(t, conn)
	result, err := gs.AreasAndLengths(context.Background(), service.AreasAndLengthsRequest{
		Polygons: []*geom.Geometry{square},
		AreaUnit: "esriSquareMeters",
	})
	require.NoError(t, err)
	require.Equal(t, service.AreasAndLengths{Areas: []float64{1}, Lengths: []float64{4}}, result)

	_, err = gs.AreasAndLengths(context.Background(), service.AreasAndLengthsRequest{})
	require.ErrorIs(t, err, service.ErrNoGeometries)

	_, err = gs.AreasAndLengths(context.Background(), service.AreasAndLengthsRequest{
		Polygons: []*geom.Geometry{geom.NewPoint(0, 0)},
	})
	require.ErrorIs(t, err, geom.ErrUnrecognizedGeometry)
}
