package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sre-norns/ags/pkg/geom"
	"github.com/sre-norns/ags/pkg/resource"
)

var ErrNoGeometries = fmt.Errorf("no geometries provided")

type GeometryServiceInfo struct {
	CurrentVersion     float64 `json:"currentVersion"`
	ServiceDescription string  `json:"serviceDescription"`
}

type GeometryService struct {
	*resource.Resource[GeometryServiceInfo]
}

func (*GeometryService) Kind() Kind { return KindGeometryService }

// Project transforms geometries from one spatial reference to another
func (s *GeometryService) Project(ctx context.Context, geometries []*geom.Geometry, inSR, outSR *geom.Geometry) ([]*geom.Geometry, error) {
	template, err := geometriesTemplate(geometries)
	if err != nil {
		return nil, err
	}

	params := map[string]any{
		"geometries": template,
		"outSR":      outSR.Map(),
	}
	if inSR != nil {
		params["inSR"] = inSR.Map()
	} else if sr := geometries[0].SpatialReference(); sr != nil {
		params["inSR"] = sr.Map()
	}

	payload, err := postOperation(ctx, s, "project", params)
	if err != nil {
		return nil, err
	}

	return resultGeometries(payload)
}

type BufferRequest struct {
	Geometries []*geom.Geometry
	InSR       *geom.Geometry
	OutSR      *geom.Geometry
	BufferSR   *geom.Geometry
	Distances  []float64
	// Linear unit code, units of BufferSR or InSR are used if empty
	Unit         string
	UnionResults bool
	Geodesic     bool
}

// Buffer creates polygons at the given distances around each geometry
func (s *GeometryService) Buffer(ctx context.Context, request BufferRequest) ([]*geom.Geometry, error) {
	template, err := geometriesTemplate(request.Geometries)
	if err != nil {
		return nil, err
	}

	distances := make([]string, 0, len(request.Distances))
	for _, d := range request.Distances {
		distances = append(distances, strconv.FormatFloat(d, 'f', -1, 64))
	}

	params := map[string]any{
		"geometries":   template,
		"distances":    strings.Join(distances, ","),
		"unionResults": request.UnionResults,
		"geodesic":     request.Geodesic,
	}
	if request.Unit != "" {
		params["unit"] = request.Unit
	}
	if request.InSR != nil {
		params["inSR"] = request.InSR.Map()
	} else if sr := request.Geometries[0].SpatialReference(); sr != nil {
		params["inSR"] = sr.Map()
	}
	if request.OutSR != nil {
		params["outSR"] = request.OutSR.Map()
	}
	if request.BufferSR != nil {
		params["bufferSR"] = request.BufferSR.Map()
	}

	payload, err := postOperation(ctx, s, "buffer", params)
	if err != nil {
		return nil, err
	}

	return resultGeometries(payload)
}

type AreasAndLengthsRequest struct {
	Polygons []*geom.Geometry
	// Spatial reference of polygons, taken from the first polygon if nil
	SR              *geom.Geometry
	LengthUnit      string
	AreaUnit        string
	CalculationType string
}

type AreasAndLengths struct {
	Areas   []float64 `json:"areas" yaml:"areas"`
	Lengths []float64 `json:"lengths" yaml:"lengths"`
}

// AreasAndLengths computes areas and perimeters of polygons
func (s *GeometryService) AreasAndLengths(ctx context.Context, request AreasAndLengthsRequest) (AreasAndLengths, error) {
	var result AreasAndLengths
	if len(request.Polygons) == 0 {
		return result, ErrNoGeometries
	}

	polygons := make([]any, 0, len(request.Polygons))
	for _, p := range request.Polygons {
		if p.Variant() != geom.Polygon {
			return result, fmt.Errorf("%w: %q is not a polygon", geom.ErrUnrecognizedGeometry, p.Variant())
		}
		polygons = append(polygons, p.Map())
	}

	params := map[string]any{
		"polygons": polygons,
	}
	sr := request.SR
	if sr == nil {
		sr = request.Polygons[0].SpatialReference()
	}
	if sr != nil {
		params["sr"] = sr.Map()
	}
	if request.LengthUnit != "" {
		params["lengthUnit"] = request.LengthUnit
	}
	if request.AreaUnit != "" {
		params["areaUnit"] = map[string]any{"areaUnit": request.AreaUnit}
	}
	if request.CalculationType != "" {
		params["calculationType"] = request.CalculationType
	}

	payload, err := postOperation(ctx, s, "areasAndLengths", params)
	if err != nil {
		return result, err
	}

	result.Areas = floats(payload["areas"])
	result.Lengths = floats(payload["lengths"])
	return result, nil
}

// geometriesTemplate encodes geometries of the same type the way geometry service operations expect
func geometriesTemplate(geometries []*geom.Geometry) (map[string]any, error) {
	if len(geometries) == 0 {
		return nil, ErrNoGeometries
	}

	geometryType, ok := geometries[0].GeometryType()
	if !ok {
		return nil, fmt.Errorf("%w: %q has no geometry type", geom.ErrUnrecognizedGeometry, geometries[0].Variant())
	}

	items := make([]any, 0, len(geometries))
	for _, g := range geometries {
		if t, _ := g.GeometryType(); t != geometryType {
			return nil, fmt.Errorf("%w: mixed geometry types %q and %q", geom.ErrUnrecognizedGeometry, geometryType, t)
		}
		items = append(items, g.Map())
	}

	return map[string]any{
		"geometryType": string(geometryType),
		"geometries":   items,
	}, nil
}

func resultGeometries(payload map[string]any) ([]*geom.Geometry, error) {
	items, ok := payload["geometries"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: no geometries in response", resource.ErrRemoteResponse)
	}

	result := make([]*geom.Geometry, 0, len(items))
	for _, item := range items {
		props, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: geometry is %T", resource.ErrRemoteResponse, item)
		}

		g, err := geom.FromMap(props)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}

	return result, nil
}

func floats(value any) []float64 {
	items, _ := value.([]any)
	result := make([]float64, 0, len(items))
	for _, item := range items {
		if f, ok := item.(float64); ok {
			result = append(result, f)
		}
	}
	return result
}
