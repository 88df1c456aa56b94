package geom

import (
	"encoding/json"
	"fmt"
)

// Variant identifies a concrete kind of geometry
type Variant string

const (
	// Untyped is a placeholder for geometry constructed from an empty map
	Untyped          Variant = ""
	Point            Variant = "Point"
	MultiPoint       Variant = "MultiPoint"
	Polyline         Variant = "Polyline"
	Polygon          Variant = "Polygon"
	Envelope         Variant = "Envelope"
	SpatialReference Variant = "SpatialReference"
)

// GeometryType is an Esri geometry type tag as used by layers and feature sets
type GeometryType string

const (
	GeometryPoint      GeometryType = "esriGeometryPoint"
	GeometryMultipoint GeometryType = "esriGeometryMultipoint"
	GeometryPolyline   GeometryType = "esriGeometryPolyline"
	GeometryPolygon    GeometryType = "esriGeometryPolygon"
	GeometryEnvelope   GeometryType = "esriGeometryEnvelope"
)

var geometryTypes = map[Variant]GeometryType{
	Point:      GeometryPoint,
	MultiPoint: GeometryMultipoint,
	Polyline:   GeometryPolyline,
	Polygon:    GeometryPolygon,
	Envelope:   GeometryEnvelope,
}

// GeometryTypes lists all geometry type tags accepted by feature sets
func GeometryTypes() []GeometryType {
	return []GeometryType{GeometryPoint, GeometryMultipoint, GeometryPolyline, GeometryPolygon, GeometryEnvelope}
}

func (t GeometryType) IsValid() bool {
	for _, known := range GeometryTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Geometry is a tagged variant over Esri JSON geometry objects.
// The variant is fixed at construction, the payload is an open key/value map
// that is serialized as is.
type Geometry struct {
	variant Variant
	props   map[string]any
}

type Option func(props map[string]any)

func WithZ(z float64) Option {
	return func(props map[string]any) {
		props["z"] = z
	}
}

func WithM(m float64) Option {
	return func(props map[string]any) {
		props["m"] = m
	}
}

func WithHasZ(hasZ bool) Option {
	return func(props map[string]any) {
		props["hasZ"] = hasZ
	}
}

func WithHasM(hasM bool) Option {
	return func(props map[string]any) {
		props["hasM"] = hasM
	}
}

func WithSpatialReference(sr *Geometry) Option {
	return func(props map[string]any) {
		if sr != nil {
			props["spatialReference"] = sr.Map()
		}
	}
}

func newGeometry(variant Variant, props map[string]any, options []Option) *Geometry {
	for _, opt := range options {
		opt(props)
	}

	return &Geometry{
		variant: variant,
		props:   props,
	}
}

func NewPoint(x, y float64, options ...Option) *Geometry {
	return newGeometry(Point, map[string]any{"x": x, "y": y}, options)
}

func NewMultiPoint(points [][]float64, options ...Option) *Geometry {
	return newGeometry(MultiPoint, map[string]any{"points": tuplesToAny(points)}, options)
}

func NewPolyline(paths [][][]float64, options ...Option) *Geometry {
	return newGeometry(Polyline, map[string]any{"paths": partsToAny(paths)}, options)
}

func NewPolygon(rings [][][]float64, options ...Option) *Geometry {
	return newGeometry(Polygon, map[string]any{"rings": partsToAny(rings)}, options)
}

func NewEnvelope(xmin, ymin, xmax, ymax float64, options ...Option) *Geometry {
	return newGeometry(Envelope, map[string]any{
		"xmin": xmin,
		"ymin": ymin,
		"xmax": xmax,
		"ymax": ymax,
	}, options)
}

func NewSpatialReference(wkid int) *Geometry {
	return newGeometry(SpatialReference, map[string]any{"wkid": wkid}, nil)
}

func NewSpatialReferenceWKT(wkt string) *Geometry {
	return newGeometry(SpatialReference, map[string]any{"wkt": wkt}, nil)
}

// New constructs a geometry of the explicitly given variant from a set of properties.
// Untyped variant classifies the properties the same way FromMap does.
func New(variant Variant, props map[string]any) (*Geometry, error) {
	if variant == Untyped {
		return FromMap(props)
	}

	if _, known := variantKeys[variant]; !known {
		return nil, fmt.Errorf("%w: unknown variant %q", ErrUnrecognizedGeometry, variant)
	}

	return &Geometry{
		variant: variant,
		props:   copyMap(props),
	}, nil
}

// FromMap selects geometry variant based on the keys present in the map
func FromMap(props map[string]any) (*Geometry, error) {
	variant, err := Classify(props)
	if err != nil {
		return nil, err
	}

	return &Geometry{
		variant: variant,
		props:   copyMap(props),
	}, nil
}

// FromJSON decodes JSON object and selects geometry variant from its shape
func FromJSON(data []byte) (*Geometry, error) {
	var result Geometry
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (g *Geometry) Variant() Variant {
	if g == nil {
		return Untyped
	}
	return g.variant
}

// GeometryType returns Esri geometry type tag of the geometry, if the variant has one
func (g *Geometry) GeometryType() (GeometryType, bool) {
	t, ok := geometryTypes[g.Variant()]
	return t, ok
}

func (g *Geometry) Get(key string) (any, bool) {
	if g == nil {
		return nil, false
	}

	value, ok := g.props[key]
	return value, ok
}

// Set updates a property of the geometry. Variant of the geometry is not affected.
func (g *Geometry) Set(key string, value any) {
	if g == nil {
		return
	}
	if g.props == nil {
		g.props = map[string]any{}
	}
	g.props[key] = value
}

// Map returns a shallow copy of the geometry properties
func (g *Geometry) Map() map[string]any {
	if g == nil {
		return nil
	}
	return copyMap(g.props)
}

// SpatialReference returns spatial reference embedded into the geometry, nil if there is none
func (g *Geometry) SpatialReference() *Geometry {
	if g == nil {
		return nil
	}

	switch sr := g.props["spatialReference"].(type) {
	case *Geometry:
		return sr
	case map[string]any:
		result, err := FromMap(sr)
		if err != nil || result.Variant() != SpatialReference {
			return nil
		}
		return result
	}

	return nil
}

// XY returns coordinates of a Point geometry
func (g *Geometry) XY() (x, y float64, ok bool) {
	if g.Variant() != Point {
		return 0, 0, false
	}

	x, okX := toFloat(g.props["x"])
	y, okY := toFloat(g.props["y"])
	return x, y, okX && okY
}

// Coordinates returns value of the coordinates key of multi-part variants: points, paths or rings
func (g *Geometry) Coordinates() (any, bool) {
	switch g.Variant() {
	case MultiPoint, Polyline, Polygon:
		value, ok := g.props[variantKeys[g.variant][0]]
		return value, ok
	}

	return nil, false
}

// Bare returns geometry payload stripped down to its coordinates:
// x/y for points, points/paths/rings for the others.
// Envelopes, spatial references and untyped geometries have no bare form.
func (g *Geometry) Bare() (map[string]any, bool) {
	switch g.Variant() {
	case Point:
		return map[string]any{"x": g.props["x"], "y": g.props["y"]}, true
	case MultiPoint, Polyline, Polygon:
		key := variantKeys[g.variant][0]
		return map[string]any{key: g.props[key]}, true
	}

	return nil, false
}

func (g *Geometry) String() string {
	data, err := json.Marshal(g)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func (g Geometry) MarshalJSON() ([]byte, error) {
	if g.props == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(g.props)
}

func (g *Geometry) UnmarshalJSON(data []byte) error {
	var props map[string]any
	if err := json.Unmarshal(data, &props); err != nil {
		return err
	}

	variant, err := Classify(props)
	if err != nil {
		return err
	}

	g.variant = variant
	g.props = props
	if g.props == nil {
		g.props = map[string]any{}
	}
	return nil
}

func (g Geometry) MarshalYAML() (interface{}, error) {
	if g.props == nil {
		return map[string]any{}, nil
	}
	return g.props, nil
}

func copyMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

func tuplesToAny(tuples [][]float64) []any {
	result := make([]any, 0, len(tuples))
	for _, tuple := range tuples {
		coords := make([]any, 0, len(tuple))
		for _, c := range tuple {
			coords = append(coords, c)
		}
		result = append(result, coords)
	}
	return result
}

func partsToAny(parts [][][]float64) []any {
	result := make([]any, 0, len(parts))
	for _, part := range parts {
		result = append(result, tuplesToAny(part))
	}
	return result
}
