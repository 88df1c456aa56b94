package geom

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

var ErrNoOrbEquivalent = fmt.Errorf("geometry has no planar equivalent")

// Orb converts the geometry into its orb counterpart.
// Polylines become multi line strings, envelopes become bounds.
func (g *Geometry) Orb() (orb.Geometry, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("%w: invalid %s", ErrNoOrbEquivalent, g.Variant())
	}

	switch g.Variant() {
	case Point:
		x, y, ok := g.XY()
		if !ok {
			// Empty point
			return nil, fmt.Errorf("%w: empty point", ErrNoOrbEquivalent)
		}
		return orb.Point{x, y}, nil
	case MultiPoint:
		return orb.MultiPoint(toPoints(g.props["points"])), nil
	case Polyline:
		parts, _ := asList(g.props["paths"])
		result := make(orb.MultiLineString, 0, len(parts))
		for _, part := range parts {
			result = append(result, orb.LineString(toPoints(part)))
		}
		return result, nil
	case Polygon:
		parts, _ := asList(g.props["rings"])
		result := make(orb.Polygon, 0, len(parts))
		for _, part := range parts {
			result = append(result, orb.Ring(toPoints(part)))
		}
		return result, nil
	case Envelope:
		xmin, okXmin := toFloat(g.props["xmin"])
		ymin, _ := toFloat(g.props["ymin"])
		xmax, _ := toFloat(g.props["xmax"])
		ymax, _ := toFloat(g.props["ymax"])
		if !okXmin {
			return nil, fmt.Errorf("%w: empty envelope", ErrNoOrbEquivalent)
		}
		return orb.Bound{Min: orb.Point{xmin, ymin}, Max: orb.Point{xmax, ymax}}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrNoOrbEquivalent, g.Variant())
}

// WKT renders the geometry as well-known text
func (g *Geometry) WKT() (string, error) {
	value, err := g.Orb()
	if err != nil {
		return "", err
	}

	return wkt.MarshalString(value), nil
}

// FromOrb converts orb geometry into its Esri counterpart
func FromOrb(value orb.Geometry, options ...Option) (*Geometry, error) {
	switch v := value.(type) {
	case orb.Point:
		return NewPoint(v[0], v[1], options...), nil
	case orb.MultiPoint:
		return NewMultiPoint(fromPoints(v), options...), nil
	case orb.LineString:
		return NewPolyline([][][]float64{fromPoints(v)}, options...), nil
	case orb.MultiLineString:
		paths := make([][][]float64, 0, len(v))
		for _, line := range v {
			paths = append(paths, fromPoints(line))
		}
		return NewPolyline(paths, options...), nil
	case orb.Ring:
		return NewPolygon([][][]float64{fromPoints(v)}, options...), nil
	case orb.Polygon:
		rings := make([][][]float64, 0, len(v))
		for _, ring := range v {
			rings = append(rings, fromPoints(ring))
		}
		return NewPolygon(rings, options...), nil
	case orb.Bound:
		return NewEnvelope(v.Min[0], v.Min[1], v.Max[0], v.Max[1], options...), nil
	}

	return nil, fmt.Errorf("%w: unsupported orb type %T", ErrUnrecognizedGeometry, value)
}

func toPoints(value any) []orb.Point {
	tuples, _ := asList(value)
	result := make([]orb.Point, 0, len(tuples))
	for _, tuple := range tuples {
		coords, _ := asList(tuple)
		x, _ := toFloat(coords[0])
		y, _ := toFloat(coords[1])
		result = append(result, orb.Point{x, y})
	}
	return result
}

func fromPoints[P ~[]orb.Point](points P) [][]float64 {
	result := make([][]float64, 0, len(points))
	for _, p := range points {
		result = append(result, []float64{p[0], p[1]})
	}
	return result
}
