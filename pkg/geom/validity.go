package geom

import (
	"encoding/json"
	"math"
	"reflect"
)

// IsValid checks that geometry payload is well formed for its variant.
// The check is recomputed on each call as the payload is mutable.
func (g *Geometry) IsValid() bool {
	switch g.Variant() {
	case Point:
		return g.validPoint()
	case Envelope:
		return g.validEnvelope()
	case MultiPoint:
		return validCollection(g.props["points"], isTuple)
	case Polyline:
		return validCollection(g.props["paths"], isLine)
	case Polygon:
		return validCollection(g.props["rings"], isRing)
	case SpatialReference:
		return g.validSpatialReference()
	}

	return false
}

func (g *Geometry) validPoint() bool {
	_, hasX := g.props["x"]
	_, hasY := g.props["y"]
	if hasX && hasY {
		return true
	}

	// Empty point convention: {"x": null} or {"x": "NaN"}
	return hasX && isNullOrNaN(g.props["x"])
}

func (g *Geometry) validEnvelope() bool {
	numeric := true
	for _, key := range variantKeys[Envelope] {
		if _, ok := toFloat(g.props[key]); !ok {
			numeric = false
			break
		}
	}
	if numeric {
		return true
	}

	xmin, hasXmin := g.props["xmin"]
	return hasXmin && isNullOrNaN(xmin)
}

func (g *Geometry) validSpatialReference() bool {
	if _, ok := toFloat(g.props["wkid"]); ok {
		return true
	}
	if _, ok := toFloat(g.props["latestWkid"]); ok {
		return true
	}

	wkt, ok := g.props["wkt"].(string)
	return ok && wkt != ""
}

func validCollection(value any, valid func(any) bool) bool {
	items, ok := asList(value)
	if !ok {
		return false
	}

	for _, item := range items {
		if !valid(item) {
			return false
		}
	}

	return true
}

// isTuple checks that value is a coordinate tuple of at least 2 numbers
func isTuple(value any) bool {
	coords, ok := asList(value)
	if !ok || len(coords) < 2 {
		return false
	}

	for _, c := range coords {
		if _, ok := toFloat(c); !ok {
			return false
		}
	}

	return true
}

func isLine(value any) bool {
	return validCollection(value, isTuple)
}

// isRing checks that value is a closed line of at least 4 points
func isRing(value any) bool {
	points, ok := asList(value)
	if !ok || len(points) < 4 || !isLine(points) {
		return false
	}

	return sameTuple(points[0], points[len(points)-1])
}

func sameTuple(a, b any) bool {
	first, _ := asList(a)
	last, _ := asList(b)
	if len(first) != len(last) {
		return false
	}

	for i := range first {
		x, _ := toFloat(first[i])
		y, _ := toFloat(last[i])
		if x != y {
			return false
		}
	}

	return true
}

func isNullOrNaN(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == "NaN"
	case float64:
		return math.IsNaN(v)
	}

	return false
}

// asList converts any slice or array into []any
func asList(value any) ([]any, bool) {
	if list, ok := value.([]any); ok {
		return list, true
	}

	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, false
	}

	result := make([]any, v.Len())
	for i := range result {
		result[i] = v.Index(i).Interface()
	}

	return result, true
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}

	return 0, false
}
