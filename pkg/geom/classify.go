package geom

import (
	"fmt"
	"sort"
	"strings"
)

var ErrUnrecognizedGeometry = fmt.Errorf("unrecognized geometry")

// variantKeys lists keys that identify each variant. First key is the coordinates key.
var variantKeys = map[Variant][]string{
	Point:            {"x", "y"},
	Envelope:         {"xmin", "ymin", "xmax", "ymax"},
	SpatialReference: {"wkid", "wkt", "latestWkid"},
	Polygon:          {"rings"},
	Polyline:         {"paths"},
	MultiPoint:       {"points"},
}

type classifier struct {
	variant Variant
	match   func(props map[string]any) bool
}

// classifiers is checked in order, first match wins
var classifiers = []classifier{
	{Point, hasAll("x", "y")},
	{Envelope, hasAll("xmin")},
	{SpatialReference, hasAny("wkt", "wkid")},
	{Polygon, hasAll("rings")},
	{Polyline, hasAll("paths")},
	{MultiPoint, hasAll("points")},
}

func hasAll(keys ...string) func(map[string]any) bool {
	return func(props map[string]any) bool {
		for _, k := range keys {
			if _, ok := props[k]; !ok {
				return false
			}
		}
		return true
	}
}

func hasAny(keys ...string) func(map[string]any) bool {
	return func(props map[string]any) bool {
		for _, k := range keys {
			if _, ok := props[k]; ok {
				return true
			}
		}
		return false
	}
}

// Classify picks geometry variant from the shape of the given map.
// An empty map is Untyped, a non-empty map matching no variant is an error.
func Classify(props map[string]any) (Variant, error) {
	if len(props) == 0 {
		return Untyped, nil
	}

	for _, c := range classifiers {
		if c.match(props) {
			return c.variant, nil
		}
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return Untyped, fmt.Errorf("%w: keys [%s]", ErrUnrecognizedGeometry, strings.Join(keys, ", "))
}
