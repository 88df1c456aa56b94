package feature

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/sre-norns/ags/pkg/geom"
)

// TableGeometryType is reported by features that carry no geometry
const TableGeometryType = "Table"

// Field describes a single attribute column of a layer or a feature set
type Field struct {
	Name     string         `json:"name" yaml:"name"`
	Type     string         `json:"type,omitempty" yaml:"type,omitempty"`
	Alias    string         `json:"alias,omitempty" yaml:"alias,omitempty"`
	Length   int            `json:"length,omitempty" yaml:"length,omitempty"`
	Nullable bool           `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Editable bool           `json:"editable,omitempty" yaml:"editable,omitempty"`
	Domain   map[string]any `json:"domain,omitempty" yaml:"domain,omitempty"`
}

// Feature is a single record: optional geometry and a set of attributes
type Feature struct {
	Geometry   *geom.Geometry `json:"geometry,omitempty" yaml:"geometry,omitempty"`
	Attributes map[string]any `json:"attributes" yaml:"attributes"`
}

// NewFeature creates a feature. Date values of the attributes are stored as epoch milliseconds.
func NewFeature(geometry *geom.Geometry, attributes map[string]any) *Feature {
	if attributes == nil {
		attributes = map[string]any{}
	}
	for name, value := range attributes {
		if when, ok := value.(time.Time); ok {
			attributes[name] = when.UnixMilli()
		}
	}

	return &Feature{
		Geometry:   geometry,
		Attributes: attributes,
	}
}

func isGeometryField(name string) bool {
	switch strings.ToUpper(name) {
	case "SHAPE", "SHAPE@", "GEOMETRY":
		return true
	}
	return false
}

// SetValue updates value of a known attribute, or the geometry when the field is one of
// SHAPE, SHAPE@ or GEOMETRY. Returns false if the field is not supported, so that
// bulk loaders can skip such columns.
func (f *Feature) SetValue(field string, value any) bool {
	if _, known := f.Attributes[field]; known {
		switch v := value.(type) {
		case nil:
			// Null does not overwrite existing value
		case time.Time:
			f.Attributes[field] = v.UnixMilli()
		default:
			f.Attributes[field] = value
		}
		return true
	}

	if !isGeometryField(field) {
		return false
	}

	g, ok := value.(*geom.Geometry)
	if !ok {
		return false
	}

	bare, ok := g.Bare()
	if !ok {
		return false
	}

	geometry, err := geom.New(g.Variant(), bare)
	if err != nil {
		return false
	}

	f.Geometry = geometry
	return true
}

// GetValue returns value of an attribute or the geometry for SHAPE, SHAPE@ or GEOMETRY fields
func (f *Feature) GetValue(field string) (any, bool) {
	if value, known := f.Attributes[field]; known {
		return value, true
	}

	if isGeometryField(field) && f.Geometry != nil {
		return f.Geometry, true
	}

	return nil, false
}

// Fields returns sorted names of the feature attributes
func (f *Feature) Fields() []string {
	result := make([]string, 0, len(f.Attributes))
	for name := range f.Attributes {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

func (f *Feature) GeometryType() string {
	if f.Geometry == nil {
		return TableGeometryType
	}

	if t, ok := f.Geometry.GeometryType(); ok {
		return string(t)
	}
	return string(f.Geometry.Variant())
}

// UnmarshalJSON decodes integer attribute values as int64 and other numbers as float64
func (f *Feature) UnmarshalJSON(data []byte) error {
	type plain Feature
	var result plain

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&result); err != nil {
		return err
	}

	for name, value := range result.Attributes {
		result.Attributes[name] = normalizeNumber(value)
	}

	*f = Feature(result)
	return nil
}

func normalizeNumber(value any) any {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any:
		for key, item := range v {
			v[key] = normalizeNumber(item)
		}
	case []any:
		for i, item := range v {
			v[i] = normalizeNumber(item)
		}
	}
	return value
}

func (f *Feature) String() string {
	data, err := json.Marshal(f)
	if err != nil {
		return "{}"
	}
	return string(data)
}
