package feature

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sre-norns/ags/pkg/geom"
)

var (
	ErrEmptyFeatureSet     = fmt.Errorf("feature set requires at least one feature or an explicit geometry type")
	ErrInvalidGeometryType = fmt.Errorf("invalid geometry type")
	ErrInvalidReference    = fmt.Errorf("invalid spatial reference")
)

// FeatureSet is an ordered collection of features with collection level metadata
type FeatureSet struct {
	features          []*Feature
	fields            []Field
	hasZ              bool
	hasM              bool
	geometryType      geom.GeometryType
	spatialReference  *geom.Geometry
	objectIdFieldName string
	globalIdFieldName string
	displayFieldName  string
	table             bool
}

type Option func(fs *FeatureSet)

func WithFields(fields ...Field) Option {
	return func(fs *FeatureSet) {
		fs.fields = fields
	}
}

func WithHasZ(hasZ bool) Option {
	return func(fs *FeatureSet) {
		fs.hasZ = hasZ
	}
}

func WithHasM(hasM bool) Option {
	return func(fs *FeatureSet) {
		fs.hasM = hasM
	}
}

func WithGeometryType(geometryType geom.GeometryType) Option {
	return func(fs *FeatureSet) {
		fs.geometryType = geometryType
	}
}

func WithSpatialReference(sr *geom.Geometry) Option {
	return func(fs *FeatureSet) {
		fs.spatialReference = sr
	}
}

func WithObjectIdFieldName(name string) Option {
	return func(fs *FeatureSet) {
		fs.objectIdFieldName = name
	}
}

func WithGlobalIdFieldName(name string) Option {
	return func(fs *FeatureSet) {
		fs.globalIdFieldName = name
	}
}

func WithDisplayFieldName(name string) Option {
	return func(fs *FeatureSet) {
		fs.displayFieldName = name
	}
}

// WithTable marks records of a table, which may be empty without a geometry type
func WithTable() Option {
	return func(fs *FeatureSet) {
		fs.table = true
	}
}

// NewFeatureSet creates a new collection of features.
// Geometry type and spatial reference not given explicitly are derived from the first feature.
func NewFeatureSet(features []*Feature, options ...Option) (*FeatureSet, error) {
	result := &FeatureSet{
		features: features,
	}
	for _, opt := range options {
		opt(result)
	}

	if result.geometryType != "" && !result.geometryType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGeometryType, result.geometryType)
	}

	if len(features) == 0 {
		if result.geometryType == "" && !result.table {
			return nil, ErrEmptyFeatureSet
		}
		return result, nil
	}

	first := features[0].Geometry
	if first == nil {
		// Table records carry no geometry to derive metadata from
		return result, nil
	}

	if result.spatialReference == nil {
		result.spatialReference = first.SpatialReference()
	}

	if result.geometryType == "" {
		geometryType, ok := first.GeometryType()
		if !ok {
			return nil, fmt.Errorf("%w: first feature geometry is %q", ErrInvalidGeometryType, first.Variant())
		}
		result.geometryType = geometryType
	}

	return result, nil
}

func (fs *FeatureSet) Len() int {
	return len(fs.features)
}

// IsTable reports whether the set holds table records
func (fs *FeatureSet) IsTable() bool {
	return fs.table
}

func (fs *FeatureSet) Features() []*Feature {
	return fs.features
}

func (fs *FeatureSet) Fields() []Field {
	return fs.fields
}

func (fs *FeatureSet) HasZ() bool {
	return fs.hasZ
}

func (fs *FeatureSet) SetHasZ(hasZ bool) {
	fs.hasZ = hasZ
}

func (fs *FeatureSet) HasM() bool {
	return fs.hasM
}

func (fs *FeatureSet) SetHasM(hasM bool) {
	fs.hasM = hasM
}

func (fs *FeatureSet) GeometryType() geom.GeometryType {
	return fs.geometryType
}

// SetGeometryType updates geometry type, values outside the set of Esri geometry types are rejected
func (fs *FeatureSet) SetGeometryType(geometryType geom.GeometryType) error {
	if !geometryType.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidGeometryType, geometryType)
	}

	fs.geometryType = geometryType
	return nil
}

func (fs *FeatureSet) SpatialReference() *geom.Geometry {
	return fs.spatialReference
}

// SetSpatialReference accepts a spatial reference geometry, a wkid number or a string of digits
func (fs *FeatureSet) SetSpatialReference(value any) error {
	switch v := value.(type) {
	case *geom.Geometry:
		if v.Variant() != geom.SpatialReference {
			return fmt.Errorf("%w: %q geometry", ErrInvalidReference, v.Variant())
		}
		fs.spatialReference = v
	case int:
		fs.spatialReference = geom.NewSpatialReference(v)
	case string:
		wkid, err := strconv.Atoi(v)
		if err != nil || wkid < 0 {
			return fmt.Errorf("%w: %q", ErrInvalidReference, v)
		}
		fs.spatialReference = geom.NewSpatialReference(wkid)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidReference, value)
	}

	return nil
}

func (fs *FeatureSet) ObjectIdFieldName() string {
	return fs.objectIdFieldName
}

func (fs *FeatureSet) SetObjectIdFieldName(name string) {
	fs.objectIdFieldName = name
}

func (fs *FeatureSet) GlobalIdFieldName() string {
	return fs.globalIdFieldName
}

func (fs *FeatureSet) SetGlobalIdFieldName(name string) {
	fs.globalIdFieldName = name
}

func (fs *FeatureSet) DisplayFieldName() string {
	return fs.displayFieldName
}

func (fs *FeatureSet) SetDisplayFieldName(name string) {
	fs.displayFieldName = name
}

// wireFeatureSet is Esri JSON representation of a feature set
type wireFeatureSet struct {
	Features          []*Feature        `json:"features"`
	Fields            []Field           `json:"fields"`
	HasZ              bool              `json:"hasZ"`
	HasM              bool              `json:"hasM"`
	GeometryType      geom.GeometryType `json:"geometryType,omitempty"`
	SpatialReference  *geom.Geometry    `json:"spatialReference,omitempty"`
	ObjectIdFieldName string            `json:"objectIdFieldName,omitempty"`
	GlobalIdFieldName string            `json:"globalIdFieldName,omitempty"`
	DisplayFieldName  string            `json:"displayFieldName,omitempty"`
}

func (fs *FeatureSet) wire() wireFeatureSet {
	result := wireFeatureSet{
		Features:          fs.features,
		Fields:            fs.fields,
		HasZ:              fs.hasZ,
		HasM:              fs.hasM,
		GeometryType:      fs.geometryType,
		SpatialReference:  fs.spatialReference,
		ObjectIdFieldName: fs.objectIdFieldName,
		GlobalIdFieldName: fs.globalIdFieldName,
		DisplayFieldName:  fs.displayFieldName,
	}

	if result.Features == nil {
		result.Features = []*Feature{}
	}
	if result.Fields == nil {
		result.Fields = []Field{}
	}

	return result
}

func (w wireFeatureSet) options() []Option {
	return []Option{
		WithFields(w.Fields...),
		WithHasZ(w.HasZ),
		WithHasM(w.HasM),
		WithGeometryType(w.GeometryType),
		WithSpatialReference(w.SpatialReference),
		WithObjectIdFieldName(w.ObjectIdFieldName),
		WithGlobalIdFieldName(w.GlobalIdFieldName),
		WithDisplayFieldName(w.DisplayFieldName),
	}
}

func (fs *FeatureSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(fs.wire())
}

func (fs *FeatureSet) UnmarshalJSON(data []byte) error {
	result, err := decode(data)
	if err != nil {
		return err
	}

	*fs = *result
	return nil
}

func decode(data []byte, options ...Option) (*FeatureSet, error) {
	var w wireFeatureSet
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	return NewFeatureSet(w.Features, append(w.options(), options...)...)
}

func (fs *FeatureSet) MarshalYAML() (interface{}, error) {
	return fs.Payload()
}

// Payload returns Esri JSON representation of the feature set as a generic map.
// Fields, hasZ and hasM are always present.
func (fs *FeatureSet) Payload() (map[string]any, error) {
	data, err := json.Marshal(fs)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (fs *FeatureSet) String() string {
	data, err := json.Marshal(fs)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// FromJSON decodes a feature set. Missing optional metadata is set to its defaults.
// Integer attribute values decode as int64, other numbers as float64.
func FromJSON(data []byte, options ...Option) (*FeatureSet, error) {
	return decode(data, options...)
}

// FromPayload reconstructs feature set from a decoded Esri JSON value, such as a query response
func FromPayload(payload map[string]any, options ...Option) (*FeatureSet, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return decode(data, options...)
}
