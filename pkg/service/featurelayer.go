package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sre-norns/ags/pkg/feature"
	"github.com/sre-norns/ags/pkg/geom"
	"github.com/sre-norns/ags/pkg/resource"
)

type LayerRef struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type FeatureLayerInfo struct {
	CurrentVersion     float64           `json:"currentVersion"`
	ID                 int               `json:"id"`
	Name               string            `json:"name"`
	Type               string            `json:"type"`
	Description        string            `json:"description"`
	GeometryType       geom.GeometryType `json:"geometryType"`
	CopyrightText      string            `json:"copyrightText"`
	ParentLayer        *LayerRef         `json:"parentLayer"`
	SubLayers          []LayerRef        `json:"subLayers"`
	MinScale           float64           `json:"minScale"`
	MaxScale           float64           `json:"maxScale"`
	Extent             *geom.Geometry    `json:"extent"`
	DisplayField       string            `json:"displayField"`
	Fields             []feature.Field   `json:"fields"`
	HasAttachments     bool              `json:"hasAttachments"`
	HTMLPopupType      string            `json:"htmlPopupType"`
	ObjectIdField      string            `json:"objectIdField"`
	GlobalIdField      string            `json:"globalIdField"`
	TypeIdField        string            `json:"typeIdField"`
	Capabilities       string            `json:"capabilities"`
	MaxRecordCount     int               `json:"maxRecordCount"`
	SupportsStatistics bool              `json:"supportsStatistics"`
	HasZ               bool              `json:"hasZ"`
	HasM               bool              `json:"hasM"`
}

// FeatureLayer is a numbered layer or table of a map or a feature service
type FeatureLayer struct {
	*resource.Resource[FeatureLayerInfo]
}

func (*FeatureLayer) Kind() Kind { return KindFeatureLayer }

// Query selects features of a layer
type Query struct {
	// SQL where clause, all features are selected if empty
	Where string
	// Fields to return, all fields if empty
	OutFields []string
	ObjectIDs []int

	// Spatial filter
	Geometry   *geom.Geometry
	SpatialRel string

	// Output spatial reference wkid, layer spatial reference is used if zero
	OutSR int

	NoGeometry        bool
	OrderByFields     []string
	ResultOffset      int
	ResultRecordCount int
}

func (q Query) params() map[string]any {
	result := map[string]any{
		"where":          "1=1",
		"outFields":      "*",
		"returnGeometry": !q.NoGeometry,
	}

	if q.Where != "" {
		result["where"] = q.Where
	}
	if len(q.OutFields) > 0 {
		result["outFields"] = strings.Join(q.OutFields, ",")
	}
	if len(q.ObjectIDs) > 0 {
		ids := make([]string, 0, len(q.ObjectIDs))
		for _, id := range q.ObjectIDs {
			ids = append(ids, strconv.Itoa(id))
		}
		result["objectIds"] = strings.Join(ids, ",")
	}

	if q.Geometry != nil {
		result["geometry"] = q.Geometry.Map()
		if geometryType, ok := q.Geometry.GeometryType(); ok {
			result["geometryType"] = string(geometryType)
		}
		if sr := q.Geometry.SpatialReference(); sr != nil {
			result["inSR"] = sr.Map()
		}

		result["spatialRel"] = "esriSpatialRelIntersects"
		if q.SpatialRel != "" {
			result["spatialRel"] = q.SpatialRel
		}
	}

	if q.OutSR != 0 {
		result["outSR"] = q.OutSR
	}
	if len(q.OrderByFields) > 0 {
		result["orderByFields"] = strings.Join(q.OrderByFields, ",")
	}
	if q.ResultOffset > 0 {
		result["resultOffset"] = q.ResultOffset
	}
	if q.ResultRecordCount > 0 {
		result["resultRecordCount"] = q.ResultRecordCount
	}

	return result
}

// IsTable reports whether the layer is a table, records of which have no geometry
func (info FeatureLayerInfo) IsTable() bool {
	return strings.EqualFold(info.Type, feature.TableGeometryType) || info.GeometryType == ""
}

// Query returns features of the layer matching the query.
// Geometry type of an empty result is taken from the layer description.
func (l *FeatureLayer) Query(ctx context.Context, query Query) (*feature.FeatureSet, error) {
	payload, err := l.post(ctx, "query", query.params())
	if err != nil {
		return nil, err
	}

	var options []feature.Option
	features, _ := payload["features"].([]any)
	if _, ok := payload["geometryType"]; !ok && len(features) == 0 {
		info, err := l.Fields(ctx)
		if err != nil {
			return nil, err
		}

		if info.IsTable() {
			options = append(options, feature.WithTable())
		} else {
			payload["geometryType"] = string(info.GeometryType)
		}
	}

	return feature.FromPayload(payload, options...)
}

// Count returns number of features matching the where clause
func (l *FeatureLayer) Count(ctx context.Context, where string) (int, error) {
	params := Query{Where: where}.params()
	params["returnCountOnly"] = true

	payload, err := l.post(ctx, "query", params)
	if err != nil {
		return 0, err
	}

	count, ok := payload["count"].(float64)
	if !ok {
		return 0, fmt.Errorf("%w: no count in query response", resource.ErrRemoteResponse)
	}
	return int(count), nil
}

func (l *FeatureLayer) post(ctx context.Context, operation string, params map[string]any) (map[string]any, error) {
	return postOperation(ctx, l, operation, params)
}
