package service

import (
	"context"

	"github.com/sre-norns/ags/pkg/feature"
	"github.com/sre-norns/ags/pkg/geom"
	"github.com/sre-norns/ags/pkg/resource"
	"github.com/sre-norns/ags/pkg/rest"
)

// Kind names concrete type of a service
type Kind string

const (
	KindMapService        Kind = "MapService"
	KindFeatureService    Kind = "FeatureService"
	KindFeatureLayer      Kind = "FeatureLayer"
	KindImageService      Kind = "ImageService"
	KindGPService         Kind = "GPService"
	KindGeometryService   Kind = "GeometryService"
	KindMobileService     Kind = "MobileService"
	KindGeocodeService    Kind = "GeocodeService"
	KindGlobeService      Kind = "GlobeService"
	KindGlobeLayer        Kind = "GlobeLayer"
	KindGeoDataService    Kind = "GeoDataService"
	KindNetworkService    Kind = "NetworkService"
	KindSceneService      Kind = "SceneService"
	KindSchematicsService Kind = "SchematicsService"
	KindVectorTileService Kind = "VectorTileService"
)

// constructor creates a service kind backed by a resource with T schema.
// Service properties are fetched with POST.
func constructor[T any, S Service](wrap func(r *resource.Resource[T]) S) Constructor {
	return func(ctx context.Context, serviceUrl string, conn rest.Connection, opts ...resource.Option) (Service, error) {
		r, err := resource.New[T](ctx, serviceUrl, conn, append([]resource.Option{resource.WithMethod(rest.MethodPost)}, opts...)...)
		if err != nil {
			return nil, err
		}

		return wrap(r), nil
	}
}

func init() {
	builtins := []struct {
		tag  string
		info KindRegistration
	}{
		{"mapserver", KindRegistration{
			Service: constructor(func(r *resource.Resource[MapServiceInfo]) *MapService { return &MapService{r} }),
			Layer:   constructor(func(r *resource.Resource[FeatureLayerInfo]) *FeatureLayer { return &FeatureLayer{r} }),
		}},
		{"featureserver", KindRegistration{
			Service: constructor(func(r *resource.Resource[FeatureServiceInfo]) *FeatureService { return &FeatureService{r} }),
			Layer:   constructor(func(r *resource.Resource[FeatureLayerInfo]) *FeatureLayer { return &FeatureLayer{r} }),
		}},
		{"imageserver", KindRegistration{
			Service: constructor(func(r *resource.Resource[ImageServiceInfo]) *ImageService { return &ImageService{r} }),
		}},
		{"gpserver", KindRegistration{
			Service: constructor(func(r *resource.Resource[GPServiceInfo]) *GPService { return &GPService{r} }),
		}},
		{"geometryserver", KindRegistration{
			Service: constructor(func(r *resource.Resource[GeometryServiceInfo]) *GeometryService { return &GeometryService{r} }),
		}},
		{"mobileserver", KindRegistration{
			Service: constructor(func(r *resource.Resource[MobileServiceInfo]) *MobileService { return &MobileService{r} }),
		}},
		{"geocodeserver", KindRegistration{
			Service: constructor(func(r *resource.Resource[GeocodeServiceInfo]) *GeocodeService { return &GeocodeService{r} }),
		}},
		{"globeserver", KindRegistration{
			Service: constructor(func(r *resource.Resource[GlobeServiceInfo]) *GlobeService { return &GlobeService{r} }),
			Layer:   constructor(func(r *resource.Resource[GlobeLayerInfo]) *GlobeLayer { return &GlobeLayer{r} }),
		}},
		{"geodataserver", KindRegistration{
			Service: constructor(func(r *resource.Resource[GeoDataServiceInfo]) *GeoDataService { return &GeoDataService{r} }),
		}},
		{"naserver", KindRegistration{
			Service: constructor(func(r *resource.Resource[NetworkServiceInfo]) *NetworkService { return &NetworkService{r} }),
		}},
		{"sceneserver", KindRegistration{
			Service: constructor(func(r *resource.Resource[SceneServiceInfo]) *SceneService { return &SceneService{r} }),
		}},
		{"schematicsserver", KindRegistration{
			Service: constructor(func(r *resource.Resource[SchematicsServiceInfo]) *SchematicsService { return &SchematicsService{r} }),
		}},
		{"vectortileserver", KindRegistration{
			Service: constructor(func(r *resource.Resource[VectorTileServiceInfo]) *VectorTileService { return &VectorTileService{r} }),
		}},
	}

	for _, builtin := range builtins {
		if err := RegisterKind(builtin.tag, builtin.info); err != nil {
			panic(err)
		}
	}
}

// LayerInfo is a summary of a layer or a table listed by a service
type LayerInfo struct {
	ID                int     `json:"id" yaml:"id"`
	Name              string  `json:"name" yaml:"name"`
	ParentLayerID     int     `json:"parentLayerId,omitempty" yaml:"parentLayerId,omitempty"`
	DefaultVisibility bool    `json:"defaultVisibility,omitempty" yaml:"defaultVisibility,omitempty"`
	SubLayerIDs       []int   `json:"subLayerIds,omitempty" yaml:"subLayerIds,omitempty"`
	MinScale          float64 `json:"minScale,omitempty" yaml:"minScale,omitempty"`
	MaxScale          float64 `json:"maxScale,omitempty" yaml:"maxScale,omitempty"`
	Type              string  `json:"type,omitempty" yaml:"type,omitempty"`
	GeometryType      string  `json:"geometryType,omitempty" yaml:"geometryType,omitempty"`
}

type MapServiceInfo struct {
	CurrentVersion        float64        `json:"currentVersion"`
	ServiceDescription    string         `json:"serviceDescription"`
	MapName               string         `json:"mapName"`
	Description           string         `json:"description"`
	CopyrightText         string         `json:"copyrightText"`
	SupportsDynamicLayers bool           `json:"supportsDynamicLayers"`
	Layers                []LayerInfo    `json:"layers"`
	Tables                []LayerInfo    `json:"tables"`
	SpatialReference      *geom.Geometry `json:"spatialReference"`
	SingleFusedMapCache   bool           `json:"singleFusedMapCache"`
	InitialExtent         *geom.Geometry `json:"initialExtent"`
	FullExtent            *geom.Geometry `json:"fullExtent"`
	Units                 string         `json:"units"`
	Capabilities          string         `json:"capabilities"`
	MaxRecordCount        int            `json:"maxRecordCount"`
}

type MapService struct {
	*resource.Resource[MapServiceInfo]
}

func (*MapService) Kind() Kind { return KindMapService }

// Layers creates resources of all layers and tables of the map service
func (s *MapService) Layers(ctx context.Context) ([]Service, error) {
	info, err := s.Fields(ctx)
	if err != nil {
		return nil, err
	}

	return subLayers(ctx, s, append(info.Layers, info.Tables...))
}

type FeatureServiceInfo struct {
	CurrentVersion              float64        `json:"currentVersion"`
	ServiceDescription          string         `json:"serviceDescription"`
	Description                 string         `json:"description"`
	CopyrightText               string         `json:"copyrightText"`
	HasVersionedData            bool           `json:"hasVersionedData"`
	SupportsDisconnectedEditing bool           `json:"supportsDisconnectedEditing"`
	SupportedQueryFormats       string         `json:"supportedQueryFormats"`
	MaxRecordCount              int            `json:"maxRecordCount"`
	Capabilities                string         `json:"capabilities"`
	SpatialReference            *geom.Geometry `json:"spatialReference"`
	InitialExtent               *geom.Geometry `json:"initialExtent"`
	FullExtent                  *geom.Geometry `json:"fullExtent"`
	AllowGeometryUpdates        bool           `json:"allowGeometryUpdates"`
	Units                       string         `json:"units"`
	EnableZDefaults             bool           `json:"enableZDefaults"`
	Layers                      []LayerInfo    `json:"layers"`
	Tables                      []LayerInfo    `json:"tables"`
}

type FeatureService struct {
	*resource.Resource[FeatureServiceInfo]
}

func (*FeatureService) Kind() Kind { return KindFeatureService }

// Layers creates resources of all layers and tables of the feature service
func (s *FeatureService) Layers(ctx context.Context) ([]Service, error) {
	info, err := s.Fields(ctx)
	if err != nil {
		return nil, err
	}

	return subLayers(ctx, s, append(info.Layers, info.Tables...))
}

type ImageServiceInfo struct {
	CurrentVersion     float64         `json:"currentVersion"`
	ServiceDescription string          `json:"serviceDescription"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	CopyrightText      string          `json:"copyrightText"`
	Extent             *geom.Geometry  `json:"extent"`
	InitialExtent      *geom.Geometry  `json:"initialExtent"`
	FullExtent         *geom.Geometry  `json:"fullExtent"`
	PixelSizeX         float64         `json:"pixelSizeX"`
	PixelSizeY         float64         `json:"pixelSizeY"`
	BandCount          int             `json:"bandCount"`
	PixelType          string          `json:"pixelType"`
	MinPixelSize       float64         `json:"minPixelSize"`
	MaxPixelSize       float64         `json:"maxPixelSize"`
	ServiceDataType    string          `json:"serviceDataType"`
	MinValues          []float64       `json:"minValues"`
	MaxValues          []float64       `json:"maxValues"`
	MeanValues         []float64       `json:"meanValues"`
	StdvValues         []float64       `json:"stdvValues"`
	ObjectIdField      string          `json:"objectIdField"`
	Fields             []feature.Field `json:"fields"`
	Capabilities       string          `json:"capabilities"`
	MaxRecordCount     int             `json:"maxRecordCount"`
	SpatialReference   *geom.Geometry  `json:"spatialReference"`
}

type ImageService struct {
	*resource.Resource[ImageServiceInfo]
}

func (*ImageService) Kind() Kind { return KindImageService }

type GPServiceInfo struct {
	CurrentVersion      float64  `json:"currentVersion"`
	ServiceDescription  string   `json:"serviceDescription"`
	Tasks               []string `json:"tasks"`
	ExecutionType       string   `json:"executionType"`
	ResultMapServerName string   `json:"resultMapServerName"`
	MaximumRecords      int      `json:"maximumRecords"`
}

// GPService is a geoprocessing service
type GPService struct {
	*resource.Resource[GPServiceInfo]
}

func (*GPService) Kind() Kind { return KindGPService }

type MobileServiceInfo struct {
	CurrentVersion   float64        `json:"currentVersion"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	Layers           []LayerInfo    `json:"layers"`
	FullExtent       *geom.Geometry `json:"fullExtent"`
	InitialExtent    *geom.Geometry `json:"initialExtent"`
	SpatialReference *geom.Geometry `json:"spatialReference"`
	Units            string         `json:"units"`
}

type MobileService struct {
	*resource.Resource[MobileServiceInfo]
}

func (*MobileService) Kind() Kind { return KindMobileService }

type GeocodeServiceInfo struct {
	CurrentVersion              float64         `json:"currentVersion"`
	ServiceDescription          string          `json:"serviceDescription"`
	AddressFields               []feature.Field `json:"addressFields"`
	SingleLineAddressField      *feature.Field  `json:"singleLineAddressField"`
	CandidateFields             []feature.Field `json:"candidateFields"`
	IntersectionCandidateFields []feature.Field `json:"intersectionCandidateFields"`
	SpatialReference            *geom.Geometry  `json:"spatialReference"`
	LocatorProperties           map[string]any  `json:"locatorProperties"`
	Capabilities                string          `json:"capabilities"`
}

type GeocodeService struct {
	*resource.Resource[GeocodeServiceInfo]
}

func (*GeocodeService) Kind() Kind { return KindGeocodeService }

type GlobeServiceInfo struct {
	CurrentVersion     float64     `json:"currentVersion"`
	ServiceDescription string      `json:"serviceDescription"`
	MapName            string      `json:"mapName"`
	Description        string      `json:"description"`
	CopyrightText      string      `json:"copyrightText"`
	Layers             []LayerInfo `json:"layers"`
	Units              string      `json:"units"`
}

type GlobeService struct {
	*resource.Resource[GlobeServiceInfo]
}

func (*GlobeService) Kind() Kind { return KindGlobeService }

type GlobeLayerInfo struct {
	CurrentVersion float64         `json:"currentVersion"`
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Description    string          `json:"description"`
	Extent         *geom.Geometry  `json:"extent"`
	DisplayField   string          `json:"displayField"`
	Fields         []feature.Field `json:"fields"`
	MinDistance    float64         `json:"minDistance"`
	MaxDistance    float64         `json:"maxDistance"`
	BaseID         int             `json:"baseID"`
}

// GlobeLayer is a numbered layer of a globe service
type GlobeLayer struct {
	*resource.Resource[GlobeLayerInfo]
}

func (*GlobeLayer) Kind() Kind { return KindGlobeLayer }

type GeoDataServiceInfo struct {
	CurrentVersion        float64 `json:"currentVersion"`
	Description           string  `json:"description"`
	DefaultWorkingVersion string  `json:"defaultWorkingVersion"`
}

type GeoDataService struct {
	*resource.Resource[GeoDataServiceInfo]
}

func (*GeoDataService) Kind() Kind { return KindGeoDataService }

type NetworkServiceInfo struct {
	CurrentVersion        float64  `json:"currentVersion"`
	ServiceDescription    string   `json:"serviceDescription"`
	RouteLayers           []string `json:"routeLayers"`
	ServiceAreaLayers     []string `json:"serviceAreaLayers"`
	ClosestFacilityLayers []string `json:"closestFacilityLayers"`
}

// NetworkService is a network analysis service
type NetworkService struct {
	*resource.Resource[NetworkServiceInfo]
}

func (*NetworkService) Kind() Kind { return KindNetworkService }

type SceneServiceInfo struct {
	CurrentVersion float64          `json:"currentVersion"`
	ServiceName    string           `json:"serviceName"`
	Name           string           `json:"name"`
	ServiceVersion string           `json:"serviceVersion"`
	Layers         []map[string]any `json:"layers"`
}

type SceneService struct {
	*resource.Resource[SceneServiceInfo]
}

func (*SceneService) Kind() Kind { return KindSceneService }

type SchematicsServiceInfo struct {
	CurrentVersion float64 `json:"currentVersion"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
}

type SchematicsService struct {
	*resource.Resource[SchematicsServiceInfo]
}

func (*SchematicsService) Kind() Kind { return KindSchematicsService }

type VectorTileServiceInfo struct {
	CurrentVersion float64        `json:"currentVersion"`
	Name           string         `json:"name"`
	Type           string         `json:"type"`
	Capabilities   string         `json:"capabilities"`
	DefaultStyles  string         `json:"defaultStyles"`
	Tiles          []string       `json:"tiles"`
	TileInfo       map[string]any `json:"tileInfo"`
	InitialExtent  *geom.Geometry `json:"initialExtent"`
	FullExtent     *geom.Geometry `json:"fullExtent"`
	MinScale       float64        `json:"minScale"`
	MaxScale       float64        `json:"maxScale"`
}

type VectorTileService struct {
	*resource.Resource[VectorTileServiceInfo]
}

func (*VectorTileService) Kind() Kind { return KindVectorTileService }
