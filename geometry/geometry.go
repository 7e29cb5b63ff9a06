// Package geometry provides the geoarrow.wkb Arrow extension type used for
// geometry columns, and WKB conversion to and from orb geometries.
package geometry

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

// ExtensionName identifies geometry columns. It matches GeoArrow and the
// DuckDB spatial extension.
const ExtensionName = "geoarrow.wkb"

// ExtensionType stores geometries as WKB in Binary or LargeBinary columns.
type ExtensionType struct {
	arrow.ExtensionBase
}

// NewExtensionType creates a geometry extension type over Binary storage.
func NewExtensionType() *ExtensionType {
	return &ExtensionType{ExtensionBase: arrow.ExtensionBase{Storage: arrow.BinaryTypes.Binary}}
}

func (g *ExtensionType) ArrayType() reflect.Type { return reflect.TypeOf(Array{}) }
func (g *ExtensionType) ExtensionName() string   { return ExtensionName }
func (g *ExtensionType) String() string          { return "extension<" + ExtensionName + ">" }
func (g *ExtensionType) Serialize() string       { return "" }

func (g *ExtensionType) Deserialize(storageType arrow.DataType, _ string) (arrow.ExtensionType, error) {
	if !arrow.TypeEqual(storageType, arrow.BinaryTypes.Binary) &&
		!arrow.TypeEqual(storageType, arrow.BinaryTypes.LargeBinary) {
		return nil, fmt.Errorf("invalid storage type for geometry: %s (expected Binary or LargeBinary)", storageType)
	}
	return &ExtensionType{ExtensionBase: arrow.ExtensionBase{Storage: storageType}}, nil
}

func (g *ExtensionType) ExtensionEquals(other arrow.ExtensionType) bool {
	o, ok := other.(*ExtensionType)
	return ok && arrow.TypeEqual(g.StorageType(), o.StorageType())
}

// Array holds WKB geometries over Binary or LargeBinary storage.
type Array struct {
	array.ExtensionArrayBase
}

// WKB returns the raw bytes of element i. Null elements return nil.
func (a *Array) WKB(i int) []byte {
	if a.IsNull(i) {
		return nil
	}
	switch s := a.Storage().(type) {
	case *array.Binary:
		return s.Value(i)
	case *array.LargeBinary:
		return s.Value(i)
	}
	return nil
}

// Value decodes element i. Null elements decode to nil.
func (a *Array) Value(i int) (orb.Geometry, error) {
	b := a.WKB(i)
	if b == nil {
		return nil, nil
	}
	return Decode(b)
}

// Is reports whether dt is a geometry column type.
func Is(dt arrow.DataType) bool {
	ext, ok := dt.(arrow.ExtensionType)
	return ok && ext.ExtensionName() == ExtensionName
}

// NewField creates a geometry field with the extension and SRID metadata
// DuckDB expects.
func NewField(name string, nullable bool, srid int) arrow.Field {
	ext := NewExtensionType()
	return arrow.Field{
		Name:     name,
		Type:     ext,
		Nullable: nullable,
		Metadata: arrow.MetadataFrom(map[string]string{
			"ARROW:extension:name":     ext.ExtensionName(),
			"ARROW:extension:metadata": `{"encoding":"WKB","crs":{"id":{"authority":"EPSG","code":` + strconv.Itoa(srid) + `}}}`,
			"srid":                     strconv.Itoa(srid),
		}),
	}
}

// Encode converts an orb.Geometry to WKB bytes.
func Encode(geom orb.Geometry) ([]byte, error) {
	if geom == nil {
		return nil, fmt.Errorf("cannot encode nil geometry")
	}
	return wkb.Marshal(geom)
}

// Decode converts WKB bytes to an orb.Geometry.
func Decode(b []byte) (orb.Geometry, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("cannot decode empty WKB data")
	}
	return wkb.Unmarshal(b)
}

// TypeName returns the OGC type name of geom.
func TypeName(geom orb.Geometry) string {
	switch geom.(type) {
	case orb.Point:
		return "POINT"
	case orb.MultiPoint:
		return "MULTIPOINT"
	case orb.LineString:
		return "LINESTRING"
	case orb.MultiLineString:
		return "MULTILINESTRING"
	case orb.Polygon:
		return "POLYGON"
	case orb.MultiPolygon:
		return "MULTIPOLYGON"
	case orb.Collection:
		return "GEOMETRYCOLLECTION"
	}
	return "UNKNOWN"
}

func init() {
	_ = arrow.RegisterExtensionType(NewExtensionType())
}
