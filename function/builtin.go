package function

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/hugr-lab/airport-predicate/geometry"
)

var (
	typeString = arrow.BinaryTypes.String
	typeInt    = arrow.PrimitiveTypes.Int64
	typeFloat  = arrow.PrimitiveTypes.Float64
	typeBool   = arrow.FixedWidthTypes.Boolean
	typeGeom   = geometry.NewExtensionType()
)

// NewBuiltinRegistry returns a registry holding the built-in functions.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, f := range builtins() {
		r.MustRegister(f)
	}
	return r
}

// strict wraps fn as a stateless function that returns NULL when any
// argument is NULL.
func strict(name, desc string, sig Signature, fn func(args []any) (any, error)) Function {
	inst := InstanceFunc(func(args []any) (any, error) {
		for _, a := range args {
			if a == nil {
				return nil, nil
			}
		}
		return fn(args)
	})
	return Function{
		Name:        name,
		Description: desc,
		Signature:   sig,
		New:         func() Instance { return inst },
		Stateless:   true,
	}
}

func builtins() []Function {
	str1 := Signature{Parameters: []arrow.DataType{typeString}, ReturnType: typeString}
	geom1 := func(ret arrow.DataType) Signature {
		return Signature{Parameters: []arrow.DataType{typeGeom}, ReturnType: ret}
	}
	geom2 := func(ret arrow.DataType) Signature {
		return Signature{Parameters: []arrow.DataType{typeGeom, typeGeom}, ReturnType: ret}
	}

	return []Function{
		strict("url_decode_param", "Decodes a previously encoded application/x-www-form-urlencoded string", str1, urlDecodeParam),
		strict("url_extract_path", "Extracts the path of a URL", str1, urlPart(func(u *url.URL) any { return u.Path })),
		strict("url_extract_host", "Extracts the host of a URL", str1, urlPart(func(u *url.URL) any {
			if h := u.Hostname(); h != "" {
				return h
			}
			return nil
		})),
		strict("url_extract_query", "Extracts the decoded query of a URL", str1, urlPart(func(u *url.URL) any {
			if u.RawQuery == "" {
				return nil
			}
			if q, err := url.QueryUnescape(u.RawQuery); err == nil {
				return q
			}
			return u.RawQuery
		})),

		strict("lower", "Converts a string to lower case", str1, func(args []any) (any, error) {
			s, err := stringArg("lower", args, 0)
			return strings.ToLower(s), err
		}),
		strict("upper", "Converts a string to upper case", str1, func(args []any) (any, error) {
			s, err := stringArg("upper", args, 0)
			return strings.ToUpper(s), err
		}),
		strict("trim", "Removes leading and trailing whitespace", str1, func(args []any) (any, error) {
			s, err := stringArg("trim", args, 0)
			return strings.TrimSpace(s), err
		}),
		strict("length", "Number of characters in a string",
			Signature{Parameters: []arrow.DataType{typeString}, ReturnType: typeInt},
			func(args []any) (any, error) {
				s, err := stringArg("length", args, 0)
				return int64(utf8.RuneCountInString(s)), err
			}),
		{
			Name:        "concat",
			Description: "Concatenates strings, skipping NULL arguments",
			Signature:   Signature{Parameters: []arrow.DataType{typeString}, ReturnType: typeString, Variadic: true},
			New:         func() Instance { return InstanceFunc(concat) },
			Stateless:   true,
		},
		strict("abs", "Absolute value",
			Signature{Parameters: []arrow.DataType{nil}},
			func(args []any) (any, error) {
				switch v := args[0].(type) {
				case int64:
					if v == math.MinInt64 {
						return nil, fmt.Errorf("abs: %d overflows BIGINT", v)
					}
					if v < 0 {
						return -v, nil
					}
					return v, nil
				case float64:
					return math.Abs(v), nil
				}
				return nil, fmt.Errorf("abs: expected a number, got %T", args[0])
			}),

		strict("st_point", "Creates a point from x and y",
			Signature{Parameters: []arrow.DataType{typeFloat, typeFloat}, ReturnType: typeGeom},
			func(args []any) (any, error) {
				x, err := floatArg("st_point", args, 0)
				if err != nil {
					return nil, err
				}
				y, err := floatArg("st_point", args, 1)
				return orb.Point{x, y}, err
			}),
		strict("st_x", "X coordinate of a point", geom1(typeFloat), func(args []any) (any, error) {
			p, err := pointArg("st_x", args, 0)
			return p.X(), err
		}),
		strict("st_y", "Y coordinate of a point", geom1(typeFloat), func(args []any) (any, error) {
			p, err := pointArg("st_y", args, 0)
			return p.Y(), err
		}),
		strict("st_area", "Planar area of a geometry", geom1(typeFloat), func(args []any) (any, error) {
			g, err := geomArg("st_area", args, 0)
			if err != nil {
				return nil, err
			}
			return planar.Area(g), nil
		}),
		strict("st_geometrytype", "OGC type name of a geometry", geom1(typeString), func(args []any) (any, error) {
			g, err := geomArg("st_geometrytype", args, 0)
			if err != nil {
				return nil, err
			}
			return geometry.TypeName(g), nil
		}),
		strict("st_distance", "Planar distance between a geometry and a point", geom2(typeFloat), stDistance),
		strict("st_contains", "Whether a polygon contains a point", geom2(typeBool), func(args []any) (any, error) {
			return contains("st_contains", args, 0, 1)
		}),
		strict("st_within", "Whether a point lies within a polygon", geom2(typeBool), func(args []any) (any, error) {
			return contains("st_within", args, 1, 0)
		}),
	}
}

func urlDecodeParam(args []any) (any, error) {
	s, err := stringArg("url_decode_param", args, 0)
	if err != nil {
		return nil, err
	}
	out, err := url.QueryUnescape(s)
	if err != nil {
		return nil, fmt.Errorf("url_decode_param encountered an encoding error while decoding: %s: %w", s, err)
	}
	return out, nil
}

func urlPart(part func(*url.URL) any) func(args []any) (any, error) {
	return func(args []any) (any, error) {
		s, err := stringArg("url", args, 0)
		if err != nil {
			return nil, err
		}
		u, err := url.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("URL input has invalid syntax: %s: %w", s, err)
		}
		return part(u), nil
	}
}

func concat(args []any) (any, error) {
	var sb strings.Builder
	for i, a := range args {
		if a == nil {
			continue
		}
		s, err := stringArg("concat", args, i)
		if err != nil {
			return nil, err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

func stDistance(args []any) (any, error) {
	a, err := geomArg("st_distance", args, 0)
	if err != nil {
		return nil, err
	}
	b, err := geomArg("st_distance", args, 1)
	if err != nil {
		return nil, err
	}
	if p, ok := b.(orb.Point); ok {
		return planar.DistanceFrom(a, p), nil
	}
	if p, ok := a.(orb.Point); ok {
		return planar.DistanceFrom(b, p), nil
	}
	return nil, fmt.Errorf("st_distance: one argument must be a POINT, got %s and %s",
		geometry.TypeName(a), geometry.TypeName(b))
}

func contains(name string, args []any, outer, inner int) (any, error) {
	g, err := geomArg(name, args, outer)
	if err != nil {
		return nil, err
	}
	p, err := pointArg(name, args, inner)
	if err != nil {
		return nil, err
	}
	switch poly := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(poly, p), nil
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(poly, p), nil
	case orb.Bound:
		return poly.Contains(p), nil
	}
	return nil, fmt.Errorf("%s: expected POLYGON or MULTIPOLYGON, got %s", name, geometry.TypeName(g))
}

func stringArg(name string, args []any, i int) (string, error) {
	switch v := args[i].(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("%s: argument %d: expected VARCHAR, got %T", name, i+1, args[i])
}

func floatArg(name string, args []any, i int) (float64, error) {
	switch v := args[i].(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("%s: argument %d: expected a number, got %T", name, i+1, args[i])
}

func geomArg(name string, args []any, i int) (orb.Geometry, error) {
	switch v := args[i].(type) {
	case orb.Geometry:
		return v, nil
	case []byte:
		g, err := geometry.Decode(v)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", name, i+1, err)
		}
		return g, nil
	}
	return nil, fmt.Errorf("%s: argument %d: expected GEOMETRY, got %T", name, i+1, args[i])
}

func pointArg(name string, args []any, i int) (orb.Point, error) {
	g, err := geomArg(name, args, i)
	if err != nil {
		return orb.Point{}, err
	}
	p, ok := g.(orb.Point)
	if !ok {
		return orb.Point{}, fmt.Errorf("%s: argument %d: expected POINT, got %s", name, i+1, geometry.TypeName(g))
	}
	return p, nil
}
