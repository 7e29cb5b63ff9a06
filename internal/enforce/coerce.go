package enforce

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/decimal256"
	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/hugr-lab/airport-predicate/filter"
	"github.com/hugr-lab/airport-predicate/geometry"
)

var (
	errOutOfRange  = errors.New("value out of range")
	errUnsupported = errors.New("unsupported conversion")
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Coerce converts v to the representation of t. nil stays nil.
func Coerce(v any, t Target) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t.Kind {
	case KindAny:
		return v, nil
	case KindNull:
		return nil, nil
	case KindBool:
		return toBool(v)
	case KindInt:
		n, err := toInt(v, t)
		if err != nil {
			return nil, err
		}
		if t.bounded() && (n < t.Min || n > t.Max) {
			return nil, fmt.Errorf("%w: %d", errOutOfRange, n)
		}
		return n, nil
	case KindFloat:
		return toFloat(v, t)
	case KindString:
		return toString(v)
	case KindBytes:
		switch x := v.(type) {
		case []byte:
			return x, nil
		case string:
			return []byte(x), nil
		case uuid.UUID:
			return x[:], nil
		}
	case KindTime:
		return toTime(v, t)
	case KindDuration:
		return toDuration(v, t)
	case KindGeometry:
		switch x := v.(type) {
		case orb.Geometry:
			return x, nil
		case []byte:
			return geometry.Decode(x)
		case string:
			return wkt.Unmarshal(x)
		}
	}
	return nil, fmt.Errorf("%w from %T", errUnsupported, v)
}

func toBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "t", "yes", "y", "1":
			return true, nil
		case "false", "f", "no", "n", "0":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", x)
	}
	if n, ok := integer(v); ok {
		return n != 0, nil
	}
	return nil, fmt.Errorf("%w from %T", errUnsupported, v)
}

// integer widens Go integer types to int64.
func integer(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint:
		if uint64(x) <= math.MaxInt64 {
			return int64(x), true
		}
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x), true
		}
	}
	return 0, false
}

func toInt(v any, t Target) (int64, error) {
	if n, ok := integer(v); ok {
		return n, nil
	}
	switch x := v.(type) {
	case uint, uint64:
		return 0, fmt.Errorf("%w: %v", errOutOfRange, x)
	case float64:
		return floatToInt(x)
	case float32:
		return floatToInt(float64(x))
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", x)
		}
		return floatToInt(f)
	}
	f, err := toFloat(v, t)
	if err != nil {
		return 0, err
	}
	return floatToInt(f.(float64))
}

func floatToInt(f float64) (int64, error) {
	if math.IsNaN(f) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %v", errOutOfRange, f)
	}
	return int64(f), nil
}

func toFloat(v any, t Target) (any, error) {
	if n, ok := integer(v); ok {
		return float64(n), nil
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case float16.Num:
		return float64(x.Float32()), nil
	case decimal128.Num:
		return x.ToFloat64(decimalScale(t.Type)), nil
	case decimal256.Num:
		return x.ToFloat64(decimalScale(t.Type)), nil
	case uint64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", x)
		}
		return f, nil
	}
	return nil, fmt.Errorf("%w from %T", errUnsupported, v)
}

func decimalScale(dt arrow.DataType) int32 {
	if d, ok := dt.(arrow.DecimalType); ok {
		return d.GetScale()
	}
	return 0
}

func toString(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case uuid.UUID:
		return x.String(), nil
	case [16]byte:
		return uuid.UUID(x).String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case time.Time:
		return x.Format("2006-01-02 15:04:05.999999999"), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	if n, ok := integer(v); ok {
		return strconv.FormatInt(n, 10), nil
	}
	return nil, fmt.Errorf("%w from %T", errUnsupported, v)
}

func toTime(v any, t Target) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case arrow.Date32:
		return x.ToTime(), nil
	case arrow.Date64:
		return x.ToTime(), nil
	case arrow.Timestamp:
		return x.ToTime(timestampUnit(t.Type)), nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("invalid timestamp %q", x)
	}
	if n, ok := integer(v); ok {
		switch t.Type.(type) {
		case *arrow.Date32Type:
			return arrow.Date32(n).ToTime(), nil
		case *arrow.Date64Type:
			return arrow.Date64(n).ToTime(), nil
		}
		return arrow.Timestamp(n).ToTime(timestampUnit(t.Type)), nil
	}
	return nil, fmt.Errorf("%w from %T", errUnsupported, v)
}

func timestampUnit(dt arrow.DataType) arrow.TimeUnit {
	if ts, ok := dt.(*arrow.TimestampType); ok {
		return ts.Unit
	}
	return arrow.Microsecond
}

func durationUnit(dt arrow.DataType) arrow.TimeUnit {
	switch d := dt.(type) {
	case *arrow.Time32Type:
		return d.Unit
	case *arrow.Time64Type:
		return d.Unit
	case *arrow.DurationType:
		return d.Unit
	}
	return arrow.Microsecond
}

func toDuration(v any, t Target) (any, error) {
	switch x := v.(type) {
	case time.Duration:
		return x, nil
	case arrow.Time32:
		return time.Duration(x) * durationUnit(t.Type).Multiplier(), nil
	case arrow.Time64:
		return time.Duration(x) * durationUnit(t.Type).Multiplier(), nil
	case arrow.Duration:
		return time.Duration(x) * durationUnit(t.Type).Multiplier(), nil
	case string:
		s := strings.TrimSpace(x)
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		if ts, err := time.Parse("15:04:05.999999999", s); err == nil {
			return time.Duration(ts.Hour())*time.Hour + time.Duration(ts.Minute())*time.Minute +
				time.Duration(ts.Second())*time.Second + time.Duration(ts.Nanosecond()), nil
		}
		return nil, fmt.Errorf("invalid interval %q", x)
	}
	if n, ok := integer(v); ok {
		return time.Duration(n) * durationUnit(t.Type).Multiplier(), nil
	}
	return nil, fmt.Errorf("%w from %T", errUnsupported, v)
}

// Literal converts a constant from a filter expression to its runtime
// representation.
func Literal(v filter.Value) (any, error) {
	if v.IsNull || v.Data == nil {
		return nil, nil
	}
	id := v.Type.ID.Normalize()
	switch x := v.Data.(type) {
	case int64:
		switch id {
		case filter.TypeIDDate:
			return time.Unix(x*86400, 0).UTC(), nil
		case filter.TypeIDTime, filter.TypeIDTimeTZ:
			return time.Duration(x) * time.Microsecond, nil
		case filter.TypeIDTimestamp, filter.TypeIDTimestampTZ, filter.TypeIDTimestampMs,
			filter.TypeIDTimestampNs, filter.TypeIDTimestampSec:
			return filter.TimestampValue(x, id), nil
		}
		return x, nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("constant %d: %w", x, errOutOfRange)
		}
		return int64(x), nil
	case filter.Interval:
		return time.Duration(x.Months)*30*24*time.Hour +
			time.Duration(x.Days)*24*time.Hour +
			time.Duration(x.Micros)*time.Microsecond, nil
	case []filter.Value:
		out := make([]any, len(x))
		for i, item := range x {
			lv, err := Literal(item)
			if err != nil {
				return nil, err
			}
			out[i] = lv
		}
		return out, nil
	case bool, float64, string, []byte:
		return x, nil
	}
	return nil, fmt.Errorf("constant of type %s: %w from %T", filter.TypeName(v.Type), errUnsupported, v.Data)
}
