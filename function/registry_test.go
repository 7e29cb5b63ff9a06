package function

import (
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paulmach/orb"

	"github.com/hugr-lab/airport-predicate/geometry"
)

func counter() Instance {
	n := int64(0)
	return InstanceFunc(func([]any) (any, error) {
		n++
		return n, nil
	})
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Function{Name: "Counter", New: counter}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(Function{Name: "counter", New: counter}); err == nil {
		t.Error("expected duplicate registration to fail ignoring case")
	}
	if err := r.Register(Function{Name: "nofactory"}); err == nil {
		t.Error("expected registration without factory to fail")
	}
	if err := r.Register(Function{New: counter}); err == nil {
		t.Error("expected registration without name to fail")
	}

	f, ok := r.Lookup("COUNTER")
	if !ok || f.Name != "Counter" {
		t.Fatalf("expected case-insensitive lookup, got %v %v", f, ok)
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("expected missing function")
	}
	var nilRegistry *Registry
	if _, ok := nilRegistry.Lookup("counter"); ok {
		t.Error("nil registry must not resolve functions")
	}
}

func TestRegistryInstances(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Function{Name: "stateful", New: counter})
	r.MustRegister(Function{Name: "shared", New: counter, Stateless: true})

	stateful, _ := r.Lookup("stateful")
	a, b := r.Instance(stateful), r.Instance(stateful)
	a.Call(nil)
	a.Call(nil)
	if got, _ := b.Call(nil); got != int64(1) {
		t.Errorf("expected independent instance state, got %v", got)
	}

	shared, _ := r.Lookup("shared")
	c, d := r.Instance(shared), r.Instance(shared)
	c.Call(nil)
	if got, _ := d.Call(nil); got != int64(2) {
		t.Errorf("expected shared instance state, got %v", got)
	}
}

func TestCheckArity(t *testing.T) {
	fixed := &Function{Name: "f", Signature: Signature{Parameters: []arrow.DataType{nil, nil}}}
	variadic := &Function{Name: "v", Signature: Signature{Parameters: []arrow.DataType{nil}, Variadic: true}}

	if err := fixed.CheckArity(2); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := fixed.CheckArity(1); err == nil {
		t.Error("expected arity error")
	}
	for _, n := range []int{0, 1, 5} {
		if err := variadic.CheckArity(n); err != nil {
			t.Errorf("variadic arity %d: unexpected error: %v", n, err)
		}
	}
}

func TestNames(t *testing.T) {
	names := NewBuiltinRegistry().Names()
	joined := strings.Join(names, ",")
	for _, want := range []string{"url_decode_param", "url_extract_path", "lower", "st_contains"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected builtin %s in %v", want, names)
		}
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}

func call(t *testing.T, r *Registry, name string, args ...any) (any, error) {
	t.Helper()
	f, ok := r.Lookup(name)
	if !ok {
		t.Fatalf("builtin %s not registered", name)
	}
	return r.Instance(f).Call(args)
}

func TestBuiltins(t *testing.T) {
	r := NewBuiltinRegistry()
	square := orb.Polygon{{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}}}
	wkbPoint, _ := geometry.Encode(orb.Point{1, 1})

	tests := []struct {
		name string
		fn   string
		args []any
		want any
	}{
		{"decode param", "url_decode_param", []any{"a%20b+c"}, "a b c"},
		{"extract path", "url_extract_path", []any{"http://host.com:8080/a/b%20c?x=1"}, "/a/b c"},
		{"extract path empty", "url_extract_path", []any{"http://host.com"}, ""},
		{"extract host", "url_extract_host", []any{"https://example.org/x"}, "example.org"},
		{"extract host missing", "url_extract_host", []any{"/relative"}, nil},
		{"extract query", "url_extract_query", []any{"http://h/p?a=1&b=x%20y"}, "a=1&b=x y"},
		{"null propagates", "lower", []any{nil}, nil},
		{"lower", "lower", []any{"MiXeD"}, "mixed"},
		{"upper", "upper", []any{"abc"}, "ABC"},
		{"trim", "trim", []any{"  x "}, "x"},
		{"length runes", "length", []any{"héllo"}, int64(5)},
		{"concat skips null", "concat", []any{"a", nil, "b"}, "ab"},
		{"abs int", "abs", []any{int64(-3)}, int64(3)},
		{"abs float", "abs", []any{-1.5}, 1.5},
		{"st_x", "st_x", []any{orb.Point{2, 3}}, 2.0},
		{"st_y from wkb", "st_y", []any{wkbPoint}, 1.0},
		{"st_area", "st_area", []any{square}, 16.0},
		{"st_distance", "st_distance", []any{orb.Point{0, 0}, orb.Point{3, 4}}, 5.0},
		{"st_contains", "st_contains", []any{square, orb.Point{1, 1}}, true},
		{"st_contains outside", "st_contains", []any{square, orb.Point{5, 5}}, false},
		{"st_within", "st_within", []any{orb.Point{1, 1}, square}, true},
		{"st_geometrytype", "st_geometrytype", []any{square}, "POLYGON"},
		{"st_point", "st_point", []any{int64(1), 2.5}, orb.Point{1, 2.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := call(t, r, tt.fn, tt.args...)
			if err != nil {
				t.Fatalf("%s failed: %v", tt.fn, err)
			}
			if got != tt.want {
				t.Errorf("expected %T(%v), got %T(%v)", tt.want, tt.want, got, got)
			}
		})
	}
}

func TestBuiltinErrors(t *testing.T) {
	r := NewBuiltinRegistry()
	tests := []struct {
		name string
		fn   string
		args []any
	}{
		{"bad escape", "url_decode_param", []any{"%zz"}},
		{"bad url", "url_extract_path", []any{"http://[::1"}},
		{"wrong type", "lower", []any{int64(1)}},
		{"not a point", "st_x", []any{orb.LineString{{0, 0}, {1, 1}}}},
		{"contains non polygon", "st_contains", []any{orb.Point{0, 0}, orb.Point{0, 0}}},
		{"abs overflow", "abs", []any{int64(-1 << 63)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := call(t, r, tt.fn, tt.args...); err == nil {
				t.Errorf("expected %s to fail", tt.fn)
			}
		})
	}
}
