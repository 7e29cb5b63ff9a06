package geometry

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paulmach/orb"
)

func TestExtensionType(t *testing.T) {
	ext := NewExtensionType()
	if ext.ExtensionName() != "geoarrow.wkb" {
		t.Errorf("expected extension name 'geoarrow.wkb', got '%s'", ext.ExtensionName())
	}
	if !arrow.TypeEqual(ext.StorageType(), arrow.BinaryTypes.Binary) {
		t.Errorf("expected Binary storage type, got %s", ext.StorageType())
	}
	if !Is(ext) {
		t.Error("expected Is to recognize the extension type")
	}
	if Is(arrow.BinaryTypes.Binary) {
		t.Error("plain binary is not a geometry type")
	}
}

func TestDeserialize(t *testing.T) {
	ext := NewExtensionType()
	tests := []struct {
		name    string
		storage arrow.DataType
		wantErr bool
	}{
		{"binary", arrow.BinaryTypes.Binary, false},
		{"large binary", arrow.BinaryTypes.LargeBinary, false},
		{"int64", arrow.PrimitiveTypes.Int64, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ext.Deserialize(tt.storage, "")
			if (err != nil) != tt.wantErr {
				t.Errorf("Deserialize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	geoms := []orb.Geometry{
		orb.Point{1, 2},
		orb.LineString{{0, 0}, {1, 1}},
		orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
	}
	for _, g := range geoms {
		b, err := Encode(g)
		if err != nil {
			t.Fatalf("Encode(%s) failed: %v", TypeName(g), err)
		}
		got, err := Decode(b)
		if err != nil {
			t.Fatalf("Decode(%s) failed: %v", TypeName(g), err)
		}
		if !orb.Equal(g, got) {
			t.Errorf("round trip changed %s: %v", TypeName(g), got)
		}
	}

	if _, err := Encode(nil); err == nil {
		t.Error("expected error encoding nil geometry")
	}
	if _, err := Decode(nil); err == nil {
		t.Error("expected error decoding empty WKB")
	}
}

func TestGeometryColumn(t *testing.T) {
	field := NewField("geom", true, 4326)
	if v, ok := field.Metadata.GetValue("srid"); !ok || v != "4326" {
		t.Errorf("expected srid 4326, got %q", v)
	}

	b := array.NewBinaryBuilder(memory.DefaultAllocator, arrow.BinaryTypes.Binary)
	defer b.Release()
	wkbBytes, _ := Encode(orb.Point{3, 4})
	b.Append(wkbBytes)
	b.AppendNull()
	storage := b.NewArray()
	defer storage.Release()

	arr := array.NewExtensionArrayWithStorage(NewExtensionType(), storage)
	defer arr.Release()
	if arr.Len() != 2 || !arr.IsNull(1) {
		t.Fatalf("unexpected extension array: len=%d", arr.Len())
	}
	geoms, ok := arr.(*Array)
	if !ok {
		t.Fatalf("expected *Array, got %T", arr)
	}
	got, err := geoms.Value(0)
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if !orb.Equal(got, orb.Point{3, 4}) {
		t.Errorf("expected POINT(3 4), got %v", got)
	}
	if g, err := geoms.Value(1); g != nil || err != nil {
		t.Errorf("expected nil for null element, got %v, %v", g, err)
	}
}
