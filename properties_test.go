package flatgeobuf

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/paulmach/orb/geojson"

	"github.com/geostreamio/flatgeobuf/flattypes"
)

func TestInferColumnType(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected flattypes.ColumnType
	}{
		{"nil", nil, flattypes.ColumnTypeString},
		{"bool true", true, flattypes.ColumnTypeBool},
		{"bool false", false, flattypes.ColumnTypeBool},
		{"int", 42, flattypes.ColumnTypeInt},
		{"int64", int64(9999999999), flattypes.ColumnTypeLong},
		{"float32", float32(3.14), flattypes.ColumnTypeFloat},
		{"float64", 3.14159, flattypes.ColumnTypeDouble},
		{"string", "hello", flattypes.ColumnTypeString},
		{"map", map[string]interface{}{"key": "value"}, flattypes.ColumnTypeJson},
		{"slice", []interface{}{1, 2, 3}, flattypes.ColumnTypeJson},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := inferColumnType(tt.value)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestInferColumnType_JsonNumber(t *testing.T) {
	intNum := json.Number("42")
	result := inferColumnType(intNum)
	if result != flattypes.ColumnTypeLong {
		t.Errorf("expected Long for integer json.Number, got %v", result)
	}

	floatNum := json.Number("3.14")
	result = inferColumnType(floatNum)
	if result != flattypes.ColumnTypeDouble {
		t.Errorf("expected Double for float json.Number, got %v", result)
	}
}

func TestPromoteColumnType(t *testing.T) {
	tests := []struct {
		name     string
		a, b     flattypes.ColumnType
		expected flattypes.ColumnType
	}{
		{"same type", flattypes.ColumnTypeInt, flattypes.ColumnTypeInt, flattypes.ColumnTypeInt},
		{"int to long", flattypes.ColumnTypeInt, flattypes.ColumnTypeLong, flattypes.ColumnTypeLong},
		{"int to double", flattypes.ColumnTypeInt, flattypes.ColumnTypeDouble, flattypes.ColumnTypeDouble},
		{"any to json", flattypes.ColumnTypeInt, flattypes.ColumnTypeJson, flattypes.ColumnTypeJson},
		{"any to string", flattypes.ColumnTypeInt, flattypes.ColumnTypeString, flattypes.ColumnTypeString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := promoteColumnType(tt.a, tt.b)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestInferColumns(t *testing.T) {
	features := []*geojson.Feature{
		{Properties: geojson.Properties{"name": "a", "value": 1}},
		{Properties: geojson.Properties{"name": "b", "active": true}},
	}

	columns := inferColumns(features)

	// Columns are ordered by name for a deterministic schema.
	expected := []columnMeta{
		{name: "active", typ: flattypes.ColumnTypeBool},
		{name: "name", typ: flattypes.ColumnTypeString},
		{name: "value", typ: flattypes.ColumnTypeInt},
	}

	if len(columns) != len(expected) {
		t.Fatalf("expected %d columns, got %d", len(expected), len(columns))
	}
	for i, want := range expected {
		if columns[i] != want {
			t.Errorf("column %d: expected %+v, got %+v", i, want, columns[i])
		}
	}
}

func TestPropertiesRoundTrip(t *testing.T) {
	columns := []columnMeta{
		{name: "active", typ: flattypes.ColumnTypeBool},
		{name: "count", typ: flattypes.ColumnTypeInt},
		{name: "id", typ: flattypes.ColumnTypeLong},
		{name: "name", typ: flattypes.ColumnTypeString},
		{name: "ratio", typ: flattypes.ColumnTypeDouble},
		{name: "tags", typ: flattypes.ColumnTypeJson},
		{name: "when", typ: flattypes.ColumnTypeDateTime},
	}

	props := geojson.Properties{
		"active": true,
		"count":  7,
		"id":     int64(9999999999),
		"name":   "feature one",
		"ratio":  0.25,
		"tags":   []interface{}{"a", "b"},
		"when":   "2015-04-21T09:00:00Z",
	}

	data, err := encodeProperties(props, columns)
	if err != nil {
		t.Fatalf("encodeProperties failed: %v", err)
	}

	decoded, err := decodeProperties(data, columns)
	if err != nil {
		t.Fatalf("decodeProperties failed: %v", err)
	}

	if decoded["active"] != true {
		t.Errorf("active: got %v", decoded["active"])
	}
	if decoded["count"] != int32(7) {
		t.Errorf("count: expected int32(7), got %v (%T)", decoded["count"], decoded["count"])
	}
	if decoded["id"] != int64(9999999999) {
		t.Errorf("id: got %v", decoded["id"])
	}
	if decoded["name"] != "feature one" {
		t.Errorf("name: got %v", decoded["name"])
	}
	if decoded["ratio"] != 0.25 {
		t.Errorf("ratio: got %v", decoded["ratio"])
	}
	if decoded["when"] != "2015-04-21T09:00:00Z" {
		t.Errorf("when: got %v", decoded["when"])
	}

	tags, ok := decoded["tags"].([]interface{})
	if !ok || len(tags) != 2 || tags[0] != "a" || tags[1] != "b" {
		t.Errorf("tags: got %v (%T)", decoded["tags"], decoded["tags"])
	}
}

func TestEncodeProperties_Deterministic(t *testing.T) {
	columns := []columnMeta{
		{name: "a", typ: flattypes.ColumnTypeInt},
		{name: "b", typ: flattypes.ColumnTypeString},
		{name: "c", typ: flattypes.ColumnTypeBool},
	}
	props := geojson.Properties{"c": true, "a": 1, "b": "x"}

	first, err := encodeProperties(props, columns)
	if err != nil {
		t.Fatalf("encodeProperties failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := encodeProperties(props, columns)
		if err != nil {
			t.Fatalf("encodeProperties failed: %v", err)
		}
		if string(again) != string(first) {
			t.Fatal("expected identical blobs for identical inputs")
		}
	}
}

func TestEncodeProperties_SkipsMissing(t *testing.T) {
	columns := []columnMeta{
		{name: "a", typ: flattypes.ColumnTypeInt},
		{name: "b", typ: flattypes.ColumnTypeInt},
	}
	props := geojson.Properties{"b": 2}

	data, err := encodeProperties(props, columns)
	if err != nil {
		t.Fatalf("encodeProperties failed: %v", err)
	}

	decoded, err := decodeProperties(data, columns)
	if err != nil {
		t.Fatalf("decodeProperties failed: %v", err)
	}
	if _, ok := decoded["a"]; ok {
		t.Error("expected column a to be absent")
	}
	if decoded["b"] != int32(2) {
		t.Errorf("b: got %v", decoded["b"])
	}
}

func TestEncodeProperties_TypeMismatch(t *testing.T) {
	columns := []columnMeta{
		{name: "flag", typ: flattypes.ColumnTypeBool},
	}
	props := geojson.Properties{"flag": "not a bool"}

	if _, err := encodeProperties(props, columns); !errors.Is(err, ErrPropertyMismatch) {
		t.Errorf("expected ErrPropertyMismatch, got %v", err)
	}
}

func TestDecodeProperties_UnknownColumnIndex(t *testing.T) {
	columns := []columnMeta{
		{name: "a", typ: flattypes.ColumnTypeInt},
	}

	// Column index 5 is outside the schema.
	data := []byte{0x05, 0x00, 0x01, 0x00, 0x00, 0x00}

	if _, err := decodeProperties(data, columns); !errors.Is(err, ErrInvalidColumn) {
		t.Errorf("expected ErrInvalidColumn, got %v", err)
	}
}

func TestDecodeProperties_Truncated(t *testing.T) {
	columns := []columnMeta{
		{name: "a", typ: flattypes.ColumnTypeLong},
	}

	// Record names column 0 but carries only 2 of 8 payload bytes.
	data := []byte{0x00, 0x00, 0x01, 0x02}

	if _, err := decodeProperties(data, columns); !errors.Is(err, ErrInvalidData) {
		t.Errorf("expected ErrInvalidData, got %v", err)
	}
}

func TestDecodeProperties_Empty(t *testing.T) {
	props, err := decodeProperties(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if props != nil {
		t.Errorf("expected nil properties, got %v", props)
	}
}
