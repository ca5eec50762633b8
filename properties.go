package flatgeobuf

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb/geojson"

	"github.com/geostreamio/flatgeobuf/flattypes"
)

// columnMeta is one entry of the column schema shared by all features in
// a file. Column order defines the column index used in property blobs.
type columnMeta struct {
	name string
	typ  flattypes.ColumnType
}

// inferColumns analyzes features and infers the column schema. It
// examines all properties across all features to determine the
// appropriate column types. Columns are ordered by name so the schema is
// deterministic regardless of map iteration order.
func inferColumns(features []*geojson.Feature) []columnMeta {
	if len(features) == 0 {
		return nil
	}

	columnTypes := make(map[string]flattypes.ColumnType)

	for _, f := range features {
		if f == nil || f.Properties == nil {
			continue
		}
		for name, value := range f.Properties {
			if value == nil {
				continue
			}

			inferredType := inferColumnType(value)

			if existingType, exists := columnTypes[name]; exists {
				columnTypes[name] = promoteColumnType(existingType, inferredType)
			} else {
				columnTypes[name] = inferredType
			}
		}
	}

	names := make([]string, 0, len(columnTypes))
	for name := range columnTypes {
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]columnMeta, 0, len(names))
	for _, name := range names {
		columns = append(columns, columnMeta{name: name, typ: columnTypes[name]})
	}

	return columns
}

// inferColumnType determines the FlatGeobuf column type for a Go value.
func inferColumnType(value interface{}) flattypes.ColumnType {
	if value == nil {
		return flattypes.ColumnTypeString // Default to string for nil
	}

	switch v := value.(type) {
	case bool:
		return flattypes.ColumnTypeBool
	case int:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return flattypes.ColumnTypeInt
		}
		return flattypes.ColumnTypeLong
	case int8, int16, int32:
		return flattypes.ColumnTypeInt
	case int64:
		return flattypes.ColumnTypeLong
	case uint, uint8, uint16, uint32:
		return flattypes.ColumnTypeUInt
	case uint64:
		return flattypes.ColumnTypeULong
	case float32:
		return flattypes.ColumnTypeFloat
	case float64:
		return flattypes.ColumnTypeDouble
	case string:
		return flattypes.ColumnTypeString
	case json.Number:
		// Try to parse as int first, then float
		if _, err := v.Int64(); err == nil {
			return flattypes.ColumnTypeLong
		}
		return flattypes.ColumnTypeDouble
	case map[string]interface{}, []interface{}:
		return flattypes.ColumnTypeJson
	default:
		return flattypes.ColumnTypeJson
	}
}

// promoteColumnType returns the more general type when there's a conflict.
func promoteColumnType(a, b flattypes.ColumnType) flattypes.ColumnType {
	if a == b {
		return a
	}

	// If either is JSON, use JSON
	if a == flattypes.ColumnTypeJson || b == flattypes.ColumnTypeJson {
		return flattypes.ColumnTypeJson
	}

	// If either is String, use String
	if a == flattypes.ColumnTypeString || b == flattypes.ColumnTypeString {
		return flattypes.ColumnTypeString
	}

	// Numeric promotions
	numericTypes := map[flattypes.ColumnType]int{
		flattypes.ColumnTypeBool:   0,
		flattypes.ColumnTypeByte:   1,
		flattypes.ColumnTypeUByte:  2,
		flattypes.ColumnTypeShort:  3,
		flattypes.ColumnTypeUShort: 4,
		flattypes.ColumnTypeInt:    5,
		flattypes.ColumnTypeUInt:   6,
		flattypes.ColumnTypeLong:   7,
		flattypes.ColumnTypeULong:  8,
		flattypes.ColumnTypeFloat:  9,
		flattypes.ColumnTypeDouble: 10,
	}

	rankA, okA := numericTypes[a]
	rankB, okB := numericTypes[b]

	if okA && okB {
		if rankA > rankB {
			return a
		}
		return b
	}

	// Default to JSON for unknown combinations
	return flattypes.ColumnTypeJson
}

// encodeProperties encodes geojson.Properties against the column schema.
// Each record is a little-endian uint16 column index followed by the
// value encoded per the column type. Records follow column-schema order
// so identical inputs produce identical blobs.
func encodeProperties(props geojson.Properties, columns []columnMeta) ([]byte, error) {
	if props == nil || len(columns) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer

	for i, col := range columns {
		value, ok := props[col.name]
		if !ok || value == nil {
			continue
		}

		var indexBytes [2]byte
		binary.LittleEndian.PutUint16(indexBytes[:], uint16(i))
		buf.Write(indexBytes[:])

		if err := writePropertyValue(&buf, value, col); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// writePropertyValue writes a single property value to the buffer.
func writePropertyValue(buf *bytes.Buffer, value interface{}, col columnMeta) error {
	switch col.typ {
	case flattypes.ColumnTypeBool:
		v, ok := value.(bool)
		if !ok {
			return propertyMismatch(col, value)
		}
		if v {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}

	case flattypes.ColumnTypeByte, flattypes.ColumnTypeUByte:
		v, ok := toInt64(value)
		if !ok {
			return propertyMismatch(col, value)
		}
		buf.WriteByte(byte(v))

	case flattypes.ColumnTypeShort, flattypes.ColumnTypeUShort:
		v, ok := toInt64(value)
		if !ok {
			return propertyMismatch(col, value)
		}
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		buf.Write(b[:])

	case flattypes.ColumnTypeInt, flattypes.ColumnTypeUInt:
		v, ok := toInt64(value)
		if !ok {
			return propertyMismatch(col, value)
		}
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v))
		buf.Write(b[:])

	case flattypes.ColumnTypeLong:
		v, ok := toInt64(value)
		if !ok {
			return propertyMismatch(col, value)
		}
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(v))
		buf.Write(b[:])

	case flattypes.ColumnTypeULong:
		v, ok := toUint64(value)
		if !ok {
			return propertyMismatch(col, value)
		}
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		buf.Write(b[:])

	case flattypes.ColumnTypeFloat:
		v, ok := toFloat64(value)
		if !ok {
			return propertyMismatch(col, value)
		}
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(float32(v)))
		buf.Write(b[:])

	case flattypes.ColumnTypeDouble:
		v, ok := toFloat64(value)
		if !ok {
			return propertyMismatch(col, value)
		}
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		buf.Write(b[:])

	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime:
		return writeLengthPrefixed(buf, []byte(toString(value)))

	case flattypes.ColumnTypeJson:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("flatgeobuf: encoding json property %q: %w", col.name, err)
		}
		return writeLengthPrefixed(buf, jsonBytes)

	default:
		return fmt.Errorf("%w: %s", ErrInvalidColumn, col.typ)
	}

	return nil
}

// writeLengthPrefixed writes a uint32 byte length followed by the bytes,
// with no terminator.
func writeLengthPrefixed(buf *bytes.Buffer, b []byte) error {
	if uint64(len(b)) > math.MaxUint32 {
		return ErrStringTooLong
	}
	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], uint32(len(b)))
	buf.Write(lenBytes[:])
	buf.Write(b)
	return nil
}

func propertyMismatch(col columnMeta, value interface{}) error {
	return fmt.Errorf("%w: column %q (%s) cannot hold %T",
		ErrPropertyMismatch, col.name, col.typ, value)
}

// decodeProperties decodes a property blob against the column schema. The
// reader loops until the blob is exhausted; a truncated record or a
// column index outside the schema is an error.
func decodeProperties(data []byte, columns []columnMeta) (geojson.Properties, error) {
	if len(data) == 0 {
		return nil, nil
	}

	props := make(geojson.Properties)
	offset := 0

	for offset < len(data) {
		if offset+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated property record", ErrInvalidData)
		}

		colIndex := binary.LittleEndian.Uint16(data[offset : offset+2])
		offset += 2

		if int(colIndex) >= len(columns) {
			return nil, fmt.Errorf("%w: column index %d out of range", ErrInvalidColumn, colIndex)
		}
		col := columns[colIndex]

		value, bytesRead, err := readPropertyValue(data[offset:], col.typ)
		if err != nil {
			return nil, err
		}
		offset += bytesRead

		props[col.name] = value
	}

	return props, nil
}

// readPropertyValue reads a property value from the buffer. Returns the
// value and number of bytes consumed.
func readPropertyValue(data []byte, colType flattypes.ColumnType) (interface{}, int, error) {
	switch colType {
	case flattypes.ColumnTypeBool:
		if len(data) < 1 {
			return nil, 0, fmt.Errorf("%w: truncated bool", ErrInvalidData)
		}
		return data[0] != 0, 1, nil

	case flattypes.ColumnTypeByte:
		if len(data) < 1 {
			return nil, 0, fmt.Errorf("%w: truncated byte", ErrInvalidData)
		}
		return int8(data[0]), 1, nil

	case flattypes.ColumnTypeUByte:
		if len(data) < 1 {
			return nil, 0, fmt.Errorf("%w: truncated ubyte", ErrInvalidData)
		}
		return data[0], 1, nil

	case flattypes.ColumnTypeShort:
		if len(data) < 2 {
			return nil, 0, fmt.Errorf("%w: truncated short", ErrInvalidData)
		}
		return int16(binary.LittleEndian.Uint16(data[:2])), 2, nil

	case flattypes.ColumnTypeUShort:
		if len(data) < 2 {
			return nil, 0, fmt.Errorf("%w: truncated ushort", ErrInvalidData)
		}
		return binary.LittleEndian.Uint16(data[:2]), 2, nil

	case flattypes.ColumnTypeInt:
		if len(data) < 4 {
			return nil, 0, fmt.Errorf("%w: truncated int", ErrInvalidData)
		}
		return int32(binary.LittleEndian.Uint32(data[:4])), 4, nil

	case flattypes.ColumnTypeUInt:
		if len(data) < 4 {
			return nil, 0, fmt.Errorf("%w: truncated uint", ErrInvalidData)
		}
		return binary.LittleEndian.Uint32(data[:4]), 4, nil

	case flattypes.ColumnTypeLong:
		if len(data) < 8 {
			return nil, 0, fmt.Errorf("%w: truncated long", ErrInvalidData)
		}
		return int64(binary.LittleEndian.Uint64(data[:8])), 8, nil

	case flattypes.ColumnTypeULong:
		if len(data) < 8 {
			return nil, 0, fmt.Errorf("%w: truncated ulong", ErrInvalidData)
		}
		return binary.LittleEndian.Uint64(data[:8]), 8, nil

	case flattypes.ColumnTypeFloat:
		if len(data) < 4 {
			return nil, 0, fmt.Errorf("%w: truncated float", ErrInvalidData)
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(data[:4])), 4, nil

	case flattypes.ColumnTypeDouble:
		if len(data) < 8 {
			return nil, 0, fmt.Errorf("%w: truncated double", ErrInvalidData)
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(data[:8])), 8, nil

	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime:
		s, n, err := readLengthPrefixed(data)
		if err != nil {
			return nil, 0, err
		}
		return string(s), n, nil

	case flattypes.ColumnTypeJson:
		b, n, err := readLengthPrefixed(data)
		if err != nil {
			return nil, 0, err
		}
		var jsonValue interface{}
		if err := json.Unmarshal(b, &jsonValue); err != nil {
			// Tolerate non-JSON payloads as raw strings.
			return string(b), n, nil
		}
		return jsonValue, n, nil

	default:
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidColumn, colType)
	}
}

// readLengthPrefixed reads a uint32 byte length followed by that many
// bytes and returns the payload plus the total bytes consumed.
func readLengthPrefixed(data []byte) ([]byte, int, error) {
	if len(data) < 4 {
		return nil, 0, fmt.Errorf("%w: truncated string length", ErrInvalidData)
	}
	length := binary.LittleEndian.Uint32(data[:4])
	if uint64(len(data)) < 4+uint64(length) {
		return nil, 0, fmt.Errorf("%w: truncated string payload", ErrInvalidData)
	}
	return data[4 : 4+length], int(4 + length), nil
}

// Type conversion helpers

func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return int64(val), true
	case float32:
		return int64(val), true
	case float64:
		return int64(val), true
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, true
		}
		if f, err := val.Float64(); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

func toUint64(v interface{}) (uint64, bool) {
	switch val := v.(type) {
	case uint:
		return uint64(val), true
	case uint8:
		return uint64(val), true
	case uint16:
		return uint64(val), true
	case uint32:
		return uint64(val), true
	case uint64:
		return val, true
	case int:
		if val >= 0 {
			return uint64(val), true
		}
	case int64:
		if val >= 0 {
			return uint64(val), true
		}
	case float64:
		if val >= 0 {
			return uint64(val), true
		}
	case json.Number:
		if i, err := val.Int64(); err == nil && i >= 0 {
			return uint64(i), true
		}
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint64:
		return float64(val), true
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		// For other types, use JSON encoding
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
