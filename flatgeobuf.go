// Package flatgeobuf reads and writes the FlatGeobuf binary format for
// geospatial features. It maps features to orb.Geometry types and
// geojson.Feature/FeatureCollection with properties, and supports spatial
// queries through the file's packed Hilbert R-tree index, both in memory
// and over range-addressable storage.
package flatgeobuf

import (
	"errors"
)

// Common errors returned by this package.
var (
	ErrNilGeometry      = errors.New("flatgeobuf: nil geometry")
	ErrEmptyInput       = errors.New("flatgeobuf: no features to write")
	ErrUnsupportedType  = errors.New("flatgeobuf: unsupported geometry type")
	ErrInvalidData      = errors.New("flatgeobuf: invalid data")
	ErrInvalidMagic     = errors.New("flatgeobuf: invalid magic bytes")
	ErrNoIndex          = errors.New("flatgeobuf: file has no spatial index")
	ErrInvalidColumn    = errors.New("flatgeobuf: invalid column type")
	ErrPropertyMismatch = errors.New("flatgeobuf: property type mismatch")
	ErrStringTooLong    = errors.New("flatgeobuf: string property exceeds 4GiB")
)

// Version is the format version carried in the fourth magic byte.
const Version = 3

// MagicBytes is the 8-byte identifier sequence at the start of every
// flatgeobuf file. Readers compare all 8 bytes and reject on mismatch.
var MagicBytes = []byte{0x66, 0x67, 0x62, Version, 0x66, 0x67, 0x62, 0x00}

// CRS represents a coordinate reference system.
type CRS struct {
	Org         string // Authority organization (e.g., "EPSG")
	Code        int    // EPSG code (e.g., 4326 for WGS84)
	Name        string // CRS name
	Description string // CRS description
	WKT         string // Well-Known Text representation
}

// WGS84 returns the standard WGS84 CRS (EPSG:4326).
func WGS84() *CRS {
	return &CRS{
		Org:  "EPSG",
		Code: 4326,
		Name: "WGS 84",
	}
}

// Options configures FlatGeobuf writing.
type Options struct {
	Name         string // Layer name
	Title        string // Layer title (human-readable)
	Description  string // Layer description
	IncludeIndex bool   // Include spatial index (default: true)
	CRS          *CRS   // Coordinate reference system (optional)
}

// DefaultOptions returns default options for writing FlatGeobuf files.
func DefaultOptions() *Options {
	return &Options{
		IncludeIndex: true,
	}
}

// ColumnInfo describes a property column in a FlatGeobuf file.
type ColumnInfo struct {
	Name        string // Column name
	Type        string // Column type ("Bool", "Int", "Long", "Double", "String", "Json", etc.)
	Title       string // Column title (human-readable)
	Description string // Column description
	Nullable    bool   // Whether the column can contain null values
}

// Header contains metadata about a FlatGeobuf file.
type Header struct {
	Name          string       // Layer name
	Title         string       // Layer title
	Description   string       // Layer description
	GeometryType  string       // Geometry type ("Point", "Polygon", etc.)
	FeaturesCount uint64       // Number of features in the file
	Envelope      [4]float64   // Bounding box [minX, minY, maxX, maxY]
	CRS           *CRS         // Coordinate reference system
	HasIndex      bool         // Whether the file has a spatial index
	IndexNodeSize uint16       // Index fan-out, 0 when no index is present
	Columns       []ColumnInfo // Property column schema
}
