package flatgeobuf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/geostreamio/flatgeobuf/flattypes"
	"github.com/geostreamio/flatgeobuf/index"
)

// Reader provides read access to a FlatGeobuf file held in memory.
type Reader struct {
	data []byte

	header  *flattypes.Header
	meta    *Header
	columns []columnMeta
	tree    *index.PackedRTree

	featuresOffset int
}

// NewReaderFromData creates a reader from byte data.
func NewReaderFromData(data []byte) (*Reader, error) {
	r := &Reader{data: data}
	if err := r.setup(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) setup() error {
	if len(r.data) < len(MagicBytes) || !bytes.Equal(r.data[:len(MagicBytes)], MagicBytes) {
		return ErrInvalidMagic
	}

	offset := len(MagicBytes)

	if len(r.data) < offset+4 {
		return fmt.Errorf("%w: truncated header size", ErrInvalidData)
	}
	headerSize := int(binary.LittleEndian.Uint32(r.data[offset:]))
	if len(r.data) < offset+4+headerSize {
		return fmt.Errorf("%w: truncated header", ErrInvalidData)
	}

	r.header = flattypes.GetSizePrefixedRootAsHeader(r.data, flatbuffers.UOffsetT(offset))

	var err error
	r.columns, err = columnsFromHeader(r.header)
	if err != nil {
		return err
	}
	r.meta = headerMeta(r.header)

	offset += 4 + headerSize

	if nodeSize := r.header.IndexNodeSize(); nodeSize > 0 {
		count := r.header.FeaturesCount()
		if count == 0 {
			return fmt.Errorf("%w: index present but features count is zero", ErrInvalidData)
		}
		treeSize, err := index.TreeSize(count, nodeSize)
		if err != nil {
			return fmt.Errorf("flatgeobuf: %w", err)
		}
		if uint64(len(r.data)) < uint64(offset)+treeSize {
			return fmt.Errorf("%w: truncated index", ErrInvalidData)
		}
		r.tree, err = index.FromBytes(r.data[offset:uint64(offset)+treeSize], count, nodeSize)
		if err != nil {
			return fmt.Errorf("flatgeobuf: %w", err)
		}
		offset += int(treeSize)
	}

	r.featuresOffset = offset
	return nil
}

// Header returns metadata about the FlatGeobuf file.
func (r *Reader) Header() *Header {
	return r.meta
}

// ReadAll reads all features as a FeatureCollection, in file order.
func (r *Reader) ReadAll() (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()

	pos := r.featuresOffset
	for pos < len(r.data) {
		feature, consumed, err := r.featureAt(pos)
		if err != nil {
			return nil, err
		}
		fc.Append(feature)
		pos += consumed
	}

	return fc, nil
}

// ReadGeometries reads all geometries without properties.
func (r *Reader) ReadGeometries() ([]orb.Geometry, error) {
	fc, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	geometries := make([]orb.Geometry, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry != nil {
			geometries = append(geometries, f.Geometry)
		}
	}

	return geometries, nil
}

// Search performs a spatial query using the built-in index. Returns
// features whose bounding boxes intersect the query bounds.
func (r *Reader) Search(bounds orb.Bound) (*geojson.FeatureCollection, error) {
	if r.tree == nil {
		return nil, ErrNoIndex
	}

	hits, err := r.tree.Search(bounds.Min[0], bounds.Min[1], bounds.Max[0], bounds.Max[1])
	if err != nil {
		return nil, fmt.Errorf("flatgeobuf: %w", err)
	}

	fc := geojson.NewFeatureCollection()
	for _, hit := range hits {
		pos := r.featuresOffset + int(hit.Offset)
		feature, _, err := r.featureAt(pos)
		if err != nil {
			return nil, err
		}
		fc.Append(feature)
	}

	return fc, nil
}

// SearchGeometries performs a spatial query returning only geometries.
func (r *Reader) SearchGeometries(bounds orb.Bound) ([]orb.Geometry, error) {
	fc, err := r.Search(bounds)
	if err != nil {
		return nil, err
	}

	geometries := make([]orb.Geometry, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry != nil {
			geometries = append(geometries, f.Geometry)
		}
	}

	return geometries, nil
}

// Close releases the reader's reference to the underlying data.
func (r *Reader) Close() error {
	r.data = nil
	r.tree = nil
	return nil
}

// featureAt decodes the size-prefixed feature at pos and returns it with
// the number of bytes consumed.
func (r *Reader) featureAt(pos int) (*geojson.Feature, int, error) {
	if pos+4 > len(r.data) {
		return nil, 0, fmt.Errorf("%w: truncated feature size", ErrInvalidData)
	}
	size := int(binary.LittleEndian.Uint32(r.data[pos:]))
	if pos+4+size > len(r.data) {
		return nil, 0, fmt.Errorf("%w: truncated feature", ErrInvalidData)
	}

	fgbFeature := flattypes.GetSizePrefixedRootAsFeature(r.data, flatbuffers.UOffsetT(pos))
	feature, err := convertFeature(fgbFeature, r.header.GeometryType(), r.columns)
	if err != nil {
		return nil, 0, err
	}
	return feature, 4 + size, nil
}

// Deserialize reads a FlatGeobuf stream sequentially and calls emit for
// every feature, in file order. Index bytes, if present, are skipped. An
// error returned by emit aborts the scan and is propagated.
func Deserialize(r io.Reader, emit func(*geojson.Feature) error) error {
	header, columns, _, err := readHeader(r)
	if err != nil {
		return err
	}

	if nodeSize := header.IndexNodeSize(); nodeSize > 0 {
		treeSize, err := index.TreeSize(header.FeaturesCount(), nodeSize)
		if err != nil {
			return fmt.Errorf("flatgeobuf: %w", err)
		}
		if _, err := io.CopyN(io.Discard, r, int64(treeSize)); err != nil {
			return fmt.Errorf("%w: truncated index", ErrInvalidData)
		}
	}

	geomType := header.GeometryType()
	for {
		data, err := readSizePrefixed(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		fgbFeature := flattypes.GetSizePrefixedRootAsFeature(data, 0)
		feature, err := convertFeature(fgbFeature, geomType, columns)
		if err != nil {
			return err
		}
		if err := emit(feature); err != nil {
			return err
		}
	}
}

// DeserializeFiltered runs a spatial query against the file's index by
// issuing range reads, then seeks to each hit and emits the decoded
// feature. The index is never fully materialized and feature bytes are
// read only for hits.
func DeserializeFiltered(rs io.ReadSeeker, bounds orb.Bound, emit func(*geojson.Feature) error) error {
	header, columns, headerEnd, err := readHeader(rs)
	if err != nil {
		return err
	}

	nodeSize := header.IndexNodeSize()
	if nodeSize == 0 {
		return ErrNoIndex
	}
	count := header.FeaturesCount()

	treeSize, err := index.TreeSize(count, nodeSize)
	if err != nil {
		return fmt.Errorf("flatgeobuf: %w", err)
	}
	indexStart := headerEnd
	featuresStart := indexStart + int64(treeSize)

	readRange := func(offset, length uint64) ([]byte, error) {
		if _, err := rs.Seek(indexStart+int64(offset), io.SeekStart); err != nil {
			return nil, err
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(rs, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}

	query := index.NewNodeItemWithCoordinates(0,
		bounds.Min[0], bounds.Min[1], bounds.Max[0], bounds.Max[1])
	hits, err := index.StreamSearch(count, nodeSize, query, readRange)
	if err != nil {
		return fmt.Errorf("flatgeobuf: %w", err)
	}

	geomType := header.GeometryType()
	for _, hit := range hits {
		if _, err := rs.Seek(featuresStart+int64(hit.Offset), io.SeekStart); err != nil {
			return err
		}
		data, err := readSizePrefixed(rs)
		if err != nil {
			if err == io.EOF {
				return fmt.Errorf("%w: feature offset out of range", ErrInvalidData)
			}
			return err
		}

		fgbFeature := flattypes.GetSizePrefixedRootAsFeature(data, 0)
		feature, err := convertFeature(fgbFeature, geomType, columns)
		if err != nil {
			return err
		}
		if err := emit(feature); err != nil {
			return err
		}
	}

	return nil
}

// readHeader validates the magic bytes and decodes the size-prefixed
// header. It returns the header, the parsed column schema and the stream
// position just past the header.
func readHeader(r io.Reader) (*flattypes.Header, []columnMeta, int64, error) {
	magic := make([]byte, len(MagicBytes))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, nil, 0, ErrInvalidMagic
	}
	if !bytes.Equal(magic, MagicBytes) {
		return nil, nil, 0, ErrInvalidMagic
	}

	data, err := readSizePrefixed(r)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: truncated header", ErrInvalidData)
	}

	header := flattypes.GetSizePrefixedRootAsHeader(data, 0)
	columns, err := columnsFromHeader(header)
	if err != nil {
		return nil, nil, 0, err
	}

	headerEnd := int64(len(MagicBytes) + len(data))
	return header, columns, headerEnd, nil
}

// readSizePrefixed reads one uint32 size prefix plus payload and returns
// both together, so the result can be handed to the size-prefixed
// flatbuffers accessors. A clean EOF before the prefix returns io.EOF.
func readSizePrefixed(r io.Reader) ([]byte, error) {
	var sizeBytes [4]byte
	if _, err := io.ReadFull(r, sizeBytes[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: truncated size prefix", ErrInvalidData)
	}
	size := binary.LittleEndian.Uint32(sizeBytes[:])

	data := make([]byte, 4+size)
	copy(data, sizeBytes[:])
	if _, err := io.ReadFull(r, data[4:]); err != nil {
		return nil, fmt.Errorf("%w: truncated message", ErrInvalidData)
	}
	return data, nil
}

// columnsFromHeader extracts the column schema, rejecting column types
// outside the supported set.
func columnsFromHeader(header *flattypes.Header) ([]columnMeta, error) {
	colLen := header.ColumnsLength()
	if colLen == 0 {
		return nil, nil
	}

	columns := make([]columnMeta, 0, colLen)
	for i := 0; i < colLen; i++ {
		var col flattypes.Column
		if !header.Columns(&col, i) {
			return nil, fmt.Errorf("%w: unreadable column %d", ErrInvalidData, i)
		}
		typ := col.Type()
		if _, ok := flattypes.EnumNamesColumnType[typ]; !ok {
			return nil, fmt.Errorf("%w: %d", ErrInvalidColumn, typ)
		}
		columns = append(columns, columnMeta{name: string(col.Name()), typ: typ})
	}
	return columns, nil
}

// headerMeta converts the flatbuffers header to the public Header type.
func headerMeta(h *flattypes.Header) *Header {
	meta := &Header{
		Name:          string(h.Name()),
		Title:         string(h.Title()),
		Description:   string(h.Description()),
		GeometryType:  flattypes.EnumNamesGeometryType[h.GeometryType()],
		FeaturesCount: h.FeaturesCount(),
		HasIndex:      h.IndexNodeSize() > 0,
		IndexNodeSize: h.IndexNodeSize(),
	}

	if h.EnvelopeLength() >= 4 {
		meta.Envelope = [4]float64{
			h.Envelope(0),
			h.Envelope(1),
			h.Envelope(2),
			h.Envelope(3),
		}
	}

	var crs flattypes.Crs
	if h.Crs(&crs) != nil {
		meta.CRS = &CRS{
			Org:         string(crs.Org()),
			Code:        int(crs.Code()),
			Name:        string(crs.Name()),
			Description: string(crs.Description()),
			WKT:         string(crs.Wkt()),
		}
	}

	colLen := h.ColumnsLength()
	if colLen > 0 {
		meta.Columns = make([]ColumnInfo, 0, colLen)
		for i := 0; i < colLen; i++ {
			var col flattypes.Column
			if h.Columns(&col, i) {
				meta.Columns = append(meta.Columns, ColumnInfo{
					Name:        string(col.Name()),
					Type:        flattypes.EnumNamesColumnType[col.Type()],
					Title:       string(col.Title()),
					Description: string(col.Description()),
					Nullable:    col.Nullable(),
				})
			}
		}
	}

	return meta
}

// convertFeature converts a FlatGeobuf feature to a geojson.Feature. The
// top-level geometry type comes from the header; sub-geometries carry
// their own tags.
func convertFeature(fgbFeature *flattypes.Feature, geomType flattypes.GeometryType, columns []columnMeta) (*geojson.Feature, error) {
	if fgbFeature == nil {
		return nil, fmt.Errorf("%w: missing feature", ErrInvalidData)
	}

	var geomObj flattypes.Geometry
	geom := fgbFeature.Geometry(&geomObj)
	if geom == nil {
		return nil, fmt.Errorf("%w: feature without geometry", ErrInvalidData)
	}

	orbGeom, err := geometryFromFGB(geom, geomType)
	if err != nil {
		return nil, err
	}

	feature := geojson.NewFeature(orbGeom)

	if propsBytes := fgbFeature.PropertiesBytes(); len(propsBytes) > 0 {
		if len(columns) == 0 {
			return nil, fmt.Errorf("%w: properties without column schema", ErrInvalidData)
		}
		props, err := decodeProperties(propsBytes, columns)
		if err != nil {
			return nil, err
		}
		feature.Properties = props
	}

	return feature, nil
}

