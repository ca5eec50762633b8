package flatgeobuf

import (
	"bytes"
	"fmt"
	"io"
	"os"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/geostreamio/flatgeobuf/flattypes"
	"github.com/geostreamio/flatgeobuf/index"
)

// FeatureSource supplies features one at a time. It returns nil when the
// stream is exhausted; a non-nil error aborts the write.
type FeatureSource func() (*geojson.Feature, error)

// WriterOption configures serialization beyond Options.
type WriterOption func(*writerConfig)

type writerConfig struct {
	useMemory bool
}

// WithMemoryScratch makes the indexed write buffer features in memory
// instead of a temporary file.
//
// Warning: this option could use arbitrarily large amounts of memory.
func WithMemoryScratch() WriterOption {
	return func(c *writerConfig) {
		c.useMemory = true
	}
}

// Write writes geometries to FlatGeobuf format. This is a convenience
// function for writing geometry-only data without properties.
func Write(w io.Writer, geometries []orb.Geometry, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}

	if len(geometries) == 0 {
		return ErrEmptyInput
	}

	geomType, err := detectGeometryType(geometries)
	if err != nil {
		return err
	}

	i := 0
	next := func() (*geojson.Feature, error) {
		for i < len(geometries) {
			g := geometries[i]
			i++
			if g == nil {
				continue
			}
			return geojson.NewFeature(g), nil
		}
		return nil, nil
	}

	return serialize(w, next, uint64(len(geometries)), geomType, nil, opts, writerConfig{})
}

// WriteFeatures writes a FeatureCollection to FlatGeobuf format. The
// column schema is inferred across all features before writing.
func WriteFeatures(w io.Writer, fc *geojson.FeatureCollection, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}

	if fc == nil || len(fc.Features) == 0 {
		return ErrEmptyInput
	}

	geoms := make([]orb.Geometry, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f != nil && f.Geometry != nil {
			geoms = append(geoms, f.Geometry)
		}
	}
	if len(geoms) == 0 {
		return ErrNilGeometry
	}

	geomType, err := detectGeometryType(geoms)
	if err != nil {
		return err
	}
	columns := inferColumns(fc.Features)

	i := 0
	next := func() (*geojson.Feature, error) {
		for i < len(fc.Features) {
			f := fc.Features[i]
			i++
			if f == nil || f.Geometry == nil {
				continue
			}
			return f, nil
		}
		return nil, nil
	}

	return serialize(w, next, uint64(len(geoms)), geomType, columns, opts, writerConfig{})
}

// WriteFeature writes a single feature to FlatGeobuf format.
func WriteFeature(w io.Writer, f *geojson.Feature, opts *Options) error {
	if f == nil {
		return ErrNilGeometry
	}

	fc := &geojson.FeatureCollection{
		Features: []*geojson.Feature{f},
	}

	return WriteFeatures(w, fc, opts)
}

// Serialize writes the features supplied by next. The geometry type and
// column schema are introspected from the first feature; count is the
// expected number of features and only informs the header when no index
// is written (the indexed path counts for itself).
func Serialize(w io.Writer, next FeatureSource, count uint64, opts *Options, wopts ...WriterOption) error {
	if opts == nil {
		opts = DefaultOptions()
	}

	var cfg writerConfig
	for _, opt := range wopts {
		opt(&cfg)
	}

	first, err := next()
	if err != nil {
		return err
	}
	if first == nil || first.Geometry == nil {
		return ErrEmptyInput
	}

	geomType, err := orbToFGBGeometryType(first.Geometry)
	if err != nil {
		return err
	}
	columns := inferColumns([]*geojson.Feature{first})

	consumedFirst := false
	wrapped := func() (*geojson.Feature, error) {
		if !consumedFirst {
			consumedFirst = true
			return first, nil
		}
		return next()
	}

	return serialize(w, wrapped, count, geomType, columns, opts, cfg)
}

// featureItem ties a feature's bounding box to its size and position in
// the scratch sink during the first pass of an indexed write.
type featureItem struct {
	nodeItem      index.NodeItem
	size          uint32
	scratchOffset uint64
}

func (f *featureItem) NodeItem() index.NodeItem {
	return f.nodeItem
}

// serialize is the common write path behind all public entry points.
func serialize(w io.Writer, next FeatureSource, count uint64,
	geomType flattypes.GeometryType, columns []columnMeta,
	opts *Options, cfg writerConfig) error {

	if !opts.IncludeIndex {
		return serializeUnindexed(w, next, count, geomType, columns, opts)
	}
	return serializeIndexed(w, next, geomType, columns, opts, cfg)
}

// serializeUnindexed streams features straight through the sink behind a
// header with index_node_size zero and no envelope.
func serializeUnindexed(w io.Writer, next FeatureSource, count uint64,
	geomType flattypes.GeometryType, columns []columnMeta, opts *Options) error {

	if _, err := w.Write(MagicBytes); err != nil {
		return err
	}

	header := buildHeader(opts, geomType, columns, count, 0, nil)
	if _, err := w.Write(header); err != nil {
		return err
	}

	wrote := false
	for {
		f, err := next()
		if err != nil {
			return err
		}
		if f == nil {
			break
		}

		data, err := buildFeature(f, geomType, columns)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		wrote = true
	}

	if !wrote {
		return ErrEmptyInput
	}
	return nil
}

// serializeIndexed is the two-pass path: features go to a scratch sink
// while their bounding boxes are collected, then the header, the packed
// R-tree and the features in Hilbert order are emitted.
func serializeIndexed(w io.Writer, next FeatureSource,
	geomType flattypes.GeometryType, columns []columnMeta,
	opts *Options, cfg writerConfig) error {

	scratch, err := newScratch(cfg.useMemory)
	if err != nil {
		return fmt.Errorf("flatgeobuf: opening scratch sink: %w", err)
	}
	defer scratch.Close()

	var items []index.Item
	extent := index.NewNodeItem(0)
	scratchOffset := uint64(0)

	for {
		f, err := next()
		if err != nil {
			return err
		}
		if f == nil {
			break
		}

		data, err := buildFeature(f, geomType, columns)
		if err != nil {
			return err
		}
		if _, err := scratch.Write(data); err != nil {
			return fmt.Errorf("flatgeobuf: writing scratch sink: %w", err)
		}

		bbox := computeBoundingBox(f.Geometry)
		nodeItem := index.NewNodeItemWithCoordinates(scratchOffset, bbox[0], bbox[1], bbox[2], bbox[3])
		extent.Expand(nodeItem)

		items = append(items, &featureItem{
			nodeItem:      nodeItem,
			size:          uint32(len(data)),
			scratchOffset: scratchOffset,
		})
		scratchOffset += uint64(len(data))
	}

	if len(items) == 0 {
		return ErrEmptyInput
	}

	index.HilbertSortItems(items, extent)

	// Re-assign each item's offset to its position in the final feature
	// section, which follows the sorted order.
	finalOffset := uint64(0)
	nodeItems := make([]index.NodeItem, 0, len(items))
	for _, item := range items {
		fi := item.(*featureItem)
		fi.nodeItem.Offset = finalOffset
		finalOffset += uint64(fi.size)
		nodeItems = append(nodeItems, fi.nodeItem)
	}

	tree, err := index.Build(nodeItems, extent, index.DefaultNodeSize)
	if err != nil {
		return err
	}

	if _, err := w.Write(MagicBytes); err != nil {
		return err
	}

	header := buildHeader(opts, geomType, columns, uint64(len(items)),
		index.DefaultNodeSize, extent.ToSlice())
	if _, err := w.Write(header); err != nil {
		return err
	}

	if _, err := tree.Write(w); err != nil {
		return err
	}

	// Copy features from the scratch sink in sorted order.
	buf := make([]byte, 0)
	for _, item := range items {
		fi := item.(*featureItem)
		if cap(buf) < int(fi.size) {
			buf = make([]byte, fi.size)
		}
		buf = buf[:fi.size]
		if _, err := scratch.ReadAt(buf, int64(fi.scratchOffset)); err != nil {
			return fmt.Errorf("flatgeobuf: reading scratch sink: %w", err)
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}

	return nil
}

// buildFeature encodes one size-prefixed Feature message. The feature's
// geometry must match the file geometry type or be its single variant.
func buildFeature(f *geojson.Feature, geomType flattypes.GeometryType, columns []columnMeta) ([]byte, error) {
	if f == nil || f.Geometry == nil {
		return nil, ErrNilGeometry
	}

	t, err := orbToFGBGeometryType(f.Geometry)
	if err != nil {
		return nil, err
	}
	if t != geomType && multiVariant(t) != geomType {
		return nil, fmt.Errorf("%w: %s in a %s file", ErrUnsupportedType, t, geomType)
	}

	builder := flatbuffers.NewBuilder(1024)

	geomOffset, err := buildGeometry(builder, f.Geometry)
	if err != nil {
		return nil, err
	}

	var propsOffset flatbuffers.UOffsetT
	if len(columns) > 0 && f.Properties != nil {
		propBytes, err := encodeProperties(f.Properties, columns)
		if err != nil {
			return nil, err
		}
		if len(propBytes) > 0 {
			propsOffset = builder.CreateByteVector(propBytes)
		}
	}

	flattypes.FeatureStart(builder)
	flattypes.FeatureAddGeometry(builder, geomOffset)
	if propsOffset != 0 {
		flattypes.FeatureAddProperties(builder, propsOffset)
	}
	builder.FinishSizePrefixed(flattypes.FeatureEnd(builder))

	return builder.FinishedBytes(), nil
}

// buildHeader encodes the size-prefixed Header message.
func buildHeader(opts *Options, geomType flattypes.GeometryType, columns []columnMeta,
	featuresCount uint64, indexNodeSize uint16, envelope []float64) []byte {

	builder := flatbuffers.NewBuilder(1024)

	nameOffset := maybeCreateString(builder, opts.Name)
	titleOffset := maybeCreateString(builder, opts.Title)
	descriptionOffset := maybeCreateString(builder, opts.Description)
	crsOffset := buildCrs(builder, opts.CRS)

	columnOffsets := make([]flatbuffers.UOffsetT, 0, len(columns))
	for _, col := range columns {
		colNameOffset := builder.CreateString(col.name)
		flattypes.ColumnStart(builder)
		flattypes.ColumnAddName(builder, colNameOffset)
		flattypes.ColumnAddType(builder, col.typ)
		columnOffsets = append(columnOffsets, flattypes.ColumnEnd(builder))
	}

	var columnsOffset flatbuffers.UOffsetT
	if len(columnOffsets) > 0 {
		flattypes.HeaderStartColumnsVector(builder, len(columnOffsets))
		for i := len(columnOffsets) - 1; i >= 0; i-- {
			builder.PrependUOffsetT(columnOffsets[i])
		}
		columnsOffset = builder.EndVector(len(columnOffsets))
	}

	var envelopeOffset flatbuffers.UOffsetT
	if len(envelope) > 0 {
		flattypes.HeaderStartEnvelopeVector(builder, len(envelope))
		for i := len(envelope) - 1; i >= 0; i-- {
			builder.PrependFloat64(envelope[i])
		}
		envelopeOffset = builder.EndVector(len(envelope))
	}

	flattypes.HeaderStart(builder)
	if nameOffset != 0 {
		flattypes.HeaderAddName(builder, nameOffset)
	}
	if envelopeOffset != 0 {
		flattypes.HeaderAddEnvelope(builder, envelopeOffset)
	}
	flattypes.HeaderAddGeometryType(builder, geomType)
	if columnsOffset != 0 {
		flattypes.HeaderAddColumns(builder, columnsOffset)
	}
	flattypes.HeaderAddFeaturesCount(builder, featuresCount)
	flattypes.HeaderAddIndexNodeSize(builder, indexNodeSize)
	if crsOffset != 0 {
		flattypes.HeaderAddCrs(builder, crsOffset)
	}
	if titleOffset != 0 {
		flattypes.HeaderAddTitle(builder, titleOffset)
	}
	if descriptionOffset != 0 {
		flattypes.HeaderAddDescription(builder, descriptionOffset)
	}
	builder.FinishSizePrefixed(flattypes.HeaderEnd(builder))

	return builder.FinishedBytes()
}

// buildCrs encodes the Crs sub-table, or returns 0 when crs is nil.
func buildCrs(builder *flatbuffers.Builder, crs *CRS) flatbuffers.UOffsetT {
	if crs == nil {
		return 0
	}

	orgOffset := maybeCreateString(builder, crs.Org)
	nameOffset := maybeCreateString(builder, crs.Name)
	descriptionOffset := maybeCreateString(builder, crs.Description)
	wktOffset := maybeCreateString(builder, crs.WKT)

	flattypes.CrsStart(builder)
	if orgOffset != 0 {
		flattypes.CrsAddOrg(builder, orgOffset)
	}
	if crs.Code != 0 {
		flattypes.CrsAddCode(builder, int32(crs.Code))
	}
	if nameOffset != 0 {
		flattypes.CrsAddName(builder, nameOffset)
	}
	if descriptionOffset != 0 {
		flattypes.CrsAddDescription(builder, descriptionOffset)
	}
	if wktOffset != 0 {
		flattypes.CrsAddWkt(builder, wktOffset)
	}
	return flattypes.CrsEnd(builder)
}

func maybeCreateString(builder *flatbuffers.Builder, s string) flatbuffers.UOffsetT {
	if s == "" {
		return 0
	}
	return builder.CreateString(s)
}

// featureScratch is the sink for the indexed write's first pass. It is
// scoped to the serialize call and released on all exits.
type featureScratch interface {
	io.Writer
	io.ReaderAt
	Close() error
}

func newScratch(useMemory bool) (featureScratch, error) {
	if useMemory {
		return &memoryScratch{}, nil
	}
	return newTempFileScratch("flatgeobuf_features_")
}

type tempFileScratch struct {
	*os.File
}

func newTempFileScratch(pattern string) (*tempFileScratch, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, err
	}
	return &tempFileScratch{File: f}, nil
}

func (f *tempFileScratch) Close() error {
	name := f.Name()
	if err := f.File.Close(); err != nil {
		os.Remove(name)
		return err
	}
	return os.Remove(name)
}

type memoryScratch struct {
	buf bytes.Buffer
}

func (m *memoryScratch) Write(p []byte) (int, error) {
	return m.buf.Write(p)
}

func (m *memoryScratch) ReadAt(p []byte, off int64) (int, error) {
	data := m.buf.Bytes()
	if off < 0 || off > int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memoryScratch) Close() error {
	m.buf.Reset()
	return nil
}
