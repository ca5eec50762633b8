package flatgeobuf

import (
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"

	"github.com/geostreamio/flatgeobuf/flattypes"
)

// orbToFGBGeometryType converts an orb.Geometry to its FlatGeobuf GeometryType.
func orbToFGBGeometryType(geom orb.Geometry) (flattypes.GeometryType, error) {
	switch geom.(type) {
	case orb.Point:
		return flattypes.GeometryTypePoint, nil
	case orb.MultiPoint:
		return flattypes.GeometryTypeMultiPoint, nil
	case orb.LineString:
		return flattypes.GeometryTypeLineString, nil
	case orb.MultiLineString:
		return flattypes.GeometryTypeMultiLineString, nil
	case orb.Ring:
		return flattypes.GeometryTypePolygon, nil
	case orb.Polygon:
		return flattypes.GeometryTypePolygon, nil
	case orb.MultiPolygon:
		return flattypes.GeometryTypeMultiPolygon, nil
	case orb.Collection:
		return flattypes.GeometryTypeGeometryCollection, nil
	case orb.Bound:
		return flattypes.GeometryTypePolygon, nil
	default:
		return 0, ErrUnsupportedType
	}
}

// multiVariant returns the multi-geometry counterpart of a geometry type,
// or the type itself if it already is one.
func multiVariant(t flattypes.GeometryType) flattypes.GeometryType {
	switch t {
	case flattypes.GeometryTypePoint:
		return flattypes.GeometryTypeMultiPoint
	case flattypes.GeometryTypeLineString:
		return flattypes.GeometryTypeMultiLineString
	case flattypes.GeometryTypePolygon:
		return flattypes.GeometryTypeMultiPolygon
	default:
		return t
	}
}

// detectGeometryType introspects the collection's shared geometry type.
// A mix of a type and its multi-variant promotes to the multi-variant;
// any other mix is unsupported.
func detectGeometryType(geoms []orb.Geometry) (flattypes.GeometryType, error) {
	if len(geoms) == 0 {
		return 0, ErrEmptyInput
	}
	result, err := orbToFGBGeometryType(geoms[0])
	if err != nil {
		return 0, err
	}
	for _, g := range geoms[1:] {
		t, err := orbToFGBGeometryType(g)
		if err != nil {
			return 0, err
		}
		if t == result {
			continue
		}
		if multiVariant(t) == multiVariant(result) {
			result = multiVariant(result)
			continue
		}
		return 0, ErrUnsupportedType
	}
	return result, nil
}

// buildGeometry encodes an orb.Geometry as a flattypes.Geometry table and
// returns its offset within the builder.
func buildGeometry(builder *flatbuffers.Builder, geom orb.Geometry) (flatbuffers.UOffsetT, error) {
	if geom == nil {
		return 0, ErrNilGeometry
	}

	switch v := geom.(type) {
	case orb.Point:
		return buildSimpleGeometry(builder, flattypes.GeometryTypePoint, []float64{v[0], v[1]}, nil), nil

	case orb.MultiPoint:
		xy := make([]float64, 0, len(v)*2)
		for _, p := range v {
			xy = append(xy, p[0], p[1])
		}
		return buildSimpleGeometry(builder, flattypes.GeometryTypeMultiPoint, xy, nil), nil

	case orb.LineString:
		return buildSimpleGeometry(builder, flattypes.GeometryTypeLineString, lineStringToXY(v), nil), nil

	case orb.MultiLineString:
		xy, ends := multiLineStringToXYEnds(v)
		if len(v) < 2 {
			// A single line needs no boundaries.
			ends = nil
		}
		return buildSimpleGeometry(builder, flattypes.GeometryTypeMultiLineString, xy, ends), nil

	case orb.Ring:
		return buildSimpleGeometry(builder, flattypes.GeometryTypePolygon, ringToXY(v), nil), nil

	case orb.Polygon:
		xy, ends := polygonToXYEnds(v)
		if len(v) < 2 {
			ends = nil
		}
		return buildSimpleGeometry(builder, flattypes.GeometryTypePolygon, xy, ends), nil

	case orb.MultiPolygon:
		parts := make([]flatbuffers.UOffsetT, 0, len(v))
		for _, poly := range v {
			xy, ends := polygonToXYEnds(poly)
			if len(poly) < 2 {
				ends = nil
			}
			parts = append(parts, buildSimpleGeometry(builder, flattypes.GeometryTypePolygon, xy, ends))
		}
		return buildPartsGeometry(builder, flattypes.GeometryTypeMultiPolygon, parts), nil

	case orb.Collection:
		parts := make([]flatbuffers.UOffsetT, 0, len(v))
		for _, child := range v {
			part, err := buildGeometry(builder, child)
			if err != nil {
				return 0, err
			}
			parts = append(parts, part)
		}
		return buildPartsGeometry(builder, flattypes.GeometryTypeGeometryCollection, parts), nil

	case orb.Bound:
		poly := boundToPolygon(v)
		xy, _ := polygonToXYEnds(poly)
		return buildSimpleGeometry(builder, flattypes.GeometryTypePolygon, xy, nil), nil

	default:
		return 0, ErrUnsupportedType
	}
}

// buildSimpleGeometry builds a Geometry table holding flat coordinates
// and optional ring boundaries.
func buildSimpleGeometry(builder *flatbuffers.Builder, typ flattypes.GeometryType, xy []float64, ends []uint32) flatbuffers.UOffsetT {
	var endsOffset flatbuffers.UOffsetT
	if len(ends) > 0 {
		flattypes.GeometryStartEndsVector(builder, len(ends))
		for i := len(ends) - 1; i >= 0; i-- {
			builder.PrependUint32(ends[i])
		}
		endsOffset = builder.EndVector(len(ends))
	}

	flattypes.GeometryStartXyVector(builder, len(xy))
	for i := len(xy) - 1; i >= 0; i-- {
		builder.PrependFloat64(xy[i])
	}
	xyOffset := builder.EndVector(len(xy))

	flattypes.GeometryStart(builder)
	if endsOffset != 0 {
		flattypes.GeometryAddEnds(builder, endsOffset)
	}
	flattypes.GeometryAddXy(builder, xyOffset)
	flattypes.GeometryAddType(builder, typ)
	return flattypes.GeometryEnd(builder)
}

// buildPartsGeometry builds a Geometry table holding sub-geometries.
func buildPartsGeometry(builder *flatbuffers.Builder, typ flattypes.GeometryType, parts []flatbuffers.UOffsetT) flatbuffers.UOffsetT {
	flattypes.GeometryStartPartsVector(builder, len(parts))
	for i := len(parts) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(parts[i])
	}
	partsOffset := builder.EndVector(len(parts))

	flattypes.GeometryStart(builder)
	flattypes.GeometryAddType(builder, typ)
	flattypes.GeometryAddParts(builder, partsOffset)
	return flattypes.GeometryEnd(builder)
}

// geometryFromFGB converts a flattypes.Geometry to an orb.Geometry. The
// geometry type is passed in because the top-level type field is optional
// and redundant with the header; sub-geometries carry their own tag.
func geometryFromFGB(fgbGeom *flattypes.Geometry, geomType flattypes.GeometryType) (orb.Geometry, error) {
	if fgbGeom == nil {
		return nil, ErrNilGeometry
	}

	switch geomType {
	case flattypes.GeometryTypePoint:
		return pointFromXY(fgbGeom), nil

	case flattypes.GeometryTypeMultiPoint:
		return multiPointFromXY(fgbGeom), nil

	case flattypes.GeometryTypeLineString:
		return lineStringFromXY(fgbGeom), nil

	case flattypes.GeometryTypeMultiLineString:
		return multiLineStringFromXYEnds(fgbGeom), nil

	case flattypes.GeometryTypePolygon:
		return polygonFromXYEnds(fgbGeom), nil

	case flattypes.GeometryTypeMultiPolygon:
		return multiPolygonFromParts(fgbGeom)

	case flattypes.GeometryTypeGeometryCollection:
		return collectionFromParts(fgbGeom)

	default:
		return nil, ErrUnsupportedType
	}
}

// Helper functions for writing

func lineStringToXY(ls orb.LineString) []float64 {
	xy := make([]float64, 0, len(ls)*2)
	for _, p := range ls {
		xy = append(xy, p[0], p[1])
	}
	return xy
}

func ringToXY(r orb.Ring) []float64 {
	xy := make([]float64, 0, len(r)*2)
	for _, p := range r {
		xy = append(xy, p[0], p[1])
	}
	return xy
}

func multiLineStringToXYEnds(mls orb.MultiLineString) ([]float64, []uint32) {
	totalPoints := 0
	for _, ls := range mls {
		totalPoints += len(ls)
	}

	xy := make([]float64, 0, totalPoints*2)
	ends := make([]uint32, 0, len(mls))

	cumulative := uint32(0)
	for _, ls := range mls {
		for _, p := range ls {
			xy = append(xy, p[0], p[1])
		}
		cumulative += uint32(len(ls))
		ends = append(ends, cumulative)
	}

	return xy, ends
}

func polygonToXYEnds(poly orb.Polygon) ([]float64, []uint32) {
	totalPoints := 0
	for _, ring := range poly {
		totalPoints += len(ring)
	}

	xy := make([]float64, 0, totalPoints*2)
	ends := make([]uint32, 0, len(poly))

	cumulative := uint32(0)
	for _, ring := range poly {
		for _, p := range ring {
			xy = append(xy, p[0], p[1])
		}
		cumulative += uint32(len(ring))
		ends = append(ends, cumulative)
	}

	return xy, ends
}

func boundToPolygon(b orb.Bound) orb.Polygon {
	return orb.Polygon{
		orb.Ring{
			{b.Min[0], b.Min[1]},
			{b.Max[0], b.Min[1]},
			{b.Max[0], b.Max[1]},
			{b.Min[0], b.Max[1]},
			{b.Min[0], b.Min[1]},
		},
	}
}

// Helper functions for reading

func pointFromXY(fgbGeom *flattypes.Geometry) orb.Point {
	if fgbGeom.XyLength() < 2 {
		return orb.Point{}
	}
	return orb.Point{fgbGeom.Xy(0), fgbGeom.Xy(1)}
}

func multiPointFromXY(fgbGeom *flattypes.Geometry) orb.MultiPoint {
	xyLen := fgbGeom.XyLength()
	if xyLen < 2 {
		return orb.MultiPoint{}
	}

	mp := make(orb.MultiPoint, 0, xyLen/2)
	for i := 0; i+1 < xyLen; i += 2 {
		mp = append(mp, orb.Point{fgbGeom.Xy(i), fgbGeom.Xy(i + 1)})
	}
	return mp
}

func lineStringFromXY(fgbGeom *flattypes.Geometry) orb.LineString {
	xyLen := fgbGeom.XyLength()
	if xyLen < 2 {
		return orb.LineString{}
	}

	ls := make(orb.LineString, 0, xyLen/2)
	for i := 0; i+1 < xyLen; i += 2 {
		ls = append(ls, orb.Point{fgbGeom.Xy(i), fgbGeom.Xy(i + 1)})
	}
	return ls
}

func multiLineStringFromXYEnds(fgbGeom *flattypes.Geometry) orb.MultiLineString {
	xyLen := fgbGeom.XyLength()
	endsLen := fgbGeom.EndsLength()

	// An absent or single-entry ends array means a single line.
	if xyLen < 2 || endsLen < 2 {
		if xyLen >= 2 {
			return orb.MultiLineString{lineStringFromXY(fgbGeom)}
		}
		return orb.MultiLineString{}
	}

	mls := make(orb.MultiLineString, 0, endsLen)
	start := uint32(0)

	for i := 0; i < endsLen; i++ {
		end := fgbGeom.Ends(i)
		ls := make(orb.LineString, 0, end-start)

		for j := start; j < end; j++ {
			idx := int(j) * 2
			if idx+1 < xyLen {
				ls = append(ls, orb.Point{fgbGeom.Xy(idx), fgbGeom.Xy(idx + 1)})
			}
		}

		mls = append(mls, ls)
		start = end
	}

	return mls
}

func polygonFromXYEnds(fgbGeom *flattypes.Geometry) orb.Polygon {
	xyLen := fgbGeom.XyLength()
	endsLen := fgbGeom.EndsLength()

	if xyLen < 2 {
		return orb.Polygon{}
	}

	// An absent or single-entry ends array means a single ring.
	if endsLen < 2 {
		ring := make(orb.Ring, 0, xyLen/2)
		for i := 0; i+1 < xyLen; i += 2 {
			ring = append(ring, orb.Point{fgbGeom.Xy(i), fgbGeom.Xy(i + 1)})
		}
		return orb.Polygon{ring}
	}

	poly := make(orb.Polygon, 0, endsLen)
	start := uint32(0)

	for i := 0; i < endsLen; i++ {
		end := fgbGeom.Ends(i)
		ring := make(orb.Ring, 0, end-start)

		for j := start; j < end; j++ {
			idx := int(j) * 2
			if idx+1 < xyLen {
				ring = append(ring, orb.Point{fgbGeom.Xy(idx), fgbGeom.Xy(idx + 1)})
			}
		}

		poly = append(poly, ring)
		start = end
	}

	return poly
}

func multiPolygonFromParts(fgbGeom *flattypes.Geometry) (orb.MultiPolygon, error) {
	partsLen := fgbGeom.PartsLength()
	if partsLen == 0 {
		// Fallback: treat as a single polygon.
		poly := polygonFromXYEnds(fgbGeom)
		if len(poly) > 0 {
			return orb.MultiPolygon{poly}, nil
		}
		return orb.MultiPolygon{}, nil
	}

	mp := make(orb.MultiPolygon, 0, partsLen)
	for i := 0; i < partsLen; i++ {
		var part flattypes.Geometry
		if fgbGeom.Parts(&part, i) {
			poly := polygonFromXYEnds(&part)
			if len(poly) > 0 {
				mp = append(mp, poly)
			}
		}
	}

	return mp, nil
}

func collectionFromParts(fgbGeom *flattypes.Geometry) (orb.Collection, error) {
	partsLen := fgbGeom.PartsLength()
	if partsLen == 0 {
		return orb.Collection{}, nil
	}

	coll := make(orb.Collection, 0, partsLen)
	for i := 0; i < partsLen; i++ {
		var part flattypes.Geometry
		if fgbGeom.Parts(&part, i) {
			geom, err := geometryFromFGB(&part, part.Type())
			if err != nil {
				return nil, err
			}
			coll = append(coll, geom)
		}
	}

	return coll, nil
}

// computeBoundingBox computes the bounding box of an orb.Geometry.
func computeBoundingBox(geom orb.Geometry) [4]float64 {
	bound := geom.Bound()
	return [4]float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]}
}
