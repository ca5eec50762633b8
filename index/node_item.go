// Package index implements the packed Hilbert R-tree used as the spatial
// index of a FlatGeobuf file. The tree is a dense, contiguous array of
// bounding-box nodes whose layout is fully determined by the item count and
// node size, so it can be searched directly from its serialized form.
package index

import (
	"encoding/binary"
	"math"
)

// NodeItemLen is the serialized size of a NodeItem in bytes: four float64
// bounds plus a uint64 offset, all little-endian.
const NodeItemLen = 40

// NodeItem is an axis-aligned bounding box with an offset slot. For leaf
// nodes the offset addresses the serialized feature; for non-leaf nodes it
// is the byte offset of the first child node within the tree bytes.
type NodeItem struct {
	MinX, MinY, MaxX, MaxY float64
	Offset                 uint64
}

// NewNodeItem returns an inverted infinite NodeItem, the identity under
// Expand.
func NewNodeItem(offset uint64) NodeItem {
	return NodeItem{
		MinX:   math.Inf(1),
		MinY:   math.Inf(1),
		MaxX:   math.Inf(-1),
		MaxY:   math.Inf(-1),
		Offset: offset,
	}
}

// NewNodeItemWithCoordinates returns a NodeItem with the given bounds.
func NewNodeItemWithCoordinates(offset uint64, minX, minY, maxX, maxY float64) NodeItem {
	return NodeItem{
		MinX:   minX,
		MinY:   minY,
		MaxX:   maxX,
		MaxY:   maxY,
		Offset: offset,
	}
}

// Width returns the width of the NodeItem.
func (n NodeItem) Width() float64 {
	return n.MaxX - n.MinX
}

// Height returns the height of the NodeItem.
func (n NodeItem) Height() float64 {
	return n.MaxY - n.MinY
}

// Expand grows this NodeItem to also cover the given NodeItem.
func (n *NodeItem) Expand(other NodeItem) {
	n.MinX = math.Min(n.MinX, other.MinX)
	n.MinY = math.Min(n.MinY, other.MinY)
	n.MaxX = math.Max(n.MaxX, other.MaxX)
	n.MaxY = math.Max(n.MaxY, other.MaxY)
}

// Intersects reports whether the two boxes overlap. Touching edges count
// as intersecting.
func (n NodeItem) Intersects(other NodeItem) bool {
	return n.MinX <= other.MaxX &&
		n.MaxX >= other.MinX &&
		n.MinY <= other.MaxY &&
		n.MaxY >= other.MinY
}

// ToSlice returns the bounds as [minX, minY, maxX, maxY].
func (n NodeItem) ToSlice() []float64 {
	return []float64{n.MinX, n.MinY, n.MaxX, n.MaxY}
}

// CalcExtent folds Expand over the given nodes starting from the inverted
// infinite NodeItem.
func CalcExtent(nodes []NodeItem) NodeItem {
	extent := NewNodeItem(0)
	for _, node := range nodes {
		extent.Expand(node)
	}
	return extent
}

// Item is anything carrying a bounding box that can be indexed, typically
// a feature recorded during the writer's first pass.
type Item interface {
	NodeItem() NodeItem
}

// CalcExtentForItems folds Expand over the items' bounding boxes.
func CalcExtentForItems(items []Item) NodeItem {
	extent := NewNodeItem(0)
	for _, item := range items {
		extent.Expand(item.NodeItem())
	}
	return extent
}

// appendTo appends the 40-byte little-endian serialized form.
func (n NodeItem) appendTo(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(n.MinX))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(n.MinY))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(n.MaxX))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(n.MaxY))
	buf = binary.LittleEndian.AppendUint64(buf, n.Offset)
	return buf
}

// nodeItemFromBytes decodes one NodeItem from the first 40 bytes of buf.
func nodeItemFromBytes(buf []byte) NodeItem {
	return NodeItem{
		MinX:   math.Float64frombits(binary.LittleEndian.Uint64(buf[0:8])),
		MinY:   math.Float64frombits(binary.LittleEndian.Uint64(buf[8:16])),
		MaxX:   math.Float64frombits(binary.LittleEndian.Uint64(buf[16:24])),
		MaxY:   math.Float64frombits(binary.LittleEndian.Uint64(buf[24:32])),
		Offset: binary.LittleEndian.Uint64(buf[32:40]),
	}
}
