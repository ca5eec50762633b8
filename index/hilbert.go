package index

import (
	"math"
	"sort"
)

// hilbertMax is the top of the 16-bit grid the curve is evaluated on.
const hilbertMax = uint32((1 << 16) - 1)

// Hilbert maps a point on a 16-bit grid to its position on a Hilbert
// curve. Based on the public domain code at
// https://github.com/rawrunprotected/hilbert_curves
func Hilbert(x, y uint32) uint32 {
	a := x ^ y
	b := 0xFFFF ^ a
	c := 0xFFFF ^ (x | y)
	d := x & (y ^ 0xFFFF)

	A := a | (b >> 1)
	B := (a >> 1) ^ a
	C := ((c >> 1) ^ (b & (d >> 1))) ^ c
	D := ((a & (c >> 1)) ^ (d >> 1)) ^ d

	a = A
	b = B
	c = C
	d = D
	A = ((a & (a >> 2)) ^ (b & (b >> 2)))
	B = ((a & (b >> 2)) ^ (b & ((a ^ b) >> 2)))
	C ^= ((a & (c >> 2)) ^ (b & (d >> 2)))
	D ^= ((b & (c >> 2)) ^ ((a ^ b) & (d >> 2)))

	a = A
	b = B
	c = C
	d = D
	A = ((a & (a >> 4)) ^ (b & (b >> 4)))
	B = ((a & (b >> 4)) ^ (b & ((a ^ b) >> 4)))
	C ^= ((a & (c >> 4)) ^ (b & (d >> 4)))
	D ^= ((b & (c >> 4)) ^ ((a ^ b) & (d >> 4)))

	a = A
	b = B
	c = C
	d = D
	C ^= ((a & (c >> 8)) ^ (b & (d >> 8)))
	D ^= ((b & (c >> 8)) ^ ((a ^ b) & (d >> 8)))

	a = C ^ (C >> 1)
	b = D ^ (D >> 1)

	i0 := x ^ y
	i1 := b | (0xFFFF ^ (i0 | a))

	i0 = (i0 | (i0 << 8)) & 0x00FF00FF
	i0 = (i0 | (i0 << 4)) & 0x0F0F0F0F
	i0 = (i0 | (i0 << 2)) & 0x33333333
	i0 = (i0 | (i0 << 1)) & 0x55555555

	i1 = (i1 | (i1 << 8)) & 0x00FF00FF
	i1 = (i1 | (i1 << 4)) & 0x0F0F0F0F
	i1 = (i1 | (i1 << 2)) & 0x33333333
	i1 = (i1 | (i1 << 1)) & 0x55555555

	return (i1 << 1) | i0
}

// hilbertOfNode maps the node's centroid into the extent's [0, 0xFFFF]
// grid and evaluates the curve. A zero-width or zero-height extent
// collapses the corresponding coordinate to 0.
func hilbertOfNode(node NodeItem, minX, minY, width, height float64) uint32 {
	var x, y uint32
	if width != 0 {
		x = uint32(math.Floor(float64(hilbertMax) * ((node.MinX+node.MaxX)/2 - minX) / width))
	}
	if height != 0 {
		y = uint32(math.Floor(float64(hilbertMax) * ((node.MinY+node.MaxY)/2 - minY) / height))
	}
	return Hilbert(x, y)
}

// HilbertSort sorts nodes in descending Hilbert curve order of their
// centroids within the given extent. The direction is part of the wire
// contract: leaf ordering in a serialized tree is observable through
// offsets.
func HilbertSort(nodes []NodeItem, extent NodeItem) {
	minX := extent.MinX
	minY := extent.MinY
	width := extent.Width()
	height := extent.Height()

	sort.Slice(nodes, func(i, j int) bool {
		ha := hilbertOfNode(nodes[i], minX, minY, width, height)
		hb := hilbertOfNode(nodes[j], minX, minY, width, height)
		return ha > hb
	})
}

// HilbertSortItems sorts items the same way HilbertSort sorts node items.
func HilbertSortItems(items []Item, extent NodeItem) {
	minX := extent.MinX
	minY := extent.MinY
	width := extent.Width()
	height := extent.Height()

	sort.Slice(items, func(i, j int) bool {
		ha := hilbertOfNode(items[i].NodeItem(), minX, minY, width, height)
		hb := hilbertOfNode(items[j].NodeItem(), minX, minY, width, height)
		return ha > hb
	})
}
