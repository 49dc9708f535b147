package mesh

import (
	"math"

	"github.com/Xuan-Zheng05/EGSnrc/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// bounds is the axis-aligned bounding volume the octrees subdivide. It layers
// the half-open containment and octant conventions of the spatial index on
// top of the generic d3.Box.
type bounds d3.Box

func (b bounds) mid() r3.Vec {
	return d3.Box(b).Center()
}

func (b bounds) expand(delta float64) bounds {
	return bounds(d3.Box(b).Enlarge(d3.Elem(2 * delta)))
}

// contains is inclusive at the lower bound and non-inclusive at the upper
// bound, so a point on the interface between two boxes belongs to exactly one
// of them:
//
//	+---+---+
//	|   x   |
//	+---+---+
//	      ^ belongs here
func (b bounds) contains(p r3.Vec) bool {
	return p.X >= b.Min.X && p.X < b.Max.X &&
		p.Y >= b.Min.Y && p.Y < b.Max.Y &&
		p.Z >= b.Min.Z && p.Z < b.Max.Z
}

// indivisible reports whether subdividing would no longer change the
// representable bounds, i.e. the floating point subdivision floor is reached.
func (b bounds) indivisible() bool {
	mid := b.mid()
	return approxEq(b.Min.X, mid.X, epsTol) ||
		approxEq(b.Max.X, mid.X, epsTol) ||
		approxEq(b.Min.Y, mid.Y, epsTol) ||
		approxEq(b.Max.Y, mid.Y, epsTol) ||
		approxEq(b.Min.Z, mid.Z, epsTol) ||
		approxEq(b.Max.Z, mid.Z, epsTol)
}

// octants splits the box into 8 equal children. Octant numbering follows an
// S by sign relative to the midpoint: bit 0 is +x, bit 1 is +y, bit 2 is +z.
//
//	      -z         +z
//	   +---+---+  +---+---+
//	   | 2 | 3 |  | 6 | 7 |
//	y  +---+---+  +---+---+
//	^  | 0 | 1 |  | 4 | 5 |
//	|  +---+---+  +---+---+
//	+ -- > x
func (b bounds) octants() [8]bounds {
	mid := b.mid()
	var oct [8]bounds
	for i := range oct {
		o := bounds{Min: b.Min, Max: mid}
		if i&1 != 0 {
			o.Min.X, o.Max.X = mid.X, b.Max.X
		}
		if i&2 != 0 {
			o.Min.Y, o.Max.Y = mid.Y, b.Max.Y
		}
		if i&4 != 0 {
			o.Min.Z, o.Max.Z = mid.Z, b.Max.Z
		}
		oct[i] = o
	}
	return oct
}

// octantOf returns the index of the octant p falls in, consistent with the
// numbering of octants.
func (b bounds) octantOf(p r3.Vec) int {
	mid := b.mid()
	oct := 0
	if p.X >= mid.X {
		oct |= 1
	}
	if p.Y >= mid.Y {
		oct |= 2
	}
	if p.Z >= mid.Z {
		oct |= 4
	}
	return oct
}

// closestPoint clamps p to the box. Points inside the box are their own
// closest point. Ericson section 5.1.3.
func (b bounds) closestPoint(p r3.Vec) r3.Vec {
	return d3.MaxElem(b.Min, d3.MinElem(p, b.Max))
}

// minInteriorDistance returns the minimum distance from an interior point to
// the box walls.
func (b bounds) minInteriorDistance(p r3.Vec) float64 {
	return math.Min(
		d3.Min(r3.Sub(p, b.Min)),
		d3.Min(r3.Sub(b.Max, p)),
	)
}

// rayIntersect clips the ray p+t*v against the three slabs of the box,
// maintaining the running [tmin,tmax] interval. Reports the entry distance
// and entry point when the interval is non-empty. Ericson section 5.3.3.
func (b bounds) rayIntersect(p, v r3.Vec) (dist float64, q r3.Vec, hit bool) {
	tmin := 0.0
	tmax := math.MaxFloat64
	pv := [3]float64{p.X, p.Y, p.Z}
	vv := [3]float64{v.X, v.Y, v.Z}
	mins := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	maxs := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
	for i := 0; i < 3; i++ {
		if math.Abs(vv[i]) < epsTol {
			// Parallel to the slab: the origin must lie within its
			// bounds to hit the box at all.
			if pv[i] < mins[i] || pv[i] > maxs[i] {
				return 0, r3.Vec{}, false
			}
			continue
		}
		invVel := 1 / vv[i]
		t1 := (mins[i] - pv[i]) * invVel
		t2 := (maxs[i] - pv[i]) * invVel
		// convention is t1 near plane, t2 far plane
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, r3.Vec{}, false
		}
	}
	return tmin, r3.Add(p, r3.Scale(tmin, v)), true
}

// intersectsTriangle is the separating axis test between the box and triangle
// ABC, following Akenine-Möller's 13-axis formulation as presented in Ericson
// section 5.2.9. Axes whose edge cross product is near zero are skipped,
// which can yield false positives but never false negatives.
func (bb bounds) intersectsTriangle(a, b, c r3.Vec) bool {
	// Early out on the per-axis extents.
	if min3(a.X, b.X, c.X) >= bb.Max.X ||
		min3(a.Y, b.Y, c.Y) >= bb.Max.Y ||
		min3(a.Z, b.Z, c.Z) >= bb.Max.Z ||
		max3(a.X, b.X, c.X) <= bb.Min.X ||
		max3(a.Y, b.Y, c.Y) <= bb.Min.Y ||
		max3(a.Z, b.Z, c.Z) <= bb.Min.Z {
		return false
	}

	centre := bb.mid()
	ext := r3.Scale(0.5, d3.Box(bb).Size())

	// move triangle to box origin
	v0 := r3.Sub(a, centre)
	v1 := r3.Sub(b, centre)
	v2 := r3.Sub(c, centre)

	edges := [3]r3.Vec{r3.Sub(v1, v0), r3.Sub(v2, v1), r3.Sub(v0, v2)}

	// 9 edge-cross axes: box unit axes against triangle edge vectors.
	ux := r3.Vec{X: 1}
	uy := r3.Vec{Y: 1}
	uz := r3.Vec{Z: 1}
	for _, u := range [3]r3.Vec{ux, uy, uz} {
		for _, f := range edges {
			axis := r3.Cross(u, f)
			if isZero(axis) {
				// Near-degenerate axis, unlikely to separate.
				// Skipping may cause false positives but not
				// false negatives.
				continue
			}
			r := ext.X*math.Abs(axis.X) + ext.Y*math.Abs(axis.Y) + ext.Z*math.Abs(axis.Z)
			p0 := r3.Dot(v0, axis)
			p1 := r3.Dot(v1, axis)
			p2 := r3.Dot(v2, axis)
			if math.Max(-max3(p0, p1, p2), min3(p0, p1, p2))+epsTol > r {
				return false
			}
		}
	}

	// 3 box face normal axes.
	if max3(v0.X, v1.X, v2.X) <= -ext.X || min3(v0.X, v1.X, v2.X) >= ext.X ||
		max3(v0.Y, v1.Y, v2.Y) <= -ext.Y || min3(v0.Y, v1.Y, v2.Y) >= ext.Y ||
		max3(v0.Z, v1.Z, v2.Z) <= -ext.Z || min3(v0.Z, v1.Z, v2.Z) >= ext.Z {
		return false
	}

	// Triangle face normal via a plane distance test against the box half
	// extents. Degenerate triangle normals are not made robust here; the
	// failure mode is an extra candidate, not a miss.
	n := r3.Cross(edges[0], edges[1])
	r := ext.X*math.Abs(n.X) + ext.Y*math.Abs(n.Y) + ext.Z*math.Abs(n.Z)
	// Distance from box centre to the triangle plane. The plane offset uses
	// the untranslated vertex a (Ericson erratum for 5.2.9).
	s := r3.Dot(n, centre) - r3.Dot(n, a)
	return math.Abs(s) <= r
}

// intersectsTet reports whether any of the four faces of tetrahedron ABCD
// intersects the box.
func (bb bounds) intersectsTet(a, b, c, d r3.Vec) bool {
	return bb.intersectsTriangle(a, b, c) ||
		bb.intersectsTriangle(a, c, d) ||
		bb.intersectsTriangle(a, b, d) ||
		bb.intersectsTriangle(b, c, d)
}
