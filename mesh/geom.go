package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Numeric policy: all floating comparisons go through approxEq's relative
// tolerance. Near-tangent rays, near-zero cross products and points exactly on
// a shared interface are resolved by these constants, never raised as errors.
// The spatial index biases toward false positives (harmless extra candidate
// checks) over false negatives (missed intersections).
const (
	// epsTol is the general geometric comparison tolerance.
	epsTol = 1e-8
	// epsRay is the tighter tolerance for ray intersection denominators.
	epsRay = 1e-10
	// boxDelta expands octree root bounds to sidestep edge cases at the
	// outermost mesh boundary.
	boxDelta = 1e-8
)

// approxEq is the relative floating point comparison |a-b| <= e*(|a|+|b|+1).
func approxEq(a, b, e float64) bool {
	return math.Abs(a-b) <= e*(math.Abs(a)+math.Abs(b)+1.0)
}

func isZero(v r3.Vec) bool {
	return approxEq(0, r3.Norm(v), epsTol)
}

func min3(a, b, c float64) float64 {
	return math.Min(math.Min(a, b), c)
}

func max3(a, b, c float64) float64 {
	return math.Max(math.Max(a, b), c)
}

func distance2(a, b r3.Vec) float64 {
	return r3.Norm2(r3.Sub(a, b))
}

// pointOutsideOfPlane returns true if P and the reference point D lie on
// opposite sides of the plane through A, B, C, by comparing the signs of the
// two scalar triple products.
func pointOutsideOfPlane(p, a, b, c, d r3.Vec) bool {
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	return r3.Dot(r3.Sub(p, a), n)*r3.Dot(r3.Sub(d, a), n) < 0
}

// closestPointOnTriangle returns the point of triangle ABC nearest to P.
// Voronoi-region walk following Ericson "Real-Time Collision Detection"
// section 5.1.5: vertex regions, then edge regions, then the interior.
func closestPointOnTriangle(p, a, b, c r3.Vec) r3.Vec {
	// vertex region A
	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)
	ao := r3.Sub(p, a)

	d1 := r3.Dot(ab, ao)
	d2 := r3.Dot(ac, ao)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	// vertex region B
	bo := r3.Sub(p, b)
	d3 := r3.Dot(ab, bo)
	d4 := r3.Dot(ac, bo)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	// edge region AB
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return r3.Add(a, r3.Scale(v, ab))
	}

	// vertex region C
	co := r3.Sub(p, c)
	d5 := r3.Dot(ab, co)
	d6 := r3.Dot(ac, co)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	// edge region AC
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return r3.Add(a, r3.Scale(w, ac))
	}

	// edge region BC
	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return r3.Add(b, r3.Scale(w, r3.Sub(c, b)))
	}

	// inside the face
	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac)))
}

// closestPointOnTetrahedron returns the point of tetrahedron ABCD nearest
// to P. Only faces whose plane P is outside of can hold the nearest point;
// if P is outside no face it is interior and its own closest point.
func closestPointOnTetrahedron(p, a, b, c, d r3.Vec) r3.Vec {
	minPoint := p
	min := math.MaxFloat64

	update := func(a, b, c r3.Vec) {
		q := closestPointOnTriangle(p, a, b, c)
		if dis := distance2(q, p); dis < min {
			min = dis
			minPoint = q
		}
	}

	if pointOutsideOfPlane(p, a, b, c, d) {
		update(a, b, c)
	}
	if pointOutsideOfPlane(p, a, c, d, b) {
		update(a, c, d)
	}
	if pointOutsideOfPlane(p, a, b, d, c) {
		update(a, b, d)
	}
	if pointOutsideOfPlane(p, b, d, c, a) {
		update(b, d, c)
	}
	return minPoint
}

// exteriorRayTriangle is the double-sided Möller-Trumbore ray-triangle
// intersection test for rays starting outside the tetrahedron owning face
// ABC. The vertex ordering of the triangle does not matter. Reports the
// parametric distance along the unit direction v and whether the triangle was
// hit; hits behind the ray origin and rays parallel to the triangle plane
// (within epsRay) are rejected.
func exteriorRayTriangle(p, v, a, b, c r3.Vec) (dist float64, hit bool) {
	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)

	pvec := r3.Cross(v, ac)
	det := r3.Dot(ab, pvec)
	if det > -epsRay && det < epsRay {
		return 0, false
	}
	invDet := 1 / det
	tvec := r3.Sub(p, a)
	u := r3.Dot(tvec, pvec) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}
	qvec := r3.Cross(tvec, ab)
	w := r3.Dot(v, qvec) * invDet
	if w < 0 || u+w > 1 {
		return 0, false
	}
	dist = r3.Dot(ac, qvec) * invDet
	if dist < 0 {
		return 0, false
	}
	return dist, true
}

// interiorRayTriangle is the single-sided variant of exteriorRayTriangle used
// when a particle exits a tetrahedron through face ABC from the inside.
// norm is the face normal oriented toward the opposite vertex; the ray must
// point against it (leave the element) and the origin must already be on or
// inside the face plane relative to that normal.
func interiorRayTriangle(p, v, norm, a, b, c r3.Vec) (dist float64, hit bool) {
	if r3.Dot(v, norm) > -epsRay {
		return 0, false
	}
	if r3.Dot(norm, r3.Sub(p, a)) < 0 {
		return 0, false
	}

	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)
	pvec := r3.Cross(v, ac)
	det := r3.Dot(ab, pvec)
	if det > -epsRay && det < epsRay {
		return 0, false
	}
	invDet := 1 / det
	tvec := r3.Sub(p, a)
	u := r3.Dot(tvec, pvec) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}
	qvec := r3.Cross(tvec, ab)
	w := r3.Dot(v, qvec) * invDet
	if w < 0 || u+w > 1 {
		return 0, false
	}
	dist = r3.Dot(ac, qvec) * invDet
	if dist < 0 {
		return 0, false
	}
	return dist, true
}

// distanceToPlane returns the absolute distance from x to the plane through
// planePoint with unit normal n.
func distanceToPlane(x, n, planePoint r3.Vec) float64 {
	return math.Abs(r3.Dot(n, r3.Sub(x, planePoint)))
}
