package mesh

import (
	"math"
	"math/rand"
	"testing"

	"github.com/Xuan-Zheng05/EGSnrc/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestPointOutsideOfPlane(t *testing.T) {
	a := r3.Vec{}
	b := r3.Vec{X: 1}
	c := r3.Vec{Y: 1}
	d := r3.Vec{Z: 1}
	for _, tc := range []struct {
		p    r3.Vec
		want bool
	}{
		{r3.Vec{X: 0.25, Y: 0.25, Z: 0.25}, false}, // same side as d
		{r3.Vec{X: 0.25, Y: 0.25, Z: -1}, true},
		{r3.Vec{Z: 0}, false}, // on the plane
	} {
		if got := pointOutsideOfPlane(tc.p, a, b, c, d); got != tc.want {
			t.Errorf("pointOutsideOfPlane(%v) = %v, want %v", tc.p, got, tc.want)
		}
	}
}

func TestClosestPointOnTriangle(t *testing.T) {
	a := r3.Vec{}
	b := r3.Vec{X: 2}
	c := r3.Vec{Y: 2}
	for _, tc := range []struct {
		name string
		p    r3.Vec
		want r3.Vec
	}{
		{"vertex region A", r3.Vec{X: -1, Y: -1}, a},
		{"vertex region B", r3.Vec{X: 3, Y: -1}, b},
		{"vertex region C", r3.Vec{X: -1, Y: 3}, c},
		{"edge region AB", r3.Vec{X: 1, Y: -1}, r3.Vec{X: 1}},
		{"edge region AC", r3.Vec{X: -1, Y: 1}, r3.Vec{Y: 1}},
		{"edge region BC", r3.Vec{X: 2, Y: 2}, r3.Vec{X: 1, Y: 1}},
		{"interior projection", r3.Vec{X: 0.5, Y: 0.5, Z: 3}, r3.Vec{X: 0.5, Y: 0.5}},
		{"on the triangle", r3.Vec{X: 0.5, Y: 0.5}, r3.Vec{X: 0.5, Y: 0.5}},
	} {
		got := closestPointOnTriangle(tc.p, a, b, c)
		if !d3.EqualWithin(got, tc.want, 1e-12) {
			t.Errorf("%s: closestPointOnTriangle(%v) = %v, want %v", tc.name, tc.p, got, tc.want)
		}
	}
}

// A triangle vertex is always its own closest point.
func TestClosestPointOnTriangleVertexIdentity(t *testing.T) {
	rand.Seed(1)
	box := d3.NewBox(r3.Vec{}, d3.Elem(20))
	for i := 0; i < 100; i++ {
		tri := box.RandomSet(3)
		for _, v := range tri {
			got := closestPointOnTriangle(v, tri[0], tri[1], tri[2])
			if !d3.EqualWithin(got, v, 1e-12) {
				t.Fatalf("closestPointOnTriangle(%v, %v) = %v, want the vertex itself", v, tri, got)
			}
		}
	}
}

func TestClosestPointOnTetrahedron(t *testing.T) {
	a := r3.Vec{}
	b := r3.Vec{X: 1}
	c := r3.Vec{Y: 1}
	d := r3.Vec{Z: 1}
	for _, tc := range []struct {
		name string
		p    r3.Vec
		want r3.Vec
	}{
		{"interior point", r3.Vec{X: 0.1, Y: 0.1, Z: 0.1}, r3.Vec{X: 0.1, Y: 0.1, Z: 0.1}},
		{"below face ABC", r3.Vec{X: 0.2, Y: 0.2, Z: -1}, r3.Vec{X: 0.2, Y: 0.2}},
		{"beyond vertex B", r3.Vec{X: 3, Y: -1, Z: -1}, b},
		{"outside face BCD", r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 1.0 / 3, Y: 1.0 / 3, Z: 1.0 / 3}},
	} {
		got := closestPointOnTetrahedron(tc.p, a, b, c, d)
		if !d3.EqualWithin(got, tc.want, 1e-12) {
			t.Errorf("%s: closestPointOnTetrahedron(%v) = %v, want %v", tc.name, tc.p, got, tc.want)
		}
	}
}

func TestClosestPointOnTetrahedronVertexIdentity(t *testing.T) {
	rand.Seed(1)
	box := d3.NewBox(r3.Vec{}, d3.Elem(20))
	for i := 0; i < 100; i++ {
		tet := box.RandomSet(4)
		for _, v := range tet {
			got := closestPointOnTetrahedron(v, tet[0], tet[1], tet[2], tet[3])
			if !d3.EqualWithin(got, v, 1e-12) {
				t.Fatalf("closestPointOnTetrahedron(%v, %v) = %v, want the vertex itself", v, tet, got)
			}
		}
	}
}

func TestExteriorRayTriangle(t *testing.T) {
	a := r3.Vec{}
	b := r3.Vec{X: 1}
	c := r3.Vec{Y: 1}
	for _, tc := range []struct {
		name     string
		p, v     r3.Vec
		wantDist float64
		wantHit  bool
	}{
		{"hit from above", r3.Vec{X: 0.2, Y: 0.2, Z: 2}, r3.Vec{Z: -1}, 2, true},
		{"hit from below", r3.Vec{X: 0.2, Y: 0.2, Z: -2}, r3.Vec{Z: 1}, 2, true},
		{"miss outside the triangle", r3.Vec{X: 0.9, Y: 0.9, Z: 2}, r3.Vec{Z: -1}, 0, false},
		{"pointing away", r3.Vec{X: 0.2, Y: 0.2, Z: 2}, r3.Vec{Z: 1}, 0, false},
		{"parallel to the plane", r3.Vec{X: 0.2, Y: 0.2, Z: 2}, r3.Vec{X: 1}, 0, false},
	} {
		dist, hit := exteriorRayTriangle(tc.p, tc.v, a, b, c)
		if hit != tc.wantHit {
			t.Errorf("%s: hit = %v, want %v", tc.name, hit, tc.wantHit)
			continue
		}
		if hit && math.Abs(dist-tc.wantDist) > 1e-12 {
			t.Errorf("%s: dist = %g, want %g", tc.name, dist, tc.wantDist)
		}
	}
}

func TestInteriorRayTriangle(t *testing.T) {
	// face ABC of the unit tetrahedron, normal toward D (up).
	a := r3.Vec{}
	b := r3.Vec{X: 1}
	c := r3.Vec{Y: 1}
	norm := r3.Vec{Z: 1}
	for _, tc := range []struct {
		name     string
		p, v     r3.Vec
		wantDist float64
		wantHit  bool
	}{
		{"exit through the face", r3.Vec{X: 0.2, Y: 0.2, Z: 0.5}, r3.Vec{Z: -1}, 0.5, true},
		{"exit from on the face", r3.Vec{X: 0.2, Y: 0.2}, r3.Vec{Z: -1}, 0, true},
		{"moving along the normal", r3.Vec{X: 0.2, Y: 0.2, Z: 0.5}, r3.Vec{Z: 1}, 0, false},
		{"moving in the plane", r3.Vec{X: 0.2, Y: 0.2, Z: 0.5}, r3.Vec{X: 1}, 0, false},
		{"origin behind the plane", r3.Vec{X: 0.2, Y: 0.2, Z: -0.5}, r3.Vec{Z: -1}, 0, false},
		{"miss outside the face", r3.Vec{X: 0.9, Y: 0.9, Z: 0.5}, r3.Vec{Z: -1}, 0, false},
	} {
		dist, hit := interiorRayTriangle(tc.p, tc.v, norm, a, b, c)
		if hit != tc.wantHit {
			t.Errorf("%s: hit = %v, want %v", tc.name, hit, tc.wantHit)
			continue
		}
		if hit && math.Abs(dist-tc.wantDist) > 1e-12 {
			t.Errorf("%s: dist = %g, want %g", tc.name, dist, tc.wantDist)
		}
	}
}

func TestDistanceToPlane(t *testing.T) {
	n := r3.Unit(r3.Vec{X: 1, Y: 1, Z: 1})
	planePoint := r3.Vec{X: 1}
	for _, tc := range []struct {
		x    r3.Vec
		want float64
	}{
		{r3.Vec{}, 1 / math.Sqrt(3)},
		{r3.Vec{X: 1}, 0},
		{r3.Vec{X: 1, Y: 1, Z: 1}, 2 / math.Sqrt(3)},
	} {
		if got := distanceToPlane(tc.x, n, planePoint); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("distanceToPlane(%v) = %g, want %g", tc.x, got, tc.want)
		}
	}
}
