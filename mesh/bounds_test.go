package mesh

import (
	"math"
	"testing"

	"github.com/Xuan-Zheng05/EGSnrc/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

func unitBounds() bounds {
	return bounds{Max: r3.Vec{X: 1, Y: 1, Z: 1}}
}

func TestBoundsContainsHalfOpen(t *testing.T) {
	b := unitBounds()
	for _, tc := range []struct {
		p    r3.Vec
		want bool
	}{
		{r3.Vec{}, true}, // lower corner included
		{r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, true},
		{r3.Vec{X: 1, Y: 1, Z: 1}, false}, // upper corner excluded
		{r3.Vec{X: 0.5, Y: 1, Z: 0.5}, false},
		{r3.Vec{X: -0.1, Y: 0.5, Z: 0.5}, false},
	} {
		if got := b.contains(tc.p); got != tc.want {
			t.Errorf("contains(%v) = %v, want %v", tc.p, got, tc.want)
		}
	}

	// A point on the interface between two octants belongs to exactly one.
	oct := b.octants()
	p := r3.Vec{X: 0.5, Y: 0.25, Z: 0.25}
	owners := 0
	for _, o := range oct {
		if o.contains(p) {
			owners++
		}
	}
	if owners != 1 {
		t.Errorf("interface point owned by %d octants, want 1", owners)
	}
}

func TestBoundsOctants(t *testing.T) {
	b := unitBounds()
	oct := b.octants()
	// bit 0 selects +x, bit 1 +y, bit 2 +z
	for i, o := range oct {
		wantMin := r3.Vec{}
		if i&1 != 0 {
			wantMin.X = 0.5
		}
		if i&2 != 0 {
			wantMin.Y = 0.5
		}
		if i&4 != 0 {
			wantMin.Z = 0.5
		}
		if o.Min != wantMin {
			t.Errorf("octant %d Min = %v, want %v", i, o.Min, wantMin)
		}
		if o.Max != r3.Add(wantMin, d3.Elem(0.5)) {
			t.Errorf("octant %d Max = %v", i, o.Max)
		}
		center := o.mid()
		if got := b.octantOf(center); got != i {
			t.Errorf("octantOf(center of octant %d) = %d", i, got)
		}
		if !o.contains(center) {
			t.Errorf("octant %d does not contain its own center", i)
		}
	}
}

func TestBoundsIndivisible(t *testing.T) {
	if unitBounds().indivisible() {
		t.Error("unit box reported indivisible")
	}
	tiny := bounds{
		Min: r3.Vec{X: 1, Y: 1, Z: 1},
		Max: r3.Vec{X: 1 + 1e-12, Y: 1 + 1e-12, Z: 1 + 1e-12},
	}
	if !tiny.indivisible() {
		t.Error("box at the floating point floor reported divisible")
	}
}

func TestBoundsClosestPoint(t *testing.T) {
	b := unitBounds()
	for _, tc := range []struct {
		p, want r3.Vec
	}{
		{r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}},
		{r3.Vec{X: 2, Y: 0.5, Z: 0.5}, r3.Vec{X: 1, Y: 0.5, Z: 0.5}},
		{r3.Vec{X: 2, Y: 2, Z: 2}, r3.Vec{X: 1, Y: 1, Z: 1}},
		{r3.Vec{X: -1, Y: -1, Z: 0.5}, r3.Vec{Z: 0.5}},
	} {
		if got := b.closestPoint(tc.p); got != tc.want {
			t.Errorf("closestPoint(%v) = %v, want %v", tc.p, got, tc.want)
		}
	}

	p := r3.Vec{X: 0.1, Y: 0.4, Z: 0.5}
	if got := b.minInteriorDistance(p); math.Abs(got-0.1) > 1e-12 {
		t.Errorf("minInteriorDistance(%v) = %g, want 0.1", p, got)
	}
}

func TestBoundsRayIntersect(t *testing.T) {
	b := unitBounds()
	for _, tc := range []struct {
		name     string
		p, v     r3.Vec
		wantDist float64
		wantQ    r3.Vec
		wantHit  bool
	}{
		{
			name: "through the center",
			p:    r3.Vec{X: -1, Y: 0.5, Z: 0.5}, v: r3.Vec{X: 1},
			wantDist: 1, wantQ: r3.Vec{Y: 0.5, Z: 0.5}, wantHit: true,
		},
		{
			name: "origin inside",
			p:    r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, v: r3.Vec{X: 1},
			wantDist: 0, wantQ: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, wantHit: true,
		},
		{
			name: "diagonal entry",
			p:    r3.Vec{X: -1, Y: -0.5, Z: -0.5}, v: r3.Unit(r3.Vec{X: 1, Y: 1, Z: 1}),
			wantDist: math.Sqrt(3), wantQ: r3.Vec{X: 0, Y: 0.5, Z: 0.5}, wantHit: true,
		},
		{
			name: "pointing away",
			p:    r3.Vec{X: -1, Y: 0.5, Z: 0.5}, v: r3.Vec{X: -1},
			wantHit: false,
		},
		{
			name: "parallel outside the slab",
			p:    r3.Vec{X: -1, Y: 2, Z: 0.5}, v: r3.Vec{X: 1},
			wantHit: false,
		},
		{
			name: "parallel inside the slab",
			p:    r3.Vec{X: -1, Y: 0.5, Z: 0.5}, v: r3.Vec{X: 1, Y: 0, Z: 0},
			wantDist: 1, wantQ: r3.Vec{Y: 0.5, Z: 0.5}, wantHit: true,
		},
		{
			name: "aimed past the corner",
			p:    r3.Vec{X: -1, Y: 3, Z: 0.5}, v: r3.Unit(r3.Vec{X: 1, Y: -1}),
			wantHit: false,
		},
	} {
		dist, q, hit := b.rayIntersect(tc.p, tc.v)
		if hit != tc.wantHit {
			t.Errorf("%s: hit = %v, want %v", tc.name, hit, tc.wantHit)
			continue
		}
		if !hit {
			continue
		}
		if math.Abs(dist-tc.wantDist) > 1e-12 {
			t.Errorf("%s: dist = %g, want %g", tc.name, dist, tc.wantDist)
		}
		if !d3.EqualWithin(q, tc.wantQ, 1e-12) {
			t.Errorf("%s: q = %v, want %v", tc.name, q, tc.wantQ)
		}
	}
}

func TestBoundsIntersectsTriangle(t *testing.T) {
	b := unitBounds()
	for _, tc := range []struct {
		name    string
		a, c, e r3.Vec
		want    bool
	}{
		{
			name: "triangle inside the box",
			a:    r3.Vec{X: 0.2, Y: 0.2, Z: 0.2},
			c:    r3.Vec{X: 0.8, Y: 0.2, Z: 0.2},
			e:    r3.Vec{X: 0.2, Y: 0.8, Z: 0.2},
			want: true,
		},
		{
			name: "triangle slicing through, all vertices outside",
			a:    r3.Vec{X: -1, Y: -1, Z: 0.5},
			c:    r3.Vec{X: 3, Y: -1, Z: 0.5},
			e:    r3.Vec{X: -1, Y: 3, Z: 0.5},
			want: true,
		},
		{
			name: "separated by a face axis",
			a:    r3.Vec{X: 2, Y: 0.2, Z: 0.2},
			c:    r3.Vec{X: 3, Y: 0.2, Z: 0.2},
			e:    r3.Vec{X: 2, Y: 0.8, Z: 0.2},
			want: false,
		},
		{
			name: "separated by the triangle plane",
			a:    r3.Vec{X: 1.7, Y: 0.9, Z: 0.9},
			c:    r3.Vec{X: 0.9, Y: 1.7, Z: 0.9},
			e:    r3.Vec{X: 0.9, Y: 0.9, Z: 1.7},
			want: false,
		},
		{
			name: "separated by an edge cross axis",
			a:    r3.Vec{X: -0.5, Y: 2.7, Z: 0.5},
			c:    r3.Vec{X: 2.7, Y: -0.5, Z: 0.5},
			e:    r3.Vec{X: 2.7, Y: 2.7, Z: 0.5},
			want: false,
		},
	} {
		if got := b.intersectsTriangle(tc.a, tc.c, tc.e); got != tc.want {
			t.Errorf("%s: intersectsTriangle = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBoundsIntersectsTet(t *testing.T) {
	b := unitBounds()
	inside := b.intersectsTet(
		r3.Vec{X: 0.1, Y: 0.1, Z: 0.1},
		r3.Vec{X: 0.9, Y: 0.1, Z: 0.1},
		r3.Vec{X: 0.1, Y: 0.9, Z: 0.1},
		r3.Vec{X: 0.1, Y: 0.1, Z: 0.9},
	)
	if !inside {
		t.Error("tetrahedron inside the box not detected")
	}
	outside := b.intersectsTet(
		r3.Vec{X: 5, Y: 5, Z: 5},
		r3.Vec{X: 6, Y: 5, Z: 5},
		r3.Vec{X: 5, Y: 6, Z: 5},
		r3.Vec{X: 5, Y: 5, Z: 6},
	)
	if outside {
		t.Error("distant tetrahedron reported intersecting")
	}
}
