package mesh

import (
	"math"
	"sort"

	"github.com/Xuan-Zheng05/EGSnrc/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// octree is the recursive spatial index over tetrahedral regions. Two
// independent instances are built per mesh: a volume tree over all regions
// for point location and a surface tree over boundary regions for exterior
// distance and ray queries. Nodes either own 8 children or a member list; a
// region whose bounding volume straddles an octant boundary is duplicated
// into every octant it intersects, so member lists may overlap.
type octree struct {
	root octnode
}

type octnode struct {
	box bounds
	// elts are the leaf members. Internal nodes keep elts nil and hold
	// exactly 8 children.
	elts     []int32
	children []octnode
}

func (n *octnode) isLeaf() bool { return n.children == nil }

// newOctree builds a tree over the given regions: the union bounding box of
// all members, expanded by a small delta to avoid edge cases at the mesh
// hull, recursively subdivided until leaves hold fewer than leafMax members
// or the box reaches the floating point subdivision floor.
func newOctree(elts []int32, leafMax int, m *Mesh) *octree {
	if len(elts) == 0 {
		return &octree{}
	}
	a, b, c, d := m.ElementNodes(int(elts[0]))
	box := d3.Box{Min: a, Max: a}
	for _, e := range elts {
		a, b, c, d = m.ElementNodes(int(e))
		box = box.Include(a).Include(b).Include(c).Include(d)
	}
	return &octree{root: buildOctnode(elts, bounds(box).expand(boxDelta), leafMax, m)}
}

func buildOctnode(elts []int32, box bounds, leafMax int, m *Mesh) octnode {
	if box.indivisible() || len(elts) < leafMax {
		return octnode{box: box, elts: elts}
	}
	boxes := box.octants()
	children := make([]octnode, 8)
	for i := range boxes {
		var members []int32
		for _, e := range elts {
			a, b, c, d := m.ElementNodes(int(e))
			if boxes[i].intersectsTet(a, b, c, d) {
				members = append(members, e)
			}
		}
		children[i] = buildOctnode(members, boxes[i], leafMax, m)
	}
	return octnode{box: box, children: children}
}

// isWhere descends to the leaf octant containing p and linearly scans its
// members with the exact point-in-tetrahedron test.
func (t *octree) isWhere(p r3.Vec, m *Mesh) int {
	if t.root.box == (bounds{}) || !t.root.box.contains(p) {
		return Outside
	}
	n := &t.root
	for !n.isLeaf() {
		n = &n.children[n.box.octantOf(p)]
	}
	for _, e := range n.elts {
		if m.InsideElement(int(e), p) {
			return int(e)
		}
	}
	return Outside
}

// hownearExterior returns a lower bound on the distance from p to the mesh
// surface: the distance to the root box for points outside it, otherwise the
// minimum of the containing leaf's wall distance and the exact distance to
// each of its members. The bound may under- but never over-estimate.
func (t *octree) hownearExterior(p r3.Vec, m *Mesh) float64 {
	if t.root.box == (bounds{}) {
		return math.MaxFloat64
	}
	if !t.root.box.contains(p) {
		return r3.Norm(r3.Sub(t.root.box.closestPoint(p), p))
	}
	n := &t.root
	for !n.isLeaf() {
		n = &n.children[n.box.octantOf(p)]
	}
	best := n.box.minInteriorDistance(p)
	// Squared distances avoid square roots in the scan and shed any
	// near-zero negatives from floating point error.
	best2 := best * best
	for _, e := range n.elts {
		a, b, c, d := m.ElementNodes(int(e))
		best2 = math.Min(best2, distance2(p, closestPointOnTetrahedron(p, a, b, c, d)))
	}
	return math.Sqrt(best2)
}

// howfarExterior casts the ray p+t*v against the boundary faces indexed by
// the tree and returns the nearest crossing distance and its region, or
// Outside when the ray misses the surface entirely or enters the root box
// beyond maxDist.
func (t *octree) howfarExterior(p, v r3.Vec, maxDist float64, m *Mesh) (float64, int) {
	if t.root.box == (bounds{}) {
		return 0, Outside
	}
	entry, _, hit := t.root.box.rayIntersect(p, v)
	if !hit || entry > maxDist {
		return 0, Outside
	}
	return t.root.howfarExterior(p, v, m)
}

func (n *octnode) howfarExterior(p, v r3.Vec, m *Mesh) (float64, int) {
	if n.isLeaf() {
		minDist := math.MaxFloat64
		minElt := Outside
		for _, e := range n.elts {
			// Boundary faces only count when p is on the outside
			// of the face plane looking in, so grazing an interior
			// face of the hull is not a crossing.
			if dist, _, ok := m.closestBoundaryFace(int(e), p, v); ok && dist < minDist {
				minDist = dist
				minElt = int(e)
			}
		}
		return minDist, minElt
	}
	_, q, hit := n.box.rayIntersect(p, v)
	if !hit {
		return 0, Outside
	}
	// Search the octant the ray enters first; only if it yields nothing,
	// walk the other intersected octants by increasing entry distance.
	// Octants are not pruned against a hit found in an earlier octant;
	// the entry ordering keeps the first hit the nearest reachable one.
	oct := n.box.octantOf(q)
	if dist, elt := n.children[oct].howfarExterior(p, v, m); elt != Outside {
		return dist, elt
	}
	for _, o := range n.otherIntersectedOctants(p, v, oct) {
		if dist, elt := n.children[o].howfarExterior(p, v, m); elt != Outside {
			return dist, elt
		}
	}
	return 0, Outside
}

// otherIntersectedOctants returns the child octants hit by the ray, excluding
// exclude, ordered by increasing entry distance.
func (n *octnode) otherIntersectedOctants(p, v r3.Vec, exclude int) []int {
	type entry struct {
		dist float64
		oct  int
	}
	var hits []entry
	for i := range n.children {
		if i == exclude {
			continue
		}
		if dist, _, hit := n.children[i].box.rayIntersect(p, v); hit {
			hits = append(hits, entry{dist, i})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	octants := make([]int, len(hits))
	for i, h := range hits {
		octants[i] = h.oct
	}
	return octants
}
