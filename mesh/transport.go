package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Step is the result of a Howfar query.
type Step struct {
	// Distance travelled along the direction to the reported crossing, or
	// the query's maxDist when no boundary lies within it.
	Distance float64
	// Region is the destination region across the crossed face: the
	// neighbour element, Outside when leaving the mesh, or the current
	// region when no crossing lies within maxDist.
	Region int
	// Medium is the medium offset of the destination region, Outside for
	// vacuum beyond the mesh.
	Medium int
	// Normal is the unit normal of the crossed face, oriented to oppose
	// the travel direction. It is the zero vector when no face was
	// crossed, including the distance-zero lost-particle relocation where
	// no crossed face exists.
	Normal r3.Vec
}

// Howfar returns the distance from x along the unit direction u to the next
// region boundary, up to maxDist. region is the particle's current region,
// Outside for a particle outside the mesh. The region takes priority over the
// position: when the two disagree (numerical drift during transport) Howfar
// relocates the particle and reports a zero-length step instead of failing.
//
// The only error conditions are ErrRegionIndex for an out-of-range region and
// *FatalInconsistencyError when relocation rediscovers the same region; the
// latter must terminate the simulation.
func (m *Mesh) Howfar(region int, x, u r3.Vec, maxDist float64) (Step, error) {
	if region == Outside {
		return m.howfarExterior(x, u, maxDist), nil
	}
	if err := m.checkRegion(region); err != nil {
		return Step{}, err
	}
	return m.howfarInterior(region, x, u, maxDist)
}

// Hownear returns a safe lower bound on the distance from x to any region
// boundary: for a particle inside region, the minimum of the 4 face plane
// distances (a cheap local bound); for Outside, a surface octree descent that
// may under- but never over-estimate the true distance to the mesh.
func (m *Mesh) Hownear(region int, x r3.Vec) (float64, error) {
	if region == Outside {
		return m.surfaceTree.hownearExterior(x, m), nil
	}
	if err := m.checkRegion(region); err != nil {
		return 0, err
	}
	a, b, _, _ := m.ElementNodes(region)
	fn := &m.faceNormals[region]
	// Face 0 is BCD, so its plane passes through b; the rest through a.
	dist := distanceToPlane(x, fn[0], b)
	dist = math.Min(dist, distanceToPlane(x, fn[1], a))
	dist = math.Min(dist, distanceToPlane(x, fn[2], a))
	dist = math.Min(dist, distanceToPlane(x, fn[3], a))
	return dist, nil
}

// howfarInterior computes the exit of a particle tracked inside region. The
// position may have drifted slightly outside the element; faces are tested
// with the single-sided interior intersection, which tolerates an origin in
// the thick plane, and a particle intersecting no face at all is handed to
// lost-particle recovery.
func (m *Mesh) howfarInterior(region int, x, u r3.Vec, maxDist float64) (Step, error) {
	a, b, c, d := m.ElementNodes(region)
	faceNodes := [4][3]r3.Vec{{b, c, d}, {a, c, d}, {a, b, d}, {a, b, c}}

	lost := true
	for i := 0; i < 4; i++ {
		n := m.faceNormals[region][i]
		if r3.Dot(n, r3.Sub(x, faceNodes[i][0])) < 0 {
			continue
		}
		dist, hit := interiorRayTriangle(x, u, n, faceNodes[i][0], faceNodes[i][1], faceNodes[i][2])
		if !hit {
			continue
		}
		// The particle will cross a face as if inside the element, so
		// it is not lost even when the crossing is out of reach.
		lost = false
		if dist > maxDist {
			continue
		}
		if dist <= m.halfBoundaryTol {
			// Within the thick plane the distance to the next
			// region is exactly zero, preventing repeated
			// near-zero steps at the boundary.
			dist = 0
		}
		next := int(m.neighbours[region][i])
		return Step{
			Distance: dist,
			Region:   next,
			Medium:   m.mediumOf(next),
			Normal:   opposing(n, u),
		}, nil
	}
	if !lost {
		// A crossing exists but lies beyond maxDist.
		return Step{Distance: maxDist, Region: region, Medium: m.mediumOf(region)}, nil
	}
	next, err := m.relocateLost(region, x, u)
	if err != nil {
		return Step{}, err
	}
	// The normal is left undefined: no face was crossed.
	return Step{Distance: 0, Region: next, Medium: m.mediumOf(next)}, nil
}

// relocateLost finds where a lost particle actually is: first the up-to-4
// neighbours, the cheapest and most common recovery, then a full volume tree
// point location. Rediscovering the starting region means the mesh and
// position disagree in a way that cannot be resolved and transport would loop
// forever, so that case is fatal.
func (m *Mesh) relocateLost(region int, x, u r3.Vec) (int, error) {
	for _, nb := range m.neighbours[region] {
		if nb == Outside {
			continue
		}
		if m.InsideElement(int(nb), x) {
			return int(nb), nil
		}
	}
	next := m.PointLocate(x)
	if next == region {
		return 0, &FatalInconsistencyError{Region: region, Position: x, Direction: u}
	}
	return next, nil
}

// howfarExterior casts against the mesh surface for a particle outside the
// mesh. The reported normal belongs to the entered boundary face, flipped to
// oppose the travel direction.
func (m *Mesh) howfarExterior(x, u r3.Vec, maxDist float64) Step {
	dist, region := m.surfaceTree.howfarExterior(x, u, maxDist, m)
	if region == Outside || dist > maxDist {
		return Step{Distance: maxDist, Region: Outside, Medium: Outside}
	}
	_, face, ok := m.closestBoundaryFace(region, x, u)
	var normal r3.Vec
	if ok {
		normal = opposing(m.faceNormals[region][face], u)
	}
	return Step{
		Distance: dist,
		Region:   region,
		Medium:   m.mediumOf(region),
		Normal:   normal,
	}
}

// closestBoundaryFace finds the nearest boundary face of region crossed by
// the ray from x along u. Faces only qualify when x is on the outside of
// their plane looking in (not merely clipping the edge of the face) and the
// ray runs into the element.
func (m *Mesh) closestBoundaryFace(region int, x, u r3.Vec) (minDist float64, closestFace int, ok bool) {
	minDist = math.MaxFloat64
	closestFace = -1

	a, b, c, d := m.ElementNodes(region)
	check := func(face int, fa, fb, fc, ref r3.Vec) {
		if !m.boundaryFaces[4*region+face] {
			return
		}
		if !pointOutsideOfPlane(x, fa, fb, fc, ref) {
			return
		}
		// x might sit in the thick plane; require genuine entry.
		if r3.Dot(m.faceNormals[region][face], u) <= 0 {
			return
		}
		if dist, hit := exteriorRayTriangle(x, u, fa, fb, fc); hit && dist < minDist {
			minDist = dist
			closestFace = face
		}
	}
	check(0, b, c, d, a)
	check(1, a, c, d, b)
	check(2, a, b, d, c)
	check(3, a, b, c, d)
	return minDist, closestFace, closestFace != -1
}

func (m *Mesh) mediumOf(region int) int {
	if region == Outside {
		return Outside
	}
	return int(m.mediumIndices[region])
}

// opposing flips n so it opposes the travel direction u.
func opposing(n, u r3.Vec) r3.Vec {
	if r3.Dot(n, u) > 0 {
		return r3.Scale(-1, n)
	}
	return n
}
