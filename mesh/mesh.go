// Package mesh implements an unstructured tetrahedral-mesh transport geometry:
// point location, directed boundary-crossing distance (howfar) and a
// conservative nearest-boundary estimate (hownear) over an immutable mesh of
// tetrahedral regions, each assigned a named medium.
//
// A Mesh is built once from already-parsed records, validated eagerly, and is
// immutable afterwards; all query methods are safe for concurrent use.
package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Outside is the region sentinel for "not in any mesh element".
const Outside = -1

// defaultHalfBoundaryTolerance is the half-width of the thick plane around
// every face: crossings within it snap to distance zero so transport does not
// retry near-zero steps at a boundary.
const defaultHalfBoundaryTolerance = 1e-5

// Octree leaf occupancy limits, from Furuta et al. section 2.1.1.
const (
	volumeLeafMax  = 200
	surfaceLeafMax = 100
)

// Node is a mesh vertex record: an external integer tag and a coordinate.
// Inside the Mesh, nodes are referenced by 0-based index only, never by tag.
type Node struct {
	Tag int
	Pos r3.Vec
}

// Tetrahedron is a mesh element record. Nodes are the tags of its 4 distinct
// vertices and Medium the tag of its assigned medium.
type Tetrahedron struct {
	Tag    int
	Nodes  [4]int
	Medium int
}

// Medium is a named material record.
type Medium struct {
	Tag  int
	Name string
}

// Config holds construction tunables. The zero value selects defaults.
type Config struct {
	// HalfBoundaryTolerance overrides the thick-plane half width used to
	// snap near-zero howfar distances. Zero selects the default 1e-5.
	HalfBoundaryTolerance float64
}

// Mesh is the immutable tetrahedral geometry. Region ids are element indices
// in [0, NumElements) and stable for the lifetime of the mesh.
type Mesh struct {
	nodes   []r3.Vec
	eltTags []int
	// eltNodes holds 4 node indices per element; face i is opposite node i.
	eltNodes [][4]int32

	mediumIndices []int32
	mediumNames   []string

	// neighbours[i][f] is the region across face f of element i, or
	// Outside for a boundary face. Symmetric away from the boundary.
	neighbours [][4]int32
	// boundaryFaces[4*i+f] mirrors neighbours[i][f] == Outside.
	boundaryFaces []bool
	// boundaryElt[i] is true when any face of element i is a boundary face.
	boundaryElt []bool

	// faceNormals[i][f] is the unit normal of face f oriented toward the
	// opposite vertex (into the element).
	faceNormals [][4]r3.Vec

	volumeTree  *octree
	surfaceTree *octree

	halfBoundaryTol float64
}

// New builds a validated Mesh from parsed records with default configuration.
// Construction fails atomically: on error no partially built mesh escapes.
func New(elements []Tetrahedron, nodes []Node, media []Medium) (*Mesh, error) {
	return NewWithConfig(elements, nodes, media, Config{})
}

// NewWithConfig is New with explicit tunables.
func NewWithConfig(elements []Tetrahedron, nodes []Node, media []Medium, cfg Config) (*Mesh, error) {
	m := &Mesh{halfBoundaryTol: cfg.HalfBoundaryTolerance}
	if m.halfBoundaryTol == 0 {
		m.halfBoundaryTol = defaultHalfBoundaryTolerance
	}
	if err := m.initElements(elements, nodes, media); err != nil {
		return nil, err
	}
	if err := m.initNeighbours(); err != nil {
		return nil, err
	}
	m.initNormals()
	m.initOctrees()
	return m, nil
}

func (m *Mesh) initElements(elements []Tetrahedron, nodes []Node, media []Medium) error {
	if int64(len(elements)) > math.MaxInt32 {
		return fmt.Errorf("%w: %d elements exceed maximum %d", ErrCapacityExceeded, len(elements), math.MaxInt32)
	}
	if int64(len(nodes)) > math.MaxInt32 {
		return fmt.Errorf("%w: %d nodes exceed maximum %d", ErrCapacityExceeded, len(nodes), math.MaxInt32)
	}

	m.nodes = make([]r3.Vec, len(nodes))
	nodeMap := make(map[int]int32, len(nodes))
	for i, n := range nodes {
		if _, ok := nodeMap[n.Tag]; ok {
			return fmt.Errorf("%w: node tag %d", ErrDuplicateTag, n.Tag)
		}
		nodeMap[n.Tag] = int32(i)
		m.nodes[i] = n.Pos
	}

	mediumOffsets := make(map[int]int32, len(media))
	m.mediumNames = make([]string, len(media))
	for i, md := range media {
		if _, ok := mediumOffsets[md.Tag]; ok {
			return fmt.Errorf("%w: medium tag %d", ErrDuplicateTag, md.Tag)
		}
		mediumOffsets[md.Tag] = int32(i)
		m.mediumNames[i] = md.Name
	}

	m.eltTags = make([]int, len(elements))
	m.eltNodes = make([][4]int32, len(elements))
	m.mediumIndices = make([]int32, len(elements))
	for i, e := range elements {
		m.eltTags[i] = e.Tag
		for j, tag := range e.Nodes {
			idx, ok := nodeMap[tag]
			if !ok {
				return fmt.Errorf("%w: element %d references unknown node tag %d", ErrUnresolvedReference, e.Tag, tag)
			}
			m.eltNodes[i][j] = idx
		}
		for j := 1; j < 4; j++ {
			for k := 0; k < j; k++ {
				if m.eltNodes[i][j] == m.eltNodes[i][k] {
					return fmt.Errorf("%w: element %d references node tag %d twice", ErrDuplicateTag, e.Tag, e.Nodes[j])
				}
			}
		}
		off, ok := mediumOffsets[e.Medium]
		if !ok {
			return fmt.Errorf("%w: element %d references unknown medium tag %d", ErrUnresolvedReference, e.Tag, e.Medium)
		}
		m.mediumIndices[i] = off
	}
	return nil
}

func (m *Mesh) initNormals() {
	// normal of the plane through a, b, c oriented toward d.
	norm := func(a, b, c, d r3.Vec) r3.Vec {
		n := r3.Unit(r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
		if r3.Dot(n, r3.Sub(d, a)) < 0 {
			n = r3.Scale(-1, n)
		}
		return n
	}
	m.faceNormals = make([][4]r3.Vec, m.NumElements())
	for i := range m.faceNormals {
		a, b, c, d := m.ElementNodes(i)
		m.faceNormals[i] = [4]r3.Vec{
			norm(b, c, d, a),
			norm(a, c, d, b),
			norm(a, b, d, c),
			norm(a, b, c, d),
		}
	}
}

func (m *Mesh) initOctrees() {
	elts := make([]int32, 0, m.NumElements())
	var boundaryElts []int32
	for i := 0; i < m.NumElements(); i++ {
		elts = append(elts, int32(i))
		if m.boundaryElt[i] {
			boundaryElts = append(boundaryElts, int32(i))
		}
	}
	m.volumeTree = newOctree(elts, volumeLeafMax, m)
	m.surfaceTree = newOctree(boundaryElts, surfaceLeafMax, m)
}

// NumElements returns the number of tetrahedral regions.
func (m *Mesh) NumElements() int { return len(m.eltNodes) }

// NumNodes returns the number of mesh vertices.
func (m *Mesh) NumNodes() int { return len(m.nodes) }

// NumMedia returns the number of distinct media.
func (m *Mesh) NumMedia() int { return len(m.mediumNames) }

// ElementNodes returns the 4 vertex coordinates of a region.
func (m *Mesh) ElementNodes(region int) (a, b, c, d r3.Vec) {
	n := &m.eltNodes[region]
	return m.nodes[n[0]], m.nodes[n[1]], m.nodes[n[2]], m.nodes[n[3]]
}

// ElementTag returns the external tag of a region.
func (m *Mesh) ElementTag(region int) int { return m.eltTags[region] }

// Medium returns the 0-based medium offset assigned to a region, or Outside
// for the Outside region.
func (m *Mesh) Medium(region int) (int, error) {
	if region == Outside {
		return Outside, nil
	}
	if err := m.checkRegion(region); err != nil {
		return 0, err
	}
	return int(m.mediumIndices[region]), nil
}

// MediumName returns the name of a medium offset as returned by Medium.
func (m *Mesh) MediumName(medium int) string { return m.mediumNames[medium] }

// IsBoundary reports whether any face of the region lies on the mesh surface.
func (m *Mesh) IsBoundary(region int) bool { return m.boundaryElt[region] }

// InsideElement is the exact point-in-tetrahedron test for a single region:
// p is inside when it is on the same side as the opposite vertex for all 4
// face planes.
func (m *Mesh) InsideElement(region int, p r3.Vec) bool {
	a, b, c, d := m.ElementNodes(region)
	if pointOutsideOfPlane(p, a, b, c, d) {
		return false
	}
	if pointOutsideOfPlane(p, a, c, d, b) {
		return false
	}
	if pointOutsideOfPlane(p, a, b, d, c) {
		return false
	}
	if pointOutsideOfPlane(p, b, c, d, a) {
		return false
	}
	return true
}

// PointLocate returns the region containing p, or Outside if no element
// contains it.
func (m *Mesh) PointLocate(p r3.Vec) int {
	return m.volumeTree.isWhere(p, m)
}

// Inside reports whether p is inside any mesh element.
func (m *Mesh) Inside(p r3.Vec) bool {
	return m.PointLocate(p) != Outside
}

func (m *Mesh) checkRegion(region int) error {
	if region < 0 || region >= m.NumElements() {
		return fmt.Errorf("%w: region %d, mesh has %d regions", ErrRegionIndex, region, m.NumElements())
	}
	return nil
}
