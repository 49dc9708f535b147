package mesh

import "fmt"

// Neighbour graph construction. Every element contributes 4 faces keyed by
// the sorted triple of their node indices, so matching faces hash to the same
// key regardless of winding: one owner means a boundary face, two owners link
// as neighbours across their respective face slots, and three or more owners
// is corrupt topology. Runs in O(elements) via the face-key hash.

// faceKey is the order-independent identity of a face.
type faceKey [3]int32

// faceRef records one (element, face slot) owner of a face.
type faceRef struct {
	elt  int32
	face int8
}

// eltFaces lists the node positions of each face: face i is opposite node i.
var eltFaces = [4][3]int{
	{1, 2, 3}, // BCD
	{0, 2, 3}, // ACD
	{0, 1, 3}, // ABD
	{0, 1, 2}, // ABC
}

func sortedTriple(a, b, c int32) faceKey {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return faceKey{a, b, c}
}

func (m *Mesh) initNeighbours() error {
	faces := make(map[faceKey][]faceRef, 2*m.NumElements())
	for i := range m.eltNodes {
		n := &m.eltNodes[i]
		for f, idx := range eltFaces {
			key := sortedTriple(n[idx[0]], n[idx[1]], n[idx[2]])
			faces[key] = append(faces[key], faceRef{elt: int32(i), face: int8(f)})
		}
	}

	m.neighbours = make([][4]int32, m.NumElements())
	for i := range m.neighbours {
		m.neighbours[i] = [4]int32{Outside, Outside, Outside, Outside}
	}
	for key, owners := range faces {
		switch len(owners) {
		case 1:
			// boundary face, no neighbour
		case 2:
			a, b := owners[0], owners[1]
			m.neighbours[a.elt][a.face] = b.elt
			m.neighbours[b.elt][b.face] = a.elt
		default:
			return fmt.Errorf("%w: face {%d %d %d} shared by %d elements",
				ErrNonManifold, key[0], key[1], key[2], len(owners))
		}
	}

	m.boundaryFaces = make([]bool, 4*m.NumElements())
	m.boundaryElt = make([]bool, m.NumElements())
	for i, ns := range m.neighbours {
		for f, n := range ns {
			if n == Outside {
				m.boundaryFaces[4*i+f] = true
				m.boundaryElt[i] = true
			}
		}
	}
	return nil
}
