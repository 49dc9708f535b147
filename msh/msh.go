// Package msh parses Gmsh mesh-format version 4.1 files into the node,
// tetrahedron and medium records consumed by package mesh. Only the sections
// the transport geometry needs are read: 3D entities ($Entities), physical
// group names ($PhysicalNames), nodes ($Nodes) and 4-node tetrahedral
// elements ($Elements); everything else is skipped.
package msh

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Xuan-Zheng05/EGSnrc/mesh"
)

// Errors reported for structurally valid files describing unusable meshes.
var (
	ErrNoVolumes  = errors.New("no volumes in $Entities section")
	ErrNoNodes    = errors.New("no nodes in $Nodes section")
	ErrNoGroups   = errors.New("no physical groups in $PhysicalNames section")
	ErrNoElements = errors.New("no tetrahedral elements in $Elements section")
	// ErrUnknownGroup reports a volume referencing a physical group absent
	// from $PhysicalNames.
	ErrUnknownGroup = errors.New("unknown physical group")
	// ErrUnknownVolume reports an element referencing a volume absent
	// from $Entities.
	ErrUnknownVolume = errors.New("unknown volume")
)

// Parse reads a msh v4.1 stream and constructs the mesh geometry. Parsing
// stops at a second $MeshFormat header, so concatenated mesh files take only
// their first mesh into account.
func Parse(r io.Reader) (*mesh.Mesh, error) {
	elements, nodes, media, err := ParseRecords(r)
	if err != nil {
		return nil, err
	}
	return mesh.New(elements, nodes, media)
}

// ParseFile is Parse on the named file.
func ParseFile(path string) (*mesh.Mesh, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return Parse(fp)
}

// ParseRecords reads a msh v4.1 stream into construction records without
// building the geometry, resolving every element's volume to its physical
// group: the returned tetrahedra carry group tags as their medium tags and
// the returned media are the 3D physical groups.
func ParseRecords(r io.Reader) ([]mesh.Tetrahedron, []mesh.Node, []mesh.Medium, error) {
	lr := &lineReader{sc: bufio.NewScanner(r)}
	lr.sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		volumes  []volume
		groups   []mesh.Medium
		nodes    []mesh.Node
		elements []rawTet
		sawFmt   bool
		err      error
	)
scan:
	for {
		line, ok := lr.next()
		if !ok {
			break
		}
		switch line {
		case "$MeshFormat":
			if sawFmt {
				// start of a concatenated second mesh
				break scan
			}
			sawFmt = true
			err = parseFormat(lr)
		case "$Entities":
			volumes, err = parseEntities(lr)
		case "$PhysicalNames":
			groups, err = parseGroups(lr)
		case "$Nodes":
			nodes, err = parseNodes(lr)
		case "$Elements":
			elements, err = parseElements(lr)
		}
		if err != nil {
			return nil, nil, nil, err
		}
	}
	if err := lr.sc.Err(); err != nil {
		return nil, nil, nil, err
	}
	if !sawFmt {
		return nil, nil, nil, errors.New("msh: missing $MeshFormat section")
	}

	if len(volumes) == 0 {
		return nil, nil, nil, ErrNoVolumes
	}
	if len(nodes) == 0 {
		return nil, nil, nil, ErrNoNodes
	}
	if len(groups) == 0 {
		return nil, nil, nil, ErrNoGroups
	}
	if len(elements) == 0 {
		return nil, nil, nil, ErrNoElements
	}

	groupTags := make(map[int]struct{}, len(groups))
	for _, g := range groups {
		groupTags[g.Tag] = struct{}{}
	}
	volumeGroups := make(map[int]int, len(volumes))
	for _, v := range volumes {
		if _, ok := groupTags[v.group]; !ok {
			return nil, nil, nil, fmt.Errorf("%w: volume %d references physical group %d", ErrUnknownGroup, v.tag, v.group)
		}
		volumeGroups[v.tag] = v.group
	}

	tets := make([]mesh.Tetrahedron, len(elements))
	for i, e := range elements {
		group, ok := volumeGroups[e.volume]
		if !ok {
			return nil, nil, nil, fmt.Errorf("%w: tetrahedron %d references volume %d", ErrUnknownVolume, e.tag, e.volume)
		}
		tets[i] = mesh.Tetrahedron{Tag: e.tag, Nodes: e.nodes, Medium: group}
	}
	return tets, nodes, groups, nil
}

// volume is a 3D entity and its physical group.
type volume struct {
	tag   int
	group int
}

type rawTet struct {
	tag    int
	volume int
	nodes  [4]int
}

type lineReader struct {
	sc   *bufio.Scanner
	line int
}

func (lr *lineReader) next() (string, bool) {
	if !lr.sc.Scan() {
		return "", false
	}
	lr.line++
	return strings.TrimRight(lr.sc.Text(), " \t\r"), true
}

func (lr *lineReader) errf(format string, args ...interface{}) error {
	return fmt.Errorf("msh: line %d: %s", lr.line, fmt.Sprintf(format, args...))
}

// fields reads the next line and splits it into whitespace-separated fields,
// requiring at least min of them.
func (lr *lineReader) fields(min int, section string) ([]string, error) {
	line, ok := lr.next()
	if !ok {
		return nil, fmt.Errorf("msh: unexpected end of file in %s section", section)
	}
	f := strings.Fields(line)
	if len(f) < min {
		return nil, lr.errf("expected at least %d fields in %s section, got %q", min, section, line)
	}
	return f, nil
}

func atoi(lr *lineReader, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, lr.errf("bad integer %q", s)
	}
	return v, nil
}

func atof(lr *lineReader, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, lr.errf("bad float %q", s)
	}
	return v, nil
}

func parseFormat(lr *lineReader) error {
	f, err := lr.fields(3, "$MeshFormat")
	if err != nil {
		return err
	}
	if f[0] != "4.1" {
		return lr.errf("unsupported msh version %q, only 4.1 is supported", f[0])
	}
	if f[1] != "0" {
		return lr.errf("binary msh files are not supported")
	}
	return skipToEnd(lr, "$EndMeshFormat")
}

func skipToEnd(lr *lineReader, end string) error {
	for {
		line, ok := lr.next()
		if !ok {
			return fmt.Errorf("msh: unexpected end of file, expected %s", end)
		}
		if line == end {
			return nil
		}
	}
}

func parseEntities(lr *lineReader) ([]volume, error) {
	f, err := lr.fields(4, "$Entities")
	if err != nil {
		return nil, err
	}
	var counts [4]int
	for i := range counts {
		if counts[i], err = atoi(lr, f[i]); err != nil {
			return nil, err
		}
	}
	// points, curves and surfaces are one line each and irrelevant here
	for i := 0; i < counts[0]+counts[1]+counts[2]; i++ {
		if _, ok := lr.next(); !ok {
			return nil, errors.New("msh: unexpected end of file in $Entities section")
		}
	}
	volumes := make([]volume, 0, counts[3])
	for i := 0; i < counts[3]; i++ {
		// tag, 6 bounding box floats, numPhysicalTags, physical tags
		f, err := lr.fields(8, "$Entities")
		if err != nil {
			return nil, err
		}
		tag, err := atoi(lr, f[0])
		if err != nil {
			return nil, err
		}
		for _, s := range f[1:7] {
			if _, err := atof(lr, s); err != nil {
				return nil, err
			}
		}
		numPhys, err := atoi(lr, f[7])
		if err != nil {
			return nil, err
		}
		if numPhys != 1 || len(f) < 9 {
			return nil, lr.errf("volume %d must have exactly one physical group, got %d", tag, numPhys)
		}
		group, err := atoi(lr, f[8])
		if err != nil {
			return nil, err
		}
		volumes = append(volumes, volume{tag: tag, group: group})
	}
	return volumes, skipToEnd(lr, "$EndEntities")
}

func parseGroups(lr *lineReader) ([]mesh.Medium, error) {
	f, err := lr.fields(1, "$PhysicalNames")
	if err != nil {
		return nil, err
	}
	n, err := atoi(lr, f[0])
	if err != nil {
		return nil, err
	}
	var groups []mesh.Medium
	for i := 0; i < n; i++ {
		line, ok := lr.next()
		if !ok {
			return nil, errors.New("msh: unexpected end of file in $PhysicalNames section")
		}
		f := strings.Fields(line)
		if len(f) < 3 {
			return nil, lr.errf("expected `dim tag \"name\"`, got %q", line)
		}
		dim, err := atoi(lr, f[0])
		if err != nil {
			return nil, err
		}
		tag, err := atoi(lr, f[1])
		if err != nil {
			return nil, err
		}
		open := strings.Index(line, `"`)
		close := strings.LastIndex(line, `"`)
		if open == -1 || close == open {
			return nil, lr.errf("physical group %d name must be quoted, got %q", tag, line)
		}
		// only 3D groups are media
		if dim != 3 {
			continue
		}
		groups = append(groups, mesh.Medium{Tag: tag, Name: line[open+1 : close]})
	}
	return groups, skipToEnd(lr, "$EndPhysicalNames")
}

func parseNodes(lr *lineReader) ([]mesh.Node, error) {
	f, err := lr.fields(4, "$Nodes")
	if err != nil {
		return nil, err
	}
	numBlocks, err := atoi(lr, f[0])
	if err != nil {
		return nil, err
	}
	numNodes, err := atoi(lr, f[1])
	if err != nil {
		return nil, err
	}
	nodes := make([]mesh.Node, 0, numNodes)
	for b := 0; b < numBlocks; b++ {
		// entityDim, entityTag, parametric, numNodesInBlock
		f, err := lr.fields(4, "$Nodes")
		if err != nil {
			return nil, err
		}
		inBlock, err := atoi(lr, f[3])
		if err != nil {
			return nil, err
		}
		tags := make([]int, inBlock)
		for i := range tags {
			f, err := lr.fields(1, "$Nodes")
			if err != nil {
				return nil, err
			}
			if tags[i], err = atoi(lr, f[0]); err != nil {
				return nil, err
			}
		}
		for i := 0; i < inBlock; i++ {
			f, err := lr.fields(3, "$Nodes")
			if err != nil {
				return nil, err
			}
			var xyz [3]float64
			for j := range xyz {
				if xyz[j], err = atof(lr, f[j]); err != nil {
					return nil, err
				}
			}
			n := mesh.Node{Tag: tags[i]}
			n.Pos.X, n.Pos.Y, n.Pos.Z = xyz[0], xyz[1], xyz[2]
			nodes = append(nodes, n)
		}
	}
	return nodes, skipToEnd(lr, "$EndNodes")
}

// tetElementType is the Gmsh element type code of a 4-node tetrahedron.
const tetElementType = 4

func parseElements(lr *lineReader) ([]rawTet, error) {
	f, err := lr.fields(4, "$Elements")
	if err != nil {
		return nil, err
	}
	numBlocks, err := atoi(lr, f[0])
	if err != nil {
		return nil, err
	}
	var tets []rawTet
	for b := 0; b < numBlocks; b++ {
		// entityDim, entityTag, elementType, numElementsInBlock
		f, err := lr.fields(4, "$Elements")
		if err != nil {
			return nil, err
		}
		dim, err := atoi(lr, f[0])
		if err != nil {
			return nil, err
		}
		entityTag, err := atoi(lr, f[1])
		if err != nil {
			return nil, err
		}
		eltType, err := atoi(lr, f[2])
		if err != nil {
			return nil, err
		}
		inBlock, err := atoi(lr, f[3])
		if err != nil {
			return nil, err
		}
		if dim != 3 || eltType != tetElementType {
			// lower-dimensional or non-tetrahedral elements
			for i := 0; i < inBlock; i++ {
				if _, ok := lr.next(); !ok {
					return nil, errors.New("msh: unexpected end of file in $Elements section")
				}
			}
			continue
		}
		for i := 0; i < inBlock; i++ {
			f, err := lr.fields(5, "$Elements")
			if err != nil {
				return nil, err
			}
			t := rawTet{volume: entityTag}
			if t.tag, err = atoi(lr, f[0]); err != nil {
				return nil, err
			}
			for j := 0; j < 4; j++ {
				if t.nodes[j], err = atoi(lr, f[1+j]); err != nil {
					return nil, err
				}
			}
			tets = append(tets, t)
		}
	}
	return tets, skipToEnd(lr, "$EndElements")
}
