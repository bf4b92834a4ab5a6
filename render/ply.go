package render

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/soypat/isosurf"
)

// CreatePLY writes the mesh to an ASCII PLY file at path. If the file
// cannot be created the failure is logged at warn level and returned, and
// no file is produced.
func CreatePLY(path string, m Mesh) error {
	fp, err := os.Create(path)
	if err != nil {
		isosurf.Logger().Warn("cannot open file for writing", "path", path, "err", err)
		return errors.Wrap(err, "create PLY")
	}
	defer fp.Close()
	if err = WritePLY(fp, m); err != nil {
		return err
	}
	if err = fp.Close(); err != nil {
		return errors.Wrap(err, "close PLY")
	}
	isosurf.Logger().Info("PLY file written", "path", path, "vertices", m.VertexCount(), "faces", m.TriangleCount())
	return nil
}

// WritePLY writes the mesh as ASCII PLY 1.0. The header declares one vertex
// element with position and normal properties and one face element. Each
// face i lists vertices 3i, 3i+1 and 3i+2. Values are written in their
// shortest single precision form so they parse back to the same bits.
func WritePLY(w io.Writer, m Mesh) error {
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, "write PLY")
	}
	nv := m.VertexCount()
	nf := nv / 3
	bw := bufio.NewWriter(w)
	bw.WriteString("ply\nformat ascii 1.0\n")
	bw.WriteString("element vertex " + strconv.Itoa(nv) + "\n")
	bw.WriteString("property float x\nproperty float y\nproperty float z\n")
	bw.WriteString("property float nx\nproperty float ny\nproperty float nz\n")
	bw.WriteString("element face " + strconv.Itoa(nf) + "\n")
	bw.WriteString("property list uchar int vertex_indices\n")
	bw.WriteString("end_header\n")
	var line []byte
	for i := 0; i < nv; i++ {
		line = line[:0]
		line = appendFloats(line, m.Vertices[3*i:3*i+3])
		line = append(line, ' ')
		line = appendFloats(line, m.Normals[3*i:3*i+3])
		line = append(line, '\n')
		bw.Write(line)
	}
	for i := 0; i < nf; i++ {
		line = append(line[:0], "3 "...)
		line = strconv.AppendInt(line, int64(3*i), 10)
		line = append(line, ' ')
		line = strconv.AppendInt(line, int64(3*i+1), 10)
		line = append(line, ' ')
		line = strconv.AppendInt(line, int64(3*i+2), 10)
		line = append(line, '\n')
		bw.Write(line)
	}
	return errors.Wrap(bw.Flush(), "write PLY")
}

func appendFloats(b []byte, f []float32) []byte {
	for i, v := range f {
		if i > 0 {
			b = append(b, ' ')
		}
		b = strconv.AppendFloat(b, float64(v), 'g', -1, 32)
	}
	return b
}

// ReadPLY reads an ASCII PLY triangle mesh. Faces are expanded into a
// triangle soup in file order. If the vertices carry no nx, ny, nz
// properties normals are estimated from the faces.
func ReadPLY(r io.Reader) (Mesh, error) {
	sc := bufio.NewScanner(r)
	lineno := 0
	next := func() ([]string, error) {
		for sc.Scan() {
			lineno++
			fields := strings.Fields(sc.Text())
			if len(fields) == 0 || fields[0] == "comment" {
				continue
			}
			return fields, nil
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, io.ErrUnexpectedEOF
	}
	h, err := readPLYHeader(next)
	if err != nil {
		return Mesh{}, errors.Wrapf(err, "PLY header line %d", lineno)
	}

	// The declared count is untrusted, so it only hints the capacity.
	hint := 3 * min(h.vertices, maxPLYPrealloc)
	positions := make([]float32, 0, hint)
	normals := make([]float32, 0, hint)
	for i := 0; i < h.vertices; i++ {
		fields, err := next()
		if err != nil {
			return Mesh{}, errors.Wrapf(err, "PLY vertex %d", i)
		}
		if len(fields) != len(h.props) {
			return Mesh{}, errors.Errorf("PLY line %d: got %d vertex values, want %d", lineno, len(fields), len(h.props))
		}
		var rec [6]float32
		for j, s := range fields {
			f, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return Mesh{}, errors.Wrapf(err, "PLY line %d", lineno)
			}
			if slot := h.props[j]; slot >= 0 {
				rec[slot] = float32(f)
			}
		}
		positions = append(positions, rec[:3]...)
		normals = append(normals, rec[3:]...)
	}

	var m Mesh
	for i := 0; i < h.faces; i++ {
		fields, err := next()
		if err != nil {
			return Mesh{}, errors.Wrapf(err, "PLY face %d", i)
		}
		if len(fields) != 4 || fields[0] != "3" {
			return Mesh{}, errors.Errorf("PLY line %d: only triangular faces supported", lineno)
		}
		for _, s := range fields[1:] {
			idx, err := strconv.Atoi(s)
			if err != nil {
				return Mesh{}, errors.Wrapf(err, "PLY line %d", lineno)
			}
			if idx < 0 || idx >= h.vertices {
				return Mesh{}, errors.Errorf("PLY line %d: vertex index %d out of range", lineno, idx)
			}
			m.Vertices = append(m.Vertices, positions[3*idx:3*idx+3]...)
			m.Normals = append(m.Normals, normals[3*idx:3*idx+3]...)
		}
	}
	if !h.hasNormals {
		m.Normals = ComputeNormals(m.Vertices)
	}
	return m, nil
}

const maxPLYPrealloc = 1 << 16

type plyHeader struct {
	vertices   int
	faces      int
	props      []int // record slot of each vertex property, -1 if ignored
	hasNormals bool
}

var plySlots = map[string]int{"x": 0, "y": 1, "z": 2, "nx": 3, "ny": 4, "nz": 5}

const (
	plyPositionBits = 0b000111
	plyNormalBits   = 0b111000
)

func readPLYHeader(next func() ([]string, error)) (h plyHeader, err error) {
	fields, err := next()
	if err != nil {
		return h, err
	}
	if fields[0] != "ply" {
		return h, errors.New("missing ply magic")
	}
	fields, err = next()
	if err != nil {
		return h, err
	}
	if len(fields) != 3 || fields[0] != "format" || fields[1] != "ascii" {
		return h, errors.Errorf("unsupported format %q", strings.Join(fields, " "))
	}
	var element string
	var seen uint8 // bit i set once slot i is declared
	for {
		fields, err = next()
		if err != nil {
			return h, err
		}
		switch fields[0] {
		case "end_header":
			if seen&plyPositionBits != plyPositionBits {
				return h, errors.New("vertex element lacks x, y, z properties")
			}
			h.hasNormals = seen&plyNormalBits == plyNormalBits
			return h, nil
		case "element":
			if len(fields) != 3 {
				return h, errors.New("malformed element")
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 {
				return h, errors.Errorf("bad %s count %q", fields[1], fields[2])
			}
			element = fields[1]
			switch element {
			case "vertex":
				h.vertices = n
			case "face":
				h.faces = n
			default:
				if n != 0 {
					return h, errors.Errorf("unsupported element %q", element)
				}
			}
		case "property":
			if element != "vertex" {
				continue
			}
			if len(fields) != 3 {
				return h, errors.New("list properties not supported on vertices")
			}
			slot, ok := plySlots[fields[2]]
			if !ok {
				slot = -1
			} else if seen&(1<<slot) != 0 {
				return h, errors.Errorf("duplicate vertex property %q", fields[2])
			} else {
				seen |= 1 << slot
			}
			h.props = append(h.props, slot)
		}
	}
}
