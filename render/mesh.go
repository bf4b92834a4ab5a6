package render

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/isosurf/internal/d3"
	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is a flat triangle soup. Vertices holds x,y,z per vertex, three
// vertices per triangle in emission order. Normals runs parallel to
// Vertices and repeats each triangle's face normal for its three vertices.
// Both lengths are a multiple of 9.
type Mesh struct {
	Vertices []float32
	Normals  []float32
}

// NewMesh flattens model into a vertex buffer and estimates flat normals.
func NewMesh(model []r3.Triangle) Mesh {
	vertices := make([]float32, 0, 9*len(model))
	for _, t := range model {
		for _, v := range t {
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
		}
	}
	return Mesh{
		Vertices: vertices,
		Normals:  ComputeNormals(vertices),
	}
}

// ComputeNormals returns the per-vertex flat normals of a vertex buffer.
// Each group of three vertices v0,v1,v2 gets the unit normal of
// (v1-v0)×(v2-v0), repeated once per vertex. Zero-area triangles get NaN
// normals. Trailing values that do not form a whole triangle are ignored.
func ComputeNormals(vertices []float32) []float32 {
	ntri := len(vertices) / 9
	normals := make([]float32, 0, 9*ntri)
	for i := 0; i < 9*ntri; i += 9 {
		v := vertices[i : i+9]
		e1x, e1y, e1z := v[3]-v[0], v[4]-v[1], v[5]-v[2]
		e2x, e2y, e2z := v[6]-v[0], v[7]-v[1], v[8]-v[2]
		nx := e1y*e2z - e1z*e2y
		ny := e1z*e2x - e1x*e2z
		nz := e1x*e2y - e1y*e2x
		norm := math32.Sqrt(nx*nx + ny*ny + nz*nz)
		nx, ny, nz = nx/norm, ny/norm, nz/norm
		normals = append(normals, nx, ny, nz, nx, ny, nz, nx, ny, nz)
	}
	return normals
}

// VertexCount returns the number of vertices.
func (m Mesh) VertexCount() int { return len(m.Vertices) / 3 }

// TriangleCount returns the number of triangles.
func (m Mesh) TriangleCount() int { return len(m.Vertices) / 9 }

// IsEmpty returns true if the mesh has no geometry.
func (m Mesh) IsEmpty() bool { return len(m.Vertices) == 0 }

// Validate checks the buffer shape: equal lengths, both a multiple of 9.
func (m Mesh) Validate() error {
	if len(m.Vertices) != len(m.Normals) {
		return errors.Errorf("vertex buffer length %d does not match normal buffer length %d", len(m.Vertices), len(m.Normals))
	}
	if len(m.Vertices)%9 != 0 {
		return errors.Errorf("buffer length %d is not a multiple of 9", len(m.Vertices))
	}
	return nil
}

// Bounds returns the bounding box of the vertices. An empty mesh returns
// the zero box.
func (m Mesh) Bounds() r3.Box {
	if m.IsEmpty() {
		return r3.Box{}
	}
	b := d3.EmptyBox()
	for i := 0; i+3 <= len(m.Vertices); i += 3 {
		v := m.Vertices[i : i+3]
		b = b.Include(r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])})
	}
	return r3.Box(b)
}

// Degenerate returns the indices of triangles whose normal is not finite.
// These are the zero-area triangles produced when interpolated vertices
// coincide.
func (m Mesh) Degenerate() []int {
	var bad []int
	for i := 0; i+9 <= len(m.Normals); i += 9 {
		n := m.Normals[i : i+3]
		if !finite32(n[0]) || !finite32(n[1]) || !finite32(n[2]) {
			bad = append(bad, i/9)
		}
	}
	return bad
}

// Triangles converts the vertex buffer back to triangles.
func (m Mesh) Triangles() []r3.Triangle {
	model := make([]r3.Triangle, m.TriangleCount())
	for i := range model {
		v := m.Vertices[9*i : 9*i+9]
		for j := 0; j < 3; j++ {
			model[i][j] = r3.Vec{X: float64(v[3*j]), Y: float64(v[3*j+1]), Z: float64(v[3*j+2])}
		}
	}
	return model
}

// MS3Triangles returns the mesh as single precision triangles.
func (m Mesh) MS3Triangles() []ms3.Triangle {
	model := make([]ms3.Triangle, m.TriangleCount())
	for i := range model {
		v := m.Vertices[9*i : 9*i+9]
		for j := 0; j < 3; j++ {
			model[i][j] = ms3.Vec{X: v[3*j], Y: v[3*j+1], Z: v[3*j+2]}
		}
	}
	return model
}

// Interleaved returns the vertex attribute stream expected by a GPU vertex
// buffer: x,y,z,nx,ny,nz for every vertex. It panics if the mesh fails Validate.
func (m Mesh) Interleaved() []float32 {
	if err := m.Validate(); err != nil {
		panic(err)
	}
	out := make([]float32, 0, 2*len(m.Vertices))
	for i, t := range m.MS3Triangles() {
		for j, v := range t {
			n := m.Normals[9*i+3*j : 9*i+3*j+3]
			out = append(out, v.X, v.Y, v.Z, n[0], n[1], n[2])
		}
	}
	return out
}

func finite32(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}

// ToModel3D converts model to a model3d mesh for geometric queries such as
// volume or manifold checks. Coincident vertices are not merged; use
// Repair on the result for that.
func ToModel3D(model []r3.Triangle) *model3d.Mesh {
	m := model3d.NewMesh()
	for _, t := range model {
		m.Add(&model3d.Triangle{m3c(t[0]), m3c(t[1]), m3c(t[2])})
	}
	return m
}

func m3c(v r3.Vec) model3d.Coord3D { return model3d.Coord3D{X: v.X, Y: v.Y, Z: v.Z} }
