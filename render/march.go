package render

import (
	"math"

	"github.com/soypat/isosurf"
	"gonum.org/v1/gonum/spatial/r3"
)

// interpEpsilon is the absolute tolerance, in field units, under which two
// field values are considered equal during edge interpolation.
const interpEpsilon = 1e-5

// MarchingCubes sweeps the scan lattice of cfg, visiting voxels with x
// slowest and z fastest, and returns every emitted triangle in order.
// An empty scan returns no triangles.
func MarchingCubes(f isosurf.Field, cfg isosurf.ScanConfig) []r3.Triangle {
	model, err := RenderAll(NewGridRenderer(f, cfg))
	if err != nil {
		// GridRenderer only fails on a buffer shorter than one triangle.
		panic(err)
	}
	return model
}

// voxel is an axis-aligned cube of the lattice identified by its minimum corner.
type voxel struct {
	origin r3.Vec
	size   float64
}

// corners returns the voxel corners in table order.
func (v voxel) corners() (c [8]r3.Vec) {
	for i, off := range mcCornerOffset {
		c[i] = r3.Add(v.origin, r3.Scale(v.size, off))
	}
	return c
}

// CubeIndex returns the corner sign configuration of a voxel: bit i is set
// when values[i] is below iso.
func CubeIndex(values [8]float64, iso float64) uint8 {
	var index uint8
	for i, v := range values {
		if v < iso {
			index |= 1 << i
		}
	}
	return index
}

// Interpolate returns the point on the segment p1-p2 where the linearly
// interpolated field equals iso. Endpoints within interpEpsilon of iso are
// returned exactly, p1 taking priority, and a segment whose values are
// within interpEpsilon of each other returns p1.
func Interpolate(iso float64, p1, p2 r3.Vec, v1, v2 float64) r3.Vec {
	if math.Abs(iso-v1) < interpEpsilon {
		return p1
	}
	if math.Abs(iso-v2) < interpEpsilon {
		return p2
	}
	if math.Abs(v1-v2) < interpEpsilon {
		return p1
	}
	t := (iso - v1) / (v2 - v1)
	return r3.Add(p1, r3.Scale(t, r3.Sub(p2, p1)))
}

// mcToTriangles writes the triangles of a single voxel to dst and returns
// how many were written. dst must have room for marchingCubesMaxTriangles.
func mcToTriangles(dst []r3.Triangle, p [8]r3.Vec, v [8]float64, iso float64) int {
	edges := mcTriangleTable[CubeIndex(v, iso)]
	if len(edges) == 0 {
		return 0
	}
	n := 0
	for i := 0; i < len(edges); i += 3 {
		var tri r3.Triangle
		for j := 0; j < 3; j++ {
			c := mcEdgeIndex[edges[i+j]]
			tri[j] = Interpolate(iso, p[c[0]], p[c[1]], v[c[0]], v[c[1]])
		}
		dst[n] = tri
		n++
	}
	return n
}
