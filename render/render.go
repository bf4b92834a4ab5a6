// Package render extracts triangulated isosurfaces from scalar fields with
// the marching cubes algorithm and serializes the resulting meshes.
package render

import "gonum.org/v1/gonum/spatial/r3"

// Renderer streams triangles of an extracted surface. ReadTriangles fills dst
// and returns the number of triangles written. It returns io.EOF once every
// triangle has been read. Vertex order defines the front face.
type Renderer interface {
	ReadTriangles(dst []r3.Triangle) (int, error)
}

// unitNormal returns the unit normal (V1-V0)×(V2-V0). A zero-area triangle
// yields a NaN normal.
func unitNormal(t r3.Triangle) r3.Vec {
	return r3.Unit(t.Normal())
}
