/*

Integer lattice indices

*/

package isosurf

import "gonum.org/v1/gonum/spatial/r3"

// V3i is the integer index of a lattice point or voxel.
type V3i [3]int

// Add adds two vectors. Return v = a + b.
func (a V3i) Add(b V3i) V3i {
	return V3i{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// ToV3 converts V3i (integer) to r3.Vec (float).
func (a V3i) ToV3() r3.Vec {
	return r3.Vec{X: float64(a[0]), Y: float64(a[1]), Z: float64(a[2])}
}
