package isosurf

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ScanConfig describes the cubic lattice swept by the marching cubes
// traversal. The same [GridMin, GridMax) range is used on all three axes.
type ScanConfig struct {
	GridMin  float64
	GridMax  float64
	StepSize float64
	Isovalue float64
}

// DefaultScan returns the [-5, 5) range sampled every 0.5 units with a zero isovalue.
func DefaultScan() ScanConfig {
	return ScanConfig{
		GridMin:  -5,
		GridMax:  5,
		StepSize: 0.5,
	}
}

// Empty reports whether the scan visits no voxels. This is the case for a
// non-positive or NaN step size, for an empty range and for a step too small
// to move GridMin. An empty scan is not an error, it simply produces an
// empty mesh.
func (c ScanConfig) Empty() bool {
	return !(c.StepSize > 0) || !(c.GridMax > c.GridMin) ||
		math.IsInf(c.StepSize, 0) || c.GridMin+c.StepSize == c.GridMin
}

// Cells returns the number of voxel origins visited along one axis. Origins
// are accumulated as x += StepSize starting at GridMin while x < GridMax,
// so the last voxel may extend past GridMax.
func (c ScanConfig) Cells() int {
	if c.Empty() {
		return 0
	}
	n := 0
	for x := c.GridMin; x < c.GridMax; x += c.StepSize {
		n++
	}
	return n
}

// Bounds returns the box covered by all voxels of the scan, including the
// overhang of the last voxel on each axis.
func (c ScanConfig) Bounds() r3.Box {
	if c.Empty() {
		return r3.Box{}
	}
	last := c.GridMin
	for x := c.GridMin; x < c.GridMax; x += c.StepSize {
		last = x
	}
	hi := last + c.StepSize
	return r3.Box{
		Min: r3.Vec{X: c.GridMin, Y: c.GridMin, Z: c.GridMin},
		Max: r3.Vec{X: hi, Y: hi, Z: hi},
	}
}
