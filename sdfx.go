package isosurf

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// sdf3Field wraps an sdfx solid so it can be swept as a scalar field.
type sdf3Field struct {
	s sdf.SDF3
}

// FromSDF3 returns a Field that evaluates the signed distance of an sdfx
// solid. The distance is negative inside the solid so a zero isovalue
// extracts its surface.
func FromSDF3(s sdf.SDF3) Field {
	if s == nil {
		panic("nil SDF3 argument")
	}
	return sdf3Field{s: s}
}

func (f sdf3Field) Evaluate(p r3.Vec) float64 {
	return f.s.Evaluate(v3.Vec{X: p.X, Y: p.Y, Z: p.Z})
}

// ScanSDF3 returns a cubic scan with a zero isovalue enclosing the bounding
// box of s. The range is padded by one step on each side so the surface
// never touches the lattice boundary and the extracted mesh is closed.
func ScanSDF3(s sdf.SDF3, step float64) ScanConfig {
	bb := s.BoundingBox()
	lo := math.Min(bb.Min.X, math.Min(bb.Min.Y, bb.Min.Z))
	hi := math.Max(bb.Max.X, math.Max(bb.Max.Y, bb.Max.Z))
	return ScanConfig{
		GridMin:  lo - step,
		GridMax:  hi + step,
		StepSize: step,
	}
}
