package isosurf

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Scalar field utility functions.

// Field is a scalar field over 3D space. Evaluate must be deterministic:
// the same point always yields the same value. Continuity across voxel
// boundaries is expected but not checked.
type Field interface {
	Evaluate(p r3.Vec) float64
}

// FieldFunc adapts an ordinary function of three coordinates to a Field.
type FieldFunc func(x, y, z float64) float64

// Evaluate calls f(p.X, p.Y, p.Z).
func (f FieldFunc) Evaluate(p r3.Vec) float64 { return f(p.X, p.Y, p.Z) }

// Sphere returns the field x²+y²+z²-r². It is negative inside the sphere
// of radius r centered at the origin.
func Sphere(r float64) Field {
	r2 := r * r
	return FieldFunc(func(x, y, z float64) float64 {
		return x*x + y*y + z*z - r2
	})
}

// Saddle returns the hyperboloid field x²-y²-z²-z.
func Saddle() Field {
	return FieldFunc(func(x, y, z float64) float64 {
		return x*x - y*y - z*z - z
	})
}

// Wave returns the height field y - sin(x)·cos(z).
func Wave() Field {
	return FieldFunc(func(x, y, z float64) float64 {
		return y - math.Sin(x)*math.Cos(z)
	})
}

type union struct{ a, b Field }

// Union returns the pointwise minimum of two fields. With a zero isovalue
// this is the union of the regions where each field is negative.
func Union(a, b Field) Field {
	if a == nil || b == nil {
		panic("nil Field argument")
	}
	return union{a: a, b: b}
}

func (u union) Evaluate(p r3.Vec) float64 {
	return math.Min(u.a.Evaluate(p), u.b.Evaluate(p))
}

type intersection struct{ a, b Field }

// Intersection returns the pointwise maximum of two fields.
func Intersection(a, b Field) Field {
	if a == nil || b == nil {
		panic("nil Field argument")
	}
	return intersection{a: a, b: b}
}

func (s intersection) Evaluate(p r3.Vec) float64 {
	return math.Max(s.a.Evaluate(p), s.b.Evaluate(p))
}

type translation struct {
	f Field
	v r3.Vec
}

// Translate moves a field by v so that f'(p) = f(p - v).
func Translate(f Field, v r3.Vec) Field {
	if f == nil {
		panic("nil Field argument")
	}
	return translation{f: f, v: v}
}

func (t translation) Evaluate(p r3.Vec) float64 {
	return t.f.Evaluate(r3.Sub(p, t.v))
}

type smoothUnion struct {
	a, b Field
	k    float64
}

// SmoothUnion blends two fields with a polynomial smooth minimum. k sets the
// width of the fillet joining the two surfaces; k <= 0 panics.
func SmoothUnion(a, b Field, k float64) Field {
	if a == nil || b == nil {
		panic("nil Field argument")
	}
	if !(k > 0) {
		panic("smooth union requires k > 0")
	}
	return smoothUnion{a: a, b: b, k: k}
}

func (s smoothUnion) Evaluate(p r3.Vec) float64 {
	a, b := s.a.Evaluate(p), s.b.Evaluate(p)
	h := math.Max(0, math.Min(1, 0.5+0.5*(b-a)/s.k))
	return b + (a-b)*h - s.k*h*(1-h)
}

// Gradient estimates the gradient of f at p with central differences of
// half width eps.
func Gradient(f Field, p r3.Vec, eps float64) r3.Vec {
	return r3.Scale(0.5/eps, r3.Vec{
		X: f.Evaluate(r3.Add(p, r3.Vec{X: eps})) - f.Evaluate(r3.Sub(p, r3.Vec{X: eps})),
		Y: f.Evaluate(r3.Add(p, r3.Vec{Y: eps})) - f.Evaluate(r3.Sub(p, r3.Vec{Y: eps})),
		Z: f.Evaluate(r3.Add(p, r3.Vec{Z: eps})) - f.Evaluate(r3.Sub(p, r3.Vec{Z: eps})),
	})
}
