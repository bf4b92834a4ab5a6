package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is an axis aligned bounding box.
type Box r3.Box

// EmptyBox returns a box that any Include call replaces.
func EmptyBox() Box {
	inf := Elem(math.Inf(1))
	return Box{Min: inf, Max: r3.Scale(-1, inf)}
}

// Include enlarges a 3d box to include a point.
func (a Box) Include(v r3.Vec) Box {
	return Box{
		Min: MinElem(a.Min, v),
		Max: MaxElem(a.Max, v),
	}
}
