package render

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

var _ kdtree.Interface = weldPoints{}

// IndexedMesh is a triangle mesh with shared vertices.
type IndexedMesh struct {
	Positions []r3.Vec
	Faces     [][3]int
}

// Weld merges the triangle soup vertices that lie within tol of each other
// and returns the indexed mesh. Vertices are numbered in order of first
// appearance. Faces keep the winding of the soup.
func Weld(model []r3.Triangle, tol float64) (IndexedMesh, error) {
	if !(tol > 0) {
		return IndexedMesh{}, errors.Errorf("weld tolerance must be positive, got %g", tol)
	}
	pts := make(weldPoints, 0, 3*len(model))
	for i, t := range model {
		for j, v := range t {
			pts = append(pts, weldPoint{v: v, idx: 3*i + j})
		}
	}
	// kdtree.New reorders its argument.
	tree := kdtree.New(append(weldPoints(nil), pts...), false)
	unique := make([]int, len(pts))
	for i := range unique {
		unique[i] = -1
	}
	var m IndexedMesh
	for _, p := range pts {
		if unique[p.idx] >= 0 {
			continue
		}
		id := len(m.Positions)
		m.Positions = append(m.Positions, p.v)
		keep := kdtree.NewDistKeeper(tol * tol)
		tree.NearestSet(keep, p)
		unique[p.idx] = id
		for _, c := range keep.Heap {
			if c.Comparable == nil {
				continue
			}
			q := c.Comparable.(weldPoint)
			if unique[q.idx] < 0 {
				unique[q.idx] = id
			}
		}
	}
	m.Faces = make([][3]int, len(model))
	for i := range m.Faces {
		m.Faces[i] = [3]int{unique[3*i], unique[3*i+1], unique[3*i+2]}
	}
	return m, nil
}

// BoundaryEdges returns the number of undirected edges used by exactly one
// face. A closed surface has none. Collapsed faces are ignored.
func (m IndexedMesh) BoundaryEdges() int {
	use := make(map[[2]int]int)
	for _, f := range m.Faces {
		if f[0] == f[1] || f[1] == f[2] || f[2] == f[0] {
			continue
		}
		for j := 0; j < 3; j++ {
			a, b := f[j], f[(j+1)%3]
			if a > b {
				a, b = b, a
			}
			use[[2]int{a, b}]++
		}
	}
	n := 0
	for _, c := range use {
		if c == 1 {
			n++
		}
	}
	return n
}

type weldPoint struct {
	v   r3.Vec
	idx int
}

func (p weldPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(weldPoint)
	return coord(p.v, d) - coord(q.v, d)
}

func (p weldPoint) Dims() int { return 3 }

func (p weldPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(weldPoint)
	return r3.Norm2(r3.Sub(p.v, q.v))
}

func coord(v r3.Vec, d kdtree.Dim) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

type weldPoints []weldPoint

func (k weldPoints) Index(i int) kdtree.Comparable         { return k[i] }
func (k weldPoints) Len() int                              { return len(k) }
func (k weldPoints) Slice(start, end int) kdtree.Interface { return k[start:end] }

// Pivot partitions the list along dimension d.
func (k weldPoints) Pivot(d kdtree.Dim) int {
	p := weldPlane{dim: d, points: k}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// weldPlane implements kdtree.SortSlicer on one dimension.
type weldPlane struct {
	dim    kdtree.Dim
	points weldPoints
}

func (p weldPlane) Less(i, j int) bool {
	return coord(p.points[i].v, p.dim) < coord(p.points[j].v, p.dim)
}
func (p weldPlane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p weldPlane) Len() int      { return len(p.points) }
func (p weldPlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
