package render

import (
	"io"

	"github.com/soypat/isosurf"
	"gonum.org/v1/gonum/spatial/r3"
)

var _ Renderer = (*GridRenderer)(nil)

// GridRenderer sweeps a uniform lattice one voxel at a time and streams the
// triangles of each voxel in scan order: x varies slowest and z fastest.
type GridRenderer struct {
	f   isosurf.Field
	cfg isosurf.ScanConfig
	// cursor is the origin of the next voxel to process and idx its lattice index.
	cursor r3.Vec
	idx    isosurf.V3i
	done   bool
	cache  dc3
	// unwritten holds triangles of a voxel that did not fit in the caller's buffer.
	unwritten triangle3Buffer
	stats     Stats
}

// Stats summarizes the work done by a GridRenderer.
type Stats struct {
	Voxels      int // voxels visited
	Evaluations int // field evaluations (cache misses)
	Triangles   int // triangles emitted
}

// NewGridRenderer returns a Renderer that extracts the isosurface of f over
// the lattice described by cfg. An empty scan renders no triangles.
func NewGridRenderer(f isosurf.Field, cfg isosurf.ScanConfig) *GridRenderer {
	if f == nil {
		panic("nil Field argument")
	}
	g := &GridRenderer{
		f:      f,
		cfg:    cfg,
		cursor: r3.Vec{X: cfg.GridMin, Y: cfg.GridMin, Z: cfg.GridMin},
		done:   cfg.Empty(),
		cache:  newDc3(f),
	}
	if g.done {
		isosurf.Logger().Debug("empty scan", "min", cfg.GridMin, "max", cfg.GridMax, "step", cfg.StepSize)
	}
	return g
}

// ReadTriangles writes triangles extracted from the field into dst and
// returns the number written. It returns io.EOF along with the last
// triangles once the scan is complete.
func (g *GridRenderer) ReadTriangles(dst []r3.Triangle) (n int, err error) {
	if len(dst) == 0 {
		return 0, io.ErrShortBuffer
	}
	if g.unwritten.Len() > 0 {
		n += g.unwritten.Read(dst)
	}
	for n < len(dst) && !g.done {
		if len(dst)-n < marchingCubesMaxTriangles {
			// Not enough room for a worst case voxel, stash what does not fit.
			var tmp [marchingCubesMaxTriangles]r3.Triangle
			nt := g.march(tmp[:])
			k := copy(dst[n:], tmp[:nt])
			g.unwritten.Write(tmp[k:nt])
			n += k
			continue
		}
		n += g.march(dst[n:])
	}
	if g.done && g.unwritten.Len() == 0 {
		return n, io.EOF
	}
	return n, nil
}

// Stats returns the counters accumulated so far.
func (g *GridRenderer) Stats() Stats {
	s := g.stats
	s.Evaluations = g.cache.misses
	return s
}

// march processes the voxel under the cursor, advances the cursor and
// returns the number of triangles written to dst.
func (g *GridRenderer) march(dst []r3.Triangle) int {
	vox := voxel{origin: g.cursor, size: g.cfg.StepSize}
	p := vox.corners()
	var v [8]float64
	for i := range p {
		v[i] = g.cache.Evaluate(g.idx.Add(cornerIndex[i]), p[i])
	}
	nt := mcToTriangles(dst, p, v, g.cfg.Isovalue)
	g.stats.Voxels++
	g.stats.Triangles += nt
	g.advance()
	return nt
}

// advance moves the cursor to the next voxel origin exactly as three nested
// loops accumulating StepSize would.
func (g *GridRenderer) advance() {
	lo, hi, step := g.cfg.GridMin, g.cfg.GridMax, g.cfg.StepSize
	g.cursor.Z += step
	g.idx[2]++
	if g.cursor.Z < hi {
		return
	}
	g.cursor.Z = lo
	g.idx[2] = 0
	g.cursor.Y += step
	g.idx[1]++
	if g.cursor.Y < hi {
		return
	}
	g.cursor.Y = lo
	g.idx[1] = 0
	g.cursor.X += step
	g.idx[0]++
	g.cache.Advance(g.idx[0])
	if g.cursor.X < hi {
		return
	}
	g.done = true
	isosurf.Logger().Debug("scan complete",
		"voxels", g.stats.Voxels,
		"evaluations", g.cache.misses,
		"triangles", g.stats.Triangles,
	)
}

// cornerIndex holds the lattice offsets of the voxel corners in table order.
var cornerIndex = [8]isosurf.V3i{
	{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1},
	{0, 1, 0}, {1, 1, 0}, {1, 1, 1}, {0, 1, 1},
}

// dc3 caches field values on the two lattice planes touched by the current
// row of voxels. Neighboring voxels compute shared corner positions with the
// same floating point operations so a cached value is the value the field
// would return.
type dc3 struct {
	f      isosurf.Field
	plane  int                     // x index of cur
	cur    map[isosurf.V3i]float64 // values on plane x
	next   map[isosurf.V3i]float64 // values on plane x+1
	misses int
}

func newDc3(f isosurf.Field) dc3 {
	return dc3{
		f:    f,
		cur:  make(map[isosurf.V3i]float64),
		next: make(map[isosurf.V3i]float64),
	}
}

// Evaluate returns the field value at p whose lattice index is vi.
func (dc *dc3) Evaluate(vi isosurf.V3i, p r3.Vec) float64 {
	m := dc.cur
	if vi[0] != dc.plane {
		m = dc.next
	}
	if d, ok := m[vi]; ok {
		return d
	}
	d := dc.f.Evaluate(p)
	m[vi] = d
	dc.misses++
	return d
}

// Advance drops the plane left behind when the scan moves to x index plane.
func (dc *dc3) Advance(plane int) {
	dc.plane = plane
	dc.cur = dc.next
	dc.next = make(map[isosurf.V3i]float64, len(dc.cur))
}
