package render

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"github.com/soypat/isosurf"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	stlHeaderSize   = 84
	stlTriangleSize = 50
	// trianglesInBuffer is the number of triangles streamed per read.
	trianglesInBuffer = 1 << 10
)

// CreateSTL streams the triangles of a Renderer into a binary STL file.
// The triangle count in the header is written once the Renderer is drained.
func CreateSTL(path string, r Renderer) error {
	file, err := os.Create(path)
	if err != nil {
		isosurf.Logger().Warn("cannot open file for writing", "path", path, "err", err)
		return errors.Wrap(err, "create STL")
	}
	defer file.Close()
	// Header is written last.
	if _, err = file.Seek(stlHeaderSize, io.SeekStart); err != nil {
		return errors.Wrap(err, "create STL")
	}
	rd := &stlReader{r: r}
	n, err := io.CopyBuffer(file, rd, make([]byte, stlTriangleSize*trianglesInBuffer))
	if err != nil {
		return errors.Wrap(err, "create STL")
	}
	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "create STL")
	}
	header := stlHeader{Count: uint32(n / stlTriangleSize)}
	if err = binary.Write(file, binary.LittleEndian, &header); err != nil {
		return errors.Wrap(err, "write STL header")
	}
	if err = file.Close(); err != nil {
		return errors.Wrap(err, "close STL")
	}
	isosurf.Logger().Info("STL file written", "path", path, "triangles", header.Count)
	return nil
}

// WriteSTL writes model triangles to a writer in binary STL format.
// Triangles whose normal is not finite are written with a zero normal.
func WriteSTL(w io.Writer, model []r3.Triangle) error {
	if len(model) == 0 {
		return errors.New("empty triangle slice")
	}
	header := stlHeader{Count: uint32(len(model))}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return errors.Wrap(err, "write STL header")
	}
	var b [stlTriangleSize]byte
	for i := range model {
		stlFromTriangle(model[i]).put(b[:])
		if _, err := w.Write(b[:]); err != nil {
			return errors.Wrapf(err, "write STL triangle %d", i)
		}
	}
	return nil
}

// stlHeader defines the STL file header.
type stlHeader struct {
	_     [80]uint8 // Header
	Count uint32    // Number of triangles
}

// stlReader adapts a Renderer to an io.Reader of STL triangle records.
type stlReader struct {
	r   Renderer
	buf [trianglesInBuffer]r3.Triangle
}

func (sr *stlReader) Read(b []byte) (int, error) {
	ntMax := min(len(b)/stlTriangleSize, len(sr.buf))
	if ntMax == 0 {
		return 0, io.ErrShortBuffer
	}
	var (
		err error
		it  int
		nt  int
	)
	for it < ntMax && err == nil {
		nt, err = sr.r.ReadTriangles(sr.buf[:ntMax-it])
		for _, t := range sr.buf[:nt] {
			stlFromTriangle(t).put(b[it*stlTriangleSize:])
			it++
		}
	}
	return it * stlTriangleSize, err
}

// readBinarySTL reads the triangles of a binary STL stream. Triangles whose
// stored normal disagrees with their winding are kept and reported with
// errNormalMismatch.
func readBinarySTL(r io.Reader) (output []r3.Triangle, readErr error) {
	var header stlHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, errors.Wrap(err, "read STL header")
	}
	if header.Count == 0 {
		return nil, errors.New("STL header indicates 0 triangles present")
	}
	var (
		buf        [stlTriangleSize]byte
		d          stlTriangle
		mismatches int
	)
	output = make([]r3.Triangle, 0, header.Count)
	for i := 0; i < int(header.Count); i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, errors.Wrapf(err, "%d/%d STL triangles read", i, header.Count)
		}
		d.get(buf[:])
		if err := d.validate(); err != nil {
			if !errors.Is(err, errNormalMismatch) {
				return nil, errors.Wrapf(err, "STL triangle %d", i)
			}
			mismatches++
		}
		output = append(output, d.toTriangle())
	}
	if mismatches > 0 {
		return output, errors.Wrapf(errNormalMismatch, "%d triangles", mismatches)
	}
	return output, nil
}

// stlTriangle defines the triangle data within an STL file.
type stlTriangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

func stlFromTriangle(t r3.Triangle) stlTriangle {
	d := stlTriangle{
		Normal:  f32From(unitNormal(t)),
		Vertex1: f32From(t[0]),
		Vertex2: f32From(t[1]),
		Vertex3: f32From(t[2]),
	}
	if t.IsDegenerate(0) || bad3F32(d.Normal) {
		d.Normal = [3]float32{}
	}
	return d
}

func (d stlTriangle) toTriangle() r3.Triangle {
	return r3.Triangle{r3From3F32(d.Vertex1), r3From3F32(d.Vertex2), r3From3F32(d.Vertex3)}
}

func (d stlTriangle) put(b []byte) {
	_ = b[stlTriangleSize-1]
	put3F32(b, d.Normal)
	put3F32(b[12:], d.Vertex1)
	put3F32(b[24:], d.Vertex2)
	put3F32(b[36:], d.Vertex3)
	binary.LittleEndian.PutUint16(b[48:], 0) // attribute byte count
}

func (d *stlTriangle) get(b []byte) {
	_ = b[stlTriangleSize-1]
	get3F32(b, &d.Normal)
	get3F32(b[12:], &d.Vertex1)
	get3F32(b[24:], &d.Vertex2)
	get3F32(b[36:], &d.Vertex3)
}

var errNormalMismatch = errors.New("stored STL normal does not match vertex winding")

func (d stlTriangle) validate() error {
	const normTol = 5e-2
	if bad3F32(d.Normal) {
		return errors.New("inf/NaN STL triangle normal")
	}
	if bad3F32(d.Vertex1) || bad3F32(d.Vertex2) || bad3F32(d.Vertex3) {
		return errors.New("inf/NaN STL triangle vertex")
	}
	if d.Normal == [3]float32{} {
		// Zero normal: readers compute it from the winding.
		return nil
	}
	calc := f32From(unitNormal(d.toTriangle()))
	if !bad3F32(calc) && !equalWithin3F32(calc, d.Normal, normTol) {
		return errNormalMismatch
	}
	return nil
}

func put3F32(b []byte, f [3]float32) {
	_ = b[11] // early bounds check
	binary.LittleEndian.PutUint32(b, math.Float32bits(f[0]))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(f[1]))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(f[2]))
}

func get3F32(b []byte, f *[3]float32) {
	_ = b[11] // early bounds check
	f[0] = math.Float32frombits(binary.LittleEndian.Uint32(b))
	f[1] = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	f[2] = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
}

func bad3F32(f [3]float32) bool {
	return !finite32(f[0]) || !finite32(f[1]) || !finite32(f[2])
}

func equalWithin3F32(a, b [3]float32, tol float32) bool {
	return math32.Abs(a[0]-b[0]) <= tol &&
		math32.Abs(a[1]-b[1]) <= tol &&
		math32.Abs(a[2]-b[2]) <= tol
}

func f32From(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func r3From3F32(f [3]float32) r3.Vec {
	return r3.Vec{X: float64(f[0]), Y: float64(f[1]), Z: float64(f[2])}
}
