package render_test

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soypat/isosurf"
	"github.com/soypat/isosurf/render"
	"gonum.org/v1/gonum/spatial/r3"
)

// sphereScan avoids lattice points lying on the r=2.3 sphere.
var sphereScan = isosurf.ScanConfig{GridMin: -3, GridMax: 3, StepSize: 0.5}

func BenchmarkWave(b *testing.B) {
	cfg := isosurf.DefaultScan()
	cfg.StepSize = 0.1
	for i := 0; i < b.N; i++ {
		render.MarchingCubes(isosurf.Wave(), cfg)
	}
}

func TestDeterministic(t *testing.T) {
	for _, sc := range isosurf.Scenarios() {
		a := render.MarchingCubes(sc.Field, sc.Scan)
		b := render.MarchingCubes(sc.Field, sc.Scan)
		if len(a) != len(b) {
			t.Fatalf("%s: got %d then %d triangles", sc.Name, len(a), len(b))
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("%s: triangle %d differs between runs", sc.Name, i)
			}
		}
	}
}

func TestEmptyField(t *testing.T) {
	constant := isosurf.FieldFunc(func(x, y, z float64) float64 { return 100 })
	model := render.MarchingCubes(constant, isosurf.DefaultScan())
	if len(model) != 0 {
		t.Errorf("constant field produced %d triangles", len(model))
	}
	mesh := render.NewMesh(model)
	if !mesh.IsEmpty() || mesh.TriangleCount() != 0 || len(mesh.Normals) != 0 {
		t.Errorf("expected empty mesh, got %d vertices", mesh.VertexCount())
	}
}

func TestEmptyScan(t *testing.T) {
	for _, cfg := range []isosurf.ScanConfig{
		{GridMin: -5, GridMax: 5, StepSize: 0},
		{GridMin: -5, GridMax: 5, StepSize: -0.5},
		{GridMin: -5, GridMax: 5, StepSize: math.NaN()},
		{GridMin: 5, GridMax: -5, StepSize: 0.5},
		{GridMin: 1, GridMax: 1, StepSize: 0.5},
	} {
		r := render.NewGridRenderer(isosurf.Sphere(1), cfg)
		model, err := render.RenderAll(r)
		if err != nil {
			t.Fatal(err)
		}
		if len(model) != 0 || r.Stats().Voxels != 0 {
			t.Errorf("%+v: got %d triangles from %d voxels", cfg, len(model), r.Stats().Voxels)
		}
	}
}

func TestMeshShape(t *testing.T) {
	for _, sc := range isosurf.Scenarios() {
		model := render.MarchingCubes(sc.Field, sc.Scan)
		mesh := render.NewMesh(model)
		if err := mesh.Validate(); err != nil {
			t.Fatalf("%s: %v", sc.Name, err)
		}
		if mesh.TriangleCount() != len(model) {
			t.Errorf("%s: mesh has %d triangles, model %d", sc.Name, mesh.TriangleCount(), len(model))
		}
		if mesh.VertexCount() != 3*len(model) {
			t.Errorf("%s: mesh has %d vertices, want %d", sc.Name, mesh.VertexCount(), 3*len(model))
		}
		bad := make(map[int]bool)
		for _, i := range mesh.Degenerate() {
			bad[i] = true
		}
		for i := 0; i < mesh.TriangleCount(); i++ {
			n := mesh.Normals[9*i : 9*i+9]
			for j := 3; j < 9; j++ {
				if n[j] != n[j%3] && !bad[i] {
					t.Fatalf("%s: triangle %d normals not repeated per vertex", sc.Name, i)
				}
			}
			if bad[i] {
				continue
			}
			l := math.Sqrt(float64(n[0]*n[0] + n[1]*n[1] + n[2]*n[2]))
			if math.Abs(l-1) > 1e-5 {
				t.Fatalf("%s: triangle %d normal length %g", sc.Name, i, l)
			}
		}
		b := mesh.Bounds()
		scan := sc.Scan.Bounds()
		const tol = 1e-6
		if b.Min.X < scan.Min.X-tol || b.Max.X > scan.Max.X+tol {
			t.Errorf("%s: mesh bounds %v exceed scan bounds %v", sc.Name, b, scan)
		}
	}
}

func TestSphereClosed(t *testing.T) {
	model := render.MarchingCubes(isosurf.Sphere(2.3), sphereScan)
	if len(model) == 0 {
		t.Fatal("no triangles")
	}
	im, err := render.Weld(model, 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	if n := im.BoundaryEdges(); n != 0 {
		t.Errorf("sphere mesh has %d boundary edges", n)
	}
	m := render.ToModel3D(model).Repair(1e-9)
	if m.NeedsRepair() {
		t.Error("sphere mesh is not manifold")
	}
	want := 4. / 3. * math.Pi * 2.3 * 2.3 * 2.3
	if got := m.Volume(); math.Abs(got-want)/want > 0.05 {
		t.Errorf("sphere volume %g, want about %g", got, want)
	}
}

func TestSphereNormalsOutward(t *testing.T) {
	f := isosurf.Sphere(2.3)
	model := render.MarchingCubes(f, sphereScan)
	for i, tri := range model {
		n := r3.Unit(tri.Normal())
		if r3.Dot(n, tri.Centroid()) <= 0 {
			t.Fatalf("triangle %d normal points inward: %v", i, tri)
		}
		g := r3.Unit(isosurf.Gradient(f, tri.Centroid(), 1e-4))
		if r3.Dot(n, g) < 0.5 {
			t.Errorf("triangle %d normal %v far from field gradient %v", i, n, g)
		}
	}
}

func TestRefinementAddsTriangles(t *testing.T) {
	prev := 0
	for _, step := range []float64{1, 0.5, 0.25} {
		cfg := sphereScan
		cfg.StepSize = step
		n := len(render.MarchingCubes(isosurf.Sphere(2.3), cfg))
		if n <= prev {
			t.Errorf("step %g: %d triangles, not more than %d", step, n, prev)
		}
		prev = n
	}
}

func TestSaddleScenario(t *testing.T) {
	sc, err := isosurf.LookupScenario(2)
	if err != nil {
		t.Fatal(err)
	}
	model := render.MarchingCubes(sc.Field, sc.Scan)
	if len(model) == 0 {
		t.Fatal("saddle produced no triangles")
	}
	im, err := render.Weld(model, 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	// The hyperboloid leaves the scan volume, so the mesh is open there.
	if im.BoundaryEdges() == 0 {
		t.Error("expected boundary edges where the surface leaves the scan")
	}
	for i, tri := range model {
		for _, v := range tri {
			if !sc.Scan.Bounds().Contains(v) {
				t.Fatalf("triangle %d vertex %v outside scan", i, v)
			}
		}
	}
}

func TestWeld(t *testing.T) {
	model := []r3.Triangle{
		{{X: 0}, {X: 1}, {Y: 1}},
		{{X: 1 + 1e-12}, {X: 1, Y: 1}, {Y: 1}},
	}
	im, err := render.Weld(model, 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	if len(im.Positions) != 4 {
		t.Errorf("got %d unique vertices, want 4", len(im.Positions))
	}
	if im.Faces[1][0] != im.Faces[0][1] {
		t.Errorf("shared vertex not merged: %v", im.Faces)
	}
	if n := im.BoundaryEdges(); n != 4 {
		t.Errorf("got %d boundary edges, want 4", n)
	}
	if _, err = render.Weld(model, 0); err == nil {
		t.Error("expected error for zero tolerance")
	}
}

const oneTrianglePLY = `ply
format ascii 1.0
element vertex 3
property float x
property float y
property float z
property float nx
property float ny
property float nz
element face 1
property list uchar int vertex_indices
end_header
0 0 0 0 0 1
1 0 0 0 0 1
0 1 0 0 0 1
3 0 1 2
`

func TestWritePLY(t *testing.T) {
	mesh := render.NewMesh([]r3.Triangle{{{X: 0}, {X: 1}, {Y: 1}}})
	var b bytes.Buffer
	if err := render.WritePLY(&b, mesh); err != nil {
		t.Fatal(err)
	}
	if b.String() != oneTrianglePLY {
		t.Errorf("unexpected PLY output:\n%s", b.String())
	}
	if err := render.WritePLY(io.Discard, render.Mesh{Vertices: make([]float32, 9)}); err == nil {
		t.Error("expected error for mismatched buffers")
	}
}

func TestPLYRoundTrip(t *testing.T) {
	sc, _ := isosurf.LookupScenario(1)
	mesh := render.NewMesh(render.MarchingCubes(sc.Field, sc.Scan))
	var b bytes.Buffer
	if err := render.WritePLY(&b, mesh); err != nil {
		t.Fatal(err)
	}
	got, err := render.ReadPLY(&b)
	if err != nil {
		t.Fatal(err)
	}
	if !sameFloats(got.Vertices, mesh.Vertices) {
		t.Error("vertex buffer changed after PLY round trip")
	}
	if !sameFloats(got.Normals, mesh.Normals) {
		t.Error("normal buffer changed after PLY round trip")
	}
	if len(got.Triangles()) != mesh.TriangleCount() {
		t.Errorf("got %d triangles, want %d", len(got.Triangles()), mesh.TriangleCount())
	}
}

func TestReadPLYWithoutNormals(t *testing.T) {
	const src = `ply
format ascii 1.0
comment positions only
element vertex 4
property float x
property float y
property float z
element face 2
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
0 1 0
1 1 0
3 0 1 2
3 1 3 2
`
	m, err := render.ReadPLY(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if m.TriangleCount() != 2 {
		t.Fatalf("got %d triangles, want 2", m.TriangleCount())
	}
	for i := 0; i < len(m.Normals); i += 3 {
		if m.Normals[i+2] != 1 {
			t.Fatalf("normal %d: %v, want +z", i/3, m.Normals[i:i+3])
		}
	}
	// An incomplete normal triple is ignored and normals are estimated.
	partial := strings.Replace(src, "property float z\n", "property float z\nproperty float nx\n", 1)
	partial = strings.NewReplacer("0 0 0\n", "0 0 0 5\n", "1 0 0\n", "1 0 0 5\n", "0 1 0\n", "0 1 0 5\n", "1 1 0\n", "1 1 0 5\n").Replace(partial)
	m, err = render.ReadPLY(strings.NewReader(partial))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(m.Normals); i += 3 {
		if n := m.Normals[i : i+3]; n[0] != 0 || n[2] != 1 {
			t.Fatalf("partial normals: normal %d is %v, want +z", i/3, n)
		}
	}
}

func TestReadPLYErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"obj\n",
		"ply\nformat binary_little_endian 1.0\nend_header\n",
		strings.Replace(oneTrianglePLY, "3 0 1 2", "4 0 1 2 0", 1),
		strings.Replace(oneTrianglePLY, "3 0 1 2", "3 0 1 7", 1),
		strings.Replace(oneTrianglePLY, "element vertex 3", "element vertex 4", 1),
		// Declared count far beyond the data.
		strings.Replace(oneTrianglePLY, "element vertex 3", "element vertex 900000000000", 1),
		// Normals without positions.
		strings.Replace(oneTrianglePLY, "property float x\nproperty float y\nproperty float z\n", "", 1),
		// Repeated property.
		strings.Replace(oneTrianglePLY, "property float y\n", "property float x\n", 1),
	} {
		if _, err := render.ReadPLY(strings.NewReader(src)); err == nil {
			t.Errorf("expected error reading %q", src)
		}
	}
}

func TestCreatePLY(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exercise1.ply")
	sc, _ := isosurf.LookupScenario(1)
	mesh := render.NewMesh(render.MarchingCubes(sc.Field, sc.Scan))
	if err := render.CreatePLY(path, mesh); err != nil {
		t.Fatal(err)
	}
	fp, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()
	got, err := render.ReadPLY(fp)
	if err != nil {
		t.Fatal(err)
	}
	if got.TriangleCount() != mesh.TriangleCount() {
		t.Errorf("read %d triangles, wrote %d", got.TriangleCount(), mesh.TriangleCount())
	}
}

func TestCreatePLYBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.ply")
	mesh := render.NewMesh([]r3.Triangle{{{X: 0}, {X: 1}, {Y: 1}}})
	if err := render.CreatePLY(path, mesh); err == nil {
		t.Fatal("expected error for unwritable path")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file should not exist: %v", err)
	}
}

func TestSTLCreateWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sphere.stl")
	err := render.CreateSTL(path, render.NewGridRenderer(isosurf.Sphere(2.3), sphereScan))
	if err != nil {
		t.Fatal(err)
	}
	bfile, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	model, err := render.RenderAll(render.NewGridRenderer(isosurf.Sphere(2.3), sphereScan))
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	err = render.WriteSTL(&b, model)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b.Bytes(), bfile) {
		t.Fatal("WriteSTL and CreateSTL output mismatch")
	}
}

func TestInterleaved(t *testing.T) {
	mesh := render.NewMesh([]r3.Triangle{{{X: 0}, {X: 1}, {Y: 1}}})
	got := mesh.Interleaved()
	want := []float32{
		0, 0, 0, 0, 0, 1,
		1, 0, 0, 0, 0, 1,
		0, 1, 0, 0, 0, 1,
	}
	if !sameFloats(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestComputeNormalsDegenerate(t *testing.T) {
	n := render.ComputeNormals([]float32{1, 1, 1, 1, 1, 1, 2, 2, 2, 9})
	if len(n) != 9 {
		t.Fatalf("got %d normal values, want 9", len(n))
	}
	for _, v := range n {
		if !math.IsNaN(float64(v)) {
			t.Fatalf("expected NaN normal for zero-area triangle, got %v", n)
		}
	}
	mesh := render.Mesh{Vertices: []float32{1, 1, 1, 1, 1, 1, 2, 2, 2}, Normals: n}
	if d := mesh.Degenerate(); len(d) != 1 || d[0] != 0 {
		t.Errorf("Degenerate() = %v, want [0]", d)
	}
}

func sameFloats(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] && !(a[i] != a[i] && b[i] != b[i]) {
			return false
		}
	}
	return true
}
