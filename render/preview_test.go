package render_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/soypat/isosurf"
	"github.com/soypat/isosurf/render"
	"gonum.org/v1/plot/cmpimg"
)

const (
	// imgDelta a normalized imgDelta parameter to describe how close the matching
	// should be performed (imgDelta=0: perfect match, imgDelta=1, loose match)
	imgDelta = 0
)

func TestPreviewDeterministic(t *testing.T) {
	const width, height = 160, 120
	model := render.MarchingCubes(isosurf.Wave(), isosurf.DefaultScan())
	dir := t.TempDir()
	png1 := filepath.Join(dir, "wave1.png")
	png2 := filepath.Join(dir, "wave2.png")
	for _, path := range []string{png1, png2} {
		if err := render.WritePNG(path, model, render.DefaultView(), width, height); err != nil {
			t.Fatal(err)
		}
	}
	if !equalImages(t, png1, png2) {
		t.Error("rendering the same mesh twice gave different images")
	}
	img, err := render.Preview(model, render.DefaultView(), width, height)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
		t.Errorf("preview size %dx%d, want %dx%d", b.Dx(), b.Dy(), width, height)
	}
	if _, err = render.Preview(model, render.DefaultView(), 0, height); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestPreviewBackground(t *testing.T) {
	img, err := render.Preview(nil, render.DefaultView(), 8, 6)
	if err != nil {
		t.Fatal(err)
	}
	want := render.PreviewBackground
	r, g, b, _ := img.At(3, 3).RGBA()
	for i, c := range [][2]float64{{float64(r), want.R}, {float64(g), want.G}, {float64(b), want.B}} {
		if math.Abs(c[0]/0xffff-c[1]) > 2./255 {
			t.Errorf("channel %d: got %g, want %g", i, c[0]/0xffff, c[1])
		}
	}
}

func TestView(t *testing.T) {
	v := render.DefaultView()
	eye := v.Eye()
	if r := math.Sqrt(eye.X*eye.X + eye.Y*eye.Y + eye.Z*eye.Z); math.Abs(r-v.R) > 1e-9 {
		t.Errorf("eye distance %g, want %g", r, v.R)
	}
	if math.Abs(eye.Y-v.R*math.Cos(v.Phi)) > 1e-9 || math.Abs(eye.X-eye.Z) > 1e-9 {
		t.Errorf("unexpected default eye %v", eye)
	}
	if got := v.Orbit(0, 10).Phi; got != math.Pi-0.1 {
		t.Errorf("phi not clamped below the pole: %g", got)
	}
	if got := v.Orbit(0, -10).Phi; got != 0.1 {
		t.Errorf("phi not clamped above the pole: %g", got)
	}
	if got := v.Orbit(1, 0).Theta; got != v.Theta+1 {
		t.Errorf("theta %g, want %g", got, v.Theta+1)
	}
	if got := v.Zoom(-100).R; got != 1 {
		t.Errorf("zoom radius %g, want 1", got)
	}
	if got := v.Zoom(2).R; got != v.R+2 {
		t.Errorf("zoom radius %g, want %g", got, v.R+2)
	}
}

func equalImages(t *testing.T, png1, png2 string) bool {
	b1, err := os.ReadFile(png1)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := os.ReadFile(png2)
	if err != nil {
		t.Fatal(err)
	}
	equal, err := cmpimg.EqualApprox("png", b1, b2, imgDelta)
	if err != nil {
		t.Fatal(err)
	}
	return equal
}
