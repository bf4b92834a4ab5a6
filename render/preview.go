package render

import (
	"image"
	"math"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"github.com/soypat/isosurf"
	"github.com/soypat/isosurf/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// View is an orbit camera looking at the origin from spherical coordinates.
// Theta is the azimuth around the y axis and Phi the polar angle from +y.
type View struct {
	R     float64
	Theta float64
	Phi   float64
}

// Preview colors and lighting.
var (
	PreviewBackground = fauxgl.Color{R: 0.1, G: 0.1, B: 0.15, A: 1}
	PreviewColor      = fauxgl.Color{R: 0, G: 0.8, B: 0.8, A: 1}
	PreviewLight      = fauxgl.V(10, 10, 10)
)

// DefaultView frames the default scan volume.
func DefaultView() View {
	return View{
		R:     8.66,
		Theta: 45 * math.Pi / 180,
		Phi:   55 * math.Pi / 180,
	}
}

// Orbit rotates the camera by the given angle deltas in radians. Phi is kept
// away from the poles.
func (v View) Orbit(dtheta, dphi float64) View {
	const poleMargin = 0.1
	v.Theta += dtheta
	v.Phi = math.Max(poleMargin, math.Min(math.Pi-poleMargin, v.Phi+dphi))
	return v
}

// Zoom moves the camera along its view direction. The distance to the origin
// never drops below 1.
func (v View) Zoom(dr float64) View {
	v.R = math.Max(1, v.R+dr)
	return v
}

// Eye returns the camera position.
func (v View) Eye() r3.Vec {
	sp, cp := math.Sincos(v.Phi)
	st, ct := math.Sincos(v.Theta)
	return r3.Vec{
		X: v.R * sp * ct,
		Y: v.R * cp,
		Z: v.R * sp * st,
	}
}

// Preview rasterizes model with Phong shading as seen from view. Degenerate
// triangles are skipped.
func Preview(model []r3.Triangle, view View, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid preview size %dx%d", width, height)
	}
	const (
		scale = 2 // supersampling
		fovy  = 45
		near  = 0.1
		far   = 100
		shine = 64
	)
	var (
		eye    = fauxV(view.Eye())
		center = fauxgl.V(0, 0, 0)
		up     = fauxgl.V(0, 1, 0)
		light  = PreviewLight.Normalize()
	)
	mesh := fauxglMesh(model)
	context := fauxgl.NewContext(width*scale, height*scale)
	context.ClearColorBufferWith(PreviewBackground)
	aspect := float64(width) / float64(height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, near, far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = PreviewColor
	shader.SpecularPower = shine
	context.Shader = shader
	context.DrawMesh(mesh)
	isosurf.Logger().Debug("preview rendered", "triangles", len(mesh.Triangles), "width", width, "height", height)
	// Downsample for antialiasing.
	return resize.Resize(uint(width), uint(height), context.Image(), resize.Bilinear), nil
}

// WritePNG renders a preview of model and saves it as a PNG file.
func WritePNG(path string, model []r3.Triangle, view View, width, height int) error {
	img, err := Preview(model, view, width, height)
	if err != nil {
		return err
	}
	if err = fauxgl.SavePNG(path, img); err != nil {
		isosurf.Logger().Warn("cannot write preview", "path", path, "err", err)
		return errors.Wrap(err, "write PNG")
	}
	return nil
}

func fauxglMesh(model []r3.Triangle) *fauxgl.Mesh {
	tris := make([]*fauxgl.Triangle, 0, len(model))
	for _, t := range model {
		n := unitNormal(t)
		if t.IsDegenerate(0) || !d3.IsFinite(n) {
			continue
		}
		fn := fauxV(n)
		tris = append(tris, fauxgl.NewTriangle(
			fauxgl.Vertex{Position: fauxV(t[0]), Normal: fn},
			fauxgl.Vertex{Position: fauxV(t[1]), Normal: fn},
			fauxgl.Vertex{Position: fauxV(t[2]), Normal: fn},
		))
	}
	return fauxgl.NewTriangleMesh(tris)
}

func fauxV(v r3.Vec) fauxgl.Vector { return fauxgl.V(v.X, v.Y, v.Z) }
