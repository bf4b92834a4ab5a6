// Command isosurf extracts the isosurface of a built-in scalar field with
// marching cubes and writes it as an ASCII PLY mesh.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/soypat/isosurf"
	"github.com/soypat/isosurf/render"
	"github.com/unixpickle/essentials"
)

func main() {
	var (
		field   = flag.Int("field", 1, "scenario number: 1 wave (isovalue 0), 2 saddle (isovalue -1.5)")
		out     = flag.String("out", "exercise1.ply", "output PLY path")
		stlPath = flag.String("stl", "", "also write a binary STL file to this path")
		pngPath = flag.String("png", "", "also write a shaded preview PNG to this path")
		gridMin = flag.Float64("min", 0, "override the lower grid bound")
		gridMax = flag.Float64("max", 0, "override the upper grid bound")
		step    = flag.Float64("step", 0, "override the voxel edge length")
		iso     = flag.Float64("iso", 0, "override the isovalue")
		verbose = flag.Bool("v", false, "log debug output to stderr")
	)
	flag.Parse()
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	isosurf.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	sc, err := isosurf.LookupScenario(*field)
	essentials.Must(err)
	cfg := sc.Scan
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min":
			cfg.GridMin = *gridMin
		case "max":
			cfg.GridMax = *gridMax
		case "step":
			cfg.StepSize = *step
		case "iso":
			cfg.Isovalue = *iso
		}
	})

	r := render.NewGridRenderer(sc.Field, cfg)
	model, err := render.RenderAll(r)
	essentials.Must(err)
	stats := r.Stats()
	isosurf.Logger().Info("surface extracted",
		"scenario", sc.Name,
		"isovalue", cfg.Isovalue,
		"voxels", stats.Voxels,
		"evaluations", stats.Evaluations,
		"triangles", stats.Triangles,
	)

	mesh := render.NewMesh(model)
	if bad := mesh.Degenerate(); len(bad) > 0 {
		isosurf.Logger().Debug("degenerate triangles", "count", len(bad))
	}
	if *verbose && len(model) > 0 {
		const weldTol = 1e-9
		im, err := render.Weld(model, weldTol)
		essentials.Must(err)
		closed := !render.ToModel3D(model).Repair(weldTol).NeedsRepair()
		isosurf.Logger().Debug("mesh topology",
			"unique_vertices", len(im.Positions),
			"boundary_edges", im.BoundaryEdges(),
			"closed", closed,
		)
	}
	// A failed write is reported but does not stop the remaining outputs.
	if err := render.CreatePLY(*out, mesh); err != nil {
		isosurf.Logger().Error("PLY export failed", "err", err)
	}
	if *stlPath != "" && len(model) > 0 {
		if err := render.CreateSTL(*stlPath, render.NewGridRenderer(sc.Field, cfg)); err != nil {
			isosurf.Logger().Error("STL export failed", "err", err)
		}
	}
	if *pngPath != "" {
		if err := render.WritePNG(*pngPath, model, render.DefaultView(), 800, 600); err != nil {
			isosurf.Logger().Error("preview failed", "err", err)
		}
	}
}
