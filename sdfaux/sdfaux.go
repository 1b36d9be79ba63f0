// Package sdfaux provides auxiliary functions to aid users in getting
// set up with sdfmesh quickly: a one-call render wrapper with progress
// logging and PNG slice visualization of SDFs for debugging. Ideally
// users implement their own orchestration since applications vary widely.
package sdfaux

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"time"

	"github.com/sdfmesh/sdfmesh"
	"github.com/sdfmesh/sdfmesh/render"
	"github.com/soypat/geometry/md3"
)

// RenderConfig configures [Render].
type RenderConfig struct {
	// Resolution correlates with the minimum triangle size of the mesh
	// output. Zero derives a sensible value from the SDF bounds.
	Resolution float64
	// CellBudget caps octree cells; zero uses the render package default.
	CellBudget int
	// Optimize projects mesh vertices onto the surface.
	Optimize bool
	// RefineEdges splits surface-deviating edges after projection.
	RefineEdges bool
	Silent      bool
	// SliceOutput, if non-nil, receives a PNG cross-section of the SDF
	// at z=SliceZ for visual debugging.
	SliceOutput io.Writer
	SliceZ      float64
	// SliceHeight is the output image height in pixels. Zero means 512.
	SliceHeight int
}

// Render runs the SDF-to-mesh pipeline with logging and optional debug
// slice output.
func Render(ctx context.Context, s sdfmesh.SDF3, cfg RenderConfig) (render.SerializedMesh, error) {
	if s == nil {
		return render.SerializedMesh{}, errors.New("nil SDF argument to Render")
	}
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	logDuration := func(duration time.Duration, args ...any) {
		switch {
		case duration > time.Minute:
			duration = duration.Round(time.Second)
		case duration > time.Second:
			duration = duration.Round(time.Millisecond)
		case duration > time.Millisecond:
			duration = duration.Round(time.Microsecond)
		}
		args = append([]any{fmt.Sprintf("%9s", duration.String())}, args...)
		log(args...)
	}

	if cfg.SliceOutput != nil {
		watch := stopwatch()
		height := cfg.SliceHeight
		if height == 0 {
			height = 512
		}
		err := RenderSlicePNG(cfg.SliceOutput, s, cfg.SliceZ, height, nil)
		if err != nil {
			return render.SerializedMesh{}, fmt.Errorf("rendering SDF slice: %w", err)
		}
		logDuration(watch(), "wrote SDF slice PNG")
	}

	watch := stopwatch()
	sm, stats, err := render.Render(ctx, s, render.Config{
		MinSize:     cfg.Resolution,
		CellBudget:  cfg.CellBudget,
		Optimize:    cfg.Optimize,
		RefineEdges: cfg.RefineEdges,
	})
	if err != nil {
		return render.SerializedMesh{}, err
	}
	logDuration(watch(), "subdivided", stats.Cells, "cells and rendered",
		stats.Triangles, "triangles over", stats.Vertices, "vertices")
	return sm, nil
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// RenderSlicePNG renders the z=sliceZ cross-section of a 3D SDF as a PNG
// image written to w. The image width is sized automatically from the
// height argument to preserve the SDF bounds aspect ratio. A nil color
// conversion function picks one automatically.
func RenderSlicePNG(w io.Writer, s sdfmesh.SDF3, sliceZ float64, picHeight int, conversion func(float32) color.Color) error {
	if picHeight < 8 {
		return errors.New("slice image height too small")
	}
	bb := s.Bounds()
	sz := bb.Size()
	if conversion == nil {
		conversion = ColorConversionInigoQuilez(float32(sz.Max()) / 3)
	}
	pixPerUnit := float64(picHeight) / sz.Y
	picWidth := int(pixPerUnit * sz.X)
	if picWidth < 1 {
		return errors.New("degenerate SDF bounds for slice image")
	}
	img := image.NewRGBA(image.Rect(0, 0, picWidth, picHeight))
	dx := sz.X / float64(picWidth)
	dy := sz.Y / float64(picHeight)
	for j := 0; j < picHeight; j++ {
		// Maximum image index is the upper left corner so y inverts here.
		y := bb.Max.Y - (float64(j)+0.5)*dy
		for i := 0; i < picWidth; i++ {
			x := bb.Min.X + (float64(i)+0.5)*dx
			d := s.Evaluate(md3.Vec{X: x, Y: y, Z: sliceZ})
			img.Set(i, j, conversion(float32(d)))
		}
	}
	return png.Encode(w, img)
}
