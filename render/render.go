// Package render turns an SDF expression into a watertight triangle mesh.
//
// The pipeline has three stages run in order by [Render]: an adaptive
// octree builder classifying space into inside/outside/boundary cells with
// interval arithmetic, a surface extractor emitting coarse quads from
// boundary cells, and a half-edge mesh providing topology operations,
// manifold validation and vertex projection onto the true isosurface.
package render

import (
	"errors"
	"math"
)

var (
	// ErrBudgetExhausted is returned when the octree builder would exceed
	// the configured cell budget. The build aborts; no partial tree is kept.
	ErrBudgetExhausted = errors.New("octree cell budget exhausted")
	// ErrCancelled is returned when the build context is cancelled.
	ErrCancelled = errors.New("render cancelled")
	// ErrNonManifoldAttachment is returned by face insertion when the open
	// half-edge recorded for an edge is already paired. Indicates a
	// topology bug.
	ErrNonManifoldAttachment = errors.New("non-manifold face attachment")
	// ErrNonManifold is returned when the extracted mesh has open edges
	// after the split queue is drained.
	ErrNonManifold = errors.New("mesh is not manifold")
)

func minf(a, b float64) float64 { return math.Min(a, b) }

func maxf(a, b float64) float64 { return math.Max(a, b) }

func absf(a float64) float64 { return math.Abs(a) }
