// Package sdfmesh converts implicit solids described by signed distance
// functions into watertight triangle meshes suitable for 3D printing.
//
// The package root holds the SDF expression tree: primitives, operations
// and their evaluators. An expression supports three kinds of evaluation:
// exact point evaluation, sound interval evaluation over an axis-aligned
// box, and content classification which additionally distinguishes single
// smooth surfaces from regions with several surfaces or sharp features.
// The meshing machinery lives in the render subpackage.
package sdfmesh

import (
	"math"

	"github.com/soypat/geometry/md3"
)

const (
	largenum = 1e20
	// epstol is used to check for badly conditioned denominators
	// such as lengths used for normalization.
	epstol = 1e-12
)

// SDF3 is a node of a 3D signed distance field expression tree.
// Distances are negative inside the solid, positive outside and zero
// on the surface.
type SDF3 interface {
	// Evaluate returns the exact signed distance at point p.
	Evaluate(p md3.Vec) float64
	// EvaluateInterval returns sound bounds of the signed distance over
	// the box spanned by the three coordinate intervals.
	EvaluateInterval(x, y, z Interval) Interval
	// Bounds returns the SDF's bounding box such that all of the shape is contained within.
	Bounds() md3.Box
}

// ContentEvaluator is implemented by SDF3 nodes able to classify a region
// beyond raw interval bounds. Nodes that do not implement it (plain
// arithmetic nodes) are classified by callers from EvaluateInterval alone.
type ContentEvaluator interface {
	EvaluateContent(x, y, z Interval) Content
}

// Category classifies a region of space against an SDF.
type Category uint8

const (
	// CategoryInside marks a region entirely inside the solid.
	CategoryInside Category = iota + 1
	// CategoryOutside marks a region entirely outside the solid.
	CategoryOutside
	// CategoryFace marks a region crossed by one smooth surface.
	CategoryFace
	// CategoryComplex marks a region with several surfaces or a sharp
	// feature requiring finer subdivision.
	CategoryComplex
)

func (c Category) String() string {
	switch c {
	case CategoryInside:
		return "inside"
	case CategoryOutside:
		return "outside"
	case CategoryFace:
		return "face"
	case CategoryComplex:
		return "complex"
	}
	return "undefined"
}

// Content is the result of classifying a box region against an SDF
// expression. It is richer than raw interval bounds: a Face region is
// crossed by a single smooth surface and carries that surface in Local
// for better conditioned downstream projection.
type Content struct {
	Category Category
	// MinFeatureSize is a geometric hint requesting subdivision finer
	// than the caller's global minimum. Zero means no hint.
	MinFeatureSize float64
	// Local is the sub-expression responsible for the surface crossing
	// a Face region. Nil for Inside/Outside regions. Complex regions carry
	// none, except a Difference region crossed only by the subtracted
	// shape, which carries that shape negated.
	Local SDF3
}

// ClassifyInterval derives a Content from plain interval bounds, the
// fallback for expressions without a ContentEvaluator implementation.
// A straddling interval classifies as Face with local surface s.
func ClassifyInterval(iv Interval, s SDF3) Content {
	switch {
	case iv.Max < 0:
		return Content{Category: CategoryInside}
	case iv.Min > 0:
		return Content{Category: CategoryOutside}
	}
	return Content{Category: CategoryFace, Local: s}
}

// EvaluateContent classifies the box region spanned by the coordinate
// intervals against s, using the expression's own classification when
// implemented and falling back to interval bounds otherwise.
func EvaluateContent(s SDF3, x, y, z Interval) Content {
	if ce, ok := s.(ContentEvaluator); ok {
		return ce.EvaluateContent(x, y, z)
	}
	return ClassifyInterval(s.EvaluateInterval(x, y, z), s)
}

func minf(a, b float64) float64 {
	return math.Min(a, b)
}

func maxf(a, b float64) float64 {
	return math.Max(a, b)
}

func absf(a float64) float64 {
	return math.Abs(a)
}

