package sdfmesh

import (
	"fmt"

	"github.com/soypat/geometry/md3"
)

// OpUnion is the result of the [Union] operation. Prefer using [Union] to
// using this type directly.
//
// Normally primitives and results of operations in this package are not
// exported since their concrete type provides relatively little value. The
// result of Union is the exception to the rule since it is the most common
// operation to perform on SDFs: users traversing an expression looking for
// union elements can section evaluation by the bounding boxes of the joined
// shapes.
type OpUnion struct {
	// joined contains 2 or more 3D SDFs.
	joined []SDF3
}

// Union joins the shapes of several 3D SDFs into one. Is exact.
// Union aggregates nested Union results into its own.
func Union(shapes ...SDF3) SDF3 {
	if len(shapes) < 2 {
		panic("need at least 2 arguments to Union")
	}
	var U OpUnion
	for i, s := range shapes {
		if s == nil {
			panic(fmt.Sprintf("nil %d argument to Union", i))
		}
		if subU, ok := s.(*OpUnion); ok {
			// Discard nested union elements and join their elements.
			U.joined = append(U.joined, subU.joined...)
		} else {
			U.joined = append(U.joined, s)
		}
	}
	return &U
}

// Bounds returns the union of all joined SDF bounds.
func (u *OpUnion) Bounds() md3.Box {
	bb := u.joined[0].Bounds()
	for _, s := range u.joined[1:] {
		bb2 := s.Bounds()
		bb.Min = minElem(bb.Min, bb2.Min)
		bb.Max = maxElem(bb.Max, bb2.Max)
	}
	return bb
}

type intersection struct {
	s1, s2 SDF3
}

// Intersection performs a boolean intersection of the two argument shapes. Is exact.
func Intersection(a, b SDF3) SDF3 {
	if a == nil || b == nil {
		panic("nil SDF argument to Intersection")
	}
	return &intersection{s1: a, s2: b}
}

func (s *intersection) Bounds() md3.Box {
	b1, b2 := s.s1.Bounds(), s.s2.Bounds()
	return md3.Box{
		Min: maxElem(b1.Min, b2.Min),
		Max: minElem(b1.Max, b2.Max),
	}
}

type difference struct {
	s1, s2 SDF3 // subtracts s2 from s1.
}

// Difference subtracts the second shape from the first. Is exact.
func Difference(a, b SDF3) SDF3 {
	if a == nil || b == nil {
		panic("nil SDF argument to Difference")
	}
	return &difference{s1: a, s2: b}
}

func (s *difference) Bounds() md3.Box { return s.s1.Bounds() }

type translate struct {
	s   SDF3
	off md3.Vec
}

// Translate moves the shape by (dirX, dirY, dirZ).
func Translate(s SDF3, dirX, dirY, dirZ float64) SDF3 {
	if s == nil {
		panic("nil SDF argument to Translate")
	}
	return &translate{s: s, off: md3.Vec{X: dirX, Y: dirY, Z: dirZ}}
}

func (t *translate) Bounds() md3.Box {
	bb := t.s.Bounds()
	return md3.Box{Min: md3.Add(bb.Min, t.off), Max: md3.Add(bb.Max, t.off)}
}

type scale struct {
	s      SDF3
	factor float64
}

// Scale scales the shape uniformly about the origin. factor must be positive.
func Scale(s SDF3, factor float64) SDF3 {
	if s == nil {
		panic("nil SDF argument to Scale")
	} else if factor <= 0 {
		panic("non-positive Scale factor")
	}
	return &scale{s: s, factor: factor}
}

func (sc *scale) Bounds() md3.Box {
	bb := sc.s.Bounds()
	return md3.Box{Min: md3.Scale(sc.factor, bb.Min), Max: md3.Scale(sc.factor, bb.Max)}
}

type detail struct {
	s    SDF3
	feat float64
}

// Detail annotates a shape with a minimum feature size hint so that
// region classification requests subdivision finer than the global
// minimum wherever the shape's surface is present.
func Detail(s SDF3, featureSize float64) SDF3 {
	if s == nil {
		panic("nil SDF argument to Detail")
	} else if featureSize <= 0 {
		panic("non-positive Detail feature size")
	}
	return &detail{s: s, feat: featureSize}
}

func (d *detail) Bounds() md3.Box { return d.s.Bounds() }

func minElem(a, b md3.Vec) md3.Vec {
	return md3.Vec{X: minf(a.X, b.X), Y: minf(a.Y, b.Y), Z: minf(a.Z, b.Z)}
}

func maxElem(a, b md3.Vec) md3.Vec {
	return md3.Vec{X: maxf(a.X, b.X), Y: maxf(a.Y, b.Y), Z: maxf(a.Z, b.Z)}
}
