package sdfmesh

import (
	"errors"

	"github.com/soypat/geometry/md3"
)

type sphere struct {
	r float64
}

// NewSphere creates a sphere centered at the origin of radius r.
func NewSphere(r float64) (SDF3, error) {
	if r <= 0 {
		return nil, errors.New("zero or negative sphere radius")
	}
	return &sphere{r: r}, nil
}

func (s *sphere) Bounds() md3.Box {
	return md3.Box{
		Min: md3.Vec{X: -s.r, Y: -s.r, Z: -s.r},
		Max: md3.Vec{X: s.r, Y: s.r, Z: s.r},
	}
}

type box struct {
	dims  md3.Vec
	round float64
}

// NewBox creates a box centered at the origin with x,y,z dimensions and a rounding parameter to round edges.
func NewBox(x, y, z, round float64) (SDF3, error) {
	if round < 0 || round > x/2 || round > y/2 || round > z/2 {
		return nil, errors.New("invalid box rounding value")
	} else if x <= 0 || y <= 0 || z <= 0 {
		return nil, errors.New("zero or negative box dimension")
	}
	return &box{dims: md3.Vec{X: x, Y: y, Z: z}, round: round}, nil
}

func (s *box) Bounds() md3.Box {
	half := md3.Scale(0.5, s.dims)
	return md3.Box{Min: md3.Scale(-1, half), Max: half}
}

type cylinder struct {
	r, h float64
}

// NewCylinder creates a cylinder of radius r and height h centered at the
// origin with its axis along z.
func NewCylinder(r, h float64) (SDF3, error) {
	if r <= 0 || h <= 0 {
		return nil, errors.New("zero or negative cylinder dimension")
	}
	return &cylinder{r: r, h: h}, nil
}

func (c *cylinder) Bounds() md3.Box {
	return md3.Box{
		Min: md3.Vec{X: -c.r, Y: -c.r, Z: -c.h / 2},
		Max: md3.Vec{X: c.r, Y: c.r, Z: c.h / 2},
	}
}

type torus struct {
	rGreater, rLesser float64
}

// NewTorus creates a torus in the xy plane centered at the origin.
// rGreater is the distance from the origin to the tube center and rLesser
// the tube radius.
func NewTorus(rGreater, rLesser float64) (SDF3, error) {
	if rLesser <= 0 || rGreater <= rLesser {
		return nil, errors.New("invalid torus radii, ensure rGreater > rLesser > 0")
	}
	return &torus{rGreater: rGreater, rLesser: rLesser}, nil
}

func (t *torus) Bounds() md3.Box {
	r := t.rGreater + t.rLesser
	return md3.Box{
		Min: md3.Vec{X: -r, Y: -r, Z: -t.rLesser},
		Max: md3.Vec{X: r, Y: r, Z: t.rLesser},
	}
}

type halfspace struct {
	n   md3.Vec // unit normal, points outside.
	off float64
}

// NewHalfSpace creates the half space of all points p with dot(n,p) <= off,
// the solid side lying opposite the normal. The normal need not be unit
// length but must be nonzero.
func NewHalfSpace(normal md3.Vec, off float64) (SDF3, error) {
	norm := md3.Norm(normal)
	if norm < epstol {
		return nil, errors.New("zero length half space normal")
	}
	return &halfspace{n: md3.Scale(1/norm, normal), off: off / norm}, nil
}

// Bounds of a half space are unbounded. A large finite box keeps dependent
// arithmetic finite.
func (h *halfspace) Bounds() md3.Box {
	return md3.Box{
		Min: md3.Vec{X: -largenum, Y: -largenum, Z: -largenum},
		Max: md3.Vec{X: largenum, Y: largenum, Z: largenum},
	}
}
