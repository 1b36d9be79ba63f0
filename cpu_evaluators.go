package sdfmesh

import (
	"math"

	"github.com/soypat/geometry/md3"
)

func (s *sphere) Evaluate(p md3.Vec) float64 {
	return md3.Norm(p) - s.r
}

func (b *box) Evaluate(p md3.Vec) float64 {
	d := md3.Scale(0.5, b.dims)
	r := b.round
	q := md3.Vec{
		X: absf(p.X) - d.X + r,
		Y: absf(p.Y) - d.Y + r,
		Z: absf(p.Z) - d.Z + r,
	}
	outside := md3.Norm(md3.Vec{X: maxf(q.X, 0), Y: maxf(q.Y, 0), Z: maxf(q.Z, 0)})
	return outside + minf(maxf(q.X, maxf(q.Y, q.Z)), 0) - r
}

func (c *cylinder) Evaluate(p md3.Vec) float64 {
	dx := math.Hypot(p.X, p.Y) - c.r
	dz := absf(p.Z) - c.h/2
	return minf(maxf(dx, dz), 0) + math.Hypot(maxf(dx, 0), maxf(dz, 0))
}

func (t *torus) Evaluate(p md3.Vec) float64 {
	q := math.Hypot(p.X, p.Y) - t.rGreater
	return math.Hypot(q, p.Z) - t.rLesser
}

func (h *halfspace) Evaluate(p md3.Vec) float64 {
	return dot(h.n, p) - h.off
}

func (u *OpUnion) Evaluate(p md3.Vec) float64 {
	d := u.joined[0].Evaluate(p)
	for _, s := range u.joined[1:] {
		d = minf(d, s.Evaluate(p))
	}
	return d
}

func (s *intersection) Evaluate(p md3.Vec) float64 {
	return maxf(s.s1.Evaluate(p), s.s2.Evaluate(p))
}

func (s *difference) Evaluate(p md3.Vec) float64 {
	return maxf(s.s1.Evaluate(p), -s.s2.Evaluate(p))
}

func (t *translate) Evaluate(p md3.Vec) float64 {
	return t.s.Evaluate(md3.Sub(p, t.off))
}

func (sc *scale) Evaluate(p md3.Vec) float64 {
	return sc.factor * sc.s.Evaluate(md3.Scale(1/sc.factor, p))
}

func (d *detail) Evaluate(p md3.Vec) float64 {
	return d.s.Evaluate(p)
}

func dot(a, b md3.Vec) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}
