package sdfmesh

import "github.com/soypat/geometry/md3"

// Interval evaluators mirror the point evaluators in cpu_evaluators.go
// using the sound arithmetic of [Interval]. Content evaluators classify a
// box region, delegating to the single straddling sub-expression where
// possible so downstream consumers receive the best conditioned local
// surface.

var izero = Interval{}

func (s *sphere) EvaluateInterval(x, y, z Interval) Interval {
	return x.Square().Add(y.Square()).Add(z.Square()).Sqrt().AddScalar(-s.r)
}

func (s *sphere) EvaluateContent(x, y, z Interval) Content {
	return ClassifyInterval(s.EvaluateInterval(x, y, z), s)
}

func (b *box) EvaluateInterval(x, y, z Interval) Interval {
	d := md3.Scale(0.5, b.dims)
	r := b.round
	qx := x.Abs().AddScalar(r - d.X)
	qy := y.Abs().AddScalar(r - d.Y)
	qz := z.Abs().AddScalar(r - d.Z)
	outside := qx.Max2(izero).Square().
		Add(qy.Max2(izero).Square()).
		Add(qz.Max2(izero).Square()).Sqrt()
	inside := qx.Max2(qy.Max2(qz)).Min2(izero)
	return outside.Add(inside).AddScalar(-r)
}

func (b *box) EvaluateContent(x, y, z Interval) Content {
	return ClassifyInterval(b.EvaluateInterval(x, y, z), b)
}

func (c *cylinder) EvaluateInterval(x, y, z Interval) Interval {
	dr := x.Square().Add(y.Square()).Sqrt().AddScalar(-c.r)
	dz := z.Abs().AddScalar(-c.h / 2)
	inside := dr.Max2(dz).Min2(izero)
	outside := dr.Max2(izero).Square().Add(dz.Max2(izero).Square()).Sqrt()
	return inside.Add(outside)
}

func (c *cylinder) EvaluateContent(x, y, z Interval) Content {
	return ClassifyInterval(c.EvaluateInterval(x, y, z), c)
}

func (t *torus) EvaluateInterval(x, y, z Interval) Interval {
	q := x.Square().Add(y.Square()).Sqrt().AddScalar(-t.rGreater)
	return q.Square().Add(z.Square()).Sqrt().AddScalar(-t.rLesser)
}

func (t *torus) EvaluateContent(x, y, z Interval) Content {
	return ClassifyInterval(t.EvaluateInterval(x, y, z), t)
}

func (h *halfspace) EvaluateInterval(x, y, z Interval) Interval {
	return x.MulScalar(h.n.X).
		Add(y.MulScalar(h.n.Y)).
		Add(z.MulScalar(h.n.Z)).
		AddScalar(-h.off)
}

func (h *halfspace) EvaluateContent(x, y, z Interval) Content {
	return ClassifyInterval(h.EvaluateInterval(x, y, z), h)
}

func (u *OpUnion) EvaluateInterval(x, y, z Interval) Interval {
	iv := u.joined[0].EvaluateInterval(x, y, z)
	for _, s := range u.joined[1:] {
		iv = iv.Min2(s.EvaluateInterval(x, y, z))
	}
	return iv
}

// EvaluateContent classifies a union region. A single straddling member
// keeps its own classification; several straddling members make the region
// complex since their surfaces may meet at a sharp crease within it.
func (u *OpUnion) EvaluateContent(x, y, z Interval) Content {
	var straddle Content
	nStraddle := 0
	feat := 0.0
	for _, s := range u.joined {
		c := EvaluateContent(s, x, y, z)
		switch c.Category {
		case CategoryInside:
			return Content{Category: CategoryInside}
		case CategoryOutside:
			continue
		default:
			nStraddle++
			straddle = c
			feat = mergeFeat(feat, c.MinFeatureSize)
		}
	}
	switch nStraddle {
	case 0:
		return Content{Category: CategoryOutside}
	case 1:
		return straddle
	}
	return Content{Category: CategoryComplex, MinFeatureSize: feat}
}

func (s *intersection) EvaluateInterval(x, y, z Interval) Interval {
	return s.s1.EvaluateInterval(x, y, z).Max2(s.s2.EvaluateInterval(x, y, z))
}

func (s *intersection) EvaluateContent(x, y, z Interval) Content {
	c1 := EvaluateContent(s.s1, x, y, z)
	c2 := EvaluateContent(s.s2, x, y, z)
	switch {
	case c1.Category == CategoryOutside || c2.Category == CategoryOutside:
		return Content{Category: CategoryOutside}
	case c1.Category == CategoryInside && c2.Category == CategoryInside:
		return Content{Category: CategoryInside}
	case c1.Category == CategoryInside:
		return c2
	case c2.Category == CategoryInside:
		return c1
	}
	return Content{Category: CategoryComplex, MinFeatureSize: mergeFeat(c1.MinFeatureSize, c2.MinFeatureSize)}
}

func (s *difference) EvaluateInterval(x, y, z Interval) Interval {
	return s.s1.EvaluateInterval(x, y, z).Max2(s.s2.EvaluateInterval(x, y, z).Neg())
}

func (s *difference) EvaluateContent(x, y, z Interval) Content {
	c1 := EvaluateContent(s.s1, x, y, z)
	c2 := EvaluateContent(s.s2, x, y, z)
	switch {
	case c1.Category == CategoryOutside || c2.Category == CategoryInside:
		return Content{Category: CategoryOutside}
	case c2.Category == CategoryOutside:
		return c1
	case c1.Category == CategoryInside:
		// Region is carved solely by the subtracted surface.
		c2.Local = negated(c2.Local, s.s2)
		return c2
	}
	return Content{Category: CategoryComplex, MinFeatureSize: mergeFeat(c1.MinFeatureSize, c2.MinFeatureSize)}
}

func (t *translate) EvaluateInterval(x, y, z Interval) Interval {
	return t.s.EvaluateInterval(
		x.AddScalar(-t.off.X),
		y.AddScalar(-t.off.Y),
		z.AddScalar(-t.off.Z),
	)
}

func (t *translate) EvaluateContent(x, y, z Interval) Content {
	c := EvaluateContent(t.s,
		x.AddScalar(-t.off.X),
		y.AddScalar(-t.off.Y),
		z.AddScalar(-t.off.Z),
	)
	if c.Local != nil {
		// Local surfaces live in the child's frame; bring them to ours.
		c.Local = Translate(c.Local, t.off.X, t.off.Y, t.off.Z)
	}
	return c
}

func (sc *scale) EvaluateInterval(x, y, z Interval) Interval {
	inv := 1 / sc.factor
	return sc.s.EvaluateInterval(
		x.MulScalar(inv),
		y.MulScalar(inv),
		z.MulScalar(inv),
	).MulScalar(sc.factor)
}

func (sc *scale) EvaluateContent(x, y, z Interval) Content {
	inv := 1 / sc.factor
	c := EvaluateContent(sc.s, x.MulScalar(inv), y.MulScalar(inv), z.MulScalar(inv))
	if c.Local != nil {
		c.Local = Scale(c.Local, sc.factor)
	}
	if c.MinFeatureSize > 0 {
		c.MinFeatureSize *= sc.factor
	}
	return c
}

func (d *detail) EvaluateInterval(x, y, z Interval) Interval {
	return d.s.EvaluateInterval(x, y, z)
}

func (d *detail) EvaluateContent(x, y, z Interval) Content {
	c := EvaluateContent(d.s, x, y, z)
	if c.Category == CategoryFace || c.Category == CategoryComplex {
		c.MinFeatureSize = mergeFeat(c.MinFeatureSize, d.feat)
	}
	return c
}

// negate flips the sign of a wrapped SDF. Used as the local surface of
// regions carved by a subtracted shape.
type negate struct {
	s SDF3
}

func negated(local, fallback SDF3) SDF3 {
	if local == nil {
		local = fallback
	}
	return &negate{s: local}
}

func (n *negate) Evaluate(p md3.Vec) float64 { return -n.s.Evaluate(p) }

func (n *negate) EvaluateInterval(x, y, z Interval) Interval {
	return n.s.EvaluateInterval(x, y, z).Neg()
}

func (n *negate) Bounds() md3.Box { return n.s.Bounds() }

// mergeFeat merges two minimum feature size hints where zero means no hint.
func mergeFeat(a, b float64) float64 {
	if a == 0 {
		return b
	} else if b == 0 {
		return a
	}
	return minf(a, b)
}
