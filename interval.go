package sdfmesh

import "math"

// Interval is a closed interval of float64 values with outward-rounded
// bounds so that the true range of an operation is always contained in
// the result.
type Interval struct {
	Min, Max float64
}

// NewInterval returns the interval [lo, hi]. Panics if lo > hi.
func NewInterval(lo, hi float64) Interval {
	if lo > hi {
		panic("interval lower bound above upper bound")
	}
	return Interval{Min: lo, Max: hi}
}

// IntervalPoint returns the degenerate interval containing only v.
func IntervalPoint(v float64) Interval {
	return Interval{Min: v, Max: v}
}

// IntervalCentered returns the interval [c-r, c+r].
func IntervalCentered(c, r float64) Interval {
	return Interval{Min: c - r, Max: c + r}
}

// Width returns the length of the interval.
func (i Interval) Width() float64 { return i.Max - i.Min }

// Contains reports whether v lies within the interval.
func (i Interval) Contains(v float64) bool { return v >= i.Min && v <= i.Max }

// StraddlesZero reports whether the interval contains zero.
func (i Interval) StraddlesZero() bool { return i.Min <= 0 && i.Max >= 0 }

// outward widens the interval by one ulp on each side. Elementary float
// operations are correct to within one ulp so widening the rounded result
// keeps the bounds sound.
func outward(lo, hi float64) Interval {
	return Interval{
		Min: math.Nextafter(lo, math.Inf(-1)),
		Max: math.Nextafter(hi, math.Inf(1)),
	}
}

// Add returns i + o.
func (i Interval) Add(o Interval) Interval {
	return outward(i.Min+o.Min, i.Max+o.Max)
}

// AddScalar returns i + v.
func (i Interval) AddScalar(v float64) Interval {
	return outward(i.Min+v, i.Max+v)
}

// Sub returns i - o.
func (i Interval) Sub(o Interval) Interval {
	return outward(i.Min-o.Max, i.Max-o.Min)
}

// Neg returns -i.
func (i Interval) Neg() Interval {
	return Interval{Min: -i.Max, Max: -i.Min}
}

// Mul returns i * o.
func (i Interval) Mul(o Interval) Interval {
	a := i.Min * o.Min
	b := i.Min * o.Max
	c := i.Max * o.Min
	d := i.Max * o.Max
	return outward(minf(minf(a, b), minf(c, d)), maxf(maxf(a, b), maxf(c, d)))
}

// MulScalar returns i scaled by v.
func (i Interval) MulScalar(v float64) Interval {
	if v < 0 {
		return outward(i.Max*v, i.Min*v)
	}
	return outward(i.Min*v, i.Max*v)
}

// Div returns i / o. A divisor straddling zero yields the whole real line.
func (i Interval) Div(o Interval) Interval {
	if o.StraddlesZero() {
		return Interval{Min: math.Inf(-1), Max: math.Inf(1)}
	}
	return i.Mul(outward(1/o.Max, 1/o.Min))
}

// Square returns i*i with the tighter bound [0, max²] when i straddles zero.
func (i Interval) Square() Interval {
	a, b := i.Min*i.Min, i.Max*i.Max
	if i.StraddlesZero() {
		return outward(0, maxf(a, b))
	}
	return outward(minf(a, b), maxf(a, b))
}

// Sqrt returns the square root of the non-negative portion of i.
func (i Interval) Sqrt() Interval {
	lo := i.Min
	if lo < 0 {
		lo = 0
	}
	hi := i.Max
	if hi < 0 {
		hi = 0
	}
	iv := outward(math.Sqrt(lo), math.Sqrt(hi))
	if iv.Min < 0 {
		iv.Min = 0 // Square roots are never negative.
	}
	return iv
}

// Abs returns |i|.
func (i Interval) Abs() Interval {
	if i.Min >= 0 {
		return i
	}
	if i.Max <= 0 {
		return i.Neg()
	}
	return Interval{Min: 0, Max: maxf(-i.Min, i.Max)}
}

// Min2 returns the elementwise minimum of i and o, the interval form of
// the CSG union distance.
func (i Interval) Min2(o Interval) Interval {
	return Interval{Min: minf(i.Min, o.Min), Max: minf(i.Max, o.Max)}
}

// Max2 returns the elementwise maximum of i and o.
func (i Interval) Max2(o Interval) Interval {
	return Interval{Min: maxf(i.Min, o.Min), Max: maxf(i.Max, o.Max)}
}

// Sin returns sound bounds of sin over the interval.
func (i Interval) Sin() Interval {
	if i.Width() >= 2*math.Pi || math.IsInf(i.Min, 0) || math.IsInf(i.Max, 0) {
		return Interval{Min: -1, Max: 1}
	}
	lo := minf(math.Sin(i.Min), math.Sin(i.Max))
	hi := maxf(math.Sin(i.Min), math.Sin(i.Max))
	// Extrema of sin lie at pi/2 + k*pi. Check whether one of each parity
	// falls within the interval.
	if containsCritical(i, math.Pi/2) {
		hi = 1
	}
	if containsCritical(i, -math.Pi/2) {
		lo = -1
	}
	return outward(maxf(lo, -1), minf(hi, 1))
}

// Cos returns sound bounds of cos over the interval.
func (i Interval) Cos() Interval {
	if i.Width() >= 2*math.Pi || math.IsInf(i.Min, 0) || math.IsInf(i.Max, 0) {
		return Interval{Min: -1, Max: 1}
	}
	lo := minf(math.Cos(i.Min), math.Cos(i.Max))
	hi := maxf(math.Cos(i.Min), math.Cos(i.Max))
	// Extrema of cos lie at k*pi: maxima at even k, minima at odd k.
	if containsCritical(i, 0) {
		hi = 1
	}
	if containsCritical(i, math.Pi) {
		lo = -1
	}
	return outward(maxf(lo, -1), minf(hi, 1))
}

// containsCritical reports whether base + 2*pi*k lies in i for some integer k.
func containsCritical(i Interval, base float64) bool {
	k := math.Ceil((i.Min - base) / (2 * math.Pi))
	return base+2*math.Pi*k <= i.Max
}
