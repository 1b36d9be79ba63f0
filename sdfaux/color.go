package sdfaux

import (
	"image/color"

	math "github.com/chewxy/math32"
)

var red = color.RGBA{R: 255, A: 255}

// ColorConversionInigoQuilez creates a distance-to-color conversion using
// [Inigo Quilez]'s style. A good value for characteristic distance is the
// bounding box's longest side divided by 3. Returns red for NaN values.
//
// [Inigo Quilez]: https://iquilezles.org/articles/distfunctions2d/
func ColorConversionInigoQuilez(characteristicDistance float32) func(float32) color.Color {
	inv := 1 / characteristicDistance
	return func(d float32) color.Color {
		if math.IsNaN(d) {
			return red
		}
		d *= inv
		var c [3]float32
		if d > 0 {
			c = [3]float32{0.9, 0.6, 0.3}
		} else {
			c = [3]float32{0.65, 0.85, 1.0}
		}
		scale := (1 - math.Exp(-6*math.Abs(d))) * (0.8 + 0.2*math.Cos(150*d))
		blend := 1 - smoothstep(0, 0.01, math.Abs(d))
		for i := range c {
			c[i] = c[i]*scale*(1-blend) + blend
		}
		return color.RGBA{
			R: uint8(c[0] * 255),
			G: uint8(c[1] * 255),
			B: uint8(c[2] * 255),
			A: 255,
		}
	}
}

// ColorConversionLinearGradient creates a black-to-white gradient centered
// on the surface that extends gradientLength.
func ColorConversionLinearGradient(gradientLength float32) func(d float32) color.Color {
	return func(d float32) color.Color {
		if math.IsNaN(d) {
			return red
		}
		blend := d/gradientLength + 0.5
		switch {
		case blend <= 0:
			return color.Black
		case blend >= 1:
			return color.White
		}
		v := uint8(blend * 255)
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}
}

func smoothstep(edge0, edge1, x float32) float32 {
	t := (x - edge0) / (edge1 - edge0)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return t * t * (3 - 2*t)
}
