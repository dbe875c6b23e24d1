package prep

import (
	"math"

	"seehuhn.de/go/geom/matrix"

	"penplan/motion"
)

// Rotate rotates every point by degrees around center
func Rotate(paths []motion.Path, center motion.Point, degrees float64) []motion.Path {
	m := matrix.RotateDeg(degrees)
	out := make([]motion.Path, len(paths))
	for i, p := range paths {
		q := make(motion.Path, len(p))
		for j, pt := range p {
			d := pt.Sub(center)
			q[j] = center.Add(motion.Point{
				X: m[0]*d.X + m[2]*d.Y,
				Y: m[1]*d.X + m[3]*d.Y,
			})
		}
		out[i] = q
	}
	return out
}

// Fit is a uniform scale followed by a translation
type Fit struct {
	Scale  float64
	Offset motion.Point
}

// Apply maps every point through the fit
func (f Fit) Apply(paths []motion.Path) []motion.Path {
	out := make([]motion.Path, len(paths))
	for i, p := range paths {
		q := make(motion.Path, len(p))
		for j, pt := range p {
			q[j] = pt.Mul(f.Scale).Add(f.Offset)
		}
		out[i] = q
	}
	return out
}

// FitToPaper returns the fit that scales the bounding box of paths to the
// largest size inside the paper margins and centres it on the sheet
func FitToPaper(paths []motion.Path, paper PaperSize, marginMM float64) Fit {
	min, max, ok := motion.Bounds(paths)
	if !ok {
		return Fit{Scale: 1}
	}
	size := max.Sub(min)
	avail := paper.Size.Sub(motion.Point{X: 2 * marginMM, Y: 2 * marginMM})

	scale := math.Inf(1)
	if size.X > 0 {
		scale = math.Min(scale, avail.X/size.X)
	}
	if size.Y > 0 {
		scale = math.Min(scale, avail.Y/size.Y)
	}
	if math.IsInf(scale, 1) || scale <= 0 {
		scale = 1
	}

	mid := min.Add(max).Mul(0.5)
	return Fit{Scale: scale, Offset: paper.Center().Sub(mid.Mul(scale))}
}

// ScaleToPaper fits paths into the paper margins
func ScaleToPaper(paths []motion.Path, paper PaperSize, marginMM float64) []motion.Path {
	return FitToPaper(paths, paper, marginMM).Apply(paths)
}

// CropToMargins clips paths to the printable rectangle of the paper. A path
// that leaves and re-enters the rectangle is split in two.
func CropToMargins(paths []motion.Path, paper PaperSize, marginMM float64) []motion.Path {
	lo := motion.Point{X: marginMM, Y: marginMM}
	hi := paper.Size.Sub(lo)

	var out []motion.Path
	for _, p := range paths {
		var cur motion.Path
		flush := func() {
			if len(cur) > 0 {
				out = append(out, cur)
			}
			cur = nil
		}
		if len(p) == 1 {
			if inside(p[0], lo, hi) {
				out = append(out, p.Clone())
			}
			continue
		}
		for i := 1; i < len(p); i++ {
			a, b, ok := clipSegment(p[i-1], p[i], lo, hi)
			if !ok {
				flush()
				continue
			}
			if len(cur) == 0 || cur[len(cur)-1] != a {
				flush()
				cur = motion.Path{a}
			}
			cur = append(cur, b)
			if b != p[i] {
				flush()
			}
		}
		flush()
	}
	return out
}

func inside(p, lo, hi motion.Point) bool {
	return p.X >= lo.X && p.X <= hi.X && p.Y >= lo.Y && p.Y <= hi.Y
}

// clipSegment clips a-b to the rectangle lo-hi (Liang-Barsky)
func clipSegment(a, b, lo, hi motion.Point) (motion.Point, motion.Point, bool) {
	d := b.Sub(a)
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-d.X, a.X - lo.X},
		{d.X, hi.X - a.X},
		{-d.Y, a.Y - lo.Y},
		{d.Y, hi.Y - a.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return a, b, false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return a, b, false
			}
			t1 = math.Min(t1, r)
		}
	}
	ca, cb := a, b
	if t0 > 0 {
		ca = a.Add(d.Mul(t0))
	}
	if t1 < 1 {
		cb = a.Add(d.Mul(t1))
	}
	return ca, cb, true
}

// ToSteps converts millimetre paths to motor steps
func ToSteps(paths []motion.Path, stepsPerMM float64) []motion.Path {
	out := make([]motion.Path, len(paths))
	for i, p := range paths {
		out[i] = p.Scaled(stepsPerMM)
	}
	return out
}

// FromSVGUnits converts SVG user-unit paths to millimetres
func FromSVGUnits(paths []motion.Path) []motion.Path {
	out := make([]motion.Path, len(paths))
	for i, p := range paths {
		out[i] = p.Scaled(MMPerSVGUnit)
	}
	return out
}
