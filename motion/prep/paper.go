package prep

import (
	"fmt"
	"math"
	"sort"

	"penplan/motion"
)

// MMPerSVGUnit converts CSS/SVG user units (1/96 in) to millimetres
const MMPerSVGUnit = 25.4 / 96

// PaperSize is a sheet size in millimetres
type PaperSize struct {
	Size motion.Point
}

// Landscape returns the sheet with its long edge along X
func (p PaperSize) Landscape() PaperSize {
	return PaperSize{Size: motion.Point{X: math.Max(p.Size.X, p.Size.Y), Y: math.Min(p.Size.X, p.Size.Y)}}
}

// Portrait returns the sheet with its long edge along Y
func (p PaperSize) Portrait() PaperSize {
	return PaperSize{Size: motion.Point{X: math.Min(p.Size.X, p.Size.Y), Y: math.Max(p.Size.X, p.Size.Y)}}
}

// IsLandscape reports whether the long edge lies along X
func (p PaperSize) IsLandscape() bool {
	return p.Size.X == math.Max(p.Size.X, p.Size.Y)
}

// Center returns the centre of the sheet
func (p PaperSize) Center() motion.Point {
	return p.Size.Mul(0.5)
}

func inches(x, y float64) PaperSize {
	round := func(v float64) float64 { return math.Round(v*25.4*100) / 100 }
	return PaperSize{Size: motion.Point{X: round(x), Y: round(y)}}
}

func mm(x, y float64) PaperSize {
	return PaperSize{Size: motion.Point{X: x, Y: y}}
}

// Standard holds the named paper sizes, all in portrait orientation
var Standard = map[string]PaperSize{
	"USLetter":         inches(8.5, 11),
	"USLegal":          inches(8.5, 14),
	"ArchA":            inches(9, 12),
	"A3":               mm(297, 420),
	"A4":               mm(210, 297),
	"A5":               mm(148, 210),
	"A6":               mm(105, 148),
	"Eggshell Classic": mm(100, 60),
	"Eggshell Holo":    mm(100, 70),
	"3x2":              inches(3, 2),
	"3x3":              inches(3, 3),
	"3x5":              inches(3, 5),
	"4x4":              inches(4, 4),
	"4x6":              inches(4, 6),
	"5x7":              inches(5, 7),
	"6x6":              inches(6, 6),
	"6x8":              inches(6, 8),
	"8x8":              inches(8, 8),
	"12x6":             inches(12, 6),
	"12x9":             inches(12, 9),
	"12x12":            inches(12, 12),
	"12x16":            inches(12, 16),
	"14x11":            inches(14, 11),
	"17x11":            inches(17, 11),
	"18x14":            inches(18, 14),
	"19x12.5":          inches(19, 12.5),
}

// LookupPaper returns the named paper size
func LookupPaper(name string) (PaperSize, error) {
	p, ok := Standard[name]
	if !ok {
		return PaperSize{}, fmt.Errorf("unknown paper size %q", name)
	}
	return p, nil
}

// PaperNames returns the names in Standard, sorted
func PaperNames() []string {
	names := make([]string, 0, len(Standard))
	for name := range Standard {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
