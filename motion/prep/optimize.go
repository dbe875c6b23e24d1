package prep

import (
	"math"

	"penplan/motion"
)

// Tag is the per-path metadata attached by the artwork reader
type Tag struct {
	GroupID  string `json:"group,omitempty"`
	StrokeID string `json:"stroke,omitempty"`
}

// Tags maps a path index to its tag. It travels next to the path list and
// is only valid for the list it was built with.
type Tags map[int]Tag

// LayerMode selects how paths are grouped into layers
type LayerMode string

const (
	LayerAll    LayerMode = "all"
	LayerGroup  LayerMode = "group"
	LayerStroke LayerMode = "stroke"
)

// Layers returns the distinct layer names of tags under mode, in first-seen
// path order
func Layers(paths []motion.Path, tags Tags, mode LayerMode) []string {
	seen := map[string]bool{}
	var names []string
	for i := range paths {
		name := layerOf(tags[i], mode)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func layerOf(tag Tag, mode LayerMode) string {
	switch mode {
	case LayerGroup:
		return tag.GroupID
	case LayerStroke:
		return tag.StrokeID
	default:
		return ""
	}
}

// FilterLayers keeps the paths whose layer is selected. LayerAll keeps
// everything.
func FilterLayers(paths []motion.Path, tags Tags, mode LayerMode, selected map[string]bool) []motion.Path {
	if mode == LayerAll || mode == "" {
		return paths
	}
	out := make([]motion.Path, 0, len(paths))
	for i, p := range paths {
		if selected[layerOf(tags[i], mode)] {
			out = append(out, p)
		}
	}
	return out
}

// DedupPoints drops every point within radius of the last kept point
func DedupPoints(p motion.Path, radius float64) motion.Path {
	if len(p) == 0 {
		return p
	}
	out := motion.Path{p[0]}
	for _, pt := range p[1:] {
		if pt.Sub(out[len(out)-1]).Length() > radius {
			out = append(out, pt)
		}
	}
	return out
}

// Reorder returns the paths in greedy nearest-neighbour order starting from
// the origin. A path is reversed when its end is closer than its start.
func Reorder(paths []motion.Path) []motion.Path {
	remaining := make([]motion.Path, 0, len(paths))
	for _, p := range paths {
		if len(p) > 0 {
			remaining = append(remaining, p)
		}
	}

	out := make([]motion.Path, 0, len(remaining))
	cur := motion.Point{}
	for len(remaining) > 0 {
		best, bestDist, reverse := 0, math.Inf(1), false
		for i, p := range remaining {
			if d := p.Start().Sub(cur).Length(); d < bestDist {
				best, bestDist, reverse = i, d, false
			}
			if d := p.End().Sub(cur).Length(); d < bestDist {
				best, bestDist, reverse = i, d, true
			}
		}
		next := remaining[best]
		if reverse {
			next = next.Reversed()
		}
		out = append(out, next)
		cur = next.End()

		remaining[best] = remaining[len(remaining)-1]
		remaining = remaining[:len(remaining)-1]
	}
	return out
}

// ElideShorterThan drops paths whose length is below minLength
func ElideShorterThan(paths []motion.Path, minLength float64) []motion.Path {
	out := make([]motion.Path, 0, len(paths))
	for _, p := range paths {
		if p.Length() >= minLength {
			out = append(out, p)
		}
	}
	return out
}

// ElideLongerThan drops paths whose length is above maxLength
func ElideLongerThan(paths []motion.Path, maxLength float64) []motion.Path {
	out := make([]motion.Path, 0, len(paths))
	for _, p := range paths {
		if p.Length() <= maxLength {
			out = append(out, p)
		}
	}
	return out
}

// Merge joins each path onto the previous one when the gap between them is
// at most radius
func Merge(paths []motion.Path, radius float64) []motion.Path {
	var out []motion.Path
	for _, p := range paths {
		if len(p) == 0 {
			continue
		}
		if n := len(out); n > 0 && p.Start().Sub(out[n-1].End()).Length() <= radius {
			out[n-1] = append(out[n-1], p...)
			continue
		}
		out = append(out, p.Clone())
	}
	return out
}
