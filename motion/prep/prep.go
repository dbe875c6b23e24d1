// Package prep prepares artwork for the planner: page placement,
// layer selection, point and path clean-up, ordering and conversion to
// motor steps.
package prep

import (
	"context"
	"fmt"

	"penplan/motion"
)

// Drawing is the reader's output: millimetre paths and their tags
type Drawing struct {
	Paths []motion.Path
	Tags  Tags
}

// Options configures Process
type Options struct {
	Paper         PaperSize
	MarginMM      float64
	FitPage       bool
	CropToMargins bool
	RotateDegrees float64

	LayerMode LayerMode
	Layers    map[string]bool

	PointJoinRadius   float64
	PathJoinRadius    float64
	MinimumPathLength float64
	MaximumPathLength float64 // 0 keeps every path
	Sort              bool

	StepsPerMM float64
}

// Process runs the preparation pipeline and returns paths in motor steps.
// The fit scale is computed from every path so it does not change with the
// selected layers.
func Process(ctx context.Context, d Drawing, opts Options) ([]motion.Path, error) {
	if opts.StepsPerMM <= 0 {
		return nil, fmt.Errorf("prep: steps per mm must be > 0, got %g", opts.StepsPerMM)
	}

	paths := d.Paths
	if opts.RotateDegrees != 0 {
		paths = Rotate(paths, opts.Paper.Center(), opts.RotateDegrees)
	}

	var fit Fit
	if opts.FitPage {
		fit = FitToPaper(paths, opts.Paper, opts.MarginMM)
	}

	paths = FilterLayers(paths, d.Tags, opts.LayerMode, opts.Layers)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.FitPage {
		paths = fit.Apply(paths)
	} else if opts.CropToMargins {
		paths = CropToMargins(paths, opts.Paper, opts.MarginMM)
	}

	if opts.PointJoinRadius > 0 {
		deduped := make([]motion.Path, len(paths))
		for i, p := range paths {
			deduped[i] = DedupPoints(p, opts.PointJoinRadius)
		}
		paths = deduped
	}

	if opts.Sort {
		paths = Reorder(paths)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.MinimumPathLength > 0 {
		paths = ElideShorterThan(paths, opts.MinimumPathLength)
	}
	if opts.MaximumPathLength > 0 {
		paths = ElideLongerThan(paths, opts.MaximumPathLength)
	}
	if opts.PathJoinRadius > 0 {
		paths = Merge(paths, opts.PathJoinRadius)
	}

	return ToSteps(paths, opts.StepsPerMM), nil
}
