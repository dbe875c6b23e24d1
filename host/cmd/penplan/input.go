package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"penplan/motion"
	"penplan/motion/gcode"
	"penplan/motion/prep"
)

// drawingFile is the JSON artwork format: polylines in SVG user units plus
// optional per-path tags keyed by path index.
type drawingFile struct {
	Paths [][][2]float64 `json:"paths"`
	Tags  prep.Tags      `json:"tags,omitempty"`
}

// loadDrawing reads a .json or .gcode file into millimetre paths
func loadDrawing(path string) (prep.Drawing, error) {
	f, err := os.Open(path)
	if err != nil {
		return prep.Drawing{}, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gcode", ".nc", ".ngc":
		paths, err := gcode.Read(f)
		if err != nil {
			return prep.Drawing{}, fmt.Errorf("%s: %w", path, err)
		}
		return prep.Drawing{Paths: paths}, nil
	default:
		d, err := decodeDrawing(f)
		if err != nil {
			return prep.Drawing{}, fmt.Errorf("%s: %w", path, err)
		}
		return d, nil
	}
}

// decodeDrawing parses the JSON artwork format
func decodeDrawing(r io.Reader) (prep.Drawing, error) {
	var df drawingFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&df); err != nil {
		return prep.Drawing{}, fmt.Errorf("parsing drawing: %w", err)
	}

	paths := make([]motion.Path, len(df.Paths))
	for i, pts := range df.Paths {
		p := make(motion.Path, len(pts))
		for j, xy := range pts {
			p[j] = motion.Point{X: xy[0], Y: xy[1]}
		}
		paths[i] = p
	}
	for idx := range df.Tags {
		if idx < 0 || idx >= len(paths) {
			return prep.Drawing{}, fmt.Errorf("tag for path %d, drawing has %d paths", idx, len(paths))
		}
	}
	return prep.Drawing{Paths: prep.FromSVGUnits(paths), Tags: df.Tags}, nil
}
