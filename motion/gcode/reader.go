package gcode

import (
	"bufio"
	"fmt"
	"io"

	"penplan/motion"
)

const mmPerInch = 25.4

// Reader turns a G-code stream into pen-down paths.
//
// The pen follows M3/M4 (down) and M5 (up), or Z (down at Z <= PenDownZ).
// Files that never control the pen draw on G1 and travel on G0.
type Reader struct {
	PenDownZ float64

	pos      motion.Point
	absolute bool
	scale    float64 // to mm
	down     bool
	penCtl   bool

	paths   []motion.Path
	current motion.Path
}

// NewReader creates a reader in absolute millimetre mode at the origin
func NewReader() *Reader {
	return &Reader{absolute: true, scale: 1}
}

// Read parses every line of r and returns the drawn paths in millimetres
func Read(r io.Reader) ([]motion.Path, error) {
	return NewReader().Read(r)
}

// Read parses every line of r and returns the drawn paths in millimetres
func (rd *Reader) Read(r io.Reader) ([]motion.Path, error) {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		cmd, err := ParseLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := rd.Execute(cmd); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rd.Paths(), nil
}

// Execute applies one command
func (rd *Reader) Execute(cmd *Command) error {
	if cmd == nil {
		return nil
	}
	switch cmd.Type {
	case 'G':
		return rd.executeG(cmd)
	case 'M':
		rd.executeM(cmd)
	}
	return nil
}

func (rd *Reader) executeG(cmd *Command) error {
	switch cmd.Number {
	case 0, 1: // linear move
		rd.move(cmd)
	case 2, 3:
		return fmt.Errorf("gcode: arcs (G%d) are not supported", cmd.Number)
	case 20: // inches
		rd.scale = mmPerInch
	case 21: // millimetres
		rd.scale = 1
	case 28: // home
		rd.setPen(false)
		rd.endPath()
		rd.pos = motion.Point{}
	case 90:
		rd.absolute = true
	case 91:
		rd.absolute = false
	case 92: // set position
		rd.endPath()
		if cmd.HasParameter('X') {
			rd.pos.X = cmd.GetParameter('X', 0) * rd.scale
		}
		if cmd.HasParameter('Y') {
			rd.pos.Y = cmd.GetParameter('Y', 0) * rd.scale
		}
	}
	return nil
}

func (rd *Reader) executeM(cmd *Command) {
	switch cmd.Number {
	case 3, 4:
		rd.penCtl = true
		rd.setPen(true)
	case 5:
		rd.penCtl = true
		rd.setPen(false)
	}
}

func (rd *Reader) move(cmd *Command) {
	if cmd.HasParameter('Z') {
		rd.penCtl = true
		z := cmd.GetParameter('Z', 0) * rd.scale
		rd.setPen(z <= rd.PenDownZ)
	}
	if !cmd.HasParameter('X') && !cmd.HasParameter('Y') {
		return
	}

	target := rd.pos
	if rd.absolute {
		target.X = cmd.GetParameter('X', rd.pos.X/rd.scale) * rd.scale
		target.Y = cmd.GetParameter('Y', rd.pos.Y/rd.scale) * rd.scale
	} else {
		target.X += cmd.GetParameter('X', 0) * rd.scale
		target.Y += cmd.GetParameter('Y', 0) * rd.scale
	}

	drawing := rd.down
	if !rd.penCtl {
		drawing = cmd.Number == 1
	}
	if drawing {
		if len(rd.current) == 0 {
			rd.current = motion.Path{rd.pos}
		}
		rd.current = append(rd.current, target)
	} else {
		rd.endPath()
	}
	rd.pos = target
}

func (rd *Reader) setPen(down bool) {
	if rd.down && !down {
		rd.endPath()
	}
	rd.down = down
}

func (rd *Reader) endPath() {
	if len(rd.current) >= 2 {
		rd.paths = append(rd.paths, rd.current)
	}
	rd.current = nil
}

// Paths returns the paths read so far, including an unfinished one
func (rd *Reader) Paths() []motion.Path {
	rd.endPath()
	return rd.paths
}
