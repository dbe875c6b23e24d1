package kinematics

import (
	"errors"
	"fmt"

	"penplan/motion"
)

// Kinematics maps planner XY positions (steps) onto motor positions (steps)
type Kinematics interface {
	// CalcPosition converts an XY position to the two motor positions
	CalcPosition(pos motion.Point) [2]float64

	// Name returns the configuration name of the kinematics
	Name() string
}

// ErrUnknownKinematics is returned by New for an unsupported name
var ErrUnknownKinematics = errors.New("unknown kinematics")

// New returns the kinematics registered under name
func New(name string) (Kinematics, error) {
	switch name {
	case "cartesian", "":
		return Cartesian{}, nil
	case "corexy":
		return CoreXY{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKinematics, name)
	}
}

// Cartesian drives one motor per axis (1:1 mapping)
type Cartesian struct{}

// CalcPosition returns X and Y unchanged
func (Cartesian) CalcPosition(pos motion.Point) [2]float64 {
	return [2]float64{pos.X, pos.Y}
}

// Name returns "cartesian"
func (Cartesian) Name() string { return "cartesian" }

// CoreXY mixes both motors for each axis, as on the AxiDraw:
// motor1 = x + y, motor2 = x - y.
type CoreXY struct{}

// CalcPosition returns the mixed motor positions
func (CoreXY) CalcPosition(pos motion.Point) [2]float64 {
	return [2]float64{pos.X + pos.Y, pos.X - pos.Y}
}

// Name returns "corexy"
func (CoreXY) Name() string { return "corexy" }
