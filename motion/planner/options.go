package planner

import (
	"fmt"
	"math"

	"penplan/motion"
)

// Options is the validated, immutable input of a planning call
type Options struct {
	PenDownProfile motion.MotionProfile
	PenUpProfile   motion.MotionProfile

	PenDropDuration float64 // seconds
	PenLiftDuration float64 // seconds

	// Actuator targets attached to pen events, passed through uninterpreted
	PenUpPos   int
	PenDownPos int

	// Home, when set, adds pen-up travel from Home to the first stroke and
	// back to Home after the last one.
	Home *motion.Point
}

// ConfigError reports an option that cannot drive the planner
type ConfigError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("planner: invalid %s = %g: %s", e.Field, e.Value, e.Reason)
}

// Validate returns a *ConfigError for the first invalid option
func (o Options) Validate() error {
	if err := validateProfile("penDownProfile", o.PenDownProfile); err != nil {
		return err
	}
	if err := validateProfile("penUpProfile", o.PenUpProfile); err != nil {
		return err
	}
	if !(o.PenDropDuration >= 0) || math.IsInf(o.PenDropDuration, 0) {
		return &ConfigError{Field: "penDropDuration", Value: o.PenDropDuration, Reason: "must be a finite value >= 0"}
	}
	if !(o.PenLiftDuration >= 0) || math.IsInf(o.PenLiftDuration, 0) {
		return &ConfigError{Field: "penLiftDuration", Value: o.PenLiftDuration, Reason: "must be a finite value >= 0"}
	}
	if o.Home != nil {
		for _, v := range []float64{o.Home.X, o.Home.Y} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &ConfigError{Field: "home", Value: v, Reason: "must be a finite point"}
			}
		}
	}
	return nil
}

func validateProfile(name string, p motion.MotionProfile) error {
	if !(p.Acceleration > 0) || math.IsInf(p.Acceleration, 0) {
		return &ConfigError{Field: name + ".acceleration", Value: p.Acceleration, Reason: "must be > 0"}
	}
	if !(p.MaximumVelocity > 0) || math.IsInf(p.MaximumVelocity, 0) {
		return &ConfigError{Field: name + ".maximumVelocity", Value: p.MaximumVelocity, Reason: "must be > 0"}
	}
	if !(p.CorneringFactor >= 0) || math.IsInf(p.CorneringFactor, 0) {
		return &ConfigError{Field: name + ".corneringFactor", Value: p.CorneringFactor, Reason: "must be >= 0"}
	}
	return nil
}

// profile returns the motion profile used for a pen state
func (o Options) profile(pen motion.PenState) motion.MotionProfile {
	if pen == motion.PenDown {
		return o.PenDownProfile
	}
	return o.PenUpProfile
}
