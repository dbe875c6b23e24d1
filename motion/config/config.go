// Package config loads and validates the plotter configuration and turns it
// into the immutable option values of the pipeline stages.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"

	"penplan/motion"
	"penplan/motion/kinematics"
	"penplan/motion/planner"
	"penplan/motion/prep"
	"penplan/motion/stepgen"
)

// DefaultPath is where the CLI looks for a configuration file
const DefaultPath = "~/.config/penplan/config.toml"

// Format is a configuration file encoding
type Format int

const (
	JSON Format = iota
	TOML
)

// DeviceConfig describes the plotter hardware
type DeviceConfig struct {
	Kinematics    string  `json:"kinematics" toml:"kinematics"`       // "corexy" or "cartesian"
	StepsPerMM    float64 `json:"steps_per_mm" toml:"steps_per_mm"`   // motor steps per millimetre
	Microstepping int     `json:"microstepping" toml:"microstepping"` // EBB EM mode, 1 (1/16) to 5 (full)
	MaxStepRate   float64 `json:"max_step_rate" toml:"max_step_rate"` // steps/s per motor
	PenServoMin   int     `json:"pen_servo_min" toml:"pen_servo_min"` // servo position at 0%
	PenServoMax   int     `json:"pen_servo_max" toml:"pen_servo_max"` // servo position at 100%
}

// PenConfig holds pen heights (percent) and actuation times (seconds)
type PenConfig struct {
	UpHeight     float64 `json:"up_height" toml:"up_height"`
	DownHeight   float64 `json:"down_height" toml:"down_height"`
	LiftDuration float64 `json:"lift_duration" toml:"lift_duration"`
	DropDuration float64 `json:"drop_duration" toml:"drop_duration"`
}

// MotionConfig holds the motion limits for one pen state in millimetres
type MotionConfig struct {
	Acceleration    float64 `json:"acceleration" toml:"acceleration"`         // mm/s^2
	MaxVelocity     float64 `json:"max_velocity" toml:"max_velocity"`         // mm/s
	CorneringFactor float64 `json:"cornering_factor" toml:"cornering_factor"` // mm
}

// PaperConfig places the drawing on the sheet
type PaperConfig struct {
	Size          string  `json:"size" toml:"size"`
	Landscape     bool    `json:"landscape" toml:"landscape"`
	MarginMM      float64 `json:"margin_mm" toml:"margin_mm"`
	FitPage       bool    `json:"fit_page" toml:"fit_page"`
	CropToMargins bool    `json:"crop_to_margins" toml:"crop_to_margins"`
	RotateDegrees float64 `json:"rotate_degrees" toml:"rotate_degrees"`
	ReturnHome    bool    `json:"return_home" toml:"return_home"`
}

// PathConfig controls path clean-up and ordering
type PathConfig struct {
	PointJoinRadius   float64  `json:"point_join_radius" toml:"point_join_radius"`
	PathJoinRadius    float64  `json:"path_join_radius" toml:"path_join_radius"`
	MinimumPathLength float64  `json:"minimum_path_length" toml:"minimum_path_length"`
	MaximumPathLength float64  `json:"maximum_path_length" toml:"maximum_path_length"` // 0 = no limit
	Sort              bool     `json:"sort" toml:"sort"`
	LayerMode         string   `json:"layer_mode" toml:"layer_mode"`                   // "all", "group", "stroke"
	Layers            []string `json:"layers" toml:"layers"`
}

// SerialConfig configures the link to the device
type SerialConfig struct {
	Device        string `json:"device" toml:"device"`
	Baud          int    `json:"baud" toml:"baud"`
	ReadTimeoutMS int    `json:"read_timeout_ms" toml:"read_timeout_ms"`
}

// StepgenConfig configures step generation
type StepgenConfig struct {
	IntervalMS int `json:"interval_ms" toml:"interval_ms"`
}

// Config is the complete plotter configuration
type Config struct {
	Device  DeviceConfig  `json:"device" toml:"device"`
	Pen     PenConfig     `json:"pen" toml:"pen"`
	PenDown MotionConfig  `json:"pen_down" toml:"pen_down"`
	PenUp   MotionConfig  `json:"pen_up" toml:"pen_up"`
	Paper   PaperConfig   `json:"paper" toml:"paper"`
	Paths   PathConfig    `json:"paths" toml:"paths"`
	Serial  SerialConfig  `json:"serial" toml:"serial"`
	Stepgen StepgenConfig `json:"stepgen" toml:"stepgen"`
}

// DefaultConfig returns the configuration of an AxiDraw-class plotter
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Kinematics:    "corexy",
			StepsPerMM:    5,
			Microstepping: 5,
			MaxStepRate:   25000,
			PenServoMin:   7500,
			PenServoMax:   28000,
		},
		Pen: PenConfig{
			UpHeight:     50,
			DownHeight:   60,
			LiftDuration: 0.12,
			DropDuration: 0.12,
		},
		PenDown: MotionConfig{
			Acceleration:    200,
			MaxVelocity:     50,
			CorneringFactor: 0.127,
		},
		PenUp: MotionConfig{
			Acceleration: 400,
			MaxVelocity:  200,
		},
		Paper: PaperConfig{
			Size:          "ArchA",
			Landscape:     true,
			MarginMM:      20,
			FitPage:       true,
			CropToMargins: true,
			ReturnHome:    true,
		},
		Paths: PathConfig{
			PathJoinRadius: 0.5,
			Sort:           true,
			LayerMode:      string(prep.LayerAll),
		},
		Serial: SerialConfig{
			Device:        "/dev/ttyACM0",
			Baud:          9600,
			ReadTimeoutMS: 1000,
		},
		Stepgen: StepgenConfig{
			IntervalMS: 15,
		},
	}
}

// LoadConfig parses data over the defaults and validates the result
func LoadConfig(data []byte, format Format) (*Config, error) {
	cfg := DefaultConfig()

	switch format {
	case TOML:
		dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parsing TOML config: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a configuration file; the format follows the extension
// (.toml, otherwise JSON). A leading ~ is expanded.
func LoadFile(path string) (*Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expanding %s: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, err
	}
	format := JSON
	if strings.EqualFold(filepath.Ext(expanded), ".toml") {
		format = TOML
	}
	cfg, err := LoadConfig(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", expanded, err)
	}
	return cfg, nil
}

// applyDefaults fills in values a file may leave empty
func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Device.Kinematics == "" {
		cfg.Device.Kinematics = def.Device.Kinematics
	}
	if cfg.Device.Microstepping == 0 {
		cfg.Device.Microstepping = def.Device.Microstepping
	}
	if cfg.Paper.Size == "" {
		cfg.Paper.Size = def.Paper.Size
	}
	if cfg.Paths.LayerMode == "" {
		cfg.Paths.LayerMode = def.Paths.LayerMode
	}
	if cfg.Stepgen.IntervalMS == 0 {
		cfg.Stepgen.IntervalMS = def.Stepgen.IntervalMS
	}
	if cfg.Serial.ReadTimeoutMS == 0 {
		cfg.Serial.ReadTimeoutMS = def.Serial.ReadTimeoutMS
	}
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if !(v > 0) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %g", name, v))
		}
	}
	nonNegative := func(name string, v float64) {
		if !(v >= 0) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %g", name, v))
		}
	}
	percent := func(name string, v float64) {
		if !(v >= 0 && v <= 100) {
			errs = append(errs, fmt.Errorf("%s must be within 0..100, got %g", name, v))
		}
	}

	if _, err := kinematics.New(c.Device.Kinematics); err != nil {
		errs = append(errs, fmt.Errorf("device.kinematics: %w", err))
	}
	positive("device.steps_per_mm", c.Device.StepsPerMM)
	nonNegative("device.max_step_rate", c.Device.MaxStepRate)
	if c.Device.Microstepping < 1 || c.Device.Microstepping > 5 {
		errs = append(errs, fmt.Errorf("device.microstepping must be within 1..5, got %d", c.Device.Microstepping))
	}

	percent("pen.up_height", c.Pen.UpHeight)
	percent("pen.down_height", c.Pen.DownHeight)
	nonNegative("pen.lift_duration", c.Pen.LiftDuration)
	nonNegative("pen.drop_duration", c.Pen.DropDuration)

	positive("pen_down.acceleration", c.PenDown.Acceleration)
	positive("pen_down.max_velocity", c.PenDown.MaxVelocity)
	nonNegative("pen_down.cornering_factor", c.PenDown.CorneringFactor)
	positive("pen_up.acceleration", c.PenUp.Acceleration)
	positive("pen_up.max_velocity", c.PenUp.MaxVelocity)

	if _, err := prep.LookupPaper(c.Paper.Size); err != nil {
		errs = append(errs, fmt.Errorf("paper.size: %w", err))
	}
	nonNegative("paper.margin_mm", c.Paper.MarginMM)

	nonNegative("paths.point_join_radius", c.Paths.PointJoinRadius)
	nonNegative("paths.path_join_radius", c.Paths.PathJoinRadius)
	nonNegative("paths.minimum_path_length", c.Paths.MinimumPathLength)
	nonNegative("paths.maximum_path_length", c.Paths.MaximumPathLength)
	if c.Paths.MaximumPathLength > 0 && c.Paths.MaximumPathLength < c.Paths.MinimumPathLength {
		errs = append(errs, fmt.Errorf("paths.maximum_path_length %g is below minimum_path_length %g",
			c.Paths.MaximumPathLength, c.Paths.MinimumPathLength))
	}
	switch prep.LayerMode(c.Paths.LayerMode) {
	case prep.LayerAll, prep.LayerGroup, prep.LayerStroke:
	default:
		errs = append(errs, fmt.Errorf("paths.layer_mode must be all, group or stroke, got %q", c.Paths.LayerMode))
	}

	if c.Stepgen.IntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("stepgen.interval_ms must be > 0, got %d", c.Stepgen.IntervalMS))
	}
	return errors.Join(errs...)
}

// PenPosition converts a pen height in percent to a servo position
func (d DeviceConfig) PenPosition(pct float64) int {
	t := pct / 100
	return int(math.Round(float64(d.PenServoMin) + t*float64(d.PenServoMax-d.PenServoMin)))
}

// Profile converts a millimetre motion config to a step profile
func (m MotionConfig) Profile(stepsPerMM float64) motion.MotionProfile {
	return motion.MotionProfile{
		Acceleration:    m.Acceleration * stepsPerMM,
		MaximumVelocity: m.MaxVelocity * stepsPerMM,
		CorneringFactor: m.CorneringFactor * stepsPerMM,
	}
}

// PlannerOptions returns the planner options in steps. Travel moves never
// corner.
func (c *Config) PlannerOptions() planner.Options {
	up := c.PenUp.Profile(c.Device.StepsPerMM)
	up.CorneringFactor = 0

	opts := planner.Options{
		PenDownProfile:  c.PenDown.Profile(c.Device.StepsPerMM),
		PenUpProfile:    up,
		PenDropDuration: c.Pen.DropDuration,
		PenLiftDuration: c.Pen.LiftDuration,
		PenUpPos:        c.Device.PenPosition(c.Pen.UpHeight),
		PenDownPos:      c.Device.PenPosition(c.Pen.DownHeight),
	}
	if c.Paper.ReturnHome {
		opts.Home = &motion.Point{}
	}
	return opts
}

// PaperSize returns the configured sheet in the configured orientation
func (c *Config) PaperSize() (prep.PaperSize, error) {
	paper, err := prep.LookupPaper(c.Paper.Size)
	if err != nil {
		return prep.PaperSize{}, err
	}
	if c.Paper.Landscape {
		return paper.Landscape(), nil
	}
	return paper.Portrait(), nil
}

// PrepOptions returns the preprocessing options
func (c *Config) PrepOptions() (prep.Options, error) {
	paper, err := c.PaperSize()
	if err != nil {
		return prep.Options{}, err
	}
	layers := make(map[string]bool, len(c.Paths.Layers))
	for _, l := range c.Paths.Layers {
		layers[l] = true
	}
	return prep.Options{
		Paper:             paper,
		MarginMM:          c.Paper.MarginMM,
		FitPage:           c.Paper.FitPage,
		CropToMargins:     c.Paper.CropToMargins,
		RotateDegrees:     c.Paper.RotateDegrees,
		LayerMode:         prep.LayerMode(c.Paths.LayerMode),
		Layers:            layers,
		PointJoinRadius:   c.Paths.PointJoinRadius,
		PathJoinRadius:    c.Paths.PathJoinRadius,
		MinimumPathLength: c.Paths.MinimumPathLength,
		MaximumPathLength: c.Paths.MaximumPathLength,
		Sort:              c.Paths.Sort,
		StepsPerMM:        c.Device.StepsPerMM,
	}, nil
}

// StepgenConfig returns the step generation settings
func (c *Config) StepgenConfig() (stepgen.Config, error) {
	kin, err := kinematics.New(c.Device.Kinematics)
	if err != nil {
		return stepgen.Config{}, err
	}
	return stepgen.Config{
		Interval:    time.Duration(c.Stepgen.IntervalMS) * time.Millisecond,
		Kinematics:  kin,
		MaxStepRate: c.Device.MaxStepRate,
	}, nil
}
