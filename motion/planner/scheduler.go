package planner

import (
	"errors"
	"fmt"

	"penplan/motion"
)

// ErrPenSequence is returned when a motion would violate the pen state machine
var ErrPenSequence = errors.New("pen sequence violated")

// scheduler sequences blocks and pen events. The pen starts UP, goes DOWN
// only through a drop right before a pen-down run and UP only through a
// lift right after one.
type scheduler struct {
	state   motion.PenState
	opts    *Options
	motions []Motion
}

func newScheduler(opts *Options, capacity int) *scheduler {
	return &scheduler{
		state:   motion.PenUp,
		opts:    opts,
		motions: make([]Motion, 0, capacity),
	}
}

// block appends a block; its pen state must match the current state
func (s *scheduler) block(b Block) error {
	if b.Pen != s.state {
		return fmt.Errorf("%w: pen-%s block while pen is %s", ErrPenSequence, b.Pen, s.state)
	}
	s.motions = append(s.motions, b)
	return nil
}

// drop lowers the pen at pos
func (s *scheduler) drop(pos motion.Point) error {
	if s.state != motion.PenUp {
		return fmt.Errorf("%w: drop while pen is %s", ErrPenSequence, s.state)
	}
	s.motions = append(s.motions, PenEvent{
		Direction: Drop,
		Position:  pos,
		From:      s.opts.PenUpPos,
		To:        s.opts.PenDownPos,
		Duration:  s.opts.PenDropDuration,
	})
	s.state = motion.PenDown
	return nil
}

// lift raises the pen at pos
func (s *scheduler) lift(pos motion.Point) error {
	if s.state != motion.PenDown {
		return fmt.Errorf("%w: lift while pen is %s", ErrPenSequence, s.state)
	}
	s.motions = append(s.motions, PenEvent{
		Direction: Lift,
		Position:  pos,
		From:      s.opts.PenDownPos,
		To:        s.opts.PenUpPos,
		Duration:  s.opts.PenLiftDuration,
	})
	s.state = motion.PenUp
	return nil
}

// finish leaves the pen UP and returns the completed plan
func (s *scheduler) finish(last motion.Point) (*Plan, error) {
	if s.state == motion.PenDown {
		if err := s.lift(last); err != nil {
			return nil, err
		}
	}
	return &Plan{motions: s.motions}, nil
}
