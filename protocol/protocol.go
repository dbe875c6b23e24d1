// Package protocol implements the EiBotBoard (EBB) ASCII command set used by
// AxiDraw-class pen plotters.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Protocol constants
const (
	Terminator = '\r' // ends every command
	ReplyOK    = "OK"

	// SM duration limits in milliseconds
	MoveDurationMin = 1
	MoveDurationMax = 1<<24 - 1

	// Servo position limits for SC,4 / SC,5
	ServoMin = 1
	ServoMax = 65535
)

// Motor modes for EM
const (
	MotorsOff   = 0
	Microstep16 = 1
	Microstep8  = 2
	Microstep4  = 3
	Microstep2  = 4
	FullStep    = 5
)

// ErrInvalidCommand is returned by Encode for out-of-range arguments
var ErrInvalidCommand = errors.New("invalid command")

// Command is one EBB command. Query commands answer with a data line
// instead of OK.
type Command struct {
	Name  string
	Args  []int
	Query bool
}

// String returns the command without its terminator
func (c Command) String() string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	for _, a := range c.Args {
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(a))
	}
	return sb.String()
}

// Encode validates c and returns its wire bytes
func (c Command) Encode() ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return append([]byte(c.String()), Terminator), nil
}

func (c Command) validate() error {
	switch c.Name {
	case "SM":
		if len(c.Args) != 3 {
			break
		}
		if d := c.Args[0]; d < MoveDurationMin || d > MoveDurationMax {
			return fmt.Errorf("%w: SM duration %d ms", ErrInvalidCommand, d)
		}
		return nil
	case "SC":
		if len(c.Args) != 2 {
			break
		}
		if p := c.Args[1]; p < ServoMin || p > ServoMax {
			return fmt.Errorf("%w: servo position %d", ErrInvalidCommand, p)
		}
		return nil
	case "SP":
		if len(c.Args) == 2 && (c.Args[0] == 0 || c.Args[0] == 1) && c.Args[1] >= 0 {
			return nil
		}
	case "EM":
		if len(c.Args) == 2 && inMotorRange(c.Args[0]) && inMotorRange(c.Args[1]) {
			return nil
		}
	case "QM", "V", "R":
		if len(c.Args) == 0 {
			return nil
		}
	default:
		return fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, c.Name)
	}
	return fmt.Errorf("%w: %s", ErrInvalidCommand, c)
}

func inMotorRange(m int) bool {
	return m >= MotorsOff && m <= FullStep
}

// StepperMove moves both motors by the given steps over durationMS
func StepperMove(durationMS, steps1, steps2 int) Command {
	return Command{Name: "SM", Args: []int{durationMS, steps1, steps2}}
}

// SetPen raises or lowers the pen, then waits delayMS before the next command
func SetPen(up bool, delayMS int) Command {
	state := 0
	if up {
		state = 1
	}
	return Command{Name: "SP", Args: []int{state, delayMS}}
}

// ServoUpPosition sets the servo position used for pen up
func ServoUpPosition(pos int) Command {
	return Command{Name: "SC", Args: []int{4, pos}}
}

// ServoDownPosition sets the servo position used for pen down
func ServoDownPosition(pos int) Command {
	return Command{Name: "SC", Args: []int{5, pos}}
}

// EnableMotors sets the mode of both motors (MotorsOff disables them)
func EnableMotors(mode1, mode2 int) Command {
	return Command{Name: "EM", Args: []int{mode1, mode2}}
}

// QueryMotors asks whether a command or either motor is still busy
func QueryMotors() Command {
	return Command{Name: "QM", Query: true}
}

// Version asks for the firmware version string
func Version() Command {
	return Command{Name: "V", Query: true}
}

// Reset resets the board to its power-on state
func Reset() Command {
	return Command{Name: "R"}
}

// MotorStatus is the decoded QM reply
type MotorStatus struct {
	CommandBusy bool
	Motor1Busy  bool
	Motor2Busy  bool
	FIFOBusy    bool
}

// Idle reports whether nothing is executing or queued
func (s MotorStatus) Idle() bool {
	return !s.CommandBusy && !s.Motor1Busy && !s.Motor2Busy && !s.FIFOBusy
}

// ParseMotorStatus decodes "QM,c,m1,m2[,fifo]"
func ParseMotorStatus(reply string) (MotorStatus, error) {
	fields := strings.Split(strings.TrimSpace(reply), ",")
	if len(fields) < 4 || fields[0] != "QM" {
		return MotorStatus{}, fmt.Errorf("malformed QM reply %q", reply)
	}
	flags := make([]bool, 4)
	for i, f := range fields[1:] {
		if i >= len(flags) {
			break
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return MotorStatus{}, fmt.Errorf("malformed QM reply %q: %w", reply, err)
		}
		flags[i] = v != 0
	}
	return MotorStatus{
		CommandBusy: flags[0],
		Motor1Busy:  flags[1],
		Motor2Busy:  flags[2],
		FIFOBusy:    flags[3],
	}, nil
}

// DeviceError is an error reply from the board
type DeviceError struct {
	Command string
	Reply   string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device rejected %s: %s", e.Command, e.Reply)
}
