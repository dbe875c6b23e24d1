// Package plotter drives an EBB-based pen plotter: it owns the serial link
// and streams stepgen commands to the board.
package plotter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"penplan/host/serial"
	"penplan/motion/planner"
	"penplan/motion/stepgen"
	"penplan/protocol"
)

// ErrNotConnected is returned by every operation before Connect
var ErrNotConnected = errors.New("not connected to plotter")

// Progress is called after each command sent by Execute
type Progress func(done, total int)

// Plotter represents a connection to the board
type Plotter struct {
	transport *protocol.Transport
	port      serial.Port
	logger    *slog.Logger

	connected bool
}

// NewPlotter creates a plotter (not yet connected). logger may be nil.
func NewPlotter(logger *slog.Logger) *Plotter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Plotter{logger: logger}
}

// Connect opens the serial device
func (p *Plotter) Connect(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	return p.Attach(port)
}

// Attach uses an already open port
func (p *Plotter) Attach(port serial.Port) error {
	if err := port.Flush(); err != nil {
		return fmt.Errorf("flushing port: %w", err)
	}
	p.port = port
	p.transport = protocol.NewTransport(port)
	p.connected = true
	p.logger.Debug("plotter attached")
	return nil
}

// Close closes the connection
func (p *Plotter) Close() error {
	if p.transport != nil {
		if err := p.transport.Close(); err != nil {
			return err
		}
	}
	p.connected = false
	return nil
}

// IsConnected returns whether the plotter is connected
func (p *Plotter) IsConnected() bool {
	return p.connected
}

func (p *Plotter) send(ctx context.Context, cmd protocol.Command) (string, error) {
	if !p.connected {
		return "", ErrNotConnected
	}
	p.logger.Debug("send", "cmd", cmd.String())
	return p.transport.Send(ctx, cmd)
}

// Version returns the firmware version string
func (p *Plotter) Version(ctx context.Context) (string, error) {
	return p.send(ctx, protocol.Version())
}

// EnableMotors energises both motors in the given EM mode
func (p *Plotter) EnableMotors(ctx context.Context, mode int) error {
	_, err := p.send(ctx, protocol.EnableMotors(mode, mode))
	return err
}

// DisableMotors releases both motors
func (p *Plotter) DisableMotors(ctx context.Context) error {
	_, err := p.send(ctx, protocol.EnableMotors(protocol.MotorsOff, protocol.MotorsOff))
	return err
}

// ConfigurePen stores the servo positions for pen up and pen down
func (p *Plotter) ConfigurePen(ctx context.Context, upPos, downPos int) error {
	if _, err := p.send(ctx, protocol.ServoUpPosition(upPos)); err != nil {
		return err
	}
	_, err := p.send(ctx, protocol.ServoDownPosition(downPos))
	return err
}

// PenUp raises the pen and waits delay
func (p *Plotter) PenUp(ctx context.Context, delay time.Duration) error {
	_, err := p.send(ctx, protocol.SetPen(true, int(delay.Milliseconds())))
	return err
}

// PenDown lowers the pen and waits delay
func (p *Plotter) PenDown(ctx context.Context, delay time.Duration) error {
	_, err := p.send(ctx, protocol.SetPen(false, int(delay.Milliseconds())))
	return err
}

// Status queries the motor state
func (p *Plotter) Status(ctx context.Context) (protocol.MotorStatus, error) {
	reply, err := p.send(ctx, protocol.QueryMotors())
	if err != nil {
		return protocol.MotorStatus{}, err
	}
	return protocol.ParseMotorStatus(reply)
}

// Execute converts plan to device commands and streams them. When ctx is
// cancelled the pen is lifted and ctx.Err() returned.
func (p *Plotter) Execute(ctx context.Context, plan *planner.Plan, cfg stepgen.Config, progress Progress) error {
	if !p.connected {
		return ErrNotConnected
	}
	cmds, err := stepgen.Generate(plan, cfg)
	if err != nil {
		return fmt.Errorf("generating steps: %w", err)
	}

	p.logger.Info("plotting", "commands", len(cmds), "duration_ms", stepgen.TotalDuration(cmds))
	for i, c := range cmds {
		if err := ctx.Err(); err != nil {
			p.abort()
			return err
		}
		if err := p.sendCommand(ctx, c); err != nil {
			if ctx.Err() != nil {
				p.abort()
				return ctx.Err()
			}
			return fmt.Errorf("command %d: %w", i, err)
		}
		if progress != nil {
			progress(i+1, len(cmds))
		}
	}
	return nil
}

func (p *Plotter) sendCommand(ctx context.Context, c stepgen.Command) error {
	var cmd protocol.Command
	switch c := c.(type) {
	case stepgen.Move:
		cmd = protocol.StepperMove(c.DurationMS, c.Steps[0], c.Steps[1])
	case stepgen.PenMove:
		cmd = protocol.SetPen(c.Up, c.DurationMS)
	default:
		return fmt.Errorf("unsupported command %T", c)
	}
	_, err := p.send(ctx, cmd)
	return err
}

// abort lifts the pen on a fresh context
func (p *Plotter) abort() {
	ctx, cancel := context.WithTimeout(context.Background(), protocol.DefaultTimeout)
	defer cancel()
	if err := p.PenUp(ctx, 0); err != nil {
		p.logger.Warn("lifting pen after cancel failed", "err", err)
		return
	}
	p.logger.Info("plot cancelled, pen lifted")
}
