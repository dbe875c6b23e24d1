package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/shlex"

	"penplan/host/plotter"
	"penplan/motion/config"
	"penplan/motion/planner"
	"penplan/motion/prep"
	"penplan/motion/replan"
	"penplan/protocol"
)

// session is the state shared by console commands
type session struct {
	cfg       *config.Config
	inputPath string
	drawing   prep.Drawing
	plan      *planner.Plan

	plotter *plotter.Plotter // nil in dry-run mode
	manager *replan.Manager
	out     io.Writer
}

// errQuit ends the console loop
var errQuit = errors.New("quit")

// runConsole reads commands from in until EOF or quit
func runConsole(ctx context.Context, s *session, in io.Reader) error {
	fmt.Fprintln(s.out, "Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			break
		}

		args, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		if err := s.execute(ctx, args); err != nil {
			if errors.Is(err, errQuit) {
				fmt.Fprintln(s.out, "Goodbye!")
				return nil
			}
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
	return scanner.Err()
}

// execute runs one tokenised console command
func (s *session) execute(ctx context.Context, args []string) error {
	switch cmd := args[0]; cmd {
	case "quit", "exit", "q":
		return errQuit

	case "help", "?":
		s.printHelp()

	case "load":
		if len(args) != 2 {
			return fmt.Errorf("usage: load <file>")
		}
		d, err := loadDrawing(args[1])
		if err != nil {
			return err
		}
		s.inputPath, s.drawing, s.plan = args[1], d, nil
		fmt.Fprintf(s.out, "Loaded %d paths from %s\n", len(d.Paths), args[1])

	case "plan":
		if err := s.replan(ctx); err != nil {
			return err
		}
		fmt.Fprintln(s.out, s.plan.Summary())

	case "plot":
		if s.plotter == nil {
			return errDryRun
		}
		return s.plotPlan(ctx)

	case "pen":
		if len(args) != 2 {
			return fmt.Errorf("usage: pen up|down")
		}
		if s.plotter == nil {
			return errDryRun
		}
		switch args[1] {
		case "up":
			return s.plotter.PenUp(ctx, seconds(s.cfg.Pen.LiftDuration))
		case "down":
			return s.plotter.PenDown(ctx, seconds(s.cfg.Pen.DropDuration))
		default:
			return fmt.Errorf("usage: pen up|down")
		}

	case "motors":
		if len(args) != 2 {
			return fmt.Errorf("usage: motors on|off")
		}
		if s.plotter == nil {
			return errDryRun
		}
		switch args[1] {
		case "on":
			return s.plotter.EnableMotors(ctx, s.cfg.Device.Microstepping)
		case "off":
			return s.plotter.DisableMotors(ctx)
		default:
			return fmt.Errorf("usage: motors on|off")
		}

	case "version":
		if s.plotter == nil {
			return errDryRun
		}
		v, err := s.plotter.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, v)

	case "layers":
		names := prep.Layers(s.drawing.Paths, s.drawing.Tags, prep.LayerMode(s.cfg.Paths.LayerMode))
		if len(names) == 0 {
			fmt.Fprintln(s.out, "No layers")
		}
		for _, n := range names {
			fmt.Fprintf(s.out, "  %s\n", n)
		}

	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
	return nil
}

var errDryRun = errors.New("not connected (dry run)")

// replan recomputes the plan for the current drawing
func (s *session) replan(ctx context.Context) error {
	plan, err := s.manager.Replan(ctx, s.drawing, s.cfg)
	if err != nil {
		return err
	}
	s.plan = plan
	return nil
}

// plotPlan plans if needed, configures the pen and runs the plan
func (s *session) plotPlan(ctx context.Context) error {
	if s.plan == nil {
		if err := s.replan(ctx); err != nil {
			return err
		}
	}
	sc, err := s.cfg.StepgenConfig()
	if err != nil {
		return err
	}
	opts := s.cfg.PlannerOptions()
	if err := s.plotter.EnableMotors(ctx, s.cfg.Device.Microstepping); err != nil {
		return err
	}
	if err := s.plotter.ConfigurePen(ctx, opts.PenUpPos, opts.PenDownPos); err != nil {
		return err
	}

	last := -1
	err = s.plotter.Execute(ctx, s.plan, sc, func(done, total int) {
		pct := done * 100 / total
		if pct/10 != last/10 {
			fmt.Fprintf(s.out, "  %d%% (%d/%d)\n", pct, done, total)
			last = pct
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Plot complete")
	return s.plotter.DisableMotors(ctx)
}

func seconds(v float64) time.Duration {
	return time.Duration(math.Round(v*1000)) * time.Millisecond
}

func (s *session) printHelp() {
	fmt.Fprintln(s.out, "\nAvailable commands:")
	fmt.Fprintln(s.out, "  help           - Show this help message")
	fmt.Fprintln(s.out, "  load <file>    - Load a .json or .gcode drawing")
	fmt.Fprintln(s.out, "  plan           - Plan the drawing and print a summary")
	fmt.Fprintln(s.out, "  plot           - Plot the current plan")
	fmt.Fprintln(s.out, "  layers         - List the drawing's layers")
	fmt.Fprintln(s.out, "  pen up|down    - Raise or lower the pen")
	fmt.Fprintln(s.out, "  motors on|off  - Enable or release the motors")
	fmt.Fprintln(s.out, "  version        - Print the firmware version")
	fmt.Fprintln(s.out, "  quit/exit/q    - Exit the program")
	fmt.Fprintln(s.out)
}

// microsteppingName is used in the startup banner
func microsteppingName(mode int) string {
	switch mode {
	case protocol.Microstep16:
		return "1/16"
	case protocol.Microstep8:
		return "1/8"
	case protocol.Microstep4:
		return "1/4"
	case protocol.Microstep2:
		return "1/2"
	case protocol.FullStep:
		return "full"
	default:
		return "off"
	}
}
