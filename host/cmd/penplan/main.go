package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mitchellh/go-homedir"

	"penplan/host/plotter"
	"penplan/host/serial"
	"penplan/motion/config"
	"penplan/motion/replan"
)

var (
	configPath = flag.String("config", "", "Config file (.toml or .json, default "+config.DefaultPath+" if present)")
	device     = flag.String("device", "", "Serial device path (overrides the config)")
	dryRun     = flag.Bool("dry-run", false, "Plan only, do not connect to the plotter")
	watchMode  = flag.Bool("watch", false, "Re-plan when the input or config changes")
	console    = flag.Bool("console", false, "Start the interactive console")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: penplan [flags] <drawing.json|drawing.gcode>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, flag.Args(), logger, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, logger *slog.Logger, in io.Reader, out io.Writer) error {
	cfgFile, cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}

	s := &session{
		cfg:     cfg,
		manager: replan.NewManager(logger),
		out:     out,
	}
	if len(args) > 0 {
		s.inputPath = args[0]
		if s.drawing, err = loadDrawing(s.inputPath); err != nil {
			return err
		}
	}

	if *watchMode {
		if s.inputPath == "" {
			return errors.New("-watch needs an input file")
		}
		return watch(ctx, s, cfgFile, logger)
	}

	if !*dryRun {
		p := plotter.NewPlotter(logger)
		if err := p.Connect(&serial.Config{
			Device:      cfg.Serial.Device,
			Baud:        cfg.Serial.Baud,
			ReadTimeout: cfg.Serial.ReadTimeoutMS,
		}); err != nil {
			return err
		}
		defer p.Close()
		s.plotter = p
		logger.Info("connected", "device", cfg.Serial.Device,
			"microstepping", microsteppingName(cfg.Device.Microstepping))
	}

	if *console {
		return runConsole(ctx, s, in)
	}

	if s.inputPath == "" {
		flag.Usage()
		return errors.New("no input file")
	}
	if err := s.execute(ctx, []string{"plan"}); err != nil {
		return err
	}
	if *dryRun {
		return nil
	}
	return s.execute(ctx, []string{"plot"})
}

// loadConfig loads path, or the default file when present, or the
// built-in defaults. It returns the file actually used ("" for defaults).
func loadConfig(path string) (string, *config.Config, error) {
	if path != "" {
		cfg, err := config.LoadFile(path)
		return path, cfg, err
	}
	cfg, err := config.LoadFile(config.DefaultPath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", config.DefaultConfig(), nil
	}
	if err != nil {
		return "", nil, err
	}
	def, _ := homedir.Expand(config.DefaultPath)
	return def, cfg, nil
}
