package plotter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penplan/host/serial"
	"penplan/motion"
	"penplan/motion/kinematics"
	"penplan/motion/planner"
	"penplan/motion/stepgen"
	"penplan/protocol"
)

func attached(t *testing.T, respond serial.Responder) (*Plotter, *serial.MockPort) {
	t.Helper()
	port := serial.NewMockPort(respond)
	p := NewPlotter(nil)
	require.NoError(t, p.Attach(port))
	t.Cleanup(func() { _ = p.Close() })
	return p, port
}

func squarePlan(t *testing.T) *planner.Plan {
	t.Helper()
	plan, err := planner.PlanPaths(context.Background(), []motion.Path{
		{{X: 0, Y: 0}, {X: 200, Y: 0}, {X: 200, Y: 200}, {X: 0, Y: 200}, {X: 0, Y: 0}},
	}, planner.Options{
		PenDownProfile:  motion.MotionProfile{Acceleration: 1000, MaximumVelocity: 250, CorneringFactor: 0.635},
		PenUpProfile:    motion.MotionProfile{Acceleration: 2000, MaximumVelocity: 1000},
		PenDropDuration: 0.12,
		PenLiftDuration: 0.12,
		PenUpPos:        17750,
		PenDownPos:      19800,
		Home:            &motion.Point{X: 0, Y: 0},
	})
	require.NoError(t, err)
	return plan
}

func TestNotConnected(t *testing.T) {
	p := NewPlotter(nil)
	_, err := p.Version(context.Background())
	assert.True(t, errors.Is(err, ErrNotConnected))
	assert.False(t, p.IsConnected())
}

func TestBasicCommands(t *testing.T) {
	p, port := attached(t, nil)
	ctx := context.Background()

	v, err := p.Version(ctx)
	require.NoError(t, err)
	assert.Contains(t, v, "Firmware Version")

	require.NoError(t, p.EnableMotors(ctx, protocol.FullStep))
	require.NoError(t, p.ConfigurePen(ctx, 17750, 19800))
	require.NoError(t, p.PenDown(ctx, 120*time.Millisecond))
	require.NoError(t, p.PenUp(ctx, 120*time.Millisecond))
	require.NoError(t, p.DisableMotors(ctx))

	status, err := p.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Idle())

	assert.Equal(t, []string{
		"V", "EM,5,5", "SC,4,17750", "SC,5,19800", "SP,0,120", "SP,1,120", "EM,0,0", "QM",
	}, port.Commands())
}

func TestExecute(t *testing.T) {
	p, port := attached(t, nil)
	plan := squarePlan(t)
	cfg := stepgen.Config{Kinematics: kinematics.CoreXY{}}

	want, err := stepgen.Generate(plan, cfg)
	require.NoError(t, err)

	var calls, total int
	err = p.Execute(context.Background(), plan, cfg, func(done, n int) {
		calls = done
		total = n
	})
	require.NoError(t, err)
	assert.Equal(t, len(want), calls)
	assert.Equal(t, len(want), total)

	cmds := port.Commands()
	require.Len(t, cmds, len(want))

	var m1, m2, pens int
	for _, c := range cmds {
		switch {
		case strings.HasPrefix(c, "SM,"):
			var d, a, b int
			_, err := fmt.Sscanf(c, "SM,%d,%d,%d", &d, &a, &b)
			require.NoError(t, err, c)
			m1 += a
			m2 += b
		case strings.HasPrefix(c, "SP,"):
			pens++
		default:
			t.Errorf("unexpected command %q", c)
		}
	}
	assert.Equal(t, 0, m1, "plan returns home")
	assert.Equal(t, 0, m2, "plan returns home")
	assert.Equal(t, 2, pens)
	assert.Equal(t, "SP,1,120", cmds[len(cmds)-1], "ends with a lift")
}

func TestExecuteCancelLiftsPen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sent := 0
	p, port := attached(t, func(cmd string) string {
		sent++
		if sent == 5 {
			cancel()
		}
		return "OK\r\n"
	})

	err := p.Execute(ctx, squarePlan(t), stepgen.Config{}, nil)
	assert.True(t, errors.Is(err, context.Canceled))

	cmds := port.Commands()
	require.NotEmpty(t, cmds)
	assert.Equal(t, "SP,1,0", cmds[len(cmds)-1])
	assert.Less(t, len(cmds), 20)
}

func TestExecuteDeviceError(t *testing.T) {
	p, _ := attached(t, func(cmd string) string {
		if strings.HasPrefix(cmd, "SM") {
			return "!8 Err: Unknown command\r\n"
		}
		return "OK\r\n"
	})

	err := p.Execute(context.Background(), squarePlan(t), stepgen.Config{}, nil)
	var devErr *protocol.DeviceError
	assert.True(t, errors.As(err, &devErr))
}

