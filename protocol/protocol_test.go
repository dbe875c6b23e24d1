package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{StepperMove(15, 3, -2), "SM,15,3,-2\r"},
		{SetPen(true, 120), "SP,1,120\r"},
		{SetPen(false, 0), "SP,0,0\r"},
		{ServoUpPosition(17750), "SC,4,17750\r"},
		{ServoDownPosition(19800), "SC,5,19800\r"},
		{EnableMotors(FullStep, FullStep), "EM,5,5\r"},
		{EnableMotors(MotorsOff, MotorsOff), "EM,0,0\r"},
		{QueryMotors(), "QM\r"},
		{Version(), "V\r"},
		{Reset(), "R\r"},
	}

	for _, tt := range tests {
		got, err := tt.cmd.Encode()
		require.NoError(t, err, tt.want)
		if string(got) != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestEncodeInvalid(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{"zero duration", StepperMove(0, 1, 1)},
		{"duration overflow", StepperMove(MoveDurationMax+1, 1, 1)},
		{"servo zero", ServoUpPosition(0)},
		{"servo overflow", ServoDownPosition(70000)},
		{"motor mode", EnableMotors(6, 1)},
		{"negative pen delay", SetPen(true, -1)},
		{"unknown", Command{Name: "XX"}},
		{"missing args", Command{Name: "SM", Args: []int{1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cmd.Encode()
			assert.True(t, errors.Is(err, ErrInvalidCommand), "got %v", err)
		})
	}
}

func TestParseMotorStatus(t *testing.T) {
	s, err := ParseMotorStatus("QM,0,0,0,0")
	require.NoError(t, err)
	assert.True(t, s.Idle())

	s, err = ParseMotorStatus("QM,1,0,1,0")
	require.NoError(t, err)
	assert.False(t, s.Idle())
	assert.True(t, s.CommandBusy)
	assert.True(t, s.Motor2Busy)

	_, err = ParseMotorStatus("OK")
	assert.Error(t, err)
	_, err = ParseMotorStatus("QM,a,0,0")
	assert.Error(t, err)
}
