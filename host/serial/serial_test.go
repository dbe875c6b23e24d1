package serial

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	if cfg.Device != "/dev/ttyACM0" {
		t.Errorf("Expected device /dev/ttyACM0, got %s", cfg.Device)
	}
	if cfg.Baud != 9600 {
		t.Errorf("Expected baud 9600, got %d", cfg.Baud)
	}
}

func TestMockPortReplies(t *testing.T) {
	p := NewMockPort(nil)

	_, err := p.Write([]byte("EM,1,1\rV\r"))
	require.NoError(t, err)
	assert.Equal(t, []string{"EM,1,1", "V"}, p.Commands())

	buf := make([]byte, 128)
	n, err := p.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "OK\r\nEBBv13_and_above EB Firmware Version 2.8.1\r\n", string(buf[:n]))
}

func TestMockPortPartialCommand(t *testing.T) {
	p := NewMockPort(nil)
	_, _ = p.Write([]byte("SP,1"))
	assert.Empty(t, p.Commands())
	_, _ = p.Write([]byte(",100\r"))
	assert.Equal(t, []string{"SP,1,100"}, p.Commands())
}

func TestMockPortClose(t *testing.T) {
	p := NewMockPort(nil)
	done := make(chan error, 1)
	go func() {
		_, err := p.Read(make([]byte, 8))
		done <- err
	}()
	require.NoError(t, p.Close())
	assert.Equal(t, io.EOF, <-done)

	_, err := p.Write([]byte("R\r"))
	assert.Error(t, err)
}

func TestOpenNilConfig(t *testing.T) {
	_, err := Open(nil)
	assert.Error(t, err)
}
