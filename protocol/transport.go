package protocol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout bounds the wait for a reply when the context has no deadline
const DefaultTimeout = 2 * time.Second

// ErrClosed is returned once the transport is closed
var ErrClosed = errors.New("transport closed")

// Transport sends EBB commands over a port and matches each one with its
// reply line. Concurrent callers are serialised.
type Transport struct {
	port io.ReadWriteCloser

	// Timeout applies when the caller's context has no deadline
	Timeout time.Duration

	sendMutex sync.Mutex
	lines     chan string

	stopChan  chan struct{}
	doneChan  chan struct{}
	closeOnce sync.Once
}

// NewTransport starts reading replies from port
func NewTransport(port io.ReadWriteCloser) *Transport {
	t := &Transport{
		port:     port,
		Timeout:  DefaultTimeout,
		lines:    make(chan string, 16),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// Send writes cmd and waits for its reply. Plain commands must answer OK;
// query replies are returned as-is. A reply starting with '!' or any
// unexpected reply becomes a *DeviceError.
func (t *Transport) Send(ctx context.Context, cmd Command) (string, error) {
	msg, err := cmd.Encode()
	if err != nil {
		return "", err
	}

	t.sendMutex.Lock()
	defer t.sendMutex.Unlock()

	t.drain()
	if err := t.write(msg); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", cmd, err)
	}

	reply, err := t.readLine(ctx)
	if err != nil {
		return "", fmt.Errorf("waiting for reply to %s: %w", cmd, err)
	}

	if strings.HasPrefix(reply, "!") {
		return "", &DeviceError{Command: cmd.String(), Reply: reply}
	}
	if cmd.Query {
		return reply, nil
	}
	if reply != ReplyOK {
		return "", &DeviceError{Command: cmd.String(), Reply: reply}
	}
	return reply, nil
}

// write sends the whole message
func (t *Transport) write(msg []byte) error {
	n, err := t.port.Write(msg)
	if err != nil {
		return err
	}
	if n != len(msg) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(msg))
	}
	return nil
}

// readLine waits for the next non-empty reply line
func (t *Transport) readLine(ctx context.Context) (string, error) {
	var timeout <-chan time.Time
	if _, ok := ctx.Deadline(); !ok && t.Timeout > 0 {
		timer := time.NewTimer(t.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case line := <-t.lines:
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timeout:
		return "", fmt.Errorf("reply timeout after %v", t.Timeout)
	case <-t.stopChan:
		return "", ErrClosed
	}
}

// drain discards lines nobody waited for, such as a reply that arrived
// after its caller timed out.
func (t *Transport) drain() {
	for {
		select {
		case <-t.lines:
		default:
			return
		}
	}
}

// readLoop splits incoming bytes into lines. EBB ends replies with CR LF,
// some queries with LF CR, so both characters are separators.
func (t *Transport) readLoop() {
	defer close(t.doneChan)

	var pending bytes.Buffer
	buffer := make([]byte, 256)

	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buffer)
		if n > 0 {
			pending.Write(buffer[:n])
			t.splitLines(&pending)
		}
		if err != nil {
			// Serial read timeouts surface as io.EOF; keep polling
			// until Close.
			select {
			case <-t.stopChan:
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}
}

func (t *Transport) splitLines(pending *bytes.Buffer) {
	for {
		data := pending.Bytes()
		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			return
		}
		line := strings.TrimSpace(string(data[:i]))
		pending.Next(i + 1)
		if line == "" {
			continue
		}
		select {
		case t.lines <- line:
		case <-t.stopChan:
			return
		}
	}
}

// Close stops the reader and closes the port
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stopChan)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.doneChan
	})
	return err
}
