package serial

import (
	"bytes"
	"io"
	"sync"
)

// Responder produces the reply bytes for one command written to a MockPort.
// cmd excludes the terminator.
type Responder func(cmd string) string

// OKResponder answers every command like an idle EBB: "OK" for plain
// commands, a version line for V and an idle status for QM.
func OKResponder(cmd string) string {
	switch {
	case cmd == "V":
		return "EBBv13_and_above EB Firmware Version 2.8.1\r\n"
	case cmd == "QM":
		return "QM,0,0,0,0\n\r"
	default:
		return "OK\r\n"
	}
}

// MockPort is an in-memory Port that answers commands through a Responder.
// It records every command it receives.
type MockPort struct {
	respond Responder

	mu       sync.Mutex
	cond     *sync.Cond
	out      bytes.Buffer // bytes waiting to be read
	in       bytes.Buffer // partial command
	commands []string
	closed   bool
}

// NewMockPort creates a mock port; a nil responder uses OKResponder
func NewMockPort(respond Responder) *MockPort {
	if respond == nil {
		respond = OKResponder
	}
	p := &MockPort{respond: respond}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Write splits b into CR-terminated commands and queues their replies
func (p *MockPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}

	p.in.Write(b)
	for {
		i := bytes.IndexByte(p.in.Bytes(), '\r')
		if i < 0 {
			break
		}
		cmd := string(p.in.Next(i + 1)[:i])
		p.commands = append(p.commands, cmd)
		p.out.WriteString(p.respond(cmd))
	}
	p.cond.Broadcast()
	return len(b), nil
}

// Read blocks until reply bytes are available or the port is closed
func (p *MockPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.out.Len() == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.out.Len() == 0 {
		return 0, io.EOF
	}
	return p.out.Read(b)
}

// Close wakes blocked readers; further writes fail
func (p *MockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
	return nil
}

// Flush drops unread replies and any partial command
func (p *MockPort) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out.Reset()
	p.in.Reset()
	return nil
}

// Commands returns a copy of the commands received so far
func (p *MockPort) Commands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.commands...)
}
