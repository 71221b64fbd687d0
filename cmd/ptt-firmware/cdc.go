//go:build tinygo

package main

import (
	"machine"
	"strings"
)

// maxLine bounds a partial inbound line; longer input is discarded.
const maxLine = 64

// maxQueued bounds complete lines waiting for the next tick.
const maxQueued = 16

// dtrReporter is implemented by USB CDC serial ports.
type dtrReporter interface {
	DTR() bool
}

// cdcPort adapts the board's serial port to link.Port.
type cdcPort struct {
	s     machine.Serialer
	buf   []byte
	lines []string
}

func newCDCPort(s machine.Serialer) *cdcPort {
	return &cdcPort{s: s, buf: make([]byte, 0, maxLine)}
}

// Presence reports the host's DTR. Ports without DTR are always present.
func (p *cdcPort) Presence() bool {
	if d, ok := p.s.(dtrReporter); ok {
		return d.DTR()
	}
	return true
}

// ReadLine drains buffered bytes and returns the oldest complete line.
func (p *cdcPort) ReadLine() (string, bool) {
	for p.s.Buffered() > 0 {
		b, err := p.s.ReadByte()
		if err != nil {
			break
		}
		switch {
		case b == '\n':
			if len(p.lines) < maxQueued {
				p.lines = append(p.lines, strings.TrimSpace(string(p.buf)))
			}
			p.buf = p.buf[:0]
		case len(p.buf) < maxLine:
			p.buf = append(p.buf, b)
		}
	}
	if len(p.lines) == 0 {
		return "", false
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, true
}

// WriteLine drops the line unless the host holds DTR.
func (p *cdcPort) WriteLine(text string) error {
	if !p.Presence() {
		return nil
	}
	_, err := p.s.Write([]byte(text + "\r\n"))
	return err
}

func (p *cdcPort) Close() error {
	return nil
}
