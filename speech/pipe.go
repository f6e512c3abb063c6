// SPDX-License-Identifier: EPL-2.0

package speech

import (
	"errors"
	"io"
	"os"
	"sync"
	"time"
)

var (
	// ErrBufferFull is returned by Write when the data would push the
	// buffered bytes past the pipe's limit. Nothing is written.
	ErrBufferFull = errors.New("speech buffer full")

	// ErrClosedPipe is returned by Write after Close.
	ErrClosedPipe = io.ErrClosedPipe
)

// Pipe is an in-memory byte queue between a producer receiving speech audio
// and a beacon.LiveSource consuming it. Writes never block. Reads block until
// data arrives, the pipe is closed or the read deadline passes.
//
// Close is the explicit end of stream: buffered bytes are still read, then
// Read returns io.EOF.
type Pipe struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []byte
	limit    int
	closed   bool
	deadline time.Time
	timer    *time.Timer
}

// NewPipe returns a pipe holding at most limit unread bytes. A limit of zero
// or less means unbounded.
func NewPipe(limit int) *Pipe {
	p := &Pipe{limit: limit}
	p.cond = sync.NewCond(&p.mu)

	return p
}

func (p *Pipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrClosedPipe
	}
	if p.limit > 0 && len(p.buf)+len(b) > p.limit {
		return 0, ErrBufferFull
	}

	p.buf = append(p.buf, b...)
	p.cond.Broadcast()

	return len(b), nil
}

func (p *Pipe) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.buf) == 0 {
		if p.closed {
			return 0, io.EOF
		}
		if !p.deadline.IsZero() && !time.Now().Before(p.deadline) {
			return 0, os.ErrDeadlineExceeded
		}
		p.cond.Wait()
	}

	n := copy(b, p.buf)
	p.buf = p.buf[n:]
	if len(p.buf) == 0 {
		p.buf = nil
	}

	return n, nil
}

// SetReadDeadline makes blocked and future reads fail with
// os.ErrDeadlineExceeded once t passes. The zero time disables it.
func (p *Pipe) SetReadDeadline(t time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.deadline = t
	switch {
	case t.IsZero():
		if p.timer != nil {
			p.timer.Stop()
		}
	case p.timer == nil:
		p.timer = time.AfterFunc(time.Until(t), p.wake)
	default:
		// a stale fire only wakes readers, who re-check the deadline
		p.timer.Reset(time.Until(t))
	}
	p.cond.Broadcast()

	return nil
}

func (p *Pipe) wake() {
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Buffered returns how many bytes are waiting to be read.
func (p *Pipe) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.buf)
}

// Close ends the stream. It is safe to call more than once.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
	}
	p.cond.Broadcast()

	return nil
}
