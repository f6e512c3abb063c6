// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"errors"
	"io"
	"sync"
	"time"
)

// ErrTimeout mimics a read deadline expiring on a socket.
var ErrTimeout = errors.New("i/o timeout")

// Step is one Read result of a ScriptedReader: up to len(Data) bytes, then
// Err once Data is exhausted.
type Step struct {
	Data []byte
	Err  error
}

// ScriptedReader replays Steps. A step whose data does not fit in one Read
// is continued by the next Read. When the script runs out Read returns
// (0, Tail), or io.EOF if Tail is nil.
type ScriptedReader struct {
	Tail error

	mu        sync.Mutex
	steps     []Step
	deadlines int
	closed    bool
}

func NewScriptedReader(steps ...Step) *ScriptedReader {
	return &ScriptedReader{steps: steps}
}

// Bytes is a Step that yields n bytes of value v.
func Bytes(n int, v byte) Step {
	data := make([]byte, n)
	for i := range data {
		data[i] = v
	}
	return Step{Data: data}
}

func (r *ScriptedReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.steps) == 0 {
		if r.Tail != nil {
			return 0, r.Tail
		}
		return 0, io.EOF
	}

	st := &r.steps[0]
	n := copy(p, st.Data)
	st.Data = st.Data[n:]
	if len(st.Data) > 0 {
		return n, nil
	}

	err := st.Err
	r.steps = r.steps[1:]

	return n, err
}

func (r *ScriptedReader) SetReadDeadline(time.Time) error {
	r.mu.Lock()
	r.deadlines++
	r.mu.Unlock()

	return nil
}

func (r *ScriptedReader) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	return nil
}

// Deadlines returns how many times a read deadline was armed.
func (r *ScriptedReader) Deadlines() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.deadlines
}

func (r *ScriptedReader) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}
