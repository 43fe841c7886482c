package executor

import "bytes"

// cappedBuffer keeps at most max bytes. Writes past the cap are reported as
// consumed so the child never sees EPIPE, and the buffer remembers that it
// dropped data.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int64
	truncated bool
}

func newCappedBuffer(max int64) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (w *cappedBuffer) Write(p []byte) (int, error) {
	origLen := len(p)
	remaining := w.max - int64(w.buf.Len())
	if remaining <= 0 {
		if origLen > 0 {
			w.truncated = true
		}
		return origLen, nil
	}
	if int64(origLen) > remaining {
		p = p[:remaining]
		w.truncated = true
	}
	n, err := w.buf.Write(p)
	if err != nil {
		return n, err
	}
	return origLen, nil
}

func (w *cappedBuffer) String() string {
	return w.buf.String()
}

func (w *cappedBuffer) Truncated() bool {
	return w.truncated
}
