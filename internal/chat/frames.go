package chat

import (
	"bytes"
	"strings"
)

// lineBuffer splits an event-stream byte sequence into lines. Network reads
// may end mid-frame, so the unterminated tail of each feed is retained and
// prepended to the next one.
type lineBuffer struct {
	pending []byte
}

// Feed appends p to the buffer and returns the complete lines it unlocked,
// without their terminators. A trailing carriage return is stripped.
func (b *lineBuffer) Feed(p []byte) []string {
	b.pending = append(b.pending, p...)
	var lines []string
	for {
		i := bytes.IndexByte(b.pending, '\n')
		if i < 0 {
			return lines
		}
		lines = append(lines, strings.TrimSuffix(string(b.pending[:i]), "\r"))
		b.pending = b.pending[i+1:]
	}
}

// Rest returns the unterminated tail, if any, and empties the buffer. Called
// once at end of stream so a final frame without a newline is not lost.
func (b *lineBuffer) Rest() string {
	if len(b.pending) == 0 {
		return ""
	}
	rest := strings.TrimSuffix(string(b.pending), "\r")
	b.pending = nil
	return rest
}
