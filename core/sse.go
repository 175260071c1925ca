package core

import (
	"bufio"
	"io"
	"strings"
)

// Frame is one decoded Server-Sent-Events unit. Frames are immutable once
// emitted; Seq increases monotonically within a stream.
type Frame struct {
	// Event is the optional event name from an "event:" line.
	Event string

	// Data is the payload assembled from the frame's "data:" lines,
	// joined with newlines when the frame spans several.
	Data string

	// Seq is the zero-based position of this frame within the stream.
	Seq int
}

// FrameDecoder incrementally decodes SSE framing from a byte stream.
//
// The wire format is line-based: a frame's payload accumulates from one or
// more "data:" prefixed lines and a blank line terminates the frame. Bytes
// arrive in arbitrary chunks, so partial lines are buffered until complete;
// no chunk boundary is assumed to align with a line boundary. Comment lines
// (leading ':') and unrecognized fields such as "id:" and "retry:" are
// skipped.
type FrameDecoder struct {
	r   *bufio.Reader
	seq int
}

// NewFrameDecoder creates a decoder reading from r.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{r: bufio.NewReader(r)}
}

// Next blocks until one complete frame is available and returns it. It
// returns io.EOF when the stream ends cleanly. A frame left incomplete when
// the stream ends (no terminating blank line) is discarded, per the SSE
// processing model.
func (d *FrameDecoder) Next() (*Frame, error) {
	var data []string
	var event string
	haveData := false

	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, err
		}

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")

		// Blank line dispatches the accumulated frame.
		if line == "" {
			if !haveData {
				continue
			}
			f := &Frame{
				Event: event,
				Data:  strings.Join(data, "\n"),
				Seq:   d.seq,
			}
			d.seq++
			return f, nil
		}

		// Comment line.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "data":
			data = append(data, value)
			haveData = true
		case "event":
			event = value
		}
	}
}

// splitField splits "field: value", trimming the single optional space
// after the colon. A line without a colon is a field with an empty value.
func splitField(line string) (field, value string) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return line, ""
	}
	field = line[:i]
	value = line[i+1:]
	value = strings.TrimPrefix(value, " ")
	return field, value
}
