package gps

// DefaultMaxSentenceBytes leaves headroom over the 82 characters NMEA-0183
// allows per sentence, for receivers that emit long proprietary lines.
const DefaultMaxSentenceBytes = 256

// Accumulator assembles input bytes into lines in a fixed-capacity buffer.
//
// When a line outgrows the buffer it is discarded and the accumulator drops
// bytes until the next '$' (start of a new sentence) or '\n' (end of the
// junk line). If the overflowing byte is itself '$', assembly restarts there.
type Accumulator struct {
	buf       []byte
	resyncing bool
}

func NewAccumulator(capacity int) *Accumulator {
	if capacity <= 0 {
		capacity = DefaultMaxSentenceBytes
	}
	return &Accumulator{buf: make([]byte, 0, capacity)}
}

// Feed consumes one byte. When it completes a '$' line, line holds the
// sentence without terminator and the outcome is OutcomeBuffered; the slice
// is only valid until the next call to Feed.
func (a *Accumulator) Feed(b byte) (line []byte, out Outcome) {
	if a.resyncing {
		switch b {
		case '$':
			a.resyncing = false
			a.buf = append(a.buf[:0], b)
			return nil, OutcomeBuffered
		case '\n':
			a.resyncing = false
		}
		return nil, OutcomeDiscarded
	}

	switch b {
	case '\r':
		return nil, OutcomeSkipped
	case '\n':
		line = a.buf
		a.buf = a.buf[:0]
		if len(line) == 0 || line[0] != '$' {
			return nil, OutcomeNotSentence
		}
		return line, OutcomeBuffered
	}

	if len(a.buf) == cap(a.buf) {
		// A '$' that does not fit already starts the next sentence.
		if b == '$' {
			a.buf = append(a.buf[:0], b)
			return nil, OutcomeOverflow
		}
		a.buf = a.buf[:0]
		a.resyncing = true
		return nil, OutcomeOverflow
	}
	a.buf = append(a.buf, b)
	return nil, OutcomeBuffered
}

// Pending returns the number of bytes of the line being assembled.
func (a *Accumulator) Pending() int {
	return len(a.buf)
}
