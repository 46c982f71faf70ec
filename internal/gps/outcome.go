package gps

import "sync/atomic"

// Outcome describes what a single Feed or Dispatch did. None of them is an
// error: malformed input is dropped and counted.
type Outcome uint8

const (
	// OutcomeBuffered: the byte was appended to the current line.
	OutcomeBuffered Outcome = iota
	// OutcomeSkipped: a carriage return, ignored.
	OutcomeSkipped
	// OutcomeNotSentence: a completed line without a leading '$'.
	OutcomeNotSentence
	// OutcomeOverflow: the line outgrew the buffer and was discarded.
	OutcomeOverflow
	// OutcomeDiscarded: a byte dropped while resynchronizing after overflow.
	OutcomeDiscarded
	// OutcomeUnsupported: a '$' line of a talker or type with no handler.
	OutcomeUnsupported
	// OutcomeChecksum: checksum verification is enabled and failed.
	OutcomeChecksum
	// OutcomePartial: handled, but the sentence ended before every field
	// the handler reads. Fields before the cut were applied.
	OutcomePartial
	// OutcomeApplied: handled completely.
	OutcomeApplied

	numOutcomes
)

var outcomeNames = [numOutcomes]string{
	OutcomeBuffered:    "buffered",
	OutcomeSkipped:     "skipped",
	OutcomeNotSentence: "not_sentence",
	OutcomeOverflow:    "overflow",
	OutcomeDiscarded:   "discarded",
	OutcomeUnsupported: "unsupported",
	OutcomeChecksum:    "checksum",
	OutcomePartial:     "partial",
	OutcomeApplied:     "applied",
}

func (o Outcome) String() string {
	if o >= numOutcomes {
		return "unknown"
	}
	return outcomeNames[o]
}

// Terminal reports whether the outcome ends a line (as opposed to a byte
// that was merely buffered, skipped or discarded).
func (o Outcome) Terminal() bool {
	switch o {
	case OutcomeBuffered, OutcomeSkipped, OutcomeDiscarded:
		return false
	default:
		return true
	}
}

// Observer is notified of every terminal outcome. kind is KindUnknown
// unless a handler ran.
type Observer interface {
	ObserveSentence(kind Kind, out Outcome)
}

// Stats counts terminal outcomes and bytes seen by a Parser.
type Stats struct {
	Bytes       uint64 `json:"bytes"`
	NotSentence uint64 `json:"not_sentence"`
	Overflow    uint64 `json:"overflow"`
	Unsupported uint64 `json:"unsupported"`
	Checksum    uint64 `json:"checksum"`
	Partial     uint64 `json:"partial"`
	Applied     uint64 `json:"applied"`
}

type counters struct {
	bytes atomic.Uint64
	by    [numOutcomes]atomic.Uint64
}

func (c *counters) add(o Outcome) {
	if o < numOutcomes {
		c.by[o].Add(1)
	}
}

func (c *counters) stats() Stats {
	return Stats{
		Bytes:       c.bytes.Load(),
		NotSentence: c.by[OutcomeNotSentence].Load(),
		Overflow:    c.by[OutcomeOverflow].Load(),
		Unsupported: c.by[OutcomeUnsupported].Load(),
		Checksum:    c.by[OutcomeChecksum].Load(),
		Partial:     c.by[OutcomePartial].Load(),
		Applied:     c.by[OutcomeApplied].Load(),
	}
}
