package gps

import (
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// Kind identifies a decoded sentence type independent of talker.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindGGA
	KindRMC
	KindGSA

	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindGGA:
		return "GGA"
	case KindRMC:
		return "RMC"
	case KindGSA:
		return "GSA"
	default:
		return "unknown"
	}
}

// handler applies one sentence to the record and reports whether every
// field it reads was present.
type handler func(r *fixRecord, sentence string) bool

var talkers = map[string]bool{
	"GP": true, // GPS only
	"GN": true, // multi-constellation
}

var sentenceKinds = map[string]Kind{
	"GGA": KindGGA,
	"RMC": KindRMC,
	"GSA": KindGSA,
}

var handlers = [numKinds]handler{
	KindGGA: applyGGA,
	KindRMC: applyRMC,
	KindGSA: applyGSA,
}

// Classify returns the Kind of a '$'-prefixed sentence, or KindUnknown for
// talkers and types that are not decoded.
func Classify(sentence string) Kind {
	// "$" + 2 talker + 3 type
	if len(sentence) < 6 || sentence[0] != '$' {
		return KindUnknown
	}
	if !talkers[sentence[1:3]] {
		return KindUnknown
	}
	return sentenceKinds[sentence[3:6]]
}

// Router dispatches complete sentences to their handler.
type Router struct {
	// VerifyChecksum rejects sentences whose '*hh' suffix is missing or does
	// not match. Off by default: many receivers are trusted as-is.
	VerifyChecksum bool
}

// Dispatch classifies the sentence and applies it to st. It returns the
// Kind that handled it (KindUnknown if none) and the outcome.
func (rt Router) Dispatch(st *FixState, sentence string) (Kind, Outcome) {
	if rt.VerifyChecksum && !checksumOK(sentence) {
		return KindUnknown, OutcomeChecksum
	}
	kind := Classify(sentence)
	if kind == KindUnknown {
		return KindUnknown, OutcomeUnsupported
	}
	h := handlers[kind]
	complete := st.update(func(r *fixRecord) bool {
		return h(r, sentence)
	})
	if !complete {
		return kind, OutcomePartial
	}
	return kind, OutcomeApplied
}

// checksumOK verifies the XOR of the bytes between '$' and '*' against the
// two hex digits after '*'.
func checksumOK(sentence string) bool {
	star := strings.LastIndexByte(sentence, '*')
	if star < 1 || len(sentence) < star+3 {
		return false
	}
	want := sentence[star+1 : star+3]
	return strings.EqualFold(nmea.Checksum(sentence[1:star]), want)
}
