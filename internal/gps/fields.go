package gps

import "strings"

// Field returns field index of an NMEA sentence, where index 0 is the
// sentence ID ("$GPGGA"). A field ends at the next ',' or at the '*'
// checksum delimiter, whichever comes first.
//
// ok is false when the sentence has fewer than index commas. A field that
// is present but empty returns ("", true).
func Field(sentence string, index int) (string, bool) {
	if index < 0 {
		return "", false
	}
	start := 0
	for i := 0; i < index; i++ {
		c := strings.IndexByte(sentence[start:], ',')
		if c < 0 {
			return "", false
		}
		start += c + 1
	}
	return sentence[start:fieldEnd(sentence, start)], true
}

func fieldEnd(sentence string, start int) int {
	for i := start; i < len(sentence); i++ {
		if sentence[i] == ',' || sentence[i] == '*' {
			return i
		}
	}
	return len(sentence)
}

// fieldScanner walks the fields of one sentence in order without
// allocating. Every returned field is a substring of the sentence.
type fieldScanner struct {
	s   string
	pos int // start of the next field, or -1 once the last field was returned
}

// newFieldScanner positions the scanner after the sentence ID.
func newFieldScanner(sentence string) fieldScanner {
	sc := fieldScanner{s: sentence}
	sc.next() // sentence ID
	return sc
}

// next returns the next field. ok is false once the sentence has no more
// comma-delimited fields, after which every call keeps returning false.
func (sc *fieldScanner) next() (string, bool) {
	if sc.pos < 0 {
		return "", false
	}
	end := fieldEnd(sc.s, sc.pos)
	f := sc.s[sc.pos:end]
	if end < len(sc.s) && sc.s[end] == ',' {
		sc.pos = end + 1
	} else {
		sc.pos = -1
	}
	return f, true
}

// hemisphere returns the first byte of a hemisphere field, or 0 if empty.
func hemisphere(f string) byte {
	if f == "" {
		return 0
	}
	return f[0]
}
