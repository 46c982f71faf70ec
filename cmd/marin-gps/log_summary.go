package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"marin-gps/internal/gps"
	"marin-gps/internal/replay"
)

type logSummary struct {
	Segments    int
	Sentences   int
	MaxDuration time.Duration
	IDCounts    map[string]int
	Outcomes    map[string]int
	Final       gps.Snapshot
}

// summarizeNMEALog replays records through a scratch parser with checksum
// verification on, so the outcome counts show how clean a capture is.
func summarizeNMEALog(records []replay.Record) logSummary {
	s := logSummary{IDCounts: map[string]int{}, Outcomes: map[string]int{}}
	st := gps.NewFixState()
	rt := gps.Router{VerifyChecksum: true}

	origin := time.Duration(0)
	hasSentences := false
	for _, r := range records {
		if r.Sentence == "" {
			s.Segments++
			origin = r.At
			continue
		}
		hasSentences = true
		s.Sentences++
		if at := r.At - origin; at > s.MaxDuration {
			s.MaxDuration = at
		}

		id, _ := gps.Field(r.Sentence, 0)
		s.IDCounts[strings.TrimPrefix(id, "$")]++
		_, out := rt.Dispatch(st, r.Sentence)
		s.Outcomes[out.String()]++
	}
	if s.Segments == 0 && hasSentences {
		s.Segments = 1
	}
	s.Final = st.Snapshot()
	return s
}

func printLogSummary(w io.Writer, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	recs, err := replay.ReadFile(path)
	if err != nil {
		return err
	}
	s := summarizeNMEALog(recs)

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "sentences: %d\n", s.Sentences)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)
	printCounts(w, "sentence_ids", s.IDCounts)
	printCounts(w, "outcomes", s.Outcomes)
	fmt.Fprintf(w, "final_fix: %s %s %s UTC (%s)\n", s.Final.Position, s.Final.Date, s.Final.Time, s.Final.FixType)
	return nil
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %d\n", k, counts[k])
	}
}
