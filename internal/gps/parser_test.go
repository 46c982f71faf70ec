package gps

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const (
	refGGA = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	refRMC = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	refGSA = "$GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1*39"
)

// nmeaLine wraps body in '$', '*hh' and CRLF.
func nmeaLine(body string) string {
	return fmt.Sprintf("$%s*%s\r\n", body, nmea.Checksum(body))
}

func feedAll(p *Parser, s string) Outcome {
	var last Outcome
	for i := 0; i < len(s); i++ {
		last = p.Feed(s[i])
	}
	return last
}

func TestParser_ReferenceGGA(t *testing.T) {
	p := NewParser(Options{})
	if out := feedAll(p, refGGA+"\r\n"); out != OutcomeApplied {
		t.Fatalf("outcome=%s want applied", out)
	}
	st := p.State()

	if got := st.Satellites(); got != 8 {
		t.Fatalf("satellites=%d want 8", got)
	}
	if !st.HasFix() {
		t.Fatalf("expected fix")
	}
	if !st.HasNewData() || !st.HasNewData() {
		t.Fatalf("expected newData to stay set across reads")
	}
	if got := st.PositionString(); got == "No Fix" {
		t.Fatalf("expected a position string")
	}
	// Graded by satellite count: 8 satellites rate as FixDGPS whatever the
	// GGA quality digit says.
	if got := st.FixQuality(); got != FixDGPS {
		t.Fatalf("fix quality=%d want %d", got, FixDGPS)
	}
	if st.PDOP() != 0 || st.VDOP() != 0 || st.GeoidSeparation() != 0 {
		t.Fatalf("reserved values: pdop=%v vdop=%v geoid=%v", st.PDOP(), st.VDOP(), st.GeoidSeparation())
	}
	if got, want := st.PositionString(), "48°07.04'N 011°31.00'E"; got != want {
		t.Fatalf("position=%q want %q", got, want)
	}
	if got := st.TimeString(); got != "12:35:19" {
		t.Fatalf("time=%q", got)
	}
	if !st.HasValidPosition() {
		t.Fatalf("expected valid position")
	}

	st.ClearNewData()
	if st.HasNewData() {
		t.Fatalf("expected newData cleared")
	}
}

func TestParser_ReferenceRMC(t *testing.T) {
	p := NewParser(Options{})
	if out := feedAll(p, refRMC+"\r\n"); out != OutcomeApplied {
		t.Fatalf("outcome=%s want applied", out)
	}
	st := p.State()

	want := Snapshot{
		HasFix:     true,
		NewData:    true,
		LatDeg:     ptrTo(48.1173),
		LonDeg:     ptrTo(11.0 + 31.0/60.0),
		SpeedKt:    ptrTo(22.4),
		CourseDeg:  ptrTo(84.4),
		TimeRaw:    "123519",
		DateRaw:    "230394",
		FixQuality: FixNone, // no satellite count yet
		FixType:    "No Fix",
		Position:   "48°07.04'N 011°31.00'E",
		Time:       "12:35:19",
		Date:       "23/03/94",
	}
	if diff := cmp.Diff(want, st.Snapshot(), cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	feedAll(p, nmeaLine("GPRMC,123520,V,,,,,,,230394,,"))
	if st.HasFix() {
		t.Fatalf("expected V status to clear the fix")
	}
	if lat, _, ok := st.Position(); !ok || lat == 0 {
		t.Fatalf("expected last known position kept, lat=%v ok=%t", lat, ok)
	}
	if got := st.Speed(); got != 0 {
		t.Fatalf("empty speed should read as 0, got %v", got)
	}
}

func ptrTo[T any](v T) *T { return &v }

func TestFixState_TakeNewDataKeepsLaterSentence(t *testing.T) {
	p := NewParser(Options{})
	feedAll(p, refGGA+"\r\n")
	st := p.State()

	snap, ok := st.TakeNewData()
	if !ok || snap.Time != "12:35:19" || !snap.NewData {
		t.Fatalf("first take ok=%t snap=%+v", ok, snap)
	}
	if _, ok := st.TakeNewData(); ok {
		t.Fatalf("expected nothing new after take")
	}

	feedAll(p, nmeaLine("GPGGA,123520,4807.038,N,01131.000,E,1,05,0.9,545.4,M,46.9,M,,"))
	snap, ok = st.TakeNewData()
	if !ok || snap.Time != "12:35:20" || snap.Satellites == nil || *snap.Satellites != 5 {
		t.Fatalf("second take ok=%t snap=%+v", ok, snap)
	}
	if st.HasNewData() {
		t.Fatalf("expected newData cleared by take")
	}
}

func TestParser_OverflowOnDollarKeepsNextSentence(t *testing.T) {
	p := NewParser(Options{MaxSentenceBytes: 128})
	feedAll(p, strings.Repeat("x", 128))
	if out := p.Feed('$'); out != OutcomeOverflow {
		t.Fatalf("outcome=%s want overflow", out)
	}
	if out := feedAll(p, refGGA[1:]+"\r\n"); out != OutcomeApplied {
		t.Fatalf("outcome=%s want applied", out)
	}
	st := p.State()
	if st.Satellites() != 8 || !st.HasNewData() {
		t.Fatalf("fix=%+v", st.Snapshot())
	}
	if got := p.Stats(); got.Overflow != 1 || got.Applied != 1 {
		t.Fatalf("stats=%+v", got)
	}
}

func TestParser_GarbageLeavesStateUnchanged(t *testing.T) {
	p := NewParser(Options{})
	feedAll(p, refGGA+"\r\n")
	before := p.State().Snapshot()

	if out := feedAll(p, "garbage\n"); out != OutcomeNotSentence {
		t.Fatalf("outcome=%s want not_sentence", out)
	}
	if diff := cmp.Diff(before, p.State().Snapshot()); diff != "" {
		t.Fatalf("state changed (-before +after):\n%s", diff)
	}
	if got := p.Stats().NotSentence; got != 1 {
		t.Fatalf("not_sentence=%d want 1", got)
	}
}

func TestParser_TimeAndDateFormatting(t *testing.T) {
	st := NewParser(Options{}).State()
	if got := st.TimeString(); got != "00:00:00" {
		t.Fatalf("unset time=%q", got)
	}
	if got := st.DateString(); got != "01/01/00" {
		t.Fatalf("unset date=%q", got)
	}

	p := NewParser(Options{})
	feedAll(p, nmeaLine("GPGGA,123519.00,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"))
	if got := p.State().TimeString(); got != "12:35:19" {
		t.Fatalf("time=%q want 12:35:19", got)
	}

	p = NewParser(Options{})
	feedAll(p, nmeaLine("GPGGA,1235,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"))
	if got := p.State().TimeString(); got != "00:00:00" {
		t.Fatalf("short time=%q want 00:00:00", got)
	}
}

func TestParser_ValidPositionFollowsSatelliteCount(t *testing.T) {
	for sats := 0; sats <= 12; sats++ {
		p := NewParser(Options{})
		feedAll(p, nmeaLine(fmt.Sprintf("GPGGA,123519,4807.038,N,01131.000,E,1,%02d,0.9,545.4,M,46.9,M,,", sats)))
		st := p.State()
		if got, want := st.HasValidPosition(), sats >= 4; got != want {
			t.Fatalf("sats=%d valid=%t want %t", sats, got, want)
		}
	}
}

func TestParser_FixQualityGrading(t *testing.T) {
	cases := []struct {
		quality string
		sats    int
		want    int
		name    string
	}{
		{"0", 9, FixNone, "No Fix"},
		{"1", 3, FixNone, "No Fix"},
		{"1", 4, FixGPS, "GPS Fix"},
		{"1", 6, FixGPS, "GPS Fix"},
		{"1", 7, FixDGPS, "DGPS Fix"},
		{"2", 12, FixDGPS, "DGPS Fix"},
	}
	for _, tc := range cases {
		p := NewParser(Options{})
		feedAll(p, nmeaLine(fmt.Sprintf("GPGGA,123519,4807.038,N,01131.000,E,%s,%d,0.9,545.4,M,46.9,M,,", tc.quality, tc.sats)))
		st := p.State()
		if got := st.FixQuality(); got != tc.want {
			t.Fatalf("quality=%s sats=%d: FixQuality=%d want %d", tc.quality, tc.sats, got, tc.want)
		}
		if got := st.FixTypeString(); got != tc.name {
			t.Fatalf("quality=%s sats=%d: FixTypeString=%q want %q", tc.quality, tc.sats, got, tc.name)
		}
	}
}

func TestParser_GGAKeepsHDOPAndAltitudeWhenEmpty(t *testing.T) {
	p := NewParser(Options{})
	st := p.State()
	if st.HasHDOP() || st.HDOP() != 99.99 {
		t.Fatalf("expected unset HDOP to read 99.99, got %v", st.HDOP())
	}

	feedAll(p, refGGA+"\r\n")
	feedAll(p, nmeaLine("GPGGA,123520,4807.038,N,01131.000,E,1,08,,,M,,M,,"))
	if got := st.HDOP(); got != 0.9 {
		t.Fatalf("hdop=%v want 0.9", got)
	}
	if !st.HasAltitude() || st.Altitude() != 545.4 {
		t.Fatalf("alt=%v want 545.4", st.Altitude())
	}
	if got := st.TimeString(); got != "12:35:20" {
		t.Fatalf("time=%q", got)
	}
}

func TestParser_GGAWithoutFixOrTime(t *testing.T) {
	p := NewParser(Options{})
	feedAll(p, nmeaLine("GPGGA,,,,,,0,00,,,M,,M,,"))
	st := p.State()
	if st.HasNewData() {
		t.Fatalf("empty time must not raise newData")
	}
	if st.HasFix() {
		t.Fatalf("expected no fix")
	}
	if _, _, ok := st.Position(); ok {
		t.Fatalf("expected no position")
	}
	if got := st.PositionString(); got != "No Fix" {
		t.Fatalf("position=%q", got)
	}
}

func TestParser_ShortSentenceIsPartial(t *testing.T) {
	p := NewParser(Options{})
	if out := feedAll(p, "$GPGGA,123519,4807.038,N\r\n"); out != OutcomePartial {
		t.Fatalf("outcome=%s want partial", out)
	}
	st := p.State()
	if !st.HasNewData() || st.TimeString() != "12:35:19" {
		t.Fatalf("expected time applied before the cut")
	}
	if _, _, ok := st.Position(); ok {
		t.Fatalf("expected no position from a truncated sentence")
	}
	if got := p.Stats().Partial; got != 1 {
		t.Fatalf("partial=%d", got)
	}
}

func TestParser_GSA(t *testing.T) {
	p := NewParser(Options{})
	if out := feedAll(p, refGSA+"\r\n"); out != OutcomeApplied {
		t.Fatalf("outcome=%s", out)
	}
	if got := p.State().HDOP(); got != 2.5 {
		t.Fatalf("hdop=%v want 2.5", got)
	}

	// Field 15 terminated by the checksum delimiter.
	line := "$GPGSA,A,3," + strings.Repeat(",", 12) + "1.8*00\r\n"
	if out := feedAll(p, line); out != OutcomeApplied {
		t.Fatalf("outcome=%s", out)
	}
	if got := p.State().HDOP(); got != 1.8 {
		t.Fatalf("hdop=%v want 1.8", got)
	}

	if out := feedAll(p, "$GPGSA,A,3,04*00\r\n"); out != OutcomePartial {
		t.Fatalf("outcome=%s want partial", out)
	}
	if got := p.State().HDOP(); got != 1.8 {
		t.Fatalf("short GSA changed hdop to %v", got)
	}
	if p.State().HasNewData() {
		t.Fatalf("GSA must not raise newData")
	}
}

func TestParser_RMCCourseNormalizedAndEmptyDateKept(t *testing.T) {
	p := NewParser(Options{})
	feedAll(p, refRMC+"\r\n")
	feedAll(p, nmeaLine("GNRMC,123520,A,4807.038,N,01131.000,E,,370.5,,,"))
	st := p.State()
	if got := st.Course(); got < 10.49 || got > 10.51 {
		t.Fatalf("course=%v want 10.5", got)
	}
	if got := st.DateString(); got != "23/03/94" {
		t.Fatalf("date=%q want kept 23/03/94", got)
	}
}

func TestParser_ChecksumVerification(t *testing.T) {
	bad := strings.Replace(refGGA, "*47", "*00", 1)

	p := NewParser(Options{VerifyChecksum: true})
	if out := feedAll(p, bad+"\r\n"); out != OutcomeChecksum {
		t.Fatalf("outcome=%s want checksum", out)
	}
	if out := feedAll(p, "$GPGGA,123519\r\n"); out != OutcomeChecksum {
		t.Fatalf("missing checksum outcome=%s", out)
	}
	if p.State().HasNewData() {
		t.Fatalf("rejected sentences must not touch state")
	}
	if out := feedAll(p, nmeaLine("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,")); out != OutcomeApplied {
		t.Fatalf("good checksum outcome=%s", out)
	}
	// Hex digits compare case-insensitively; the body does not.
	if out := feedAll(p, refRMC[:len(refRMC)-2]+"6a\r\n"); out != OutcomeApplied {
		t.Fatalf("lowercase checksum digits outcome=%s", out)
	}
	if out := feedAll(p, strings.ToLower(refRMC[:len(refRMC)-2])+"6a\r\n"); out != OutcomeChecksum {
		t.Fatalf("lowercased body outcome=%s want checksum", out)
	}
	if got := p.Stats().Checksum; got != 3 {
		t.Fatalf("checksum count=%d want 3", got)
	}

	p = NewParser(Options{})
	if out := feedAll(p, bad+"\r\n"); out != OutcomeApplied {
		t.Fatalf("without verification outcome=%s want applied", out)
	}
}

func TestParser_UnsupportedSentences(t *testing.T) {
	p := NewParser(Options{})
	for _, line := range []string{
		"$GPGSV,3,1,11,03,03,111,00*74",
		"$BDGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*00",
		"$PUBX,00*33",
		"$",
	} {
		if out := feedAll(p, line+"\r\n"); out != OutcomeUnsupported {
			t.Fatalf("%q outcome=%s want unsupported", line, out)
		}
	}
	if got := p.Stats().Unsupported; got != 4 {
		t.Fatalf("unsupported=%d", got)
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]Kind{
		"$GPGGA,":  KindGGA,
		"$GNGGA":   KindGGA,
		"$GPRMC,1": KindRMC,
		"$GNGSA,":  KindGSA,
		"$GLGGA,":  KindUnknown,
		"$GPVTG,":  KindUnknown,
		"GPGGA,":   KindUnknown,
		"$GP":      KindUnknown,
	}
	for in, want := range cases {
		if got := Classify(in); got != want {
			t.Fatalf("Classify(%q)=%s want %s", in, got, want)
		}
	}
}

type recordingObserver struct {
	mu   sync.Mutex
	seen map[string]int
}

func (o *recordingObserver) ObserveSentence(kind Kind, out Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.seen == nil {
		o.seen = map[string]int{}
	}
	o.seen[kind.String()+"/"+out.String()]++
}

func TestParser_ObserverAndHook(t *testing.T) {
	obs := &recordingObserver{}
	var hooked []string
	p := NewParser(Options{
		Observer: obs,
		OnSentence: func(sentence string, kind Kind, out Outcome) {
			hooked = append(hooked, kind.String()+":"+sentence)
		},
	})

	feedAll(p, refGGA+"\r\n"+"junk\n"+refRMC+"\r\n"+"$GPGSV,1*00\r\n")

	want := map[string]int{
		"GGA/applied":          1,
		"RMC/applied":          1,
		"unknown/not_sentence": 1,
		"unknown/unsupported":  1,
	}
	if diff := cmp.Diff(want, obs.seen); diff != "" {
		t.Fatalf("observer mismatch (-want +got):\n%s", diff)
	}
	wantHooked := []string{"GGA:" + refGGA, "RMC:" + refRMC, "unknown:$GPGSV,1*00"}
	if diff := cmp.Diff(wantHooked, hooked); diff != "" {
		t.Fatalf("hook mismatch (-want +got):\n%s", diff)
	}

	st := p.Stats()
	if st.Applied != 2 || st.NotSentence != 1 || st.Unsupported != 1 {
		t.Fatalf("stats=%+v", st)
	}
	if st.Bytes == 0 {
		t.Fatalf("expected byte count")
	}
}

func TestParser_WriteIsIOCopyTarget(t *testing.T) {
	p := NewParser(Options{})
	n, err := p.Write([]byte(refGGA + "\r\n" + refRMC + "\r\n"))
	if err != nil || n != len(refGGA)+len(refRMC)+4 {
		t.Fatalf("Write=(%d,%v)", n, err)
	}
	if p.Stats().Applied != 2 {
		t.Fatalf("stats=%+v", p.Stats())
	}
}

func TestFixState_ConcurrentReaders(t *testing.T) {
	p := NewParser(Options{})
	st := p.State()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := st.Snapshot()
				// Position and its validity come from one locked copy.
				if snap.ValidPosition && (snap.LatDeg == nil || snap.Satellites == nil) {
					t.Errorf("torn snapshot: %+v", snap)
					return
				}
			}
		}()
	}
	for i := 0; i < 200; i++ {
		feedAll(p, refGGA+"\r\n"+refRMC+"\r\n")
	}
	close(stop)
	wg.Wait()
}
