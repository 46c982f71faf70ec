package gps

import "testing"

func TestField(t *testing.T) {
	const s = "$GPGGA,123519,,N*47"
	cases := []struct {
		idx    int
		want   string
		wantOK bool
	}{
		{0, "$GPGGA", true},
		{1, "123519", true},
		{2, "", true},
		{3, "N", true},
		{4, "", false},
		{-1, "", false},
	}
	for _, tc := range cases {
		got, ok := Field(s, tc.idx)
		if got != tc.want || ok != tc.wantOK {
			t.Fatalf("Field(%d)=(%q,%t) want (%q,%t)", tc.idx, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestField_NoChecksum(t *testing.T) {
	got, ok := Field("$GPRMC,1,2", 2)
	if !ok || got != "2" {
		t.Fatalf("Field=(%q,%t) want (\"2\",true)", got, ok)
	}
}

func TestFieldScanner_DistinguishesEmptyFromMissing(t *testing.T) {
	sc := newFieldScanner("$GPRMC,a,,b*00")
	want := []string{"a", "", "b"}
	for i, w := range want {
		got, ok := sc.next()
		if !ok || got != w {
			t.Fatalf("field %d=(%q,%t) want (%q,true)", i+1, got, ok, w)
		}
	}
	for i := 0; i < 2; i++ {
		if got, ok := sc.next(); ok {
			t.Fatalf("expected end of fields, got %q", got)
		}
	}
}

func TestFieldScanner_TrailingEmptyField(t *testing.T) {
	sc := newFieldScanner("$GPGGA,a,")
	if got, ok := sc.next(); !ok || got != "a" {
		t.Fatalf("first=(%q,%t)", got, ok)
	}
	if got, ok := sc.next(); !ok || got != "" {
		t.Fatalf("trailing=(%q,%t) want empty present field", got, ok)
	}
	if _, ok := sc.next(); ok {
		t.Fatalf("expected end of fields")
	}
}
