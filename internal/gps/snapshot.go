package gps

// Snapshot is a consistent, JSON-friendly copy of a FixState. Optional
// fields are nil when they have never been observed.
type Snapshot struct {
	HasFix        bool `json:"has_fix"`
	ValidPosition bool `json:"valid_position"`
	NewData       bool `json:"new_data"`

	LatDeg     *float64 `json:"lat_deg,omitempty"`
	LonDeg     *float64 `json:"lon_deg,omitempty"`
	AltM       *float64 `json:"alt_m,omitempty"`
	SpeedKt    *float64 `json:"speed_kt,omitempty"`
	CourseDeg  *float64 `json:"course_deg,omitempty"`
	Satellites *int     `json:"satellites,omitempty"`
	HDOP       *float64 `json:"hdop,omitempty"`
	TimeRaw    string   `json:"time_raw,omitempty"`
	DateRaw    string   `json:"date_raw,omitempty"`

	FixQuality int    `json:"fix_quality"`
	FixType    string `json:"fix_type"`
	Position   string `json:"position"`
	Time       string `json:"time"`
	Date       string `json:"date"`
}

func (s *FixState) Snapshot() Snapshot {
	return s.read().snapshot()
}

func (r fixRecord) snapshot() Snapshot {
	q := r.fixQuality()
	return Snapshot{
		HasFix:        r.hasFix,
		ValidPosition: r.validPosition(),
		NewData:       r.newData,
		LatDeg:        r.lat.ptr(),
		LonDeg:        r.lon.ptr(),
		AltM:          r.alt.ptr(),
		SpeedKt:       r.speed.ptr(),
		CourseDeg:     r.course.ptr(),
		Satellites:    r.satellites.ptr(),
		HDOP:          r.hdop.ptr(),
		TimeRaw:       r.timeRaw.Or(""),
		DateRaw:       r.dateRaw.Or(""),
		FixQuality:    q,
		FixType:       fixTypeString(q),
		Position:      r.positionString(),
		Time:          formatTime(r.timeRaw.Or("")),
		Date:          formatDate(r.dateRaw.Or("")),
	}
}
