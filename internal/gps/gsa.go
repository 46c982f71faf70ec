package gps

// gsaDOPField is the field reached after 15 commas. GSA decoding stops
// there; mode, fix type and satellite IDs are not read.
const gsaDOPField = 15

// applyGSA stores the dilution value at field 15 as HDOP. The field may be
// terminated by ',' or by the '*' checksum delimiter.
func applyGSA(r *fixRecord, sentence string) bool {
	f, ok := Field(sentence, gsaDOPField)
	if !ok {
		return false
	}
	if v, ok := parseFloat(f); ok {
		r.hdop.Set(v)
	}
	return true
}
