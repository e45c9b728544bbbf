package macs

import "time"

// ToEpochMillis converts t to milliseconds since the Unix epoch, truncating
// sub-millisecond precision. ok is false for the zero time, which has no
// epoch representation at this boundary.
func ToEpochMillis(t time.Time) (ms int64, ok bool) {
	if t.IsZero() {
		return 0, false
	}
	return t.UnixMilli(), true
}

// FromEpochMillis is the inverse of ToEpochMillis. It returns the zero time
// when ok is false and a UTC instant otherwise.
func FromEpochMillis(ms int64, ok bool) time.Time {
	if !ok {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
