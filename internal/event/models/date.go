package models

// EthiopianDate is the year/month/day triple used for Ethiopian-calendar
// dates in record data. Calendar conversion is an external concern; the core
// only checks presence.
type EthiopianDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// IsComplete reports whether all three components are present. A triple with
// any missing component counts as empty for validation purposes.
func (d EthiopianDate) IsComplete() bool {
	return d.Year != 0 && d.Month != 0 && d.Day != 0
}
