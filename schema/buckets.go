package schema

import (
	"strings"
	"time"
)

// Bucketed document IDs: the record for a calendar day is addressed directly
// by a deterministic "{YYYYMMDD}_{YYYYMMDD}" key instead of a range query.
// Day-bucketed categories are keyed start-of-day to start-of-next-day, because
// the source devices timestamp a day record by its end. Sleep categories have
// two candidate buckets per day since a night can start the previous evening.

const dayLayout = "2006-01-02"

// FormatDate turns a "YYYY-MM-DD" date into the "YYYYMMDD" form used in
// bucketed document IDs. Pure and total, the input is not validated.
func FormatDate(date string) string {
	return strings.ReplaceAll(date, "-", "")
}

// DailyDocID returns the bucket ID for a non-sleep daily category,
// "{day}_{day+1}". A date that does not parse yields an ID that matches no
// stored document.
func DailyDocID(date string) string {
	day := FormatDate(date)
	t, err := time.Parse(dayLayout, date)
	if err != nil {
		return day + "_" + day
	}
	next := t.AddDate(0, 0, 1).Format(dayLayout)
	return day + "_" + FormatDate(next)
}

// SleepDocIDs returns the two candidate bucket IDs for a sleep category:
// the night that started the previous evening and the one contained in the
// day itself. The order matters, the merge gives the last document priority
// for start/end times.
func SleepDocIDs(date string) [2]string {
	day := FormatDate(date)
	t, err := time.Parse(dayLayout, date)
	if err != nil {
		return [2]string{day + "_" + day, day + "_" + day}
	}
	prev := FormatDate(t.AddDate(0, 0, -1).Format(dayLayout))
	return [2]string{prev + "_" + day, day + "_" + day}
}
