package core

import (
	"fmt"
	"time"
)

// WeekKey returns the ISO-week bucket key ("YYYY_Wnn") for an instant.
//
// The algorithm must stay bit-compatible with the keys already written by the
// playback clients: normalize to UTC midnight, shift to the Thursday of the
// week (Sunday counting as day 7), then number weeks from the year start of
// the shifted date. time.Time.ISOWeek is close but disagrees on the week-year
// around New Year, so it cannot be used here.
func WeekKey(t time.Time) string {
	u := t.UTC()
	d := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)

	weekday := int(d.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	d = d.AddDate(0, 0, 4-weekday)

	yearStart := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	days := int(d.Sub(yearStart) / (24 * time.Hour))
	week := (days + 7) / 7 // ceil((days+1)/7)

	return fmt.Sprintf("%d_W%02d", d.Year(), week)
}
