package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/openswoop/syllabank/pkg/catalog"
	"github.com/openswoop/syllabank/pkg/database"
)

var weekdays = map[string]time.Weekday{
	"U": time.Sunday, "M": time.Monday, "T": time.Tuesday, "W": time.Wednesday,
	"R": time.Thursday, "F": time.Friday, "S": time.Saturday,
}

var byDay = map[string]string{
	"U": "SU", "M": "MO", "T": "TU", "W": "WE", "R": "TH", "F": "FR", "S": "SA",
}

// CalendarOptions bounds the weekly recurrences of every section.
type CalendarOptions struct {
	Name  string
	From  time.Time
	Weeks int
	// Stamp is the DTSTAMP of every event; zero uses the current time.
	Stamp time.Time
}

// WriteCalendar writes one weekly recurring event per section with known
// days and times. It returns how many sections were skipped for lacking
// them.
func WriteCalendar(w io.Writer, courses []database.StoredCourse, opts CalendarOptions) (int, error) {
	if opts.Weeks <= 0 {
		opts.Weeks = 15
	}
	if opts.Stamp.IsZero() {
		opts.Stamp = time.Now()
	}

	cal := ics.NewCalendarFor("syllabank")
	cal.SetMethod(ics.MethodPublish)
	if opts.Name != "" {
		cal.SetName(opts.Name)
		cal.SetXWRCalName(opts.Name)
	}

	skipped := 0
	for _, course := range courses {
		for i, section := range course.Sections {
			start, end, ok := firstMeeting(section, opts.From)
			if !ok {
				skipped++
				continue
			}
			id := fmt.Sprintf("%s-%s-%d@syllabank", course.Subject, course.Number, i)
			event := cal.AddEvent(id)
			event.SetDtStampTime(opts.Stamp)
			event.SetSummary(fmt.Sprintf("%s %s", course.Code(), course.Title))
			event.SetDescription(describe(section))
			event.SetStartAt(start)
			event.SetEndAt(end)
			event.AddRrule(fmt.Sprintf("FREQ=WEEKLY;BYDAY=%s;UNTIL=%s",
				recurrenceDays(section.Days),
				start.AddDate(0, 0, 7*opts.Weeks).UTC().Format("20060102T150405Z")))
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return skipped, fmt.Errorf("failed to write calendar: %w", err)
	}
	return skipped, nil
}

// firstMeeting finds the first meeting of the section on or after from, in
// the section's own UTC offset.
func firstMeeting(section catalog.Section, from time.Time) (time.Time, time.Time, bool) {
	if section.StartTime == nil || section.EndTime == nil || len(section.Days) == 0 {
		return time.Time{}, time.Time{}, false
	}
	meets := make(map[time.Weekday]bool)
	for _, d := range section.Days {
		if wd, ok := weekdays[d]; ok {
			meets[wd] = true
		}
	}
	if len(meets) == 0 {
		return time.Time{}, time.Time{}, false
	}

	loc := time.FixedZone(catalog.FormatOffset(section.StartTime.Offset), section.StartTime.Offset)
	day := from.In(loc)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	for !meets[day.Weekday()] {
		day = day.AddDate(0, 0, 1)
	}

	at := func(t *catalog.ClockTime) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, t.Second, 0, loc)
	}
	return at(section.StartTime), at(section.EndTime), true
}

func recurrenceDays(days []string) string {
	var out []string
	for _, d := range days {
		if code, ok := byDay[d]; ok {
			out = append(out, code)
		}
	}
	return strings.Join(out, ",")
}

func describe(section catalog.Section) string {
	lines := []string{"Instructor: " + section.Instructor}
	if len(section.Terms) > 0 {
		lines = append(lines, "Terms: "+joinList(section.Terms))
	}
	return strings.Join(lines, "\n")
}
