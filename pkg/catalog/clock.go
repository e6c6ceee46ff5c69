package catalog

import (
	"fmt"
	"regexp"
	"strconv"
)

// ClockTime is a wall-clock time of day carrying a fixed UTC offset, e.g.
// 08:30:00-05:00.
type ClockTime struct {
	Hour   int
	Minute int
	Second int
	Offset int // seconds east of UTC
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d%s", t.Hour, t.Minute, t.Second, FormatOffset(t.Offset))
}

// FormatOffset renders an offset in seconds as ±HH:MM.
func FormatOffset(offset int) string {
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return fmt.Sprintf("%c%02d:%02d", sign, offset/3600, (offset%3600)/60)
}

var clockRegex = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})([+-])(\d{2}):(\d{2})$`)

// ParseClockTime reads the String form back. It is used when loading
// sections from storage.
func ParseClockTime(s string) (*ClockTime, error) {
	m := clockRegex.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("%q is not a zoned clock time", s)
	}
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	offset := atoi(m[5])*3600 + atoi(m[6])*60
	if m[4] == "-" {
		offset = -offset
	}
	t := &ClockTime{Hour: atoi(m[1]), Minute: atoi(m[2]), Second: atoi(m[3]), Offset: offset}
	if t.Hour > 23 || t.Minute > 59 || t.Second > 59 {
		return nil, fmt.Errorf("%q is out of range", s)
	}
	return t, nil
}
