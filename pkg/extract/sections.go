package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/openswoop/syllabank/pkg/catalog"
)

var (
	slotRegex  = regexp.MustCompile(`\b([MTWRFSU]{1,7})\s*\(([^()\-–—]+)[-–—]([^()]+)\)`)
	clockRegex = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*([ap])\.?m\.?$`)
	listSplit  = regexp.MustCompile(`\s*[,;]\s*`)
)

// Sections combines the "Usually Held" time slots with the recent
// professors and semesters. Each slot becomes one section taught by the
// first professor in the most recent term. Without slots, up to three
// placeholder sections keep the instructor history.
func Sections(lines []string, offset int) []catalog.Section {
	held := strings.Join(block(lines, "usually held"), " ")
	professors := splitList(block(lines, "recent professors"))
	semesters := splitList(blockUntil(lines, "recent semesters", isHeading))

	var terms []string
	if recent := catalog.MostRecentTerm(semesters); recent != "" {
		terms = []string{recent}
	}

	var sections []catalog.Section
	for _, m := range slotRegex.FindAllStringSubmatch(held, -1) {
		instructor := unknownLecturer
		if len(professors) > 0 {
			instructor = professors[0]
		}
		sections = append(sections, catalog.Section{
			Instructor: instructor,
			Days:       DayCodes(m[1]),
			StartTime:  NormalizeTime(m[2], offset),
			EndTime:    NormalizeTime(m[3], offset),
			Terms:      terms,
		})
	}
	if len(sections) > 0 {
		return sections
	}

	for i, professor := range professors {
		if i == maxPlaceholders {
			break
		}
		sections = append(sections, catalog.Section{
			Instructor: professor,
			Terms:      terms,
		})
	}
	return sections
}

func splitList(lines []string) []string {
	var out []string
	for _, line := range lines {
		for _, item := range listSplit.Split(line, -1) {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// DayCodes splits "MWF" into single-letter day codes.
func DayCodes(days string) []string {
	var codes []string
	for _, r := range strings.ToUpper(days) {
		if strings.ContainsRune("MTWRFSU", r) {
			codes = append(codes, string(r))
		}
	}
	return codes
}

// NormalizeTime converts a 12-hour token such as "8:30am" into a 24-hour
// clock time at the given UTC offset. Tokens that do not match yield nil.
func NormalizeTime(token string, offset int) *catalog.ClockTime {
	m := clockRegex.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return nil
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return nil
	}

	switch strings.ToLower(m[3]) {
	case "a":
		if hour == 12 {
			hour = 0
		}
	case "p":
		if hour != 12 {
			hour += 12
		}
	}
	return &catalog.ClockTime{Hour: hour, Minute: minute, Offset: offset}
}

// FixedOffset returns the standard-time UTC offset of the named time zone,
// in seconds.
func FixedOffset(timezone string) (int, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return 0, err
	}
	_, offset := time.Date(time.Now().Year(), time.January, 1, 12, 0, 0, 0, loc).Zone()
	return offset, nil
}

var offsetRegex = regexp.MustCompile(`^([+-])(\d{2}):?(\d{2})$`)

// ParseOffset reads "-05:00" style offsets into seconds east of UTC.
func ParseOffset(s string) (int, bool) {
	m := offsetRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	offset := hours*3600 + minutes*60
	if m[1] == "-" {
		offset = -offset
	}
	return offset, true
}
