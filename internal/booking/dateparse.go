package booking

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var errUnparsed = errors.New("unrecognized format")

var (
	inDaysRe  = regexp.MustCompile(`^in (\d{1,3}) (day|days|week|weeks)$`)
	weekdayRe = regexp.MustCompile(`^(?:(next|this|on|coming) )?(monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)$`)
	clockRe   = regexp.MustCompile(`^(\d{1,2})(?:[:.](\d{2}))?\s*(am|pm|a\.m\.?|p\.m\.?)?$`)
	spacesRe  = regexp.MustCompile(`\s+`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// Absolute layouts, tried in order. Day-first wins for ambiguous numeric dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2/1/2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2",
	"Jan 2",
	"2 January",
	"2 Jan",
}

// ParseDate turns free text into a calendar date relative to today.
// It understands today, tomorrow, weekday names, "in N days" and common
// numeric and month-name layouts. The result is midnight in today's location.
func ParseDate(raw string, today time.Time) (time.Time, error) {
	s := normalizeDateInput(raw)
	day := midnight(today)
	switch s {
	case "":
		return time.Time{}, errUnparsed
	case "today":
		return day, nil
	case "tomorrow":
		return day.AddDate(0, 0, 1), nil
	case "day after tomorrow", "the day after tomorrow":
		return day.AddDate(0, 0, 2), nil
	case "next week":
		return day.AddDate(0, 0, 7), nil
	}
	if m := inDaysRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		if strings.HasPrefix(m[2], "week") {
			n *= 7
		}
		return day.AddDate(0, 0, n), nil
	}
	if m := weekdayRe.FindStringSubmatch(s); m != nil {
		target := weekdays[m[2]]
		ahead := int(target) - int(day.Weekday())
		// "this monday" on a Monday is today; every other form means the next one.
		if ahead < 0 || (ahead == 0 && m[1] != "this") {
			ahead += 7
		}
		return day.AddDate(0, 0, ahead), nil
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, day.Location())
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			return nextOccurrence(t.Month(), t.Day(), day)
		}
		return t, nil
	}
	return time.Time{}, errUnparsed
}

// nextOccurrence finds the first month/day on or after day. Feb 29 skips
// ahead to the next leap year instead of rolling over into March.
func nextOccurrence(month time.Month, dom int, day time.Time) (time.Time, error) {
	for year := day.Year(); year <= day.Year()+8; year++ {
		t := time.Date(year, month, dom, 0, 0, 0, 0, day.Location())
		if t.Month() != month || t.Day() != dom || t.Before(day) {
			continue
		}
		return t, nil
	}
	return time.Time{}, errUnparsed
}

// ParseTime turns free text such as "3pm", "2:30 PM", "14:00" or "noon"
// into an hour and minute. A bare number without am/pm or minutes is rejected.
func ParseTime(raw string) (hour, minute int, err error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "at ")
	s = strings.TrimSpace(strings.TrimSuffix(s, "."))
	switch s {
	case "noon", "midday", "12 noon":
		return 12, 0, nil
	case "midnight":
		return 0, 0, nil
	}
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, errUnparsed
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	meridiem := strings.ReplaceAll(m[3], ".", "")
	switch {
	case meridiem != "":
		if hour < 1 || hour > 12 {
			return 0, 0, errUnparsed
		}
		if meridiem == "am" && hour == 12 {
			hour = 0
		} else if meridiem == "pm" && hour != 12 {
			hour += 12
		}
	case m[2] == "":
		return 0, 0, errUnparsed
	}
	if hour > 23 || minute > 59 {
		return 0, 0, errUnparsed
	}
	return hour, minute, nil
}

func normalizeDateInput(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimRight(s, ".!?")
	s = strings.ReplaceAll(s, ",", " ")
	s = spacesRe.ReplaceAllString(s, " ")
	s = strings.TrimPrefix(s, "on ")
	// 1st, 2nd, 3rd, 4th
	s = ordinalRe.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

var ordinalRe = regexp.MustCompile(`\b(\d{1,2})(st|nd|rd|th)\b`)

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
