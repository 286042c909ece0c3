package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	weekdayRe   = regexp.MustCompile(`^(next|this)\s+(mon|monday|tue|tuesday|wed|wednesday|thu|thursday|fri|friday|sat|saturday|sun|sunday)$`)
	relWeekRe   = regexp.MustCompile(`^(next|last|this|previous)\s+week$`)
	inRe        = regexp.MustCompile(`^in\s+(\d+)\s+(day|days|week|weeks|month|months)$`)
	agoRe       = regexp.MustCompile(`^(\d+)\s+(day|days|week|weeks|month|months)\s+ago$`)
	fromNowRe   = regexp.MustCompile(`^(\d+)\s+(day|days|week|weeks|month|months)\s+from\s+(now|today)$`)
	isoDateRe   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	dateRe      = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
	shortDateRe = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})$`)
	monthNameRe = regexp.MustCompile(`^(jan|january|feb|february|mar|march|apr|april|may|jun|june|jul|july|aug|august|sep|sept|september|oct|october|nov|november|dec|december)\s+(\d{1,2})(?:,?\s+(\d{4}))?$`)
)

// DateParser turns user input like "next friday" or "3/14" into a date for
// week navigation.
type DateParser struct {
	now      time.Time
	location *time.Location
}

func NewDateParser(loc *time.Location) *DateParser {
	if loc == nil {
		loc = time.Local
	}
	return &DateParser{
		now:      time.Now().In(loc),
		location: loc,
	}
}

func (p *DateParser) SetNow(now time.Time) {
	p.now = now.In(p.location)
}

// Parse returns midnight of the described date.
func (p *DateParser) Parse(input string) (time.Time, error) {
	lower := strings.ToLower(strings.Join(strings.Fields(input), " "))
	if lower == "" {
		return time.Time{}, fmt.Errorf("empty input")
	}

	if date, ok := p.parseRelativeDate(lower); ok {
		return date, nil
	}
	if date, ok, err := p.parseAbsoluteDate(lower); ok {
		return date, err
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", input)
}

func (p *DateParser) parseRelativeDate(lower string) (time.Time, bool) {
	switch lower {
	case "today", "now":
		return p.today(), true
	case "tomorrow", "tmrw":
		return p.today().AddDate(0, 0, 1), true
	case "yesterday":
		return p.today().AddDate(0, 0, -1), true
	}

	if matches := relWeekRe.FindStringSubmatch(lower); matches != nil {
		switch matches[1] {
		case "next":
			return p.today().AddDate(0, 0, 7), true
		case "last", "previous":
			return p.today().AddDate(0, 0, -7), true
		default:
			return p.today(), true
		}
	}

	if matches := weekdayRe.FindStringSubmatch(lower); matches != nil {
		return p.findNextWeekday(parseWeekday(matches[2]), matches[1] == "next"), true
	}

	if matches := inRe.FindStringSubmatch(lower); matches != nil {
		return p.offset(matches[1], matches[2], 1), true
	}
	if matches := fromNowRe.FindStringSubmatch(lower); matches != nil {
		return p.offset(matches[1], matches[2], 1), true
	}
	if matches := agoRe.FindStringSubmatch(lower); matches != nil {
		return p.offset(matches[1], matches[2], -1), true
	}

	return time.Time{}, false
}

func (p *DateParser) offset(count, unit string, sign int) time.Time {
	n, _ := strconv.Atoi(count)
	n *= sign
	date := p.today()
	switch {
	case strings.HasPrefix(unit, "day"):
		return date.AddDate(0, 0, n)
	case strings.HasPrefix(unit, "week"):
		return date.AddDate(0, 0, n*7)
	default:
		return date.AddDate(0, n, 0)
	}
}

func (p *DateParser) parseAbsoluteDate(lower string) (time.Time, bool, error) {
	if matches := isoDateRe.FindStringSubmatch(lower); matches != nil {
		year, _ := strconv.Atoi(matches[1])
		month, _ := strconv.Atoi(matches[2])
		day, _ := strconv.Atoi(matches[3])
		date, err := p.date(year, month, day)
		return date, true, err
	}

	// MM/DD/YYYY or MM-DD-YYYY
	if matches := dateRe.FindStringSubmatch(lower); matches != nil {
		month, _ := strconv.Atoi(matches[1])
		day, _ := strconv.Atoi(matches[2])
		year, _ := strconv.Atoi(matches[3])
		date, err := p.date(year, month, day)
		return date, true, err
	}

	// MM/DD (assume current year)
	if matches := shortDateRe.FindStringSubmatch(lower); matches != nil {
		month, _ := strconv.Atoi(matches[1])
		day, _ := strconv.Atoi(matches[2])
		date, err := p.date(p.now.Year(), month, day)
		return date, true, err
	}

	if matches := monthNameRe.FindStringSubmatch(lower); matches != nil {
		day, _ := strconv.Atoi(matches[2])
		year := p.now.Year()
		if matches[3] != "" {
			year, _ = strconv.Atoi(matches[3])
		}
		date, err := p.date(year, int(parseMonth(matches[1])), day)
		return date, true, err
	}

	return time.Time{}, false, nil
}

// date rejects values time.Date would normalize, like 2/30.
func (p *DateParser) date(year, month, day int) (time.Time, error) {
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, p.location)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date %04d-%02d-%02d", year, month, day)
	}
	return d, nil
}

func parseWeekday(s string) time.Weekday {
	switch s {
	case "mon", "monday":
		return time.Monday
	case "tue", "tuesday":
		return time.Tuesday
	case "wed", "wednesday":
		return time.Wednesday
	case "thu", "thursday":
		return time.Thursday
	case "fri", "friday":
		return time.Friday
	case "sat", "saturday":
		return time.Saturday
	default:
		return time.Sunday
	}
}

func parseMonth(s string) time.Month {
	switch s {
	case "feb", "february":
		return time.February
	case "mar", "march":
		return time.March
	case "apr", "april":
		return time.April
	case "may":
		return time.May
	case "jun", "june":
		return time.June
	case "jul", "july":
		return time.July
	case "aug", "august":
		return time.August
	case "sep", "sept", "september":
		return time.September
	case "oct", "october":
		return time.October
	case "nov", "november":
		return time.November
	case "dec", "december":
		return time.December
	default:
		return time.January
	}
}

func (p *DateParser) findNextWeekday(target time.Weekday, skipThisWeek bool) time.Time {
	date := p.today()
	daysUntilTarget := int(target - date.Weekday())

	if daysUntilTarget <= 0 || skipThisWeek {
		daysUntilTarget += 7
	}

	return date.AddDate(0, 0, daysUntilTarget)
}

func (p *DateParser) today() time.Time {
	y, m, d := p.now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, p.location)
}
