package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DateModifier qualifies how a Date should be interpreted.
type DateModifier string

// Supported date modifiers.
const (
	DateExact  DateModifier = ""
	DateBefore DateModifier = "before"
	DateAfter  DateModifier = "after"
	DateAbout  DateModifier = "about"
	DateRange  DateModifier = "between"
)

// aboutYears is the slack applied on each side of an "about" date.
const aboutYears = 50

// Date is a possibly partial calendar date. A zero Year means no date.
type Date struct {
	Modifier DateModifier `json:"modifier,omitempty"`
	Year     int          `json:"year,omitempty"`
	Month    int          `json:"month,omitempty"`
	Day      int          `json:"day,omitempty"`
	EndYear  int          `json:"end_year,omitempty"`
	EndMonth int          `json:"end_month,omitempty"`
	EndDay   int          `json:"end_day,omitempty"`
}

// IsEmpty reports whether the date carries no value.
func (d Date) IsEmpty() bool { return d.Year == 0 }

// ParseDate parses the textual forms accepted by date-bearing rules:
// "1850", "1850-03", "1850-03-02", "before 1850", "after 1850",
// "about 1850" and "between 1800 and 1900". The empty string yields an empty
// date without error.
func ParseDate(text string) (Date, error) {
	s := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if s == "" {
		return Date{}, nil
	}
	var d Date
	switch {
	case strings.HasPrefix(s, "between "):
		rest := strings.TrimPrefix(s, "between ")
		start, end, ok := strings.Cut(rest, " and ")
		if !ok {
			return Date{}, fmt.Errorf("date %q: range needs \"and\"", text)
		}
		lo, err := parseYMD(start)
		if err != nil {
			return Date{}, fmt.Errorf("date %q: %w", text, err)
		}
		hi, err := parseYMD(end)
		if err != nil {
			return Date{}, fmt.Errorf("date %q: %w", text, err)
		}
		d = lo
		d.Modifier = DateRange
		d.EndYear, d.EndMonth, d.EndDay = hi.Year, hi.Month, hi.Day
		if d.ordinalLow() > hi.ordinalHigh() {
			return Date{}, fmt.Errorf("date %q: range start after end", text)
		}
		return d, nil
	case strings.HasPrefix(s, "before "):
		d.Modifier = DateBefore
		s = strings.TrimPrefix(s, "before ")
	case strings.HasPrefix(s, "after "):
		d.Modifier = DateAfter
		s = strings.TrimPrefix(s, "after ")
	case strings.HasPrefix(s, "about "):
		d.Modifier = DateAbout
		s = strings.TrimPrefix(s, "about ")
	case strings.HasPrefix(s, "abt "):
		d.Modifier = DateAbout
		s = strings.TrimPrefix(s, "abt ")
	}
	v, err := parseYMD(s)
	if err != nil {
		return Date{}, fmt.Errorf("date %q: %w", text, err)
	}
	d.Year, d.Month, d.Day = v.Year, v.Month, v.Day
	return d, nil
}

func parseYMD(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) == 0 || len(parts) > 3 {
		return Date{}, fmt.Errorf("unrecognised date %q", s)
	}
	vals := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Date{}, fmt.Errorf("unrecognised date %q", s)
		}
		vals[i] = n
	}
	d := Date{Year: vals[0]}
	if d.Year <= 0 {
		return Date{}, fmt.Errorf("year must be positive in %q", s)
	}
	if len(vals) > 1 {
		d.Month = vals[1]
		if d.Month < 1 || d.Month > 12 {
			return Date{}, fmt.Errorf("month out of range in %q", s)
		}
	}
	if len(vals) > 2 {
		d.Day = vals[2]
		if d.Day < 1 || d.Day > 31 {
			return Date{}, fmt.Errorf("day out of range in %q", s)
		}
	}
	return d, nil
}

func ordinal(y, m, day int, high bool) int {
	if m == 0 {
		if high {
			m = 12
		} else {
			m = 1
		}
	}
	if day == 0 {
		if high {
			day = 31
		} else {
			day = 1
		}
	}
	return y*10000 + m*100 + day
}

func (d Date) ordinalLow() int  { return ordinal(d.Year, d.Month, d.Day, false) }
func (d Date) ordinalHigh() int { return ordinal(d.Year, d.Month, d.Day, true) }

// Span returns the inclusive ordinal interval (yyyymmdd) covered by the date.
func (d Date) Span() (lo, hi int) {
	if d.IsEmpty() {
		return 0, -1
	}
	switch d.Modifier {
	case DateBefore:
		return math.MinInt, d.ordinalHigh()
	case DateAfter:
		return d.ordinalLow(), math.MaxInt
	case DateAbout:
		return ordinal(d.Year-aboutYears, d.Month, d.Day, false), ordinal(d.Year+aboutYears, d.Month, d.Day, true)
	case DateRange:
		return d.ordinalLow(), ordinal(d.EndYear, d.EndMonth, d.EndDay, true)
	default:
		return d.ordinalLow(), d.ordinalHigh()
	}
}

// Matches reports whether the two dates overlap. Empty dates match nothing.
func (d Date) Matches(other Date) bool {
	if d.IsEmpty() || other.IsEmpty() {
		return false
	}
	lo1, hi1 := d.Span()
	lo2, hi2 := other.Span()
	return lo1 <= hi2 && lo2 <= hi1
}

func formatYMD(y, m, d int) string {
	switch {
	case m == 0:
		return fmt.Sprintf("%04d", y)
	case d == 0:
		return fmt.Sprintf("%04d-%02d", y, m)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
	}
}

// String renders the date in the form accepted by ParseDate.
func (d Date) String() string {
	if d.IsEmpty() {
		return ""
	}
	base := formatYMD(d.Year, d.Month, d.Day)
	switch d.Modifier {
	case DateRange:
		return "between " + base + " and " + formatYMD(d.EndYear, d.EndMonth, d.EndDay)
	case DateExact:
		return base
	default:
		return string(d.Modifier) + " " + base
	}
}
