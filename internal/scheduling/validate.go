package scheduling

import (
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04"
	MinPhoneLength = 7
)

// Clock supplies the current instant. Today is derived in the clock's location.
type Clock func() time.Time

// SystemClock returns a Clock reading the wall clock in loc.
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}

func (c Clock) Today() string {
	return c().Format(DateLayout)
}

// ParseDate reports whether s is a well-formed YYYY-MM-DD calendar date.
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid("date", "required")
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil || t.Format(DateLayout) != s {
		return "", invalid("date", "must be YYYY-MM-DD")
	}
	return s, nil
}

// travelDate parses s and rejects dates before today. Fixed-width ISO dates
// compare correctly as strings.
func travelDate(s string, clock Clock) (string, error) {
	d, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	if d < clock.Today() {
		return "", invalid("date", "must not be in the past")
	}
	return d, nil
}

func parseTimeOfDay(s *string) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(TimeLayout, v)
	if err != nil {
		// accept HH:MM:SS from browsers that send seconds
		if t, err = time.Parse("15:04:05", v); err != nil {
			return nil, invalid("time", "must be HH:MM")
		}
	}
	out := t.Format(TimeLayout)
	return &out, nil
}

func validPhone(p string) bool {
	if len(p) < MinPhoneLength {
		return false
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func normalizeGender(g string) (string, bool) {
	g = strings.ToUpper(strings.TrimSpace(g))
	return g, g == "M" || g == "F"
}

func cleanStops(stops []string) []string {
	out := make([]string, 0, len(stops))
	for _, s := range stops {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
