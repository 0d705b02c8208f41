package variant

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

// Duration is an xsd:duration. Calendar fields are kept apart from clock
// fields because a month has no fixed length.
type Duration struct {
	Negative bool
	Years    int
	Months   int
	Days     int
	Hours    int
	Minutes  int
	Seconds  int
	Nanos    int
}

// FromStd converts a time.Duration into days and clock fields.
func FromStd(d time.Duration) Duration {
	var out Duration
	if d < 0 {
		out.Negative = true
		d = -d
	}
	out.Days = int(d / (24 * time.Hour))
	d %= 24 * time.Hour
	out.Hours = int(d / time.Hour)
	d %= time.Hour
	out.Minutes = int(d / time.Minute)
	d %= time.Minute
	out.Seconds = int(d / time.Second)
	out.Nanos = int(d % time.Second)
	return out
}

// Std converts to a time.Duration, counting a year as 365 days and a month
// as 30 days.
func (d Duration) Std() time.Duration {
	days := d.Years*365 + d.Months*30 + d.Days
	total := time.Duration(days)*24*time.Hour +
		time.Duration(d.Hours)*time.Hour +
		time.Duration(d.Minutes)*time.Minute +
		time.Duration(d.Seconds)*time.Second +
		time.Duration(d.Nanos)
	if d.Negative {
		return -total
	}
	return total
}

// Normalize carries overflowing fields upward: nanoseconds into seconds,
// seconds into minutes, minutes into hours, hours into days and months into
// years. Days are never carried into months.
func (d Duration) Normalize() Duration {
	d.Seconds += d.Nanos / 1e9
	d.Nanos %= 1e9
	d.Minutes += d.Seconds / 60
	d.Seconds %= 60
	d.Hours += d.Minutes / 60
	d.Minutes %= 60
	d.Days += d.Hours / 24
	d.Hours %= 24
	d.Years += d.Months / 12
	d.Months %= 12
	if d.IsZero() {
		d.Negative = false
	}
	return d
}

func (d Duration) IsZero() bool {
	return d.Years == 0 && d.Months == 0 && d.Days == 0 &&
		d.Hours == 0 && d.Minutes == 0 && d.Seconds == 0 && d.Nanos == 0
}

// String renders the normalized ISO-8601 form, PT0S for zero.
func (d Duration) String() string {
	d = d.Normalize()
	iso := duration.Duration{
		Negative: d.Negative,
		Years:    float64(d.Years),
		Months:   float64(d.Months),
		Days:     float64(d.Days),
		Hours:    float64(d.Hours),
		Minutes:  float64(d.Minutes),
		Seconds:  float64(d.Seconds) + float64(d.Nanos)/1e9,
	}
	return iso.String()
}

// ParseDuration reads the xsd:duration lexical form, for example
// "-P1Y2M3DT4H5M6.5S". Fractions are accepted on seconds only; weeks are
// folded into days.
func ParseDuration(s string) (Duration, error) {
	src := strings.TrimSpace(s)
	if err := checkDesignators(src); err != nil {
		return Duration{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	iso, err := duration.Parse(src)
	if err != nil {
		return Duration{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	d := Duration{Negative: iso.Negative}
	fields := []struct {
		v   float64
		dst *int
	}{
		{iso.Years, &d.Years},
		{iso.Months, &d.Months},
		{iso.Days, &d.Days},
		{iso.Hours, &d.Hours},
		{iso.Minutes, &d.Minutes},
	}
	for _, f := range fields {
		if f.v != math.Trunc(f.v) {
			return Duration{}, fmt.Errorf("invalid duration %q: fraction outside seconds", s)
		}
		*f.dst = int(f.v)
	}
	if iso.Weeks != math.Trunc(iso.Weeks) {
		return Duration{}, fmt.Errorf("invalid duration %q: fraction outside seconds", s)
	}
	d.Days += 7 * int(iso.Weeks)

	whole := math.Trunc(iso.Seconds)
	d.Seconds = int(whole)
	d.Nanos = int(math.Round((iso.Seconds - whole) * 1e9))
	if d.Nanos >= 1e9 {
		d.Seconds++
		d.Nanos -= 1e9
	}
	return d, nil
}

// checkDesignators rejects the forms duration.Parse lets through: no
// component at all, a number without a designator, and a repeated or
// trailing T.
func checkDesignators(src string) error {
	body := strings.TrimPrefix(src, "-")
	if !strings.HasPrefix(body, "P") || len(body) < 3 {
		return errors.New("no components")
	}
	if strings.Count(body, "T") > 1 {
		return errors.New("repeated T")
	}
	prev := byte('P')
	for i := 1; i < len(body); i++ {
		c := body[i]
		if c == 'T' && (isDurationDigit(prev) || i == len(body)-1) {
			return errors.New("misplaced T")
		}
		prev = c
	}
	if isDurationDigit(prev) {
		return errors.New("number without designator")
	}
	return nil
}

func isDurationDigit(c byte) bool { return c >= '0' && c <= '9' || c == '.' }
