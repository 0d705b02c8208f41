package variant

import (
	"testing"
	"time"
)

func TestDurationNormalizedText(t *testing.T) {
	cases := []struct {
		in   Duration
		want string
	}{
		{Duration{}, "PT0S"},
		{Duration{Seconds: 90}, "PT1M30S"},
		{Duration{Hours: 25}, "P1DT1H"},
		{Duration{Months: 14}, "P1Y2M"},
		{Duration{Days: 40}, "P40D"},
		{Duration{Negative: true, Minutes: 5, Nanos: 5e8}, "-PT5M0.5S"},
		{Duration{Negative: true}, "PT0S"},
	}
	for _, c := range cases {
		if got := c.in.String(); got != c.want {
			t.Fatalf("%+v: got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	cases := map[string]string{
		"P1Y2M3DT4H5M6.25S": "P1Y2M3DT4H5M6.25S",
		"PT36H":             "P1DT12H",
		"P2W":               "P14D",
		"-P1D":              "-P1D",
		"PT0.000000001S":    "PT0.000000001S",
	}
	for in, want := range cases {
		d, err := ParseDuration(in)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %v", in, err)
		}
		if got := d.String(); got != want {
			t.Fatalf("ParseDuration(%q) = %q, want %q", in, got, want)
		}
	}
	for _, bad := range []string{"", "P", "PT", "1D", "P1H", "PT1D", "P1.5Y", "PTT1H", "P5", "P1DT", "P5T1H", "PT1H2"} {
		if _, err := ParseDuration(bad); err == nil {
			t.Fatalf("ParseDuration(%q): expected error", bad)
		}
	}
}

func TestDurationStdConversion(t *testing.T) {
	std := 49*time.Hour + 3*time.Minute + 4*time.Second + 5*time.Millisecond
	d := FromStd(std)
	if d.String() != "P2DT1H3M4.005S" {
		t.Fatalf("FromStd: %s", d)
	}
	if d.Std() != std {
		t.Fatalf("Std: %s", d.Std())
	}
	if FromStd(-time.Minute).Std() != -time.Minute {
		t.Fatalf("negative round trip")
	}
}
