package normalize

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  main   street  ", "MAIN STREET"},
		{"Main\tStreet", "MAIN STREET"},
		{"", ""},
		{"ALREADY UPPER", "ALREADY UPPER"},
		{"multiple   internal    spaces", "MULTIPLE INTERNAL SPACES"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeStreetSuffix(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"main st", "MAIN STREET"},
		{"elm ave", "ELM AVENUE"},
		{"broadway", "BROADWAY"},
		{"", ""},
		{"park blvd", "PARK BOULEVARD"},
		{"unrecognized xyz", "UNRECOGNIZED XYZ"},
	}
	for _, c := range cases {
		if got := NormalizeStreetSuffix(c.in); got != c.want {
			t.Errorf("NormalizeStreetSuffix(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
