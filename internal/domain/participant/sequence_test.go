package participant

import "testing"

func TestNextScreeningID(t *testing.T) {
	cases := []struct {
		name     string
		existing []string
		want     string
	}{
		{"empty", nil, "S1"},
		{"gaps", []string{"S1", "S3", "S7"}, "S8"},
		{"single", []string{"S12"}, "S13"},
		{"case insensitive", []string{"s4"}, "S5"},
		{"malformed ignored", []string{"S2", "SX", "screening-9", ""}, "S3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextScreeningID(tc.existing); got != tc.want {
				t.Errorf("NextScreeningID(%v) = %q, want %q", tc.existing, got, tc.want)
			}
		})
	}
}

func TestNextRandomizationID(t *testing.T) {
	if got := NextRandomizationID([]string{"R1", "R3", "R7"}); got != "R8" {
		t.Errorf("got %q, want R8", got)
	}
	if got := NextRandomizationID(nil); got != "R1" {
		t.Errorf("got %q, want R1", got)
	}
	if got := NextRandomizationID([]string{"r2", "S9"}); got != "R3" {
		t.Errorf("got %q, want R3", got)
	}
}
