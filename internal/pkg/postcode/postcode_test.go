package postcode

import "testing"

func TestNormaliseUK(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ls270bn", "LS27 0BN"},
		{"M314qn", "M31 4QN"},
		{"LS27 0BN", "LS27 0BN"},
		{"sw1a1aa", "SW1A 1AA"},
		{"ec1a 1bb", "EC1A 1BB"},
		{"  m1 1ae  ", "M1 1AE"},
	}

	for _, tt := range tests {
		if got := NormaliseUK(tt.in); got != tt.want {
			t.Errorf("NormaliseUK(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormaliseUK_PassThrough(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"York", "York"},   // too short once cleaned
		{"Leeds", "Leeds"}, // five characters but not postcode-shaped
		{"123 Long Street, Manchester", "123 Long Street, Manchester"},
		{"  Leeds  ", "Leeds"}, // trimmed only
	}

	for _, tt := range tests {
		if got := NormaliseUK(tt.in); got != tt.want {
			t.Errorf("NormaliseUK(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
