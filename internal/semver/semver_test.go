package semver

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  string
		err   bool
	}{
		{"0.43.0", "0.43.0", false},
		{"1.2.3-rc1", "1.2.3-rc1", false},
		{"1.2.3+build.7", "1.2.3+build.7", false},
		{"1.2.3-alpha.1+git.abc", "1.2.3-alpha.1+git.abc", false},
		{"current", "current", false},
		{"CURRENT", "current", false},
		{"  0.55.2  ", "0.55.2", false},
		{"abc", "", true},
		{"1.2", "", true},
		{"1.2.3.4", "", true},
		{"v1.2.3", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.input)
		if tt.err {
			if err == nil {
				t.Errorf("Parse(%q) expected error", tt.input)
			}
			var pe *ParseError
			if err != nil && !errors.As(err, &pe) {
				t.Errorf("Parse(%q) error type = %T, want *ParseError", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want Ordering
	}{
		{"0.43.0", "0.52.0", Less},
		{"0.55.2", "0.55.2", Equal},
		{"1.0.0", "0.99.99", Greater},
		{"0.55.2", "0.55.10", Less},
		{"1.2.3", "1.2.3-rc1", Greater},
		{"1.2.3-rc1", "1.2.3", Less},
		{"1.2.3-alpha", "1.2.3-beta", Less},
		{"1.2.3-rc1", "1.2.3-rc1", Equal},
		{"1.2.3+linux", "1.2.3+darwin", Equal},
		{"current", "current", Equal},
		{"current", "9999.0.0", Greater},
		{"0.0.1", "current", Less},
	}
	for _, tt := range tests {
		got, err := CompareStrings(tt.a, tt.b)
		if err != nil {
			t.Fatalf("CompareStrings(%q, %q): %v", tt.a, tt.b, err)
		}
		if got != tt.want {
			t.Errorf("Compare(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

// Compare must be antisymmetric over every pair in the table.
func TestCompareInverse(t *testing.T) {
	tokens := []string{"0.43.0", "0.52.0", "0.55.2", "0.56.4", "1.0.0", "1.2.3-rc1", "1.2.3", "current"}
	for _, a := range tokens {
		for _, b := range tokens {
			ab, err := CompareStrings(a, b)
			if err != nil {
				t.Fatal(err)
			}
			ba, err := CompareStrings(b, a)
			if err != nil {
				t.Fatal(err)
			}
			if ab != -ba {
				t.Errorf("Compare(%q, %q) = %v but Compare(%q, %q) = %v", a, b, ab, b, a, ba)
			}
			if a == b && ab != Equal {
				t.Errorf("Compare(%q, %q) = %v, want equal", a, b, ab)
			}
		}
	}
}

func TestCompareStringsMalformed(t *testing.T) {
	if _, err := CompareStrings("abc", "1.0.0"); err == nil {
		t.Fatal("expected ParseError for malformed left operand")
	}
	if _, err := CompareStrings("1.0.0", "1.0"); err == nil {
		t.Fatal("expected ParseError for malformed right operand")
	}
}

func TestParseList(t *testing.T) {
	vs, err := ParseList([]string{"0.55.2", "0.56.4", "current"})
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	if len(vs) != 3 {
		t.Fatalf("len = %d, want 3", len(vs))
	}
	if !vs[2].IsCurrent() {
		t.Error("last entry should be the current sentinel")
	}
	if _, err := ParseList([]string{"0.55.2", "nope"}); err == nil {
		t.Error("expected error for malformed list entry")
	}
}

func TestAtLeast(t *testing.T) {
	if !MustParse("0.56.4").AtLeast(MustParse("0.56.4")) {
		t.Error("0.56.4 should be at least 0.56.4")
	}
	if MustParse("0.56.3").AtLeast(MustParse("0.56.4")) {
		t.Error("0.56.3 should not be at least 0.56.4")
	}
	if !Current.AtLeast(MustParse("999.0.0")) {
		t.Error("current should be at least any concrete version")
	}
}
