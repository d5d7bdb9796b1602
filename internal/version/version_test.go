package version

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  SemVer
		err   bool
	}{
		{"0.1.0", SemVer{0, 1, 0}, false},
		{"1.2.3", SemVer{1, 2, 3}, false},
		{"v0.1.0", SemVer{0, 1, 0}, false},
		{"v1.0.0-beta", SemVer{1, 0, 0}, false},
		{" 10.20.30 ", SemVer{10, 20, 30}, false},
		{"bad", SemVer{}, true},
		{"1.2", SemVer{}, true},
		{"1.2.x", SemVer{}, true},
		{"1.-2.0", SemVer{}, true},
		{"", SemVer{}, true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.input)
		if tt.err {
			if err == nil {
				t.Errorf("Parse(%q) expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSemVer_Compare(t *testing.T) {
	tests := []struct {
		a, b SemVer
		want int
	}{
		{SemVer{1, 0, 0}, SemVer{1, 0, 0}, 0},
		{SemVer{2, 0, 0}, SemVer{1, 0, 0}, 1},
		{SemVer{1, 2, 0}, SemVer{1, 1, 0}, 1},
		{SemVer{1, 1, 1}, SemVer{1, 1, 2}, -1},
	}

	for _, tt := range tests {
		if got := tt.a.Compare(tt.b); got != tt.want {
			t.Errorf("%v.Compare(%v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCheckRuntime(t *testing.T) {
	tests := []struct {
		installed string
		ok        bool
	}{
		{RuntimeVersion, true},
		{"0.1.7", true},
		{"v0.1.0", true},
		{"0.2.0", false},
		{"1.0.0", false},
		{"0.0.9", false},
		{"latest", false},
	}

	for _, tt := range tests {
		err := CheckRuntime(tt.installed)
		if tt.ok && err != nil {
			t.Errorf("CheckRuntime(%q) unexpected error: %v", tt.installed, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("CheckRuntime(%q) expected error", tt.installed)
		}
	}
}

func TestCheckRuntimeMessage(t *testing.T) {
	err := CheckRuntime("0.3.0")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), ">=0.1.0 <0.2.0") {
		t.Errorf("error should state the compatible range, got: %v", err)
	}
}

func TestInfo(t *testing.T) {
	orig := CommitSHA
	defer func() { CommitSHA = orig }()

	CommitSHA = "dev"
	if got := Info(); !strings.HasPrefix(got, Version) || !strings.Contains(got, "runtime "+RuntimeVersion) {
		t.Errorf("dev Info() = %q", got)
	}

	CommitSHA = "abc1234"
	if got := Info(); !strings.Contains(got, "abc1234") {
		t.Errorf("release Info() = %q, should include the commit", got)
	}
}
