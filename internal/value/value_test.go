package value

import (
	"testing"
	"unicode/utf8"
)

func TestZero(t *testing.T) {
	tests := []struct {
		typeName string
		want     Value
	}{
		{"Integer", int64(0)},
		{"LONG", int64(0)},
		{"byte", int64(0)},
		{"Double", 0.0},
		{"Currency", 0.0},
		{"String", ""},
		{"boolean", false},
		{"Date", Epoch},
		{"Variant", nil},
		{"Widget", nil},
		{"", nil},
	}
	for _, tt := range tests {
		if got := Zero(tt.typeName); got != tt.want {
			t.Errorf("Zero(%q) = %#v, want %#v", tt.typeName, got, tt.want)
		}
	}
}

func TestFixedString(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"abc", 5, "abc  "},
		{"abcdef", 3, "abc"},
		{"", 2, "  "},
		{"héllo", 3, "hél"},
	}
	for _, tt := range tests {
		if got := FixedString(tt.in, tt.n); got != tt.want {
			t.Errorf("FixedString(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestRecordFixedLength(t *testing.T) {
	r := NewRecord("Employee")
	r.AddField("Name", 50, "")
	r.AddField("Salary", 0, 0.0)

	for _, assigned := range []string{"", "Ann", string(make([]byte, 80))} {
		if err := r.Set("name", assigned); err != nil {
			t.Fatal(err)
		}
		got, _ := r.Get("Name")
		if n := utf8.RuneCountInString(got.(string)); n != 50 {
			t.Errorf("after assigning %d chars, length = %d, want 50", len(assigned), n)
		}
	}
	if err := r.Set("Missing", 1); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestAdd(t *testing.T) {
	tests := []struct {
		a, b Value
		want Value
	}{
		{int64(1), int64(2), int64(3)},
		{nil, int64(4), int64(4)},
		{1.5, int64(1), 2.5},
		{"2", 3.0, 5.0},
	}
	for _, tt := range tests {
		got, err := Add(tt.a, tt.b)
		if err != nil {
			t.Fatalf("Add(%v, %v): %v", tt.a, tt.b, err)
		}
		if got != tt.want {
			t.Errorf("Add(%v, %v) = %#v, want %#v", tt.a, tt.b, got, tt.want)
		}
	}
	if _, err := Add("x", 1); err == nil {
		t.Error("expected type mismatch")
	}
}

func TestIsReference(t *testing.T) {
	if !IsReference(NewRecord("T")) {
		t.Error("record should be a reference value")
	}
	if IsReference("s") || IsReference(int64(1)) || IsReference(nil) {
		t.Error("scalars are not reference values")
	}
}
