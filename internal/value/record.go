package value

import (
	"fmt"
	"strings"
)

// Record is an instance of a user-defined type. Field names are matched
// case-insensitively and fields keep their declaration order.
type Record struct {
	Type   string
	fields []recordField
}

type recordField struct {
	name   string
	length int // fixed string length, 0 if not fixed
	value  Value
}

// NewRecord returns an empty record of the named type. Fields are added
// with AddField.
func NewRecord(typeName string) *Record {
	return &Record{Type: typeName}
}

// AddField appends a field. A positive length makes it a fixed-length
// string, which is padded to that length immediately.
func (r *Record) AddField(name string, length int, initial Value) {
	f := recordField{name: name, length: length, value: initial}
	if length > 0 {
		s, _ := initial.(string)
		f.value = FixedString(s, length)
	}
	r.fields = append(r.fields, f)
}

func (r *Record) field(name string) *recordField {
	for i := range r.fields {
		if strings.EqualFold(r.fields[i].name, name) {
			return &r.fields[i]
		}
	}
	return nil
}

// Get returns a field value.
func (r *Record) Get(name string) (Value, error) {
	f := r.field(name)
	if f == nil {
		return nil, fmt.Errorf("%s has no field %q", r.Type, name)
	}
	return f.value, nil
}

// Set assigns a field. Fixed-length strings are truncated or padded so
// their length never changes.
func (r *Record) Set(name string, v Value) error {
	f := r.field(name)
	if f == nil {
		return fmt.Errorf("%s has no field %q", r.Type, name)
	}
	if f.length > 0 {
		v = FixedString(Format(v), f.length)
	}
	f.value = v
	return nil
}

// Fields returns the field names in declaration order.
func (r *Record) Fields() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.name
	}
	return names
}

func (r *Record) String() string {
	var b strings.Builder
	b.WriteString(r.Type)
	b.WriteString("{")
	for i, f := range r.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", f.name, f.value)
	}
	b.WriteString("}")
	return b.String()
}
