package ast

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// ToJSON serializes a module to indented JSON. Every node object carries a
// "node" key naming its Go type, so statements and expressions held in
// interface fields stay distinguishable.
func ToJSON(m *Module) ([]byte, error) {
	data, err := json.MarshalIndent(dumpValue(reflect.ValueOf(m)), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ast: JSON marshal failed: %w", err)
	}
	return data, nil
}

var (
	nodeType     = reflect.TypeFor[Node]()
	stringerType = reflect.TypeFor[fmt.Stringer]()
)

func dumpValue(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		if v.Kind() == reflect.Pointer && v.Type().Implements(nodeType) {
			return dumpStruct(v.Elem(), v.Elem().Type().Name())
		}
		return dumpValue(v.Elem())
	case reflect.Struct:
		return dumpStruct(v, "")
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		out := make([]any, v.Len())
		for i := range out {
			out[i] = dumpValue(v.Index(i))
		}
		return out
	}
	if v.Type().Implements(stringerType) && v.Kind() != reflect.Bool {
		return v.Interface().(fmt.Stringer).String()
	}
	return v.Interface()
}

func dumpStruct(v reflect.Value, name string) map[string]any {
	out := make(map[string]any)
	if name != "" {
		out["node"] = name
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		fv := v.Field(i)
		if f.Anonymous && f.Type == reflect.TypeFor[Pos]() {
			p := fv.Interface().(Pos)
			out["line"] = p.Line
			out["column"] = p.Column
			continue
		}
		if !f.IsExported() {
			continue
		}
		key, omitEmpty := jsonKey(f)
		if key == "-" || (omitEmpty && fv.IsZero()) {
			continue
		}
		out[key] = dumpValue(fv)
	}
	return out
}

// jsonKey reads the field's json tag the way encoding/json would.
func jsonKey(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name, false
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, strings.Contains(opts, "omitempty")
}
