package features

import (
	"fmt"
	"slices"

	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/value"
)

// OptionalParameterDescriptor describes one optional parameter at a call.
type OptionalParameterDescriptor struct {
	Name      string
	Type      string
	Value     value.Value // the supplied value, or the default
	IsMissing bool
}

// MissingFlag is the generated name of the flag that records whether the
// argument was omitted.
func (d OptionalParameterDescriptor) MissingFlag() string {
	return MissingFlag(d.Name)
}

// MissingFlag returns the generated presence-flag name for a parameter.
func MissingFlag(param string) string {
	return param + "$missing"
}

// OptionalParameters resolves optional arguments.
type OptionalParameters struct {
	scope
}

// Process resolves an optional parameter. IsMissing comes from supplied,
// the call-site presence flag, and never from comparing provided with
// def: a caller passing the default explicitly has not omitted it. An
// omitted argument takes def, or the type's zero value when there is no
// default. An omitted Variant without a default stays nil so IsMissing
// remains observable.
func (o *OptionalParameters) Process(name, typeName string, provided value.Value, supplied bool, def value.Value) OptionalParameterDescriptor {
	d := OptionalParameterDescriptor{Name: name, Type: typeName, IsMissing: !supplied}
	switch {
	case supplied:
		d.Value = provided
	case def != nil:
		d.Value = def
	default:
		d.Value = value.Zero(typeName)
	}
	return d
}

// ParamArrayDescriptor is the collected trailing arguments of a call.
type ParamArrayDescriptor struct {
	Name   string
	Values []value.Value
}

// Len returns the number of collected arguments.
func (d ParamArrayDescriptor) Len() int { return len(d.Values) }

// UBound returns the highest index, -1 when empty.
func (d ParamArrayDescriptor) UBound() int { return len(d.Values) - 1 }

// ParamArrays collects variadic arguments.
type ParamArrays struct {
	scope
}

// Collect captures every trailing argument in order. The descriptor owns
// a copy of rest.
func (p *ParamArrays) Collect(name string, rest ...value.Value) ParamArrayDescriptor {
	return ParamArrayDescriptor{Name: name, Values: slices.Clone(rest)}
}

// ValidateParams checks a parameter list: at most one ParamArray, which
// must be last and cannot be combined with Optional parameters, and no
// required parameter after an Optional one.
func ValidateParams(params []*ast.Parameter) error {
	sawOptional := false
	for i, p := range params {
		switch {
		case p.ParamArray:
			if i != len(params)-1 {
				return fmt.Errorf("ParamArray %q must be the last parameter", p.Name)
			}
			if sawOptional {
				return fmt.Errorf("ParamArray %q cannot be used with Optional parameters", p.Name)
			}
			if p.ByVal {
				return fmt.Errorf("ParamArray %q cannot be ByVal", p.Name)
			}
		case p.Optional:
			sawOptional = true
		case sawOptional:
			return fmt.Errorf("parameter %q must be Optional because it follows an Optional parameter", p.Name)
		}
	}
	return nil
}
