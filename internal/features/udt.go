package features

import (
	"fmt"
	"slices"
	"strings"

	"github.com/barun-bash/vbport/internal/ast"
	"github.com/barun-bash/vbport/internal/parser"
	"github.com/barun-bash/vbport/internal/value"
)

// maxRecordDepth bounds nesting of record fields.
const maxRecordDepth = 32

// DimensionSpec is one resolved array bound. A declaration without `To`
// has Lower 0 and Upper equal to the declared bound.
type DimensionSpec struct {
	Lower int64
	Upper int64
}

// Size returns the number of elements in the dimension.
func (d DimensionSpec) Size() int64 {
	if d.Upper < d.Lower {
		return 0
	}
	return d.Upper - d.Lower + 1
}

// FieldDefinition is one resolved UDT field.
type FieldDefinition struct {
	Name         string
	Type         string
	Dims         []DimensionSpec
	StringLength int // String * n, 0 if not fixed
	Default      value.Value
}

// TypeDefinition is a resolved user-defined type.
type TypeDefinition struct {
	Name       string
	Visibility ast.Visibility
	Module     string
	Fields     []FieldDefinition
}

// UDTs registers user-defined types and builds records from them.
type UDTs struct {
	scope
	session *Session
	defs    []*TypeDefinition
}

func newUDTs(s *Session) *UDTs {
	return &UDTs{session: s}
}

// Define resolves decl in the current module. Bounds and string lengths
// must be constant expressions.
func (u *UDTs) Define(decl *ast.TypeDecl) (*TypeDefinition, error) {
	if err := u.require(); err != nil {
		return nil, err
	}
	def := &TypeDefinition{Name: decl.Name, Visibility: decl.Visibility, Module: u.module}
	for _, f := range decl.Fields {
		fd := FieldDefinition{Name: f.Name, Type: f.Type.Name}
		if f.Type.StringLength != nil {
			n, err := u.session.Consts.Int(f.Type.StringLength)
			if err != nil {
				return nil, fmt.Errorf("type %s field %s: string length: %w", decl.Name, f.Name, err)
			}
			if n <= 0 {
				return nil, fmt.Errorf("type %s field %s: string length must be positive", decl.Name, f.Name)
			}
			fd.StringLength = int(n)
		}
		dims, err := u.ResolveDims(f.Dims)
		if err != nil {
			return nil, fmt.Errorf("type %s field %s: %w", decl.Name, f.Name, err)
		}
		fd.Dims = dims
		fd.Default = value.Zero(fd.Type)
		if _, isEnum := u.session.Enums.Lookup(fd.Type); isEnum {
			fd.Default = int64(0)
		}
		if fd.StringLength > 0 {
			fd.Default = value.FixedString("", fd.StringLength)
		}
		def.Fields = append(def.Fields, fd)
	}

	u.defs = slices.DeleteFunc(u.defs, func(d *TypeDefinition) bool {
		return strings.EqualFold(d.Module, u.module) && strings.EqualFold(d.Name, decl.Name)
	})
	u.defs = append(u.defs, def)
	return def, nil
}

// ResolveDims evaluates array bounds. A bound without `To` is zero-based.
func (u *UDTs) ResolveDims(dims []ast.Dimension) ([]DimensionSpec, error) {
	var out []DimensionSpec
	for _, d := range dims {
		var spec DimensionSpec
		if d.Lower != nil {
			lo, err := u.session.Consts.Int(d.Lower)
			if err != nil {
				return nil, fmt.Errorf("array bound: %w", err)
			}
			spec.Lower = lo
		}
		hi, err := u.session.Consts.Int(d.Upper)
		if err != nil {
			return nil, fmt.Errorf("array bound: %w", err)
		}
		spec.Upper = hi
		out = append(out, spec)
	}
	return out, nil
}

// ParseType parses the text of a Type block and defines it.
func (u *UDTs) ParseType(text string) (*TypeDefinition, error) {
	mod, errs, err := parser.Parse(text, u.module)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, errs[0]
	}
	for _, d := range mod.Declarations {
		if decl, ok := d.(*ast.TypeDecl); ok {
			return u.Define(decl)
		}
	}
	return nil, fmt.Errorf("no Type block found")
}

// Lookup finds a type by name, preferring the current module.
func (u *UDTs) Lookup(name string) (*TypeDefinition, bool) {
	var found *TypeDefinition
	for _, d := range u.defs {
		if !strings.EqualFold(d.Name, name) {
			continue
		}
		if strings.EqualFold(d.Module, u.module) {
			return d, true
		}
		if found == nil {
			found = d
		}
	}
	return found, found != nil
}

// Definitions returns the current module's types in definition order.
func (u *UDTs) Definitions() []*TypeDefinition {
	var out []*TypeDefinition
	for _, d := range u.defs {
		if strings.EqualFold(d.Module, u.module) {
			out = append(out, d)
		}
	}
	return out
}

// NewRecord builds a record with every field at its initial value:
// fixed-length strings space-padded, arrays sized, nested types built.
func (u *UDTs) NewRecord(def *TypeDefinition) (*value.Record, error) {
	return u.newRecord(def, 0)
}

func (u *UDTs) newRecord(def *TypeDefinition, depth int) (*value.Record, error) {
	if depth > maxRecordDepth {
		return nil, fmt.Errorf("type %s nests too deeply", def.Name)
	}
	r := value.NewRecord(def.Name)
	for _, f := range def.Fields {
		if len(f.Dims) > 0 {
			arr, err := u.newArray(f, f.Dims, depth)
			if err != nil {
				return nil, err
			}
			r.AddField(f.Name, 0, arr)
			continue
		}
		elem, err := u.element(f, depth)
		if err != nil {
			return nil, err
		}
		r.AddField(f.Name, f.StringLength, elem)
	}
	return r, nil
}

func (u *UDTs) newArray(f FieldDefinition, dims []DimensionSpec, depth int) ([]value.Value, error) {
	arr := make([]value.Value, dims[0].Size())
	for i := range arr {
		var err error
		if len(dims) > 1 {
			arr[i], err = u.newArray(f, dims[1:], depth)
		} else {
			arr[i], err = u.element(f, depth)
		}
		if err != nil {
			return nil, err
		}
	}
	return arr, nil
}

func (u *UDTs) element(f FieldDefinition, depth int) (value.Value, error) {
	if nested, ok := u.Lookup(f.Type); ok {
		return u.newRecord(nested, depth+1)
	}
	return f.Default, nil
}

func (u *UDTs) forget(module string) {
	u.defs = slices.DeleteFunc(u.defs, func(d *TypeDefinition) bool {
		return strings.EqualFold(d.Module, module)
	})
}
