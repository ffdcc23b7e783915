// Package pvdata implements the self-describing data model carried over
// pvAccess: an immutable introspection tree (Field, Structure, Union, ...)
// and the mutable value containers built from it (PVStructure, PVUnion, ...).
//
// A container always mirrors the Field it was created from. Field names,
// order and types must agree for lookups by name to succeed.
package pvdata

import (
	"fmt"
	"strings"
)

// Type is the kind of an introspection node.
type Type int

const (
	TypeScalar Type = iota
	TypeScalarArray
	TypeStructure
	TypeStructureArray
	TypeUnion
	TypeUnionArray
)

func (t Type) String() string {
	switch t {
	case TypeScalar:
		return "scalar"
	case TypeScalarArray:
		return "scalarArray"
	case TypeStructure:
		return "structure"
	case TypeStructureArray:
		return "structureArray"
	case TypeUnion:
		return "union"
	case TypeUnionArray:
		return "unionArray"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ScalarType is the element type of a scalar or scalar array.
type ScalarType int

const (
	PVBoolean ScalarType = iota
	PVByte
	PVShort
	PVInt
	PVLong
	PVUByte
	PVUShort
	PVUInt
	PVULong
	PVFloat
	PVDouble
	PVString
)

var scalarTypeNames = [...]string{
	PVBoolean: "boolean",
	PVByte:    "byte",
	PVShort:   "short",
	PVInt:     "int",
	PVLong:    "long",
	PVUByte:   "ubyte",
	PVUShort:  "ushort",
	PVUInt:    "uint",
	PVULong:   "ulong",
	PVFloat:   "float",
	PVDouble:  "double",
	PVString:  "string",
}

func (s ScalarType) String() string {
	if s < 0 || int(s) >= len(scalarTypeNames) {
		return fmt.Sprintf("ScalarType(%d)", int(s))
	}
	return scalarTypeNames[s]
}

// Valid reports whether s is one of the defined scalar types.
func (s ScalarType) Valid() bool {
	return s >= PVBoolean && s <= PVString
}

// Default type identifiers, used when a structure or union is not given one.
const (
	DefaultStructureID = "structure"
	DefaultUnionID     = "union"
	VariantUnionID     = "any"
)

// Field is a node of the introspection tree.
type Field interface {
	Type() Type
	ID() string
	Equal(other Field) bool
	fmt.Stringer
}

// Scalar describes a single value of a ScalarType.
type Scalar struct {
	scalarType ScalarType
}

// ScalarArray describes a variable-length homogeneous array.
type ScalarArray struct {
	elementType ScalarType
}

var (
	scalars      [PVString + 1]*Scalar
	scalarArrays [PVString + 1]*ScalarArray
)

func init() {
	for st := PVBoolean; st <= PVString; st++ {
		scalars[st] = &Scalar{scalarType: st}
		scalarArrays[st] = &ScalarArray{elementType: st}
	}
}

// NewScalar returns the shared Scalar introspection node for st.
func NewScalar(st ScalarType) *Scalar {
	if !st.Valid() {
		panic(fmt.Sprintf("pvdata: invalid scalar type %d", int(st)))
	}
	return scalars[st]
}

// NewScalarArray returns the shared ScalarArray introspection node for st.
func NewScalarArray(st ScalarType) *ScalarArray {
	if !st.Valid() {
		panic(fmt.Sprintf("pvdata: invalid scalar type %d", int(st)))
	}
	return scalarArrays[st]
}

func (s *Scalar) Type() Type                   { return TypeScalar }
func (s *Scalar) ID() string                   { return s.scalarType.String() }
func (s *Scalar) ScalarType() ScalarType       { return s.scalarType }
func (s *Scalar) String() string               { return s.ID() }
func (a *ScalarArray) Type() Type              { return TypeScalarArray }
func (a *ScalarArray) ID() string              { return a.elementType.String() + "[]" }
func (a *ScalarArray) ElementType() ScalarType { return a.elementType }
func (a *ScalarArray) String() string          { return a.ID() }

func (s *Scalar) Equal(other Field) bool {
	o, ok := other.(*Scalar)
	return ok && o.scalarType == s.scalarType
}

func (a *ScalarArray) Equal(other Field) bool {
	o, ok := other.(*ScalarArray)
	return ok && o.elementType == a.elementType
}

// Structure is an ordered set of named fields with a type identifier.
type Structure struct {
	id     string
	names  []string
	fields []Field
}

// NewStructure creates a Structure. An empty id becomes DefaultStructureID.
func NewStructure(id string, names []string, fields []Field) (*Structure, error) {
	if len(names) != len(fields) {
		return nil, fmt.Errorf("pvdata: %d field names for %d fields", len(names), len(fields))
	}
	seen := make(map[string]struct{}, len(names))
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("pvdata: empty field name at index %d", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("pvdata: duplicate field name %q", name)
		}
		if fields[i] == nil {
			return nil, fmt.Errorf("pvdata: nil field %q", name)
		}
		seen[name] = struct{}{}
	}
	if id == "" {
		id = DefaultStructureID
	}
	return &Structure{
		id:     id,
		names:  append([]string(nil), names...),
		fields: append([]Field(nil), fields...),
	}, nil
}

func (s *Structure) Type() Type { return TypeStructure }
func (s *Structure) ID() string { return s.id }

// NumFields returns the number of direct sub-fields.
func (s *Structure) NumFields() int { return len(s.fields) }

// FieldNames returns the field names in declaration order.
func (s *Structure) FieldNames() []string { return append([]string(nil), s.names...) }

// FieldName returns the name of the i-th field.
func (s *Structure) FieldName(i int) string { return s.names[i] }

// FieldAt returns the i-th field.
func (s *Structure) FieldAt(i int) Field { return s.fields[i] }

// FieldIndex returns the index of name, or -1.
func (s *Structure) FieldIndex(name string) int {
	for i, n := range s.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Field returns the named sub-field or nil.
func (s *Structure) Field(name string) Field {
	if i := s.FieldIndex(name); i >= 0 {
		return s.fields[i]
	}
	return nil
}

func (s *Structure) Equal(other Field) bool {
	o, ok := other.(*Structure)
	if !ok || o.id != s.id || len(o.fields) != len(s.fields) {
		return false
	}
	for i := range s.fields {
		if s.names[i] != o.names[i] || !s.fields[i].Equal(o.fields[i]) {
			return false
		}
	}
	return true
}

func (s *Structure) String() string {
	var b strings.Builder
	writeField(&b, s, 0)
	return b.String()
}

// StructureArray describes an array of structures sharing one Structure.
type StructureArray struct {
	structure *Structure
}

// NewStructureArray creates a StructureArray of s.
func NewStructureArray(s *Structure) *StructureArray {
	return &StructureArray{structure: s}
}

func (a *StructureArray) Type() Type            { return TypeStructureArray }
func (a *StructureArray) ID() string            { return a.structure.ID() + "[]" }
func (a *StructureArray) Structure() *Structure { return a.structure }
func (a *StructureArray) String() string        { return a.ID() }

func (a *StructureArray) Equal(other Field) bool {
	o, ok := other.(*StructureArray)
	return ok && a.structure.Equal(o.structure)
}

// Union is either a fixed union of named members or, with no members, a
// variant union able to hold any field.
type Union struct {
	id     string
	names  []string
	fields []Field
}

var variantUnion = &Union{id: VariantUnionID}

// VariantUnion returns the shared variant union ("any").
func VariantUnion() *Union { return variantUnion }

// NewUnion creates a fixed union. With no members it is a variant union.
func NewUnion(id string, names []string, fields []Field) (*Union, error) {
	if len(fields) == 0 && len(names) == 0 {
		return variantUnion, nil
	}
	s, err := NewStructure(id, names, fields)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = DefaultUnionID
	}
	return &Union{id: id, names: s.names, fields: s.fields}, nil
}

func (u *Union) Type() Type { return TypeUnion }
func (u *Union) ID() string { return u.id }

// IsVariant reports whether u accepts any field.
func (u *Union) IsVariant() bool { return len(u.fields) == 0 }

// NumFields returns the number of members of a fixed union.
func (u *Union) NumFields() int { return len(u.fields) }

// FieldName returns the name of the i-th member.
func (u *Union) FieldName(i int) string { return u.names[i] }

// FieldAt returns the i-th member.
func (u *Union) FieldAt(i int) Field { return u.fields[i] }

// FieldIndex returns the index of member name, or -1.
func (u *Union) FieldIndex(name string) int {
	for i, n := range u.names {
		if n == name {
			return i
		}
	}
	return -1
}

func (u *Union) Equal(other Field) bool {
	o, ok := other.(*Union)
	if !ok || o.id != u.id || len(o.fields) != len(u.fields) {
		return false
	}
	for i := range u.fields {
		if u.names[i] != o.names[i] || !u.fields[i].Equal(o.fields[i]) {
			return false
		}
	}
	return true
}

func (u *Union) String() string {
	var b strings.Builder
	writeField(&b, u, 0)
	return b.String()
}

// UnionArray describes an array of unions sharing one Union.
type UnionArray struct {
	union *Union
}

// NewUnionArray creates a UnionArray of u.
func NewUnionArray(u *Union) *UnionArray {
	return &UnionArray{union: u}
}

func (a *UnionArray) Type() Type     { return TypeUnionArray }
func (a *UnionArray) ID() string     { return a.union.ID() + "[]" }
func (a *UnionArray) Union() *Union  { return a.union }
func (a *UnionArray) String() string { return a.ID() }

func (a *UnionArray) Equal(other Field) bool {
	o, ok := other.(*UnionArray)
	return ok && a.union.Equal(o.union)
}

func writeField(b *strings.Builder, f Field, depth int) {
	b.WriteString(f.ID())
	var names []string
	var fields []Field
	switch t := f.(type) {
	case *Structure:
		names, fields = t.names, t.fields
	case *Union:
		names, fields = t.names, t.fields
	case *StructureArray:
		names, fields = t.structure.names, t.structure.fields
	case *UnionArray:
		names, fields = t.union.names, t.union.fields
	}
	for i, name := range names {
		b.WriteByte('\n')
		b.WriteString(strings.Repeat("    ", depth+1))
		writeField(b, fields[i], depth+1)
		b.WriteByte(' ')
		b.WriteString(name)
	}
}
