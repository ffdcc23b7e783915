package pvdata

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrNoSuchField is returned when a named sub-field does not exist.
	ErrNoSuchField = errors.New("pvdata: no such field")
	// ErrFieldType is returned when a field or value has the wrong type.
	ErrFieldType = errors.New("pvdata: field type mismatch")
)

// PVField is a value container. Every PVField was created from, and keeps,
// its introspection Field.
type PVField interface {
	Field() Field
	pvField()
}

// ScalarValue lists the Go types that back a pvData scalar.
type ScalarValue interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64 | string
}

// ScalarTypeOf returns the scalar type backing the Go value v.
func ScalarTypeOf(v any) (ScalarType, bool) {
	switch v.(type) {
	case bool:
		return PVBoolean, true
	case int8:
		return PVByte, true
	case int16:
		return PVShort, true
	case int32:
		return PVInt, true
	case int64:
		return PVLong, true
	case uint8:
		return PVUByte, true
	case uint16:
		return PVUShort, true
	case uint32:
		return PVUInt, true
	case uint64:
		return PVULong, true
	case float32:
		return PVFloat, true
	case float64:
		return PVDouble, true
	case string:
		return PVString, true
	}
	return 0, false
}

// ArrayTypeOf returns the element scalar type backing the Go slice v.
func ArrayTypeOf(v any) (ScalarType, bool) {
	switch v.(type) {
	case []bool:
		return PVBoolean, true
	case []int8:
		return PVByte, true
	case []int16:
		return PVShort, true
	case []int32:
		return PVInt, true
	case []int64:
		return PVLong, true
	case []uint8:
		return PVUByte, true
	case []uint16:
		return PVUShort, true
	case []uint32:
		return PVUInt, true
	case []uint64:
		return PVULong, true
	case []float32:
		return PVFloat, true
	case []float64:
		return PVDouble, true
	case []string:
		return PVString, true
	}
	return 0, false
}

func zeroScalar(st ScalarType) any {
	switch st {
	case PVBoolean:
		return false
	case PVByte:
		return int8(0)
	case PVShort:
		return int16(0)
	case PVInt:
		return int32(0)
	case PVLong:
		return int64(0)
	case PVUByte:
		return uint8(0)
	case PVUShort:
		return uint16(0)
	case PVUInt:
		return uint32(0)
	case PVULong:
		return uint64(0)
	case PVFloat:
		return float32(0)
	case PVDouble:
		return float64(0)
	}
	return ""
}

func emptyArray(st ScalarType) any {
	switch st {
	case PVBoolean:
		return []bool{}
	case PVByte:
		return []int8{}
	case PVShort:
		return []int16{}
	case PVInt:
		return []int32{}
	case PVLong:
		return []int64{}
	case PVUByte:
		return []uint8{}
	case PVUShort:
		return []uint16{}
	case PVUInt:
		return []uint32{}
	case PVULong:
		return []uint64{}
	case PVFloat:
		return []float32{}
	case PVDouble:
		return []float64{}
	}
	return []string{}
}

// PVScalar holds one scalar value.
type PVScalar struct {
	scalar *Scalar
	value  any
}

func (p *PVScalar) Field() Field    { return p.scalar }
func (p *PVScalar) Scalar() *Scalar { return p.scalar }
func (p *PVScalar) Get() any        { return p.value }
func (*PVScalar) pvField()          {}

// Put stores v, which must have exactly the Go type backing the scalar.
func (p *PVScalar) Put(v any) error {
	st, ok := ScalarTypeOf(v)
	if !ok || st != p.scalar.ScalarType() {
		return fmt.Errorf("%w: cannot put %T into %s", ErrFieldType, v, p.scalar.ID())
	}
	p.value = v
	return nil
}

// PVScalarArray holds a homogeneous array as a Go slice.
type PVScalarArray struct {
	array *ScalarArray
	value any
}

func (p *PVScalarArray) Field() Field              { return p.array }
func (p *PVScalarArray) ScalarArray() *ScalarArray { return p.array }
func (*PVScalarArray) pvField()                    {}

// Get returns the backing slice. Callers must not modify it.
func (p *PVScalarArray) Get() any { return p.value }

// Len returns the number of elements.
func (p *PVScalarArray) Len() int { return reflect.ValueOf(p.value).Len() }

// Put replaces the contents with a copy of v, which must be a slice of
// exactly the Go type backing the element type. A nil slice stores an
// empty array.
func (p *PVScalarArray) Put(v any) error {
	st, ok := ArrayTypeOf(v)
	if !ok || st != p.array.ElementType() {
		return fmt.Errorf("%w: cannot put %T into %s", ErrFieldType, v, p.array.ID())
	}
	src := reflect.ValueOf(v)
	dst := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
	reflect.Copy(dst, src)
	p.value = dst.Interface()
	return nil
}

// PVStructure holds one container per field of its Structure.
type PVStructure struct {
	structure *Structure
	fields    []PVField
}

func (p *PVStructure) Field() Field          { return p.structure }
func (p *PVStructure) Structure() *Structure { return p.structure }
func (*PVStructure) pvField()                {}

// NumFields returns the number of direct sub-fields.
func (p *PVStructure) NumFields() int { return len(p.fields) }

// FieldAt returns the i-th sub-field container.
func (p *PVStructure) FieldAt(i int) PVField { return p.fields[i] }

// SubField returns the container at a dotted path such as "method.method",
// or nil when there is none.
func (p *PVStructure) SubField(path string) PVField {
	cur := p
	for {
		name, rest, nested := strings.Cut(path, ".")
		i := cur.structure.FieldIndex(name)
		if i < 0 {
			return nil
		}
		if !nested {
			return cur.fields[i]
		}
		next, ok := cur.fields[i].(*PVStructure)
		if !ok {
			return nil
		}
		cur, path = next, rest
	}
}

func subField[T PVField](p *PVStructure, path string) (T, error) {
	var zero T
	f := p.SubField(path)
	if f == nil {
		return zero, fmt.Errorf("%w: %q in %s", ErrNoSuchField, path, p.structure.ID())
	}
	t, ok := f.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %s", ErrFieldType, path, f.Field().ID())
	}
	return t, nil
}

// ScalarField returns the scalar container at path.
func (p *PVStructure) ScalarField(path string) (*PVScalar, error) {
	return subField[*PVScalar](p, path)
}

// ScalarArrayField returns the scalar array container at path.
func (p *PVStructure) ScalarArrayField(path string) (*PVScalarArray, error) {
	return subField[*PVScalarArray](p, path)
}

// StructureField returns the structure container at path.
func (p *PVStructure) StructureField(path string) (*PVStructure, error) {
	return subField[*PVStructure](p, path)
}

// StructureArrayField returns the structure array container at path.
func (p *PVStructure) StructureArrayField(path string) (*PVStructureArray, error) {
	return subField[*PVStructureArray](p, path)
}

// UnionField returns the union container at path.
func (p *PVStructure) UnionField(path string) (*PVUnion, error) {
	return subField[*PVUnion](p, path)
}

// UnionArrayField returns the union array container at path.
func (p *PVStructure) UnionArrayField(path string) (*PVUnionArray, error) {
	return subField[*PVUnionArray](p, path)
}

// Get reads the scalar at path as T.
func Get[T ScalarValue](p *PVStructure, path string) (T, error) {
	var zero T
	s, err := p.ScalarField(path)
	if err != nil {
		return zero, err
	}
	v, ok := s.value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %s, not %T", ErrFieldType, path, s.scalar.ID(), zero)
	}
	return v, nil
}

// Put writes v to the scalar at path.
func Put[T ScalarValue](p *PVStructure, path string, v T) error {
	s, err := p.ScalarField(path)
	if err != nil {
		return err
	}
	if err := s.Put(v); err != nil {
		return fmt.Errorf("%q: %w", path, err)
	}
	return nil
}

// GetArray reads the scalar array at path as a fresh []T.
func GetArray[T ScalarValue](p *PVStructure, path string) ([]T, error) {
	a, err := p.ScalarArrayField(path)
	if err != nil {
		return nil, err
	}
	v, ok := a.value.([]T)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %s, not %T", ErrFieldType, path, a.array.ID(), []T(nil))
	}
	return append([]T{}, v...), nil
}

// PutArray writes v to the scalar array at path.
func PutArray[T ScalarValue](p *PVStructure, path string, v []T) error {
	a, err := p.ScalarArrayField(path)
	if err != nil {
		return err
	}
	if v == nil {
		v = []T{}
	}
	if err := a.Put(v); err != nil {
		return fmt.Errorf("%q: %w", path, err)
	}
	return nil
}

// PVStructureArray holds structures sharing one Structure.
type PVStructureArray struct {
	array  *StructureArray
	values []*PVStructure
}

func (p *PVStructureArray) Field() Field        { return p.array }
func (p *PVStructureArray) Get() []*PVStructure { return p.values }
func (p *PVStructureArray) Len() int            { return len(p.values) }
func (*PVStructureArray) pvField()              {}

// Put replaces the elements. Nil elements are allowed.
func (p *PVStructureArray) Put(values []*PVStructure) error {
	for i, v := range values {
		if v != nil && !v.structure.Equal(p.array.structure) {
			return fmt.Errorf("%w: element %d is %s, want %s", ErrFieldType, i, v.structure.ID(), p.array.structure.ID())
		}
	}
	p.values = append([]*PVStructure{}, values...)
	return nil
}

// PVUnion holds at most one active member.
type PVUnion struct {
	union    *Union
	selector int
	value    PVField
}

func (p *PVUnion) Field() Field  { return p.union }
func (p *PVUnion) Union() *Union { return p.union }
func (*PVUnion) pvField()        {}

// Get returns the active value, or nil.
func (p *PVUnion) Get() PVField { return p.value }

// Selector returns the index of the active member of a fixed union, or -1.
func (p *PVUnion) Selector() int { return p.selector }

// SelectedName returns the name of the active member of a fixed union.
func (p *PVUnion) SelectedName() string {
	if p.selector < 0 || p.union.IsVariant() {
		return ""
	}
	return p.union.FieldName(p.selector)
}

// Set makes v the active value. A variant union accepts any container; a
// fixed union selects the first member whose Field equals v's. Nil clears.
func (p *PVUnion) Set(v PVField) error {
	if v == nil {
		p.selector, p.value = -1, nil
		return nil
	}
	if p.union.IsVariant() {
		p.value = v
		return nil
	}
	for i, f := range p.union.fields {
		if f.Equal(v.Field()) {
			p.selector, p.value = i, v
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not a member of %s", ErrFieldType, v.Field().ID(), p.union.ID())
}

// Select activates the named member of a fixed union with a fresh value.
func (p *PVUnion) Select(name string) (PVField, error) {
	i := p.union.FieldIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: union member %q", ErrNoSuchField, name)
	}
	p.selector, p.value = i, CreatePVField(p.union.fields[i])
	return p.value, nil
}

// PVUnionArray holds unions sharing one Union.
type PVUnionArray struct {
	array  *UnionArray
	values []*PVUnion
}

func (p *PVUnionArray) Field() Field    { return p.array }
func (p *PVUnionArray) Get() []*PVUnion { return p.values }
func (p *PVUnionArray) Len() int        { return len(p.values) }
func (*PVUnionArray) pvField()          {}

// Put replaces the elements. Nil elements are allowed.
func (p *PVUnionArray) Put(values []*PVUnion) error {
	for i, v := range values {
		if v != nil && !v.union.Equal(p.array.union) {
			return fmt.Errorf("%w: element %d is %s, want %s", ErrFieldType, i, v.union.ID(), p.array.union.ID())
		}
	}
	p.values = append([]*PVUnion{}, values...)
	return nil
}

// Append adds one element.
func (p *PVUnionArray) Append(v *PVUnion) error {
	return p.Put(append(p.values, v))
}

// CreatePVField allocates a container for f holding zero values.
func CreatePVField(f Field) PVField {
	switch t := f.(type) {
	case *Scalar:
		return &PVScalar{scalar: t, value: zeroScalar(t.ScalarType())}
	case *ScalarArray:
		return &PVScalarArray{array: t, value: emptyArray(t.ElementType())}
	case *Structure:
		return CreatePVStructure(t)
	case *StructureArray:
		return &PVStructureArray{array: t, values: []*PVStructure{}}
	case *Union:
		return NewPVUnion(t)
	case *UnionArray:
		return &PVUnionArray{array: t, values: []*PVUnion{}}
	}
	panic(fmt.Sprintf("pvdata: unknown field %T", f))
}

// CreatePVStructure allocates a container tree for s.
func CreatePVStructure(s *Structure) *PVStructure {
	p := &PVStructure{structure: s, fields: make([]PVField, len(s.fields))}
	for i, f := range s.fields {
		p.fields[i] = CreatePVField(f)
	}
	return p
}

// NewPVUnion allocates an empty union container.
func NewPVUnion(u *Union) *PVUnion {
	return &PVUnion{union: u, selector: -1}
}

// NewVariant returns a variant union holding v.
func NewVariant(v PVField) *PVUnion {
	u := NewPVUnion(variantUnion)
	u.value = v
	return u
}
