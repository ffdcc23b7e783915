package pvdata

import "fmt"

// FieldBuilder declares a Structure field by field.
//
//	s, err := pvdata.NewFieldBuilder().
//		AddArray("axes", pvdata.PVString).
//		Add("size", pvdata.PVInt).
//		SetID("scanpointgenerator:generator/LineGenerator:1.0").
//		CreateStructure()
//
// The first error (an invalid scalar type, a nil field) is kept and
// returned by CreateStructure; later calls are ignored.
type FieldBuilder struct {
	id     string
	names  []string
	fields []Field
	err    error
}

// NewFieldBuilder returns an empty builder.
func NewFieldBuilder() *FieldBuilder {
	return &FieldBuilder{}
}

// SetID sets the type identifier of the structure being built.
func (b *FieldBuilder) SetID(id string) *FieldBuilder {
	b.id = id
	return b
}

// Add appends a scalar field.
func (b *FieldBuilder) Add(name string, st ScalarType) *FieldBuilder {
	if b.err == nil && !st.Valid() {
		b.err = fmt.Errorf("pvdata: field %q: invalid scalar type %d", name, int(st))
		return b
	}
	if b.err != nil {
		return b
	}
	return b.AddField(name, NewScalar(st))
}

// AddArray appends a scalar array field.
func (b *FieldBuilder) AddArray(name string, st ScalarType) *FieldBuilder {
	if b.err == nil && !st.Valid() {
		b.err = fmt.Errorf("pvdata: field %q: invalid scalar type %d", name, int(st))
		return b
	}
	if b.err != nil {
		return b
	}
	return b.AddField(name, NewScalarArray(st))
}

// AddField appends an arbitrary field.
func (b *FieldBuilder) AddField(name string, f Field) *FieldBuilder {
	if b.err != nil {
		return b
	}
	if f == nil {
		b.err = fmt.Errorf("pvdata: field %q is nil", name)
		return b
	}
	b.names = append(b.names, name)
	b.fields = append(b.fields, f)
	return b
}

// AddFieldArray appends an array of f: a StructureArray for a Structure,
// a UnionArray for a Union and a ScalarArray for a Scalar.
func (b *FieldBuilder) AddFieldArray(name string, f Field) *FieldBuilder {
	if b.err != nil {
		return b
	}
	switch t := f.(type) {
	case *Scalar:
		return b.AddField(name, NewScalarArray(t.ScalarType()))
	case *Structure:
		return b.AddField(name, NewStructureArray(t))
	case *Union:
		return b.AddField(name, NewUnionArray(t))
	}
	b.err = fmt.Errorf("pvdata: field %q: cannot make an array of %v", name, f)
	return b
}

// CreateStructure returns the declared Structure.
func (b *FieldBuilder) CreateStructure() (*Structure, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewStructure(b.id, b.names, b.fields)
}

// CreateUnion returns the declared fields as a fixed Union. With no fields
// it returns the variant union.
func (b *FieldBuilder) CreateUnion() (*Union, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewUnion(b.id, b.names, b.fields)
}
