package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"malcolm-pva/pvdata"
)

// document is the self-describing tree the JSON and CBOR codecs serialize:
// the introspection of the top-level structure and its values, kept apart
// so empty arrays and unset unions still carry their types.
type document struct {
	Type  *typeDoc  `json:"type"`
	Value *valueDoc `json:"value"`
}

type typeDoc struct {
	Kind    string   `json:"kind"`
	Scalar  string   `json:"scalar,omitempty"`
	ID      string   `json:"id,omitempty"`
	Members []member `json:"members,omitempty"`
	Element *typeDoc `json:"element,omitempty"`
}

type member struct {
	Name string   `json:"name"`
	Type *typeDoc `json:"type"`
}

// valueDoc holds one container. Scalars and scalar arrays use Value,
// structures use Fields, structure and union arrays use Elements (nil for
// a null element), unions use Selector/Type and Union.
type valueDoc struct {
	Value    any         `json:"value,omitempty"`
	Fields   []*valueDoc `json:"fields,omitempty"`
	Elements []*valueDoc `json:"elements,omitempty"`
	Selector *int        `json:"selector,omitempty"`
	Type     *typeDoc    `json:"type,omitempty"`
	Union    *valueDoc   `json:"union,omitempty"`
}

func newDocument(pv *pvdata.PVStructure) (*document, error) {
	if pv == nil {
		return nil, fmt.Errorf("codec: nil structure")
	}
	v, err := toValueDoc(pv)
	if err != nil {
		return nil, err
	}
	return &document{Type: toTypeDoc(pv.Structure()), Value: v}, nil
}

func (d *document) structure() (*pvdata.PVStructure, error) {
	if d.Type == nil || d.Value == nil {
		return nil, fmt.Errorf("%w: missing type or value", ErrMalformed)
	}
	f, err := fromTypeDoc(d.Type)
	if err != nil {
		return nil, err
	}
	s, ok := f.(*pvdata.Structure)
	if !ok {
		return nil, fmt.Errorf("%w: top level is %v, not a structure", ErrMalformed, f)
	}
	pv := pvdata.CreatePVStructure(s)
	if err := fillValue(pv, d.Value); err != nil {
		return nil, err
	}
	return pv, nil
}

func toTypeDoc(f pvdata.Field) *typeDoc {
	t := &typeDoc{Kind: f.Type().String()}
	switch x := f.(type) {
	case *pvdata.Scalar:
		t.Scalar = x.ScalarType().String()
	case *pvdata.ScalarArray:
		t.Scalar = x.ElementType().String()
	case *pvdata.Structure:
		t.ID = x.ID()
		for i := 0; i < x.NumFields(); i++ {
			t.Members = append(t.Members, member{Name: x.FieldName(i), Type: toTypeDoc(x.FieldAt(i))})
		}
	case *pvdata.StructureArray:
		t.Element = toTypeDoc(x.Structure())
	case *pvdata.Union:
		t.ID = x.ID()
		for i := 0; i < x.NumFields(); i++ {
			t.Members = append(t.Members, member{Name: x.FieldName(i), Type: toTypeDoc(x.FieldAt(i))})
		}
	case *pvdata.UnionArray:
		t.Element = toTypeDoc(x.Union())
	}
	return t
}

func parseScalarType(name string) (pvdata.ScalarType, error) {
	for st := pvdata.PVBoolean; st <= pvdata.PVString; st++ {
		if st.String() == name {
			return st, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown scalar type %q", ErrMalformed, name)
}

func fromTypeDoc(t *typeDoc) (pvdata.Field, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	switch t.Kind {
	case pvdata.TypeScalar.String(), pvdata.TypeScalarArray.String():
		st, err := parseScalarType(t.Scalar)
		if err != nil {
			return nil, err
		}
		if t.Kind == pvdata.TypeScalar.String() {
			return pvdata.NewScalar(st), nil
		}
		return pvdata.NewScalarArray(st), nil
	case pvdata.TypeStructure.String(), pvdata.TypeUnion.String():
		names := make([]string, len(t.Members))
		fields := make([]pvdata.Field, len(t.Members))
		for i, m := range t.Members {
			f, err := fromTypeDoc(m.Type)
			if err != nil {
				return nil, err
			}
			names[i], fields[i] = m.Name, f
		}
		var (
			f   pvdata.Field
			err error
		)
		if t.Kind == pvdata.TypeStructure.String() {
			f, err = pvdata.NewStructure(t.ID, names, fields)
		} else {
			f, err = pvdata.NewUnion(t.ID, names, fields)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return f, nil
	case pvdata.TypeStructureArray.String():
		f, err := fromTypeDoc(t.Element)
		if err != nil {
			return nil, err
		}
		s, ok := f.(*pvdata.Structure)
		if !ok {
			return nil, fmt.Errorf("%w: structure array of %v", ErrMalformed, f)
		}
		return pvdata.NewStructureArray(s), nil
	case pvdata.TypeUnionArray.String():
		f, err := fromTypeDoc(t.Element)
		if err != nil {
			return nil, err
		}
		u, ok := f.(*pvdata.Union)
		if !ok {
			return nil, fmt.Errorf("%w: union array of %v", ErrMalformed, f)
		}
		return pvdata.NewUnionArray(u), nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformed, t.Kind)
}

func toValueDoc(pv pvdata.PVField) (*valueDoc, error) {
	switch t := pv.(type) {
	case *pvdata.PVScalar:
		return &valueDoc{Value: t.Get()}, nil
	case *pvdata.PVScalarArray:
		// Slices become []any so []uint8 is not turned into a byte string.
		rv := reflect.ValueOf(t.Get())
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return &valueDoc{Value: items}, nil
	case *pvdata.PVStructure:
		v := &valueDoc{Fields: make([]*valueDoc, t.NumFields())}
		for i := range v.Fields {
			f, err := toValueDoc(t.FieldAt(i))
			if err != nil {
				return nil, err
			}
			v.Fields[i] = f
		}
		return v, nil
	case *pvdata.PVStructureArray:
		v := &valueDoc{Elements: make([]*valueDoc, t.Len())}
		for i, s := range t.Get() {
			if s == nil {
				continue
			}
			e, err := toValueDoc(s)
			if err != nil {
				return nil, err
			}
			v.Elements[i] = e
		}
		return v, nil
	case *pvdata.PVUnion:
		return unionDoc(t)
	case *pvdata.PVUnionArray:
		v := &valueDoc{Elements: make([]*valueDoc, t.Len())}
		for i, u := range t.Get() {
			if u == nil {
				continue
			}
			e, err := unionDoc(u)
			if err != nil {
				return nil, err
			}
			v.Elements[i] = e
		}
		return v, nil
	}
	return nil, fmt.Errorf("codec: unsupported container %T", pv)
}

func unionDoc(u *pvdata.PVUnion) (*valueDoc, error) {
	v := &valueDoc{}
	if u.Get() == nil {
		return v, nil
	}
	if u.Union().IsVariant() {
		v.Type = toTypeDoc(u.Get().Field())
	} else {
		sel := u.Selector()
		v.Selector = &sel
	}
	inner, err := toValueDoc(u.Get())
	if err != nil {
		return nil, err
	}
	v.Union = inner
	return v, nil
}

func fillValue(pv pvdata.PVField, v *valueDoc) error {
	if v == nil {
		return fmt.Errorf("%w: missing value for %s", ErrMalformed, pv.Field().ID())
	}
	switch t := pv.(type) {
	case *pvdata.PVScalar:
		x, err := convertScalar(t.Scalar().ScalarType(), v.Value)
		if err != nil {
			return err
		}
		return t.Put(x)
	case *pvdata.PVScalarArray:
		x, err := convertArray(t.ScalarArray().ElementType(), v.Value)
		if err != nil {
			return err
		}
		return t.Put(x)
	case *pvdata.PVStructure:
		if len(v.Fields) != t.NumFields() {
			return fmt.Errorf("%w: %s has %d fields, got %d values", ErrMalformed, t.Structure().ID(), t.NumFields(), len(v.Fields))
		}
		for i, f := range v.Fields {
			if err := fillValue(t.FieldAt(i), f); err != nil {
				return err
			}
		}
		return nil
	case *pvdata.PVStructureArray:
		s := t.Field().(*pvdata.StructureArray).Structure()
		values := make([]*pvdata.PVStructure, len(v.Elements))
		for i, e := range v.Elements {
			if e == nil {
				continue
			}
			values[i] = pvdata.CreatePVStructure(s)
			if err := fillValue(values[i], e); err != nil {
				return err
			}
		}
		return t.Put(values)
	case *pvdata.PVUnion:
		return fillUnion(t, v)
	case *pvdata.PVUnionArray:
		u := t.Field().(*pvdata.UnionArray).Union()
		values := make([]*pvdata.PVUnion, len(v.Elements))
		for i, e := range v.Elements {
			if e == nil {
				continue
			}
			values[i] = pvdata.NewPVUnion(u)
			if err := fillUnion(values[i], e); err != nil {
				return err
			}
		}
		return t.Put(values)
	}
	return fmt.Errorf("codec: unsupported container %T", pv)
}

func fillUnion(u *pvdata.PVUnion, v *valueDoc) error {
	if v.Union == nil {
		return u.Set(nil)
	}
	if u.Union().IsVariant() {
		f, err := fromTypeDoc(v.Type)
		if err != nil {
			return err
		}
		inner := pvdata.CreatePVField(f)
		if err := fillValue(inner, v.Union); err != nil {
			return err
		}
		return u.Set(inner)
	}
	if v.Selector == nil || *v.Selector < 0 || *v.Selector >= u.Union().NumFields() {
		return fmt.Errorf("%w: bad selector for %s", ErrMalformed, u.Union().ID())
	}
	inner, err := u.Select(u.Union().FieldName(*v.Selector))
	if err != nil {
		return err
	}
	return fillValue(inner, v.Union)
}

// convertScalar coerces a decoded number, string or bool to the Go type
// backing st. JSON numbers arrive as json.Number, CBOR ones as int64,
// uint64 or float64.
func convertScalar(st pvdata.ScalarType, v any) (any, error) {
	switch st {
	case pvdata.PVBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case pvdata.PVString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case pvdata.PVFloat, pvdata.PVDouble:
		f, ok := toFloat(v)
		if ok && st == pvdata.PVFloat {
			return float32(f), nil
		}
		if ok {
			return f, nil
		}
	default:
		return convertInteger(st, v)
	}
	return nil, fmt.Errorf("%w: %T is not a %s", ErrMalformed, v, st)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

func convertInteger(st pvdata.ScalarType, v any) (any, error) {
	var (
		i        int64
		u        uint64
		negative bool
	)
	switch x := v.(type) {
	case json.Number:
		n, err := x.Int64()
		if err == nil {
			i, negative = n, n < 0
			u = uint64(n)
			break
		}
		var parsed uint64
		if _, serr := fmt.Sscan(string(x), &parsed); serr != nil {
			return nil, fmt.Errorf("%w: %q is not a %s", ErrMalformed, x, st)
		}
		u, i = parsed, math.MaxInt64
	case int64:
		i, negative, u = x, x < 0, uint64(x)
	case uint64:
		u = x
		i = math.MaxInt64
		if x <= math.MaxInt64 {
			i = int64(x)
		}
	default:
		return nil, fmt.Errorf("%w: %T is not a %s", ErrMalformed, v, st)
	}
	inRange := func(lo, hi int64) bool { return i >= lo && i <= hi && (negative || u <= uint64(hi)) }
	uRange := func(hi uint64) bool { return !negative && u <= hi }
	switch st {
	case pvdata.PVByte:
		if inRange(math.MinInt8, math.MaxInt8) {
			return int8(i), nil
		}
	case pvdata.PVShort:
		if inRange(math.MinInt16, math.MaxInt16) {
			return int16(i), nil
		}
	case pvdata.PVInt:
		if inRange(math.MinInt32, math.MaxInt32) {
			return int32(i), nil
		}
	case pvdata.PVLong:
		if inRange(math.MinInt64, math.MaxInt64) {
			return i, nil
		}
	case pvdata.PVUByte:
		if uRange(math.MaxUint8) {
			return uint8(u), nil
		}
	case pvdata.PVUShort:
		if uRange(math.MaxUint16) {
			return uint16(u), nil
		}
	case pvdata.PVUInt:
		if uRange(math.MaxUint32) {
			return uint32(u), nil
		}
	case pvdata.PVULong:
		if uRange(math.MaxUint64) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: %v out of range for %s", ErrMalformed, v, st)
}

func convertArray(st pvdata.ScalarType, v any) (any, error) {
	var items []any
	switch x := v.(type) {
	case nil:
	case []any:
		items = x
	default:
		return nil, fmt.Errorf("%w: %T is not a %s array", ErrMalformed, v, st)
	}
	out := reflect.MakeSlice(reflect.TypeOf(emptyOf(st)), len(items), len(items))
	for i, item := range items {
		x, err := convertScalar(st, item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(reflect.ValueOf(x))
	}
	return out.Interface(), nil
}

func emptyOf(st pvdata.ScalarType) any {
	return pvdata.CreatePVField(pvdata.NewScalarArray(st)).(*pvdata.PVScalarArray).Get()
}
