package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"malcolm-pva/pvdata"
)

// BinaryCodec uses the pvAccess serialization rules: the introspection
// description of the top-level structure followed by its data, big-endian.
//
// Type codes (one byte):
//
//	0x00 boolean  0x20-0x27 byte..ulong  0x42 float  0x43 double  0x60 string
//	| 0x08 for a variable-size array
//	0x80 structure  0x81 union  0x82 variant union  | 0x08 for arrays
//	0xFF null
//
// Sizes are one byte below 254, otherwise 0xFE and an int32. -1 is 0xFF.
type BinaryCodec struct{}

const (
	nullCode         byte = 0xFF
	arrayBit         byte = 0x08
	structureCode    byte = 0x80
	unionCode        byte = 0x81
	variantUnionCode byte = 0x82
)

func (c *BinaryCodec) Encode(pv *pvdata.PVStructure) ([]byte, error) {
	if pv == nil {
		return nil, fmt.Errorf("BinaryCodec: nil structure")
	}
	w := &binaryWriter{}
	w.field(pv.Structure())
	if err := w.value(pv); err != nil {
		return nil, err
	}
	return w.buf, nil
}

func (c *BinaryCodec) Decode(data []byte) (*pvdata.PVStructure, error) {
	r := &binaryReader{data: data}
	f, err := r.field()
	if err != nil {
		return nil, err
	}
	s, ok := f.(*pvdata.Structure)
	if !ok {
		return nil, fmt.Errorf("%w: top level is %v, not a structure", ErrMalformed, f)
	}
	pv := pvdata.CreatePVStructure(s)
	if err := r.value(pv); err != nil {
		return nil, err
	}
	if r.off != len(r.data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(r.data)-r.off)
	}
	return pv, nil
}

func (c *BinaryCodec) Type() CodecType {
	return CodecTypeBinary
}

func scalarCode(st pvdata.ScalarType) byte {
	switch st {
	case pvdata.PVBoolean:
		return 0x00
	case pvdata.PVByte:
		return 0x20
	case pvdata.PVShort:
		return 0x21
	case pvdata.PVInt:
		return 0x22
	case pvdata.PVLong:
		return 0x23
	case pvdata.PVUByte:
		return 0x24
	case pvdata.PVUShort:
		return 0x25
	case pvdata.PVUInt:
		return 0x26
	case pvdata.PVULong:
		return 0x27
	case pvdata.PVFloat:
		return 0x42
	case pvdata.PVDouble:
		return 0x43
	}
	return 0x60
}

func scalarFromCode(code byte) (pvdata.ScalarType, bool) {
	switch code {
	case 0x00:
		return pvdata.PVBoolean, true
	case 0x20, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27:
		return pvdata.PVByte + pvdata.ScalarType(code-0x20), true
	case 0x42:
		return pvdata.PVFloat, true
	case 0x43:
		return pvdata.PVDouble, true
	case 0x60:
		return pvdata.PVString, true
	}
	return 0, false
}

type binaryWriter struct {
	buf []byte
}

func (w *binaryWriter) byte(b byte) { w.buf = append(w.buf, b) }

func (w *binaryWriter) size(n int) {
	switch {
	case n < 0:
		w.byte(nullCode)
	case n < 254:
		w.byte(byte(n))
	default:
		w.byte(0xFE)
		w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(n))
	}
}

func (w *binaryWriter) string(s string) {
	w.size(len(s))
	w.buf = append(w.buf, s...)
}

func (w *binaryWriter) field(f pvdata.Field) {
	switch t := f.(type) {
	case nil:
		w.byte(nullCode)
	case *pvdata.Scalar:
		w.byte(scalarCode(t.ScalarType()))
	case *pvdata.ScalarArray:
		w.byte(scalarCode(t.ElementType()) | arrayBit)
	case *pvdata.Structure:
		w.byte(structureCode)
		w.members(t.ID(), t.NumFields(), t.FieldName, t.FieldAt)
	case *pvdata.StructureArray:
		w.byte(structureCode | arrayBit)
		w.field(t.Structure())
	case *pvdata.Union:
		if t.IsVariant() {
			w.byte(variantUnionCode)
			return
		}
		w.byte(unionCode)
		w.members(t.ID(), t.NumFields(), t.FieldName, t.FieldAt)
	case *pvdata.UnionArray:
		if t.Union().IsVariant() {
			w.byte(variantUnionCode | arrayBit)
		} else {
			w.byte(unionCode | arrayBit)
		}
		w.field(t.Union())
	}
}

func (w *binaryWriter) members(id string, n int, name func(int) string, field func(int) pvdata.Field) {
	w.string(id)
	w.size(n)
	for i := 0; i < n; i++ {
		w.string(name(i))
		w.field(field(i))
	}
}

func (w *binaryWriter) scalar(v any) {
	switch x := v.(type) {
	case bool:
		if x {
			w.byte(1)
		} else {
			w.byte(0)
		}
	case int8:
		w.byte(byte(x))
	case uint8:
		w.byte(x)
	case int16:
		w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(x))
	case uint16:
		w.buf = binary.BigEndian.AppendUint16(w.buf, x)
	case int32:
		w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(x))
	case uint32:
		w.buf = binary.BigEndian.AppendUint32(w.buf, x)
	case int64:
		w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(x))
	case uint64:
		w.buf = binary.BigEndian.AppendUint64(w.buf, x)
	case float32:
		w.buf = binary.BigEndian.AppendUint32(w.buf, math.Float32bits(x))
	case float64:
		w.buf = binary.BigEndian.AppendUint64(w.buf, math.Float64bits(x))
	case string:
		w.string(x)
	}
}

func (w *binaryWriter) value(pv pvdata.PVField) error {
	switch t := pv.(type) {
	case *pvdata.PVScalar:
		w.scalar(t.Get())
	case *pvdata.PVScalarArray:
		w.array(t.Get())
	case *pvdata.PVStructure:
		for i := 0; i < t.NumFields(); i++ {
			if err := w.value(t.FieldAt(i)); err != nil {
				return err
			}
		}
	case *pvdata.PVStructureArray:
		w.size(t.Len())
		for _, s := range t.Get() {
			if s == nil {
				w.byte(0)
				continue
			}
			w.byte(1)
			if err := w.value(s); err != nil {
				return err
			}
		}
	case *pvdata.PVUnion:
		return w.union(t)
	case *pvdata.PVUnionArray:
		w.size(t.Len())
		for _, u := range t.Get() {
			if u == nil {
				w.byte(0)
				continue
			}
			w.byte(1)
			if err := w.union(u); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("BinaryCodec: unsupported container %T", pv)
	}
	return nil
}

func (w *binaryWriter) union(u *pvdata.PVUnion) error {
	if u.Union().IsVariant() {
		if u.Get() == nil {
			w.byte(nullCode)
			return nil
		}
		w.field(u.Get().Field())
		return w.value(u.Get())
	}
	w.size(u.Selector())
	if u.Get() == nil {
		return nil
	}
	return w.value(u.Get())
}

func (w *binaryWriter) array(v any) {
	switch x := v.(type) {
	case []bool:
		w.size(len(x))
		for _, e := range x {
			w.scalar(e)
		}
	case []int8:
		w.size(len(x))
		for _, e := range x {
			w.scalar(e)
		}
	case []int16:
		w.size(len(x))
		for _, e := range x {
			w.scalar(e)
		}
	case []int32:
		w.size(len(x))
		for _, e := range x {
			w.scalar(e)
		}
	case []int64:
		w.size(len(x))
		for _, e := range x {
			w.scalar(e)
		}
	case []uint8:
		w.size(len(x))
		w.buf = append(w.buf, x...)
	case []uint16:
		w.size(len(x))
		for _, e := range x {
			w.scalar(e)
		}
	case []uint32:
		w.size(len(x))
		for _, e := range x {
			w.scalar(e)
		}
	case []uint64:
		w.size(len(x))
		for _, e := range x {
			w.scalar(e)
		}
	case []float32:
		w.size(len(x))
		for _, e := range x {
			w.scalar(e)
		}
	case []float64:
		w.size(len(x))
		for _, e := range x {
			w.scalar(e)
		}
	case []string:
		w.size(len(x))
		for _, e := range x {
			w.string(e)
		}
	}
}

type binaryReader struct {
	data []byte
	off  int
}

func (r *binaryReader) next(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.data) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrMalformed, n, r.off, len(r.data)-r.off)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *binaryReader) byte() (byte, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *binaryReader) size() (int, error) {
	b, err := r.byte()
	if err != nil {
		return 0, err
	}
	switch {
	case b == nullCode:
		return -1, nil
	case b < 254:
		return int(b), nil
	}
	raw, err := r.next(4)
	if err != nil {
		return 0, err
	}
	n := int32(binary.BigEndian.Uint32(raw))
	if n < 0 {
		return 0, fmt.Errorf("%w: negative size %d", ErrMalformed, n)
	}
	return int(n), nil
}

// count reads a size that must not be null and must fit in the remaining data.
func (r *binaryReader) count() (int, error) {
	n, err := r.size()
	if err != nil {
		return 0, err
	}
	if n < 0 || n > len(r.data)-r.off {
		return 0, fmt.Errorf("%w: bad element count %d at offset %d", ErrMalformed, n, r.off)
	}
	return n, nil
}

func (r *binaryReader) string() (string, error) {
	n, err := r.count()
	if err != nil {
		return "", err
	}
	b, err := r.next(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *binaryReader) field() (pvdata.Field, error) {
	code, err := r.byte()
	if err != nil {
		return nil, err
	}
	if code == nullCode {
		return nil, nil
	}
	switch code {
	case structureCode:
		id, names, fields, err := r.members()
		if err != nil {
			return nil, err
		}
		s, err := pvdata.NewStructure(id, names, fields)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return s, nil
	case unionCode:
		id, names, fields, err := r.members()
		if err != nil {
			return nil, err
		}
		u, err := pvdata.NewUnion(id, names, fields)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return u, nil
	case variantUnionCode:
		return pvdata.VariantUnion(), nil
	case structureCode | arrayBit:
		f, err := r.field()
		if err != nil {
			return nil, err
		}
		s, ok := f.(*pvdata.Structure)
		if !ok {
			return nil, fmt.Errorf("%w: structure array of %v", ErrMalformed, f)
		}
		return pvdata.NewStructureArray(s), nil
	case unionCode | arrayBit, variantUnionCode | arrayBit:
		f, err := r.field()
		if err != nil {
			return nil, err
		}
		u, ok := f.(*pvdata.Union)
		if !ok {
			return nil, fmt.Errorf("%w: union array of %v", ErrMalformed, f)
		}
		return pvdata.NewUnionArray(u), nil
	}
	if st, ok := scalarFromCode(code &^ arrayBit); ok {
		if code&arrayBit != 0 {
			return pvdata.NewScalarArray(st), nil
		}
		return pvdata.NewScalar(st), nil
	}
	return nil, fmt.Errorf("%w: unknown type code 0x%02x", ErrMalformed, code)
}

func (r *binaryReader) members() (string, []string, []pvdata.Field, error) {
	id, err := r.string()
	if err != nil {
		return "", nil, nil, err
	}
	n, err := r.count()
	if err != nil {
		return "", nil, nil, err
	}
	names := make([]string, n)
	fields := make([]pvdata.Field, n)
	for i := 0; i < n; i++ {
		if names[i], err = r.string(); err != nil {
			return "", nil, nil, err
		}
		if fields[i], err = r.field(); err != nil {
			return "", nil, nil, err
		}
		if fields[i] == nil {
			return "", nil, nil, fmt.Errorf("%w: null member %q", ErrMalformed, names[i])
		}
	}
	return id, names, fields, nil
}

func (r *binaryReader) scalar(st pvdata.ScalarType) (any, error) {
	if st == pvdata.PVString {
		return r.string()
	}
	width := 1
	switch st {
	case pvdata.PVShort, pvdata.PVUShort:
		width = 2
	case pvdata.PVInt, pvdata.PVUInt, pvdata.PVFloat:
		width = 4
	case pvdata.PVLong, pvdata.PVULong, pvdata.PVDouble:
		width = 8
	}
	b, err := r.next(width)
	if err != nil {
		return nil, err
	}
	switch st {
	case pvdata.PVBoolean:
		return b[0] != 0, nil
	case pvdata.PVByte:
		return int8(b[0]), nil
	case pvdata.PVUByte:
		return b[0], nil
	case pvdata.PVShort:
		return int16(binary.BigEndian.Uint16(b)), nil
	case pvdata.PVUShort:
		return binary.BigEndian.Uint16(b), nil
	case pvdata.PVInt:
		return int32(binary.BigEndian.Uint32(b)), nil
	case pvdata.PVUInt:
		return binary.BigEndian.Uint32(b), nil
	case pvdata.PVFloat:
		return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
	case pvdata.PVLong:
		return int64(binary.BigEndian.Uint64(b)), nil
	case pvdata.PVULong:
		return binary.BigEndian.Uint64(b), nil
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

func (r *binaryReader) value(pv pvdata.PVField) error {
	switch t := pv.(type) {
	case *pvdata.PVScalar:
		v, err := r.scalar(t.Scalar().ScalarType())
		if err != nil {
			return err
		}
		return t.Put(v)
	case *pvdata.PVScalarArray:
		v, err := r.array(t.ScalarArray().ElementType())
		if err != nil {
			return err
		}
		return t.Put(v)
	case *pvdata.PVStructure:
		for i := 0; i < t.NumFields(); i++ {
			if err := r.value(t.FieldAt(i)); err != nil {
				return err
			}
		}
		return nil
	case *pvdata.PVStructureArray:
		n, err := r.count()
		if err != nil {
			return err
		}
		s := t.Field().(*pvdata.StructureArray).Structure()
		values := make([]*pvdata.PVStructure, n)
		for i := range values {
			present, err := r.byte()
			if err != nil {
				return err
			}
			if present == 0 {
				continue
			}
			values[i] = pvdata.CreatePVStructure(s)
			if err := r.value(values[i]); err != nil {
				return err
			}
		}
		return t.Put(values)
	case *pvdata.PVUnion:
		return r.union(t)
	case *pvdata.PVUnionArray:
		n, err := r.count()
		if err != nil {
			return err
		}
		u := t.Field().(*pvdata.UnionArray).Union()
		values := make([]*pvdata.PVUnion, n)
		for i := range values {
			present, err := r.byte()
			if err != nil {
				return err
			}
			if present == 0 {
				continue
			}
			values[i] = pvdata.NewPVUnion(u)
			if err := r.union(values[i]); err != nil {
				return err
			}
		}
		return t.Put(values)
	}
	return fmt.Errorf("BinaryCodec: unsupported container %T", pv)
}

func (r *binaryReader) union(u *pvdata.PVUnion) error {
	if u.Union().IsVariant() {
		f, err := r.field()
		if err != nil || f == nil {
			return err
		}
		v := pvdata.CreatePVField(f)
		if err := r.value(v); err != nil {
			return err
		}
		return u.Set(v)
	}
	sel, err := r.size()
	if err != nil {
		return err
	}
	if sel < 0 {
		return u.Set(nil)
	}
	if sel >= u.Union().NumFields() {
		return fmt.Errorf("%w: union selector %d out of range", ErrMalformed, sel)
	}
	v, err := u.Select(u.Union().FieldName(sel))
	if err != nil {
		return err
	}
	return r.value(v)
}

func (r *binaryReader) array(st pvdata.ScalarType) (any, error) {
	n, err := r.count()
	if err != nil {
		return nil, err
	}
	if st == pvdata.PVUByte {
		b, err := r.next(n)
		if err != nil {
			return nil, err
		}
		return append([]uint8{}, b...), nil
	}
	switch st {
	case pvdata.PVBoolean:
		return readN[bool](r, st, n)
	case pvdata.PVByte:
		return readN[int8](r, st, n)
	case pvdata.PVShort:
		return readN[int16](r, st, n)
	case pvdata.PVInt:
		return readN[int32](r, st, n)
	case pvdata.PVLong:
		return readN[int64](r, st, n)
	case pvdata.PVUShort:
		return readN[uint16](r, st, n)
	case pvdata.PVUInt:
		return readN[uint32](r, st, n)
	case pvdata.PVULong:
		return readN[uint64](r, st, n)
	case pvdata.PVFloat:
		return readN[float32](r, st, n)
	case pvdata.PVDouble:
		return readN[float64](r, st, n)
	}
	return readN[string](r, st, n)
}

func readN[T pvdata.ScalarValue](r *binaryReader, st pvdata.ScalarType, n int) ([]T, error) {
	out := make([]T, n)
	for i := range out {
		v, err := r.scalar(st)
		if err != nil {
			return nil, err
		}
		out[i] = v.(T)
	}
	return out, nil
}
