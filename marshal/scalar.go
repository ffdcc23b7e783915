package marshal

import (
	"fmt"
	"math"
	"reflect"

	"malcolm-pva/pvdata"
)

// scalarField returns the field a Go scalar or scalar slice is sent as. Go
// ints are sent as pvData ints.
func scalarField(v any) (pvdata.Field, bool) {
	switch v.(type) {
	case int:
		return pvdata.NewScalar(pvdata.PVInt), true
	case []int:
		return pvdata.NewScalarArray(pvdata.PVInt), true
	}
	if st, ok := pvdata.ScalarTypeOf(v); ok {
		return pvdata.NewScalar(st), true
	}
	if st, ok := pvdata.ArrayTypeOf(v); ok {
		return pvdata.NewScalarArray(st), true
	}
	return nil, false
}

func toInt32(v int) (int32, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d does not fit an int", ErrOutOfRange, v)
	}
	return int32(v), nil
}

func populateScalar(pv pvdata.PVField, v any) error {
	switch x := v.(type) {
	case int:
		n, err := toInt32(x)
		if err != nil {
			return err
		}
		v = n
	case []int:
		ns := make([]int32, len(x))
		for i, e := range x {
			n, err := toInt32(e)
			if err != nil {
				return err
			}
			ns[i] = n
		}
		v = ns
	}
	switch p := pv.(type) {
	case *pvdata.PVScalar:
		return p.Put(v)
	case *pvdata.PVScalarArray:
		return p.Put(v)
	}
	return fmt.Errorf("%w: cannot put %T into %s", pvdata.ErrFieldType, v, pv.Field().ID())
}

// copyArray returns a copy of the slice held by a scalar array.
func copyArray(p *pvdata.PVScalarArray) any {
	src := reflect.ValueOf(p.Get())
	dst := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
	reflect.Copy(dst, src)
	return dst.Interface()
}
