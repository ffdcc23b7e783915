package pvdata

import "slices"

// Equal reports whether a and b have equal introspection and equal values.
func Equal(a, b PVField) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !a.Field().Equal(b.Field()) {
		return false
	}
	switch x := a.(type) {
	case *PVScalar:
		return x.value == b.(*PVScalar).value
	case *PVScalarArray:
		return arraysEqual(x.value, b.(*PVScalarArray).value)
	case *PVStructure:
		y := b.(*PVStructure)
		for i := range x.fields {
			if !Equal(x.fields[i], y.fields[i]) {
				return false
			}
		}
		return true
	case *PVStructureArray:
		y := b.(*PVStructureArray)
		return slices.EqualFunc(x.values, y.values, func(l, r *PVStructure) bool {
			if l == nil || r == nil {
				return l == nil && r == nil
			}
			return Equal(l, r)
		})
	case *PVUnion:
		return unionsEqual(x, b.(*PVUnion))
	case *PVUnionArray:
		return slices.EqualFunc(x.values, b.(*PVUnionArray).values, unionsEqual)
	}
	return false
}

func unionsEqual(x, y *PVUnion) bool {
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	if x.selector != y.selector {
		return false
	}
	if x.value == nil || y.value == nil {
		return x.value == nil && y.value == nil
	}
	return Equal(x.value, y.value)
}

func arraysEqual(a, b any) bool {
	switch x := a.(type) {
	case []bool:
		return slices.Equal(x, b.([]bool))
	case []int8:
		return slices.Equal(x, b.([]int8))
	case []int16:
		return slices.Equal(x, b.([]int16))
	case []int32:
		return slices.Equal(x, b.([]int32))
	case []int64:
		return slices.Equal(x, b.([]int64))
	case []uint8:
		return slices.Equal(x, b.([]uint8))
	case []uint16:
		return slices.Equal(x, b.([]uint16))
	case []uint32:
		return slices.Equal(x, b.([]uint32))
	case []uint64:
		return slices.Equal(x, b.([]uint64))
	case []float32:
		return slices.Equal(x, b.([]float32))
	case []float64:
		return slices.Equal(x, b.([]float64))
	case []string:
		return slices.Equal(x, b.([]string))
	}
	return false
}
