package marshal

import (
	"fmt"
	"reflect"
	"slices"

	"malcolm-pva/points"
	"malcolm-pva/pvdata"
)

// variantArray is the field of every list sent to a device. Each element
// carries its own type description.
var variantArray = pvdata.NewUnionArray(pvdata.VariantUnion())

// omitted reports whether a list element is left out because a device
// has no type for it.
func omitted(v any) bool {
	switch x := v.(type) {
	case points.ROI:
		return !points.Supported(x)
	case *points.ROIExcluder:
		return x != nil && !slices.ContainsFunc(x.ROIs, points.Supported)
	}
	return false
}

func populateVariants[T any](arr *pvdata.PVUnionArray, items []T) error {
	elems := make([]*pvdata.PVUnion, 0, len(items))
	for i, item := range items {
		v := any(item)
		if isNil(v) {
			elems = append(elems, nil)
			continue
		}
		if omitted(v) {
			continue
		}
		pv, err := marshalField(v)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		elems = append(elems, pvdata.NewVariant(pv))
	}
	return arr.Put(elems)
}

// extractVariants unmarshals every element of arr and checks it is a T.
// Null elements become the zero T.
func extractVariants[T any](arr *pvdata.PVUnionArray) ([]T, error) {
	items := make([]T, 0, arr.Len())
	for i, u := range arr.Get() {
		var item T
		if u != nil {
			v, err := unmarshalField(u.Get())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			if v != nil {
				var ok bool
				if item, ok = v.(T); !ok {
					return nil, fmt.Errorf("%w: element %d is %T, want %s", ErrUnrecognisedType, i, v, reflect.TypeOf((*T)(nil)).Elem())
				}
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// anySlice returns the elements of a slice of interfaces.
func anySlice(rv reflect.Value) []any {
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items
}
