// Package marshal converts between Malcolm domain values and pvData
// structures.
//
// Every value is sent as a structure whose type id names its domain type.
// Marshalling happens in two steps: StructureFor builds the introspection
// tree and Populate fills a container created from it. Unmarshal picks the
// domain type from the structure's id. Structures without an id, and maps,
// unmarshal to a *malcolm.Map.
package marshal

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"malcolm-pva/malcolm"
	"malcolm-pva/points"
	"malcolm-pva/pvdata"
)

// Marshal builds the structure for v and returns a container holding v.
func Marshal(v any) (*pvdata.PVStructure, error) {
	s, err := StructureFor(v)
	if err != nil {
		return nil, err
	}
	pv := pvdata.CreatePVStructure(s)
	if err := Populate(pv, v); err != nil {
		return nil, err
	}
	return pv, nil
}

// StructureFor returns the structure v is sent as.
func StructureFor(v any) (*pvdata.Structure, error) {
	f, err := fieldFor(v)
	if err != nil {
		return nil, err
	}
	s, ok := f.(*pvdata.Structure)
	if !ok {
		return nil, fmt.Errorf("%w: %T is sent as %s, not a structure", ErrUnrecognisedType, v, f.ID())
	}
	return s, nil
}

// Populate fills pv from v. pv must have been created from StructureFor(v).
func Populate(pv *pvdata.PVStructure, v any) error {
	return populate(pv, v)
}

// Unmarshal returns the domain value held by pv.
func Unmarshal(pv *pvdata.PVStructure) (any, error) {
	return unmarshalStructure(pv)
}

// UnmarshalAs returns the domain value held by pv, which must be a T.
func UnmarshalAs[T any](pv *pvdata.PVStructure) (T, error) {
	var zero T
	v, err := unmarshalStructure(pv)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T, want %s", ErrUnrecognisedType, pv.Structure().ID(), v, reflect.TypeOf((*T)(nil)).Elem())
	}
	return t, nil
}

// isNil reports whether v is nil or a nil pointer.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func fieldFor(v any) (pvdata.Field, error) {
	if isNil(v) {
		return pvdata.VariantUnion(), nil
	}
	switch x := v.(type) {
	case *points.LineGenerator:
		return lineStructure, nil
	case *points.ArrayGenerator:
		return arrayStructure, nil
	case *points.SpiralGenerator:
		return spiralStructure, nil
	case *points.LissajousGenerator:
		return lissajousStructure, nil
	case *points.CompoundGenerator:
		return compoundStructure, nil
	case *points.CircularROI:
		return circularStructure, nil
	case *points.EllipticalROI:
		return ellipticalStructure, nil
	case *points.RectangularROI:
		return rectangularStructure, nil
	case *points.SectorROI:
		return sectorStructure, nil
	case *points.PolygonalROI:
		return polygonalStructure, nil
	case *points.PointROI:
		return pointStructure, nil
	case *points.ROIExcluder:
		return excluderStructure, nil
	case *points.RandomOffsetMutator:
		return randomOffsetStructure, nil
	case *malcolm.Table:
		return tableStructure(x)
	case *malcolm.Map:
		return mapStructure(x)
	case *malcolm.ConfigureParameters:
		return mapStructure(parametersMap(x))
	}
	if f, ok := scalarField(v); ok {
		return f, nil
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Kind() == reflect.Map:
		m, err := fromGoMap(rv)
		if err != nil {
			return nil, err
		}
		return mapStructure(m)
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Interface:
		return variantArray, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnrecognisedType, v)
}

// marshalField returns a container holding v.
func marshalField(v any) (pvdata.PVField, error) {
	f, err := fieldFor(v)
	if err != nil {
		return nil, err
	}
	pv := pvdata.CreatePVField(f)
	if err := populate(pv, v); err != nil {
		return nil, err
	}
	return pv, nil
}

func populate(pv pvdata.PVField, v any) error {
	switch p := pv.(type) {
	case *pvdata.PVStructure:
		return populateStructure(p, v)
	case *pvdata.PVUnion:
		if !isNil(v) {
			return fmt.Errorf("%w: cannot put %T into %s", pvdata.ErrFieldType, v, p.Union().ID())
		}
		return p.Set(nil)
	case *pvdata.PVUnionArray:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice {
			return fmt.Errorf("%w: cannot put %T into %s", pvdata.ErrFieldType, v, p.Field().ID())
		}
		return populateVariants(p, anySlice(rv))
	}
	return populateScalar(pv, v)
}

func populateStructure(pv *pvdata.PVStructure, v any) error {
	switch x := v.(type) {
	case *points.LineGenerator:
		return populateLine(pv, x)
	case *points.ArrayGenerator:
		return populateArray(pv, x)
	case *points.SpiralGenerator:
		return populateSpiral(pv, x)
	case *points.LissajousGenerator:
		return populateLissajous(pv, x)
	case *points.CompoundGenerator:
		return populateCompound(pv, x)
	case *points.CircularROI:
		return populateCircular(pv, x)
	case *points.EllipticalROI:
		return populateElliptical(pv, x)
	case *points.RectangularROI:
		return populateRectangular(pv, x)
	case *points.SectorROI:
		return populateSector(pv, x)
	case *points.PolygonalROI:
		return populatePolygonal(pv, x)
	case *points.PointROI:
		return populatePoint(pv, x)
	case *points.ROIExcluder:
		return populateExcluder(pv, x)
	case *points.RandomOffsetMutator:
		return populateRandomOffset(pv, x)
	case *malcolm.Table:
		return populateTable(pv, x)
	case *malcolm.Map:
		return populateMap(pv, x)
	case *malcolm.ConfigureParameters:
		return populateMap(pv, parametersMap(x))
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map {
		m, err := fromGoMap(rv)
		if err != nil {
			return err
		}
		return populateMap(pv, m)
	}
	return fmt.Errorf("%w: %T", ErrUnrecognisedType, v)
}

// unmarshalField returns the value held by any container. An empty union
// holds nil.
func unmarshalField(pv pvdata.PVField) (any, error) {
	switch p := pv.(type) {
	case nil:
		return nil, nil
	case *pvdata.PVScalar:
		return p.Get(), nil
	case *pvdata.PVScalarArray:
		return copyArray(p), nil
	case *pvdata.PVStructure:
		return unmarshalStructure(p)
	case *pvdata.PVStructureArray:
		items := make([]any, p.Len())
		for i, s := range p.Get() {
			if s == nil {
				continue
			}
			v, err := unmarshalStructure(s)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			items[i] = v
		}
		return items, nil
	case *pvdata.PVUnion:
		return unmarshalField(p.Get())
	case *pvdata.PVUnionArray:
		return extractVariants[any](p)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnrecognisedType, pv)
}

func unmarshalStructure(pv *pvdata.PVStructure) (any, error) {
	switch id := pv.Structure().ID(); id {
	case TypeIDLineGenerator:
		return boxed(extractLine(pv))
	case TypeIDArrayGenerator:
		return boxed(extractArray(pv))
	case TypeIDSpiralGenerator:
		return boxed(extractSpiral(pv))
	case TypeIDLissajousGenerator:
		return boxed(extractLissajous(pv))
	case TypeIDCompoundGenerator:
		return boxed(extractCompound(pv))
	case TypeIDCircularROI:
		return boxed(extractCircular(pv))
	case TypeIDEllipticalROI:
		return boxed(extractElliptical(pv))
	case TypeIDRectangularROI:
		return boxed(extractRectangular(pv))
	case TypeIDSectorROI:
		return boxed(extractSector(pv))
	case TypeIDPolygonalROI:
		return boxed(extractPolygonal(pv))
	case TypeIDPointROI:
		return boxed(extractPoint(pv))
	case TypeIDROIExcluder:
		return boxed(extractExcluder(pv))
	case TypeIDRandomOffsetMutator:
		return boxed(extractRandomOffset(pv))
	case TypeIDTable:
		return boxed(extractTable(pv))
	case TypeIDMap, pvdata.DefaultStructureID:
		return boxed(extractMap(pv))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnrecognisedType, id)
	}
}

// boxed keeps a failed extraction from returning a typed nil.
func boxed[T any](v T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

// fromGoMap copies a Go map with string keys into a Map, keys sorted.
func fromGoMap(rv reflect.Value) (*malcolm.Map, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%w: %s", ErrNonStringKey, rv.Type())
	}
	keys := rv.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int { return strings.Compare(a.String(), b.String()) })
	m := malcolm.NewMap()
	for _, k := range keys {
		m.Set(k.String(), rv.MapIndex(k).Interface())
	}
	return m, nil
}
