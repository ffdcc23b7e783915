package marshal

import (
	"fmt"

	"malcolm-pva/pvdata"
)

// mustStructure is for the fixed structures built at init time.
func mustStructure(b *pvdata.FieldBuilder) *pvdata.Structure {
	s, err := b.CreateStructure()
	if err != nil {
		panic(fmt.Sprintf("marshal: %v", err))
	}
	return s
}

// fieldWriter fills the fields of one structure and keeps the first error.
type fieldWriter struct {
	pv  *pvdata.PVStructure
	err error
}

func put[T pvdata.ScalarValue](w *fieldWriter, name string, v T) {
	if w.err == nil {
		w.err = pvdata.Put(w.pv, name, v)
	}
}

func putArray[T pvdata.ScalarValue](w *fieldWriter, name string, v []T) {
	if w.err == nil {
		w.err = pvdata.PutArray(w.pv, name, v)
	}
}

func putVariants[T any](w *fieldWriter, name string, items []T) {
	if w.err != nil {
		return
	}
	arr, err := w.pv.UnionArrayField(name)
	if err != nil {
		w.err = err
		return
	}
	w.err = populateVariants(arr, items)
}

// fieldReader reads the fields of one structure and keeps the first error.
type fieldReader struct {
	pv  *pvdata.PVStructure
	err error
}

func get[T pvdata.ScalarValue](r *fieldReader, name string) T {
	var v T
	if r.err == nil {
		v, r.err = pvdata.Get[T](r.pv, name)
	}
	return v
}

func getArray[T pvdata.ScalarValue](r *fieldReader, name string) []T {
	var v []T
	if r.err == nil {
		v, r.err = pvdata.GetArray[T](r.pv, name)
	}
	return v
}

func getVariants[T any](r *fieldReader, name string) []T {
	if r.err != nil {
		return nil
	}
	arr, err := r.pv.UnionArrayField(name)
	if err != nil {
		r.err = err
		return nil
	}
	var items []T
	items, r.err = extractVariants[T](arr)
	return items
}

// result returns v, or the first error r met while reading it.
func result[T any](r *fieldReader, what string, v T) (T, error) {
	if r.err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", what, r.err)
	}
	return v, nil
}
