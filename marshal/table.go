package marshal

import (
	"fmt"
	"slices"

	"malcolm-pva/malcolm"
	"malcolm-pva/pvdata"
)

// tableColumnTypes are the element types a table column may have.
var tableColumnTypes = []pvdata.ScalarType{
	pvdata.PVBoolean,
	pvdata.PVByte,
	pvdata.PVShort,
	pvdata.PVInt,
	pvdata.PVLong,
	pvdata.PVFloat,
	pvdata.PVDouble,
	pvdata.PVString,
}

// tableStructure has one scalar array per column, in column order.
func tableStructure(t *malcolm.Table) (*pvdata.Structure, error) {
	b := pvdata.NewFieldBuilder().SetID(TypeIDTable)
	for _, name := range t.ColumnNames() {
		col := t.Column(name)
		st, ok := pvdata.ArrayTypeOf(col)
		if !ok || !slices.Contains(tableColumnTypes, st) {
			return nil, fmt.Errorf("%w: column %q is %T", ErrUnsupportedColumn, name, col)
		}
		b.AddArray(name, st)
	}
	return b.CreateStructure()
}

func populateTable(pv *pvdata.PVStructure, t *malcolm.Table) error {
	for _, name := range t.ColumnNames() {
		arr, err := pv.ScalarArrayField(name)
		if err != nil {
			return err
		}
		if err := arr.Put(t.Column(name)); err != nil {
			return fmt.Errorf("column %q: %w", name, err)
		}
	}
	return nil
}

func extractTable(pv *pvdata.PVStructure) (*malcolm.Table, error) {
	s := pv.Structure()
	t := malcolm.NewTable()
	for i := 0; i < s.NumFields(); i++ {
		name := s.FieldName(i)
		arr, ok := pv.FieldAt(i).(*pvdata.PVScalarArray)
		if !ok || !slices.Contains(tableColumnTypes, arr.ScalarArray().ElementType()) {
			return nil, fmt.Errorf("%w: column %q is %s", ErrUnsupportedColumn, name, s.FieldAt(i).ID())
		}
		if err := t.AddColumn(name, arr.Get()); err != nil {
			return nil, err
		}
	}
	return t, nil
}
