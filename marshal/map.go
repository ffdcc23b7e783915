package marshal

import (
	"fmt"

	"malcolm-pva/malcolm"
	"malcolm-pva/pvdata"
)

// mapStructure has one field per key, in key order, and no id.
func mapStructure(m *malcolm.Map) (*pvdata.Structure, error) {
	b := pvdata.NewFieldBuilder()
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		f, err := fieldFor(v)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", k, err)
		}
		b.AddField(k, f)
	}
	return b.CreateStructure()
}

func populateMap(pv *pvdata.PVStructure, m *malcolm.Map) error {
	s := pv.Structure()
	for _, k := range m.Keys() {
		i := s.FieldIndex(k)
		if i < 0 {
			return fmt.Errorf("%w: %q", pvdata.ErrNoSuchField, k)
		}
		v, _ := m.Get(k)
		if err := populate(pv.FieldAt(i), v); err != nil {
			return fmt.Errorf("%q: %w", k, err)
		}
	}
	return nil
}

func extractMap(pv *pvdata.PVStructure) (*malcolm.Map, error) {
	s := pv.Structure()
	m := malcolm.NewMap()
	for i := 0; i < s.NumFields(); i++ {
		v, err := unmarshalField(pv.FieldAt(i))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s.FieldName(i), err)
		}
		m.Set(s.FieldName(i), v)
	}
	return m, nil
}

// parametersMap lays out configure parameters as sent to a device. The
// detectors table is only sent when set.
func parametersMap(p *malcolm.ConfigureParameters) *malcolm.Map {
	m := malcolm.MapOf(
		malcolm.ParamGenerator, p.Generator,
		malcolm.ParamAxesToMove, p.AxesToMove,
		malcolm.ParamFileDir, p.FileDir,
		malcolm.ParamFileTemplate, p.FileTemplate,
	)
	if p.Detectors != nil {
		m.Set(malcolm.ParamDetectors, p.Detectors)
	}
	return m
}
