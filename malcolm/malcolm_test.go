package malcolm

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"malcolm-pva/points"
)

func TestTableColumns(t *testing.T) {
	table := NewTable()
	if err := table.AddColumn("x", []float64{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := table.AddColumn("name", []string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}
	if err := table.AddColumn("short", []int32{1}); !errors.Is(err, ErrColumnLength) {
		t.Errorf("short column error = %v", err)
	}
	if err := table.AddColumn("bad", 3); err == nil {
		t.Errorf("non-slice column accepted")
	}
	if err := table.AddColumn("x", []float64{4, 5, 6}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"x", "name"}, table.ColumnNames()); diff != "" {
		t.Errorf("column order (-want +got):\n%s", diff)
	}
	x, err := Column[float64](table, "x")
	if err != nil || !cmp.Equal(x, []float64{4, 5, 6}) {
		t.Errorf("x = %v, %v", x, err)
	}
	if _, err := Column[int32](table, "x"); err == nil {
		t.Errorf("Column[int32](x) succeeded")
	}
	if _, err := Column[int32](table, "nope"); !errors.Is(err, ErrNoSuchColumn) {
		t.Errorf("missing column error = %v", err)
	}
}

func TestTableAddRow(t *testing.T) {
	table := NewTable()
	_ = table.AddColumn("name", []string{})
	_ = table.AddColumn("visible", []bool{})
	if err := table.AddRow("BRICK", false); err != nil {
		t.Fatal(err)
	}
	if err := table.AddRow("MIC", true); err != nil {
		t.Fatal(err)
	}
	if err := table.AddRow("ZEBRA", 1); err == nil {
		t.Errorf("AddRow with a wrong type succeeded")
	}
	if err := table.AddRow("ZEBRA"); !errors.Is(err, ErrColumnLength) {
		t.Errorf("short row error = %v", err)
	}
	if table.NumRows() != 2 {
		t.Errorf("NumRows = %d, want 2", table.NumRows())
	}
	visible, _ := Column[bool](table, "visible")
	if diff := cmp.Diff([]bool{false, true}, visible); diff != "" {
		t.Errorf("visible (-want +got):\n%s", diff)
	}
}

func TestDetectorsTable(t *testing.T) {
	infos := []DetectorInfo{
		{Enabled: true, Name: "diffraction", MRI: "ws256-ML-DET-01", Exposure: 0.01, FramesPerStep: 1},
		{Enabled: true, Name: "izero", MRI: "ws256-ML-DET-02", Exposure: 0.004, FramesPerStep: 2},
		{Enabled: false, Name: "load", MRI: "ws256-ML-DET-03", Exposure: 0.0025, FramesPerStep: 3},
	}
	table := DetectorsTable(infos)
	want := []string{"enable", "name", "mri", "exposure", "framesPerStep"}
	if diff := cmp.Diff(want, table.ColumnNames()); diff != "" {
		t.Errorf("columns (-want +got):\n%s", diff)
	}
	back, err := DetectorsFromTable(table)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(infos, back); diff != "" {
		t.Errorf("detectors (-want +got):\n%s", diff)
	}
}

func TestMapOrder(t *testing.T) {
	m := MapOf("b", 1, "a", 2)
	m.Set("c", 3)
	m.Set("b", 4)
	if diff := cmp.Diff([]string{"b", "a", "c"}, m.Keys()); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
	if v, _ := m.Get("b"); v != 4 {
		t.Errorf("b = %v", v)
	}
	m.Delete("a")
	if m.Len() != 2 || m.String() != "{b: 4, c: 3}" {
		t.Errorf("after delete: %v", m)
	}
	if !m.Equal(MapOf("b", 4, "c", 3)) || m.Equal(MapOf("c", 3, "b", 4)) {
		t.Errorf("Equal ignores or misreads order")
	}
}

func TestParametersFromMap(t *testing.T) {
	gen := &points.CompoundGenerator{Duration: 0.1}
	m := MapOf(
		ParamGenerator, gen,
		ParamAxesToMove, []string{"stage_x"},
		ParamFileDir, "/dls/tmp",
	)
	p, err := ParametersFromMap(m)
	if err != nil {
		t.Fatal(err)
	}
	if p.Generator != gen || p.FileDir != "/dls/tmp" || p.FileTemplate != "" {
		t.Errorf("parameters = %+v", p)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	m.Set(ParamFileDir, 7)
	if _, err := ParametersFromMap(m); err == nil {
		t.Errorf("numeric fileDir accepted")
	}
	if _, err := ParametersFromMap(NewMap()); err == nil {
		t.Errorf("empty map accepted")
	}
}
