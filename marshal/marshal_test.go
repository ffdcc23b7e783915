package marshal

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"malcolm-pva/codec"
	"malcolm-pva/malcolm"
	"malcolm-pva/points"
	"malcolm-pva/pvdata"
)

var (
	approx     = cmpopts.EquateApprox(0, 1e-9)
	equateNone = cmpopts.EquateEmpty()
)

func TestAxialStepInCompound(t *testing.T) {
	step := points.NewAxialStepModel("x", 3, 4, 0.25)
	step.Alternating = true
	cg, err := points.NewCompoundModel(step).Generator()
	if err != nil {
		t.Fatal(err)
	}
	pv, err := Marshal(cg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if id := pv.Structure().ID(); id != TypeIDCompoundGenerator {
		t.Fatalf("id = %q", id)
	}
	gens, err := pv.UnionArrayField("generators")
	if err != nil {
		t.Fatal(err)
	}
	if gens.Len() != 1 {
		t.Fatalf("generators has %d elements, want 1", gens.Len())
	}
	line, ok := gens.Get()[0].Get().(*pvdata.PVStructure)
	if !ok {
		t.Fatalf("generator is %T", gens.Get()[0].Get())
	}
	if id := line.Structure().ID(); id != TypeIDLineGenerator {
		t.Errorf("generator id = %q", id)
	}
	axes, _ := pvdata.GetArray[string](line, "axes")
	start, _ := pvdata.GetArray[float64](line, "start")
	stop, _ := pvdata.GetArray[float64](line, "stop")
	size, _ := pvdata.Get[int32](line, "size")
	alternate, _ := pvdata.Get[bool](line, "alternate")
	if !cmp.Equal(axes, []string{"x"}) || !cmp.Equal(start, []float64{3}) || !cmp.Equal(stop, []float64{4}) || size != 5 || !alternate {
		t.Errorf("line = %v %v %v %d %v", axes, start, stop, size, alternate)
	}

	got, err := UnmarshalAs[*points.CompoundGenerator](pv)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if diff := cmp.Diff(cg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyListsKeepTheirField(t *testing.T) {
	pv, err := Marshal(&points.CompoundGenerator{Duration: -1})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"generators", "excluders", "mutators"} {
		arr, err := pv.UnionArrayField(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if arr.Len() != 0 {
			t.Errorf("%s has %d elements", name, arr.Len())
		}
		if !arr.Field().Equal(variantArray) {
			t.Errorf("%s is %s", name, arr.Field())
		}
	}
}

func fullCompound() *points.CompoundGenerator {
	return &points.CompoundGenerator{
		Generators: []points.Generator{
			&points.LineGenerator{Axes: []string{"y"}, Units: []string{"mm"}, Start: []float64{1}, Stop: []float64{18}, Size: 5, Alternate: true},
			&points.ArrayGenerator{Axes: []string{"z"}, Units: []string{"mm"}, Points: []float64{0.5, 1.5, 4}},
			&points.SpiralGenerator{Axes: []string{"x", "y"}, Units: []string{"mm", "mm"}, Centre: []float64{1, 7}, Radius: math.Sqrt(5), Scale: 2},
			&points.LissajousGenerator{Axes: []string{"x", "y"}, Units: []string{"mm", "mm"}, Centre: []float64{5, -2}, Span: []float64{10, 6}, Lobes: 4, Size: 20},
		},
		Excluders: []points.Excluder{&points.ROIExcluder{
			Axes: []string{"x", "y"},
			ROIs: []points.ROI{
				points.NewCircularROI(2, 6, 7),
				&points.EllipticalROI{Centre: []float64{0, 0}, Semiaxes: []float64{3, 1}, Angle: 0.5},
				&points.RectangularROI{Start: []float64{2, 1}, Width: 5, Height: 16, Angle: math.Pi / 2},
				&points.SectorROI{Centre: []float64{12, 1}, Radii: []float64{1, 11}, Angles: []float64{0, math.Pi}},
				&points.PolygonalROI{PointsX: []float64{0, 2, 1}, PointsY: []float64{0, 0, 3}},
				&points.PointROI{Point: []float64{5, 9.4}},
			},
		}},
		Mutators:   []points.Mutator{&points.RandomOffsetMutator{Seed: 112, Axes: []string{"x"}, MaxOffset: []float64{0.5}}},
		Duration:   1.5,
		Continuous: true,
		DelayAfter: 0.25,
	}
}

func TestCompoundRoundTripThroughCodecs(t *testing.T) {
	want := fullCompound()
	for _, ct := range []codec.CodecType{codec.CodecTypeBinary, codec.CodecTypeJSON, codec.CodecTypeCBOR} {
		t.Run(ct.String(), func(t *testing.T) {
			pv, err := Marshal(want)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			c := codec.GetCodec(ct)
			data, err := c.Encode(pv)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			decoded, err := c.Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			got, err := Unmarshal(decoded)
			if err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if diff := cmp.Diff(want, got, approx); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnsupportedRegionsOmitted(t *testing.T) {
	circle := points.NewCircularROI(1, 0, 0)
	cg := &points.CompoundGenerator{
		Generators: []points.Generator{&points.ArrayGenerator{Axes: []string{"x"}, Points: []float64{1}}},
		Excluders: []points.Excluder{
			&points.ROIExcluder{Axes: []string{"x", "y"}, ROIs: []points.ROI{&points.LinearROI{Length: 1}}},
			&points.ROIExcluder{Axes: []string{"x", "y"}, ROIs: []points.ROI{&points.LinearROI{Length: 2}, circle}},
		},
	}
	pv, err := Marshal(cg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	got, err := UnmarshalAs[*points.CompoundGenerator](pv)
	if err != nil {
		t.Fatal(err)
	}
	want := []points.Excluder{&points.ROIExcluder{Axes: []string{"x", "y"}, ROIs: []points.ROI{circle}}}
	if diff := cmp.Diff(want, got.Excluders); diff != "" {
		t.Errorf("excluders mismatch (-want +got):\n%s", diff)
	}

	if _, err := Marshal(&points.LinearROI{}); !errors.Is(err, ErrUnrecognisedType) {
		t.Errorf("Marshal(linear roi) = %v, want ErrUnrecognisedType", err)
	}
}

func TestUnrecognisedTypes(t *testing.T) {
	if _, err := Marshal(struct{ X int }{1}); !errors.Is(err, ErrUnrecognisedType) {
		t.Errorf("Marshal(struct) = %v", err)
	}
	if _, err := Marshal(int32(4)); !errors.Is(err, ErrUnrecognisedType) {
		t.Errorf("Marshal(scalar) = %v", err)
	}

	s, err := pvdata.NewFieldBuilder().SetID("scanpointgenerator:generator/ZigzagGenerator:1.0").Add("size", pvdata.PVInt).CreateStructure()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(pvdata.CreatePVStructure(s)); !errors.Is(err, ErrUnrecognisedType) {
		t.Errorf("Unmarshal(unknown id) = %v", err)
	}

	// A circle in the generators list is the wrong family.
	pv, err := Marshal(&points.CompoundGenerator{})
	if err != nil {
		t.Fatal(err)
	}
	gens, _ := pv.UnionArrayField("generators")
	circle, err := Marshal(points.NewCircularROI(1, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if err := gens.Append(pvdata.NewVariant(circle)); err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(pv); !errors.Is(err, ErrUnrecognisedType) {
		t.Errorf("Unmarshal(roi as generator) = %v", err)
	}
}

func TestMalformedStructure(t *testing.T) {
	s, err := pvdata.NewFieldBuilder().SetID(TypeIDLineGenerator).AddArray("axes", pvdata.PVString).CreateStructure()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(pvdata.CreatePVStructure(s)); !errors.Is(err, pvdata.ErrNoSuchField) {
		t.Errorf("Unmarshal(short line) = %v, want ErrNoSuchField", err)
	}
}

func TestTableCodec(t *testing.T) {
	table := malcolm.DetectorsTable([]malcolm.DetectorInfo{
		{Enabled: true, Name: "DET", MRI: "ML-DET-01", Exposure: 0.1, FramesPerStep: 1},
		{Enabled: false, Name: "DIFF", MRI: "ML-DIFF-01", Exposure: 0.05, FramesPerStep: 2},
	})
	pv, err := Marshal(table)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	s := pv.Structure()
	if s.ID() != TypeIDTable {
		t.Errorf("id = %q", s.ID())
	}
	wantNames := []string{"enable", "name", "mri", "exposure", "framesPerStep"}
	if diff := cmp.Diff(wantNames, s.FieldNames()); diff != "" {
		t.Errorf("column order mismatch (-want +got):\n%s", diff)
	}
	if st := s.Field("framesPerStep").(*pvdata.ScalarArray).ElementType(); st != pvdata.PVInt {
		t.Errorf("framesPerStep is %s", st)
	}

	data, err := codec.GetCodec(codec.CodecTypeBinary).Encode(pv)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := codec.GetCodec(codec.CodecTypeBinary).Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalAs[*malcolm.Table](decoded)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !got.Equal(table) {
		t.Errorf("round trip = %v, want %v", got, table)
	}
}

func TestTableUnsupportedColumn(t *testing.T) {
	table := malcolm.NewTable()
	if err := table.AddColumn("counts", []uint16{1, 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := Marshal(table); !errors.Is(err, ErrUnsupportedColumn) {
		t.Errorf("Marshal = %v, want ErrUnsupportedColumn", err)
	}

	s, err := pvdata.NewFieldBuilder().SetID(TypeIDTable).Add("name", pvdata.PVString).CreateStructure()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(pvdata.CreatePVStructure(s)); !errors.Is(err, ErrUnsupportedColumn) {
		t.Errorf("Unmarshal(scalar column) = %v, want ErrUnsupportedColumn", err)
	}
}

func TestMapCodec(t *testing.T) {
	pv, err := Marshal(map[string]any{
		"count":   3,
		"axes":    []string{"x", "y"},
		"nested":  malcolm.MapOf("b", true, "a", 2.5),
		"nothing": nil,
		"list":    []any{int64(7), "seven"},
	})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if diff := cmp.Diff([]string{"axes", "count", "list", "nested", "nothing"}, pv.Structure().FieldNames()); diff != "" {
		t.Errorf("field order mismatch (-want +got):\n%s", diff)
	}
	if id := pv.Structure().ID(); id != pvdata.DefaultStructureID {
		t.Errorf("id = %q", id)
	}

	got, err := UnmarshalAs[*malcolm.Map](pv)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	want := malcolm.MapOf(
		"axes", []string{"x", "y"},
		"count", int32(3),
		"list", []any{int64(7), "seven"},
		"nested", malcolm.MapOf("b", true, "a", 2.5),
		"nothing", nil,
	)
	if !got.Equal(want) {
		t.Errorf("Unmarshal = %v, want %v", got, want)
	}
}

func TestMapErrors(t *testing.T) {
	if _, err := Marshal(map[int]string{1: "one"}); !errors.Is(err, ErrNonStringKey) {
		t.Errorf("Marshal(int keys) = %v, want ErrNonStringKey", err)
	}
	if _, err := Marshal(malcolm.MapOf("big", math.MaxInt32+1)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Marshal(big int) = %v, want ErrOutOfRange", err)
	}
	if _, err := Marshal(malcolm.MapOf("odd", struct{}{})); !errors.Is(err, ErrUnrecognisedType) {
		t.Errorf("Marshal(struct value) = %v, want ErrUnrecognisedType", err)
	}

	s, err := pvdata.NewFieldBuilder().SetID(TypeIDMap).Add("n", pvdata.PVDouble).CreateStructure()
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalAs[*malcolm.Map](pvdata.CreatePVStructure(s))
	if err != nil {
		t.Fatalf("Unmarshal(map id) = %v", err)
	}
	if v, _ := got.Get("n"); v != 0.0 {
		t.Errorf("n = %v", v)
	}
}

func TestConfigureParameters(t *testing.T) {
	params := &malcolm.ConfigureParameters{
		Generator:    fullCompound(),
		AxesToMove:   []string{"x", "y"},
		FileDir:      "/dls/tmp",
		FileTemplate: "%s.h5",
		Detectors:    malcolm.DetectorsTable([]malcolm.DetectorInfo{{Enabled: true, Name: "DET", MRI: "ML-DET-01", Exposure: 0.1, FramesPerStep: 1}}),
	}
	pv, err := Marshal(params)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if id := pv.Structure().ID(); id != pvdata.DefaultStructureID {
		t.Errorf("id = %q", id)
	}
	m, err := UnmarshalAs[*malcolm.Map](pv)
	if err != nil {
		t.Fatal(err)
	}
	got, err := malcolm.ParametersFromMap(m)
	if err != nil {
		t.Fatalf("ParametersFromMap failed: %v", err)
	}
	if diff := cmp.Diff(params, got); diff != "" {
		t.Errorf("parameters mismatch (-want +got):\n%s", diff)
	}

	params.Detectors = nil
	pv, err = Marshal(params)
	if err != nil {
		t.Fatal(err)
	}
	if pv.Structure().Field(malcolm.ParamDetectors) != nil {
		t.Errorf("detectors sent although unset")
	}
}

func TestNullElements(t *testing.T) {
	pv, err := Marshal(&points.CompoundGenerator{Generators: []points.Generator{nil, (*points.LineGenerator)(nil)}})
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalAs[*points.CompoundGenerator](pv)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]points.Generator{nil, nil}, got.Generators, equateNone); diff != "" {
		t.Errorf("generators mismatch (-want +got):\n%s", diff)
	}
}
