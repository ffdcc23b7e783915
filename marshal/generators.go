package marshal

import (
	"malcolm-pva/points"
	"malcolm-pva/pvdata"
)

var (
	lineStructure = mustStructure(pvdata.NewFieldBuilder().
			SetID(TypeIDLineGenerator).
			AddArray("axes", pvdata.PVString).
			AddArray("units", pvdata.PVString).
			AddArray("start", pvdata.PVDouble).
			AddArray("stop", pvdata.PVDouble).
			Add("size", pvdata.PVInt).
			Add("alternate", pvdata.PVBoolean))

	arrayStructure = mustStructure(pvdata.NewFieldBuilder().
			SetID(TypeIDArrayGenerator).
			AddArray("axes", pvdata.PVString).
			AddArray("units", pvdata.PVString).
			AddArray("points", pvdata.PVDouble).
			Add("alternate", pvdata.PVBoolean))

	spiralStructure = mustStructure(pvdata.NewFieldBuilder().
			SetID(TypeIDSpiralGenerator).
			AddArray("axes", pvdata.PVString).
			AddArray("units", pvdata.PVString).
			AddArray("centre", pvdata.PVDouble).
			Add("radius", pvdata.PVDouble).
			Add("scale", pvdata.PVDouble).
			Add("alternate", pvdata.PVBoolean))

	lissajousStructure = mustStructure(pvdata.NewFieldBuilder().
				SetID(TypeIDLissajousGenerator).
				AddArray("axes", pvdata.PVString).
				AddArray("units", pvdata.PVString).
				AddArray("centre", pvdata.PVDouble).
				AddArray("span", pvdata.PVDouble).
				Add("lobes", pvdata.PVInt).
				Add("size", pvdata.PVInt).
				Add("alternate", pvdata.PVBoolean))

	compoundStructure = mustStructure(pvdata.NewFieldBuilder().
				SetID(TypeIDCompoundGenerator).
				AddField("generators", variantArray).
				AddField("excluders", variantArray).
				AddField("mutators", variantArray).
				Add("duration", pvdata.PVDouble).
				Add("continuous", pvdata.PVBoolean).
				Add("delay_after", pvdata.PVDouble))
)

func populateLine(pv *pvdata.PVStructure, g *points.LineGenerator) error {
	w := &fieldWriter{pv: pv}
	putArray(w, "axes", g.Axes)
	putArray(w, "units", g.Units)
	putArray(w, "start", g.Start)
	putArray(w, "stop", g.Stop)
	put(w, "size", g.Size)
	put(w, "alternate", g.Alternate)
	return w.err
}

func extractLine(pv *pvdata.PVStructure) (*points.LineGenerator, error) {
	r := &fieldReader{pv: pv}
	return result(r, "line generator", &points.LineGenerator{
		Axes:      getArray[string](r, "axes"),
		Units:     getArray[string](r, "units"),
		Start:     getArray[float64](r, "start"),
		Stop:      getArray[float64](r, "stop"),
		Size:      get[int32](r, "size"),
		Alternate: get[bool](r, "alternate"),
	})
}

func populateArray(pv *pvdata.PVStructure, g *points.ArrayGenerator) error {
	w := &fieldWriter{pv: pv}
	putArray(w, "axes", g.Axes)
	putArray(w, "units", g.Units)
	putArray(w, "points", g.Points)
	put(w, "alternate", g.Alternate)
	return w.err
}

func extractArray(pv *pvdata.PVStructure) (*points.ArrayGenerator, error) {
	r := &fieldReader{pv: pv}
	return result(r, "array generator", &points.ArrayGenerator{
		Axes:      getArray[string](r, "axes"),
		Units:     getArray[string](r, "units"),
		Points:    getArray[float64](r, "points"),
		Alternate: get[bool](r, "alternate"),
	})
}

func populateSpiral(pv *pvdata.PVStructure, g *points.SpiralGenerator) error {
	w := &fieldWriter{pv: pv}
	putArray(w, "axes", g.Axes)
	putArray(w, "units", g.Units)
	putArray(w, "centre", g.Centre)
	put(w, "radius", g.Radius)
	put(w, "scale", g.Scale)
	put(w, "alternate", g.Alternate)
	return w.err
}

func extractSpiral(pv *pvdata.PVStructure) (*points.SpiralGenerator, error) {
	r := &fieldReader{pv: pv}
	return result(r, "spiral generator", &points.SpiralGenerator{
		Axes:      getArray[string](r, "axes"),
		Units:     getArray[string](r, "units"),
		Centre:    getArray[float64](r, "centre"),
		Radius:    get[float64](r, "radius"),
		Scale:     get[float64](r, "scale"),
		Alternate: get[bool](r, "alternate"),
	})
}

func populateLissajous(pv *pvdata.PVStructure, g *points.LissajousGenerator) error {
	w := &fieldWriter{pv: pv}
	putArray(w, "axes", g.Axes)
	putArray(w, "units", g.Units)
	putArray(w, "centre", g.Centre)
	putArray(w, "span", g.Span)
	put(w, "lobes", g.Lobes)
	put(w, "size", g.Size)
	put(w, "alternate", g.Alternate)
	return w.err
}

func extractLissajous(pv *pvdata.PVStructure) (*points.LissajousGenerator, error) {
	r := &fieldReader{pv: pv}
	return result(r, "lissajous generator", &points.LissajousGenerator{
		Axes:      getArray[string](r, "axes"),
		Units:     getArray[string](r, "units"),
		Centre:    getArray[float64](r, "centre"),
		Span:      getArray[float64](r, "span"),
		Lobes:     get[int32](r, "lobes"),
		Size:      get[int32](r, "size"),
		Alternate: get[bool](r, "alternate"),
	})
}

// populateCompound sends generators, excluders and mutators as lists of
// variant unions. Excluders a device cannot use are left out.
func populateCompound(pv *pvdata.PVStructure, g *points.CompoundGenerator) error {
	w := &fieldWriter{pv: pv}
	putVariants(w, "generators", g.Generators)
	putVariants(w, "excluders", g.Excluders)
	putVariants(w, "mutators", g.Mutators)
	put(w, "duration", g.Duration)
	put(w, "continuous", g.Continuous)
	put(w, "delay_after", g.DelayAfter)
	return w.err
}

func extractCompound(pv *pvdata.PVStructure) (*points.CompoundGenerator, error) {
	r := &fieldReader{pv: pv}
	return result(r, "compound generator", &points.CompoundGenerator{
		Generators: getVariants[points.Generator](r, "generators"),
		Excluders:  getVariants[points.Excluder](r, "excluders"),
		Mutators:   getVariants[points.Mutator](r, "mutators"),
		Duration:   get[float64](r, "duration"),
		Continuous: get[bool](r, "continuous"),
		DelayAfter: get[float64](r, "delay_after"),
	})
}
