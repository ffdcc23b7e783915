package points

import (
	"fmt"
	"math"
)

// CompoundModel combines scan models, outermost first, with the regions
// and mutators that apply to them.
type CompoundModel struct {
	Models   []Model
	Regions  []ROI
	Mutators []Mutator
	// Duration is the exposure per point in seconds, -1 when unset.
	Duration   float64
	DelayAfter float64
}

// NewCompoundModel returns a model with no regions, no mutators and an
// unset duration.
func NewCompoundModel(models ...Model) *CompoundModel {
	return &CompoundModel{Models: models, Duration: -1}
}

// Generator converts the model into the descriptor tree a Malcolm device
// is configured with.
//
// Grid models become two nested LineGenerators (y outer). Two-axis models
// without a bounding box take the union of the region bounds. All
// supported regions go into a single ROIExcluder over the axes of the first
// two-axis model; LinearROI is left out, and an excluder with no regions
// left is not produced. The generator is continuous only when every model
// is.
func (m *CompoundModel) Generator() (*CompoundGenerator, error) {
	if len(m.Models) == 0 {
		return nil, fmt.Errorf("%w: no models", ErrInvalidModel)
	}
	regionBox, hasRegions := regionBounds(m.Regions)
	cg := &CompoundGenerator{
		Generators: []Generator{},
		Excluders:  []Excluder{},
		Mutators:   append([]Mutator{}, m.Mutators...),
		Duration:   m.Duration,
		DelayAfter: m.DelayAfter,
		Continuous: true,
	}
	var plane []string
	for _, model := range m.Models {
		gens, err := generatorsFor(model, regionBox, hasRegions)
		if err != nil {
			return nil, err
		}
		cg.Generators = append(cg.Generators, gens...)
		cg.Continuous = cg.Continuous && model.IsContinuous()
		if axes := model.ScanAxes(); plane == nil && len(axes) == 2 {
			plane = axes
		}
	}
	if len(m.Regions) == 0 {
		return cg, nil
	}
	if plane == nil {
		return nil, ErrNoScanPlane
	}
	excluder := &ROIExcluder{Axes: append([]string{}, plane...)}
	for _, r := range m.Regions {
		if Supported(r) {
			excluder.ROIs = append(excluder.ROIs, r)
		}
	}
	if len(excluder.ROIs) > 0 {
		cg.Excluders = append(cg.Excluders, excluder)
	}
	return cg, nil
}

func regionBounds(regions []ROI) (BoundingBox, bool) {
	var box BoundingBox
	for i, r := range regions {
		if i == 0 {
			box = r.Bounds()
			continue
		}
		box = box.Union(r.Bounds())
	}
	return box, len(regions) > 0
}

func pickBox(model Model, own *BoundingBox, regionBox BoundingBox, hasRegions bool) (BoundingBox, error) {
	switch {
	case own != nil:
		return *own, nil
	case hasRegions:
		return regionBox, nil
	}
	return BoundingBox{}, fmt.Errorf("%w: %T over %v", ErrNoBoundingBox, model, model.ScanAxes())
}

func generatorsFor(model Model, regionBox BoundingBox, hasRegions bool) ([]Generator, error) {
	switch m := model.(type) {
	case *AxialStepModel:
		size, err := m.Size()
		if err != nil {
			return nil, fmt.Errorf("%w: %s from %g to %g step %g", err, m.Name, m.Start, m.Stop, m.Step)
		}
		return []Generator{&LineGenerator{
			Axes:      []string{m.Name},
			Units:     []string{units(m.Units)},
			Start:     []float64{m.Start},
			Stop:      []float64{m.Stop},
			Size:      size,
			Alternate: m.Alternating,
		}}, nil
	case *AxialArrayModel:
		return []Generator{&ArrayGenerator{
			Axes:      []string{m.Name},
			Units:     []string{units(m.Units)},
			Points:    append([]float64{}, m.Positions...),
			Alternate: m.Alternating,
		}}, nil
	case *TwoAxisGridPointsModel:
		if m.XAxisPoints < 1 || m.YAxisPoints < 1 {
			return nil, fmt.Errorf("%w: grid of %d by %d points", ErrInvalidModel, m.XAxisPoints, m.YAxisPoints)
		}
		box, err := pickBox(m, m.BoundingBox, regionBox, hasRegions)
		if err != nil {
			return nil, err
		}
		return []Generator{
			&LineGenerator{
				Axes:      []string{m.YAxisName},
				Units:     []string{units(m.YAxisUnits)},
				Start:     []float64{box.YAxisStart},
				Stop:      []float64{box.YAxisStart + box.YAxisLength},
				Size:      m.YAxisPoints,
				Alternate: m.Alternating,
			},
			&LineGenerator{
				Axes:      []string{m.XAxisName},
				Units:     []string{units(m.XAxisUnits)},
				Start:     []float64{box.XAxisStart},
				Stop:      []float64{box.XAxisStart + box.XAxisLength},
				Size:      m.XAxisPoints,
				Alternate: m.Alternating,
			},
		}, nil
	case *TwoAxisSpiralModel:
		box, err := pickBox(m, m.BoundingBox, regionBox, hasRegions)
		if err != nil {
			return nil, err
		}
		return []Generator{&SpiralGenerator{
			Axes:      []string{m.XAxisName, m.YAxisName},
			Units:     []string{units(m.XAxisUnits), units(m.YAxisUnits)},
			Centre:    box.Centre(),
			Radius:    math.Sqrt(box.XAxisLength*box.XAxisLength/4 + box.YAxisLength*box.YAxisLength/4),
			Scale:     m.Scale,
			Alternate: m.Alternating,
		}}, nil
	case *TwoAxisLissajousModel:
		box, err := pickBox(m, m.BoundingBox, regionBox, hasRegions)
		if err != nil {
			return nil, err
		}
		lobes := m.Lobes
		if lobes == 0 {
			lobes = DefaultLobes
		}
		return []Generator{&LissajousGenerator{
			Axes:      []string{m.XAxisName, m.YAxisName},
			Units:     []string{units(m.XAxisUnits), units(m.YAxisUnits)},
			Centre:    box.Centre(),
			Span:      []float64{box.XAxisLength, box.YAxisLength},
			Lobes:     lobes,
			Size:      m.Points,
			Alternate: m.Alternating,
		}}, nil
	}
	return nil, fmt.Errorf("%w: unknown model %T", ErrInvalidModel, model)
}
