package points

import (
	"errors"
	"math"
	"slices"
)

// DefaultUnits is used for an axis with no units.
const DefaultUnits = "mm"

// DefaultLobes is the number of lobes of a Lissajous scan when unset.
const DefaultLobes = 4

var (
	// ErrNoBoundingBox is returned when a two-axis model has neither a
	// bounding box nor regions to derive one from.
	ErrNoBoundingBox = errors.New("points: no bounding box and no regions")
	// ErrNoScanPlane is returned when regions are given but no model scans
	// two axes.
	ErrNoScanPlane = errors.New("points: regions need a two-axis model")
	// ErrInvalidModel is returned for a model that cannot produce points.
	ErrInvalidModel = errors.New("points: invalid model")
)

// BoundingBox is an axis-aligned rectangle in the plane of two scan axes.
type BoundingBox struct {
	XAxisStart  float64
	YAxisStart  float64
	XAxisLength float64
	YAxisLength float64
}

// NewBoundingBox takes the start corner, then the lengths.
func NewBoundingBox(xStart, yStart, xLength, yLength float64) *BoundingBox {
	return &BoundingBox{XAxisStart: xStart, YAxisStart: yStart, XAxisLength: xLength, YAxisLength: yLength}
}

// Centre returns the centre point of the box.
func (b BoundingBox) Centre() []float64 {
	return []float64{b.XAxisStart + b.XAxisLength/2, b.YAxisStart + b.YAxisLength/2}
}

// Union returns the smallest box containing b and o.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	return boxOf(
		[]float64{b.XAxisStart, b.XAxisStart + b.XAxisLength, o.XAxisStart, o.XAxisStart + o.XAxisLength},
		[]float64{b.YAxisStart, b.YAxisStart + b.YAxisLength, o.YAxisStart, o.YAxisStart + o.YAxisLength},
	)
}

func boxOf(xs, ys []float64) BoundingBox {
	if len(xs) == 0 || len(ys) == 0 {
		return BoundingBox{}
	}
	minX, maxX := slices.Min(xs), slices.Max(xs)
	minY, maxY := slices.Min(ys), slices.Max(ys)
	return BoundingBox{XAxisStart: minX, YAxisStart: minY, XAxisLength: maxX - minX, YAxisLength: maxY - minY}
}

// Model describes a scan a user asked for. Models become generators.
type Model interface {
	ScanAxes() []string
	IsContinuous() bool
	model()
}

// AxialStepModel moves one axis from Start to Stop in steps of Step.
type AxialStepModel struct {
	Name        string
	Units       string
	Start       float64
	Stop        float64
	Step        float64
	Alternating bool
	Continuous  bool
}

func NewAxialStepModel(name string, start, stop, step float64) *AxialStepModel {
	return &AxialStepModel{Name: name, Start: start, Stop: stop, Step: step, Continuous: true}
}

// Size returns the number of points, Start and Stop included.
func (m *AxialStepModel) Size() (int32, error) {
	span := m.Stop - m.Start
	if m.Step == 0 {
		if span != 0 {
			return 0, ErrInvalidModel
		}
		return 1, nil
	}
	if span/m.Step < 0 {
		return 0, ErrInvalidModel
	}
	// Tolerate rounding so that 1/0.25 counts 4 whole steps.
	steps := math.Floor(span/m.Step + 1e-9)
	if steps+1 > math.MaxInt32 {
		return 0, ErrInvalidModel
	}
	return int32(steps) + 1, nil
}

// AxialArrayModel visits explicit positions of one axis.
type AxialArrayModel struct {
	Name        string
	Units       string
	Positions   []float64
	Alternating bool
	Continuous  bool
}

func NewAxialArrayModel(name string, positions ...float64) *AxialArrayModel {
	return &AxialArrayModel{Name: name, Positions: positions, Continuous: true}
}

// TwoAxisGridPointsModel is a raster of XAxisPoints by YAxisPoints over
// the bounding box, y being the outer axis.
type TwoAxisGridPointsModel struct {
	XAxisName   string
	YAxisName   string
	XAxisUnits  string
	YAxisUnits  string
	XAxisPoints int32
	YAxisPoints int32
	BoundingBox *BoundingBox
	Alternating bool
	Continuous  bool
}

func NewTwoAxisGridPointsModel(xName, yName string) *TwoAxisGridPointsModel {
	return &TwoAxisGridPointsModel{XAxisName: xName, YAxisName: yName, XAxisPoints: 5, YAxisPoints: 5, Continuous: true}
}

// TwoAxisSpiralModel is a spiral filling the bounding box.
type TwoAxisSpiralModel struct {
	XAxisName   string
	YAxisName   string
	XAxisUnits  string
	YAxisUnits  string
	Scale       float64
	BoundingBox *BoundingBox
	Alternating bool
	Continuous  bool
}

func NewTwoAxisSpiralModel(xName, yName string, scale float64, box *BoundingBox) *TwoAxisSpiralModel {
	return &TwoAxisSpiralModel{XAxisName: xName, YAxisName: yName, Scale: scale, BoundingBox: box, Continuous: true}
}

// TwoAxisLissajousModel is a Lissajous curve of Points points over the
// bounding box.
type TwoAxisLissajousModel struct {
	XAxisName   string
	YAxisName   string
	XAxisUnits  string
	YAxisUnits  string
	Points      int32
	Lobes       int32
	BoundingBox *BoundingBox
	Alternating bool
	Continuous  bool
}

func NewTwoAxisLissajousModel(xName, yName string) *TwoAxisLissajousModel {
	return &TwoAxisLissajousModel{XAxisName: xName, YAxisName: yName, Points: 100, Lobes: DefaultLobes, Continuous: true}
}

func (m *AxialStepModel) ScanAxes() []string         { return []string{m.Name} }
func (m *AxialArrayModel) ScanAxes() []string        { return []string{m.Name} }
func (m *TwoAxisGridPointsModel) ScanAxes() []string { return []string{m.XAxisName, m.YAxisName} }
func (m *TwoAxisSpiralModel) ScanAxes() []string     { return []string{m.XAxisName, m.YAxisName} }
func (m *TwoAxisLissajousModel) ScanAxes() []string  { return []string{m.XAxisName, m.YAxisName} }

func (m *AxialStepModel) IsContinuous() bool         { return m.Continuous }
func (m *AxialArrayModel) IsContinuous() bool        { return m.Continuous }
func (m *TwoAxisGridPointsModel) IsContinuous() bool { return m.Continuous }
func (m *TwoAxisSpiralModel) IsContinuous() bool     { return m.Continuous }
func (m *TwoAxisLissajousModel) IsContinuous() bool  { return m.Continuous }

func (*AxialStepModel) model()         {}
func (*AxialArrayModel) model()        {}
func (*TwoAxisGridPointsModel) model() {}
func (*TwoAxisSpiralModel) model()     {}
func (*TwoAxisLissajousModel) model()  {}

func units(u string) string {
	if u == "" {
		return DefaultUnits
	}
	return u
}
