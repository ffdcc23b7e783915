// Package points holds the scan-point generator descriptors sent to a
// Malcolm device, the regions and mutators that shape them, and the scan
// models they are built from.
//
// The descriptor families are closed: Generator, Excluder, Mutator and ROI
// are only implemented by the types in this package.
package points

// Generator is a scan-point generator descriptor.
type Generator interface {
	generator()
}

// Excluder removes points from a scan.
type Excluder interface {
	excluder()
}

// Mutator alters the points of a scan.
type Mutator interface {
	mutator()
}

// LineGenerator steps its axes linearly from Start to Stop in Size points.
type LineGenerator struct {
	Axes      []string
	Units     []string
	Start     []float64
	Stop      []float64
	Size      int32
	Alternate bool
}

// ArrayGenerator visits an explicit list of positions on one axis.
type ArrayGenerator struct {
	Axes      []string
	Units     []string
	Points    []float64
	Alternate bool
}

// SpiralGenerator traces a Fermat spiral around Centre out to Radius.
type SpiralGenerator struct {
	Axes      []string
	Units     []string
	Centre    []float64
	Radius    float64
	Scale     float64
	Alternate bool
}

// LissajousGenerator traces a Lissajous curve filling Span around Centre.
type LissajousGenerator struct {
	Axes      []string
	Units     []string
	Centre    []float64
	Span      []float64
	Lobes     int32
	Size      int32
	Alternate bool
}

// CompoundGenerator nests generators, outermost first, and applies the
// excluders and mutators to the combined points.
type CompoundGenerator struct {
	Generators []Generator
	Excluders  []Excluder
	Mutators   []Mutator
	// Duration is the exposure per point in seconds, -1 when unset.
	Duration   float64
	Continuous bool
	DelayAfter float64
}

// ROIExcluder keeps only the points of Axes that lie inside one of ROIs.
type ROIExcluder struct {
	Axes []string
	ROIs []ROI
}

// RandomOffsetMutator shifts each point of Axes by a seeded random offset
// bounded by the matching MaxOffset.
type RandomOffsetMutator struct {
	Seed      int32
	Axes      []string
	MaxOffset []float64
}

// NewRandomOffsetMutator orders the per-axis offsets like axes. Axes with no
// offset get 0.
func NewRandomOffsetMutator(seed int32, axes []string, offsets map[string]float64) *RandomOffsetMutator {
	m := &RandomOffsetMutator{Seed: seed, Axes: append([]string{}, axes...), MaxOffset: make([]float64, len(axes))}
	for i, axis := range axes {
		m.MaxOffset[i] = offsets[axis]
	}
	return m
}

func (*LineGenerator) generator()      {}
func (*ArrayGenerator) generator()     {}
func (*SpiralGenerator) generator()    {}
func (*LissajousGenerator) generator() {}
func (*CompoundGenerator) generator()  {}

func (*ROIExcluder) excluder() {}

func (*RandomOffsetMutator) mutator() {}
