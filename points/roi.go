package points

import "math"

// ROI is a region of interest in the plane of two scan axes.
type ROI interface {
	// Bounds returns the smallest axis-aligned box containing the region.
	Bounds() BoundingBox
	roi()
}

type CircularROI struct {
	Centre []float64
	Radius float64
}

// NewCircularROI takes the radius first, then the centre.
func NewCircularROI(radius, x, y float64) *CircularROI {
	return &CircularROI{Centre: []float64{x, y}, Radius: radius}
}

type EllipticalROI struct {
	Centre   []float64
	Semiaxes []float64
	// Angle of the first semi-axis from the x axis, in radians.
	Angle float64
}

// RectangularROI is anchored at Start and rotated about it by Angle radians.
type RectangularROI struct {
	Start  []float64
	Width  float64
	Height float64
	Angle  float64
}

// SectorROI is the part of an annulus between two angles.
type SectorROI struct {
	Centre []float64
	Radii  []float64
	Angles []float64
}

type PolygonalROI struct {
	PointsX []float64
	PointsY []float64
}

type PointROI struct {
	Point []float64
}

// LinearROI is a line segment. It bounds a scan but cannot be sent to a
// Malcolm device, so excluders leave it out.
type LinearROI struct {
	Start  []float64
	Length float64
	Angle  float64
}

func (*CircularROI) roi()    {}
func (*EllipticalROI) roi()  {}
func (*RectangularROI) roi() {}
func (*SectorROI) roi()      {}
func (*PolygonalROI) roi()   {}
func (*PointROI) roi()       {}
func (*LinearROI) roi()      {}

func coord(v []float64, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

func (r *CircularROI) Bounds() BoundingBox {
	x, y := coord(r.Centre, 0), coord(r.Centre, 1)
	return boxOf([]float64{x - r.Radius, x + r.Radius}, []float64{y - r.Radius, y + r.Radius})
}

func (r *EllipticalROI) Bounds() BoundingBox {
	a, b := coord(r.Semiaxes, 0), coord(r.Semiaxes, 1)
	sin, cos := math.Sincos(r.Angle)
	hx := math.Sqrt(a*a*cos*cos + b*b*sin*sin)
	hy := math.Sqrt(a*a*sin*sin + b*b*cos*cos)
	x, y := coord(r.Centre, 0), coord(r.Centre, 1)
	return boxOf([]float64{x - hx, x + hx}, []float64{y - hy, y + hy})
}

func (r *RectangularROI) Bounds() BoundingBox {
	sin, cos := math.Sincos(r.Angle)
	x, y := coord(r.Start, 0), coord(r.Start, 1)
	xs := []float64{x, x + r.Width*cos, x - r.Height*sin, x + r.Width*cos - r.Height*sin}
	ys := []float64{y, y + r.Width*sin, y + r.Height*cos, y + r.Width*sin + r.Height*cos}
	return boxOf(xs, ys)
}

// Bounds of a sector use the full outer circle.
func (r *SectorROI) Bounds() BoundingBox {
	return (&CircularROI{Centre: r.Centre, Radius: coord(r.Radii, 1)}).Bounds()
}

func (r *PolygonalROI) Bounds() BoundingBox {
	return boxOf(r.PointsX, r.PointsY)
}

func (r *PointROI) Bounds() BoundingBox {
	return boxOf([]float64{coord(r.Point, 0)}, []float64{coord(r.Point, 1)})
}

func (r *LinearROI) Bounds() BoundingBox {
	sin, cos := math.Sincos(r.Angle)
	x, y := coord(r.Start, 0), coord(r.Start, 1)
	return boxOf([]float64{x, x + r.Length*cos}, []float64{y, y + r.Length*sin})
}

// Supported reports whether r can be sent inside an ROIExcluder.
func Supported(r ROI) bool {
	_, linear := r.(*LinearROI)
	return r != nil && !linear
}
