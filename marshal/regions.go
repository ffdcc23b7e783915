package marshal

import (
	"malcolm-pva/points"
	"malcolm-pva/pvdata"
)

var (
	circularStructure = mustStructure(pvdata.NewFieldBuilder().
				SetID(TypeIDCircularROI).
				AddArray("centre", pvdata.PVDouble).
				Add("radius", pvdata.PVDouble))

	ellipticalStructure = mustStructure(pvdata.NewFieldBuilder().
				SetID(TypeIDEllipticalROI).
				AddArray("centre", pvdata.PVDouble).
				AddArray("semiaxes", pvdata.PVDouble).
				Add("angle", pvdata.PVDouble))

	rectangularStructure = mustStructure(pvdata.NewFieldBuilder().
				SetID(TypeIDRectangularROI).
				AddArray("start", pvdata.PVDouble).
				Add("width", pvdata.PVDouble).
				Add("height", pvdata.PVDouble).
				Add("angle", pvdata.PVDouble))

	sectorStructure = mustStructure(pvdata.NewFieldBuilder().
			SetID(TypeIDSectorROI).
			AddArray("centre", pvdata.PVDouble).
			AddArray("radii", pvdata.PVDouble).
			AddArray("angles", pvdata.PVDouble))

	polygonalStructure = mustStructure(pvdata.NewFieldBuilder().
				SetID(TypeIDPolygonalROI).
				AddArray("points_x", pvdata.PVDouble).
				AddArray("points_y", pvdata.PVDouble))

	pointStructure = mustStructure(pvdata.NewFieldBuilder().
			SetID(TypeIDPointROI).
			AddArray("point", pvdata.PVDouble))

	excluderStructure = mustStructure(pvdata.NewFieldBuilder().
				SetID(TypeIDROIExcluder).
				AddArray("axes", pvdata.PVString).
				AddField("rois", variantArray))

	randomOffsetStructure = mustStructure(pvdata.NewFieldBuilder().
				SetID(TypeIDRandomOffsetMutator).
				Add("seed", pvdata.PVInt).
				AddArray("axes", pvdata.PVString).
				AddArray("max_offset", pvdata.PVDouble))
)

func populateCircular(pv *pvdata.PVStructure, roi *points.CircularROI) error {
	w := &fieldWriter{pv: pv}
	putArray(w, "centre", roi.Centre)
	put(w, "radius", roi.Radius)
	return w.err
}

func extractCircular(pv *pvdata.PVStructure) (*points.CircularROI, error) {
	r := &fieldReader{pv: pv}
	return result(r, "circular roi", &points.CircularROI{
		Centre: getArray[float64](r, "centre"),
		Radius: get[float64](r, "radius"),
	})
}

func populateElliptical(pv *pvdata.PVStructure, roi *points.EllipticalROI) error {
	w := &fieldWriter{pv: pv}
	putArray(w, "centre", roi.Centre)
	putArray(w, "semiaxes", roi.Semiaxes)
	put(w, "angle", roi.Angle)
	return w.err
}

func extractElliptical(pv *pvdata.PVStructure) (*points.EllipticalROI, error) {
	r := &fieldReader{pv: pv}
	return result(r, "elliptical roi", &points.EllipticalROI{
		Centre:   getArray[float64](r, "centre"),
		Semiaxes: getArray[float64](r, "semiaxes"),
		Angle:    get[float64](r, "angle"),
	})
}

func populateRectangular(pv *pvdata.PVStructure, roi *points.RectangularROI) error {
	w := &fieldWriter{pv: pv}
	putArray(w, "start", roi.Start)
	put(w, "width", roi.Width)
	put(w, "height", roi.Height)
	put(w, "angle", roi.Angle)
	return w.err
}

func extractRectangular(pv *pvdata.PVStructure) (*points.RectangularROI, error) {
	r := &fieldReader{pv: pv}
	return result(r, "rectangular roi", &points.RectangularROI{
		Start:  getArray[float64](r, "start"),
		Width:  get[float64](r, "width"),
		Height: get[float64](r, "height"),
		Angle:  get[float64](r, "angle"),
	})
}

func populateSector(pv *pvdata.PVStructure, roi *points.SectorROI) error {
	w := &fieldWriter{pv: pv}
	putArray(w, "centre", roi.Centre)
	putArray(w, "radii", roi.Radii)
	putArray(w, "angles", roi.Angles)
	return w.err
}

func extractSector(pv *pvdata.PVStructure) (*points.SectorROI, error) {
	r := &fieldReader{pv: pv}
	return result(r, "sector roi", &points.SectorROI{
		Centre: getArray[float64](r, "centre"),
		Radii:  getArray[float64](r, "radii"),
		Angles: getArray[float64](r, "angles"),
	})
}

func populatePolygonal(pv *pvdata.PVStructure, roi *points.PolygonalROI) error {
	w := &fieldWriter{pv: pv}
	putArray(w, "points_x", roi.PointsX)
	putArray(w, "points_y", roi.PointsY)
	return w.err
}

func extractPolygonal(pv *pvdata.PVStructure) (*points.PolygonalROI, error) {
	r := &fieldReader{pv: pv}
	return result(r, "polygonal roi", &points.PolygonalROI{
		PointsX: getArray[float64](r, "points_x"),
		PointsY: getArray[float64](r, "points_y"),
	})
}

func populatePoint(pv *pvdata.PVStructure, roi *points.PointROI) error {
	w := &fieldWriter{pv: pv}
	putArray(w, "point", roi.Point)
	return w.err
}

func extractPoint(pv *pvdata.PVStructure) (*points.PointROI, error) {
	r := &fieldReader{pv: pv}
	return result(r, "point roi", &points.PointROI{Point: getArray[float64](r, "point")})
}

// populateExcluder leaves out regions a device has no type for.
func populateExcluder(pv *pvdata.PVStructure, ex *points.ROIExcluder) error {
	w := &fieldWriter{pv: pv}
	putArray(w, "axes", ex.Axes)
	putVariants(w, "rois", ex.ROIs)
	return w.err
}

func extractExcluder(pv *pvdata.PVStructure) (*points.ROIExcluder, error) {
	r := &fieldReader{pv: pv}
	return result(r, "roi excluder", &points.ROIExcluder{
		Axes: getArray[string](r, "axes"),
		ROIs: getVariants[points.ROI](r, "rois"),
	})
}

func populateRandomOffset(pv *pvdata.PVStructure, m *points.RandomOffsetMutator) error {
	w := &fieldWriter{pv: pv}
	put(w, "seed", m.Seed)
	putArray(w, "axes", m.Axes)
	putArray(w, "max_offset", m.MaxOffset)
	return w.err
}

func extractRandomOffset(pv *pvdata.PVStructure) (*points.RandomOffsetMutator, error) {
	r := &fieldReader{pv: pv}
	return result(r, "random offset mutator", &points.RandomOffsetMutator{
		Seed:      get[int32](r, "seed"),
		Axes:      getArray[string](r, "axes"),
		MaxOffset: getArray[float64](r, "max_offset"),
	})
}
