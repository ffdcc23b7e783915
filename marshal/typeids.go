package marshal

// Type ids of the structures a Malcolm device understands. The id is the
// only thing that tells a decoder which domain type a structure holds.
const (
	TypeIDLineGenerator      = "scanpointgenerator:generator/LineGenerator:1.0"
	TypeIDArrayGenerator     = "scanpointgenerator:generator/ArrayGenerator:1.0"
	TypeIDSpiralGenerator    = "scanpointgenerator:generator/SpiralGenerator:1.0"
	TypeIDLissajousGenerator = "scanpointgenerator:generator/LissajousGenerator:1.0"
	TypeIDCompoundGenerator  = "scanpointgenerator:generator/CompoundGenerator:1.0"

	TypeIDCircularROI    = "scanpointgenerator:roi/CircularROI:1.0"
	TypeIDEllipticalROI  = "scanpointgenerator:roi/EllipticalROI:1.0"
	TypeIDRectangularROI = "scanpointgenerator:roi/RectangularROI:1.0"
	TypeIDSectorROI      = "scanpointgenerator:roi/SectorROI:1.0"
	TypeIDPolygonalROI   = "scanpointgenerator:roi/PolygonalROI:1.0"
	TypeIDPointROI       = "scanpointgenerator:roi/PointROI:1.0"

	TypeIDROIExcluder = "scanpointgenerator:excluder/ROIExcluder:1.0"

	TypeIDRandomOffsetMutator = "scanpointgenerator:mutator/RandomOffsetMutator:1.0"

	TypeIDTable = "malcolm:core/Table:1.0"
	// TypeIDMap is accepted on decode. Maps are encoded without an id.
	TypeIDMap = "malcolm:core/Map:1.0"
)
