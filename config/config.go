// Package config reads a scan description from YAML.
//
//	models:
//	  - type: grid
//	    x_axis: stage_x
//	    y_axis: stage_y
//	    x_points: 10
//	    y_points: 5
//	    alternating: true
//	regions:
//	  - type: rectangle
//	    start: [-2, 2]
//	    width: 9
//	    height: 16
//	mutators:
//	  - type: random_offset
//	    seed: 112
//	    offsets: {stage_x: 0.5}
//	duration: 0.1
//	file_dir: /dls/tmp
//
// Models are listed outermost first. Units default to mm and models are
// continuous unless they say otherwise.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"malcolm-pva/malcolm"
	"malcolm-pva/points"
)

// ErrInvalidConfig is returned for a description that names an unknown
// kind or lacks a required field.
var ErrInvalidConfig = errors.New("config: invalid scan description")

// Config is a scan description.
type Config struct {
	Models   []Model   `yaml:"models"`
	Regions  []Region  `yaml:"regions"`
	Mutators []Mutator `yaml:"mutators"`

	// Duration is the exposure per point in seconds. Zero leaves it unset.
	Duration   float64 `yaml:"duration"`
	DelayAfter float64 `yaml:"delay_after"`

	AxesToMove   []string   `yaml:"axes_to_move"`
	FileDir      string     `yaml:"file_dir"`
	FileTemplate string     `yaml:"file_template"`
	Detectors    []Detector `yaml:"detectors"`
}

// Model is one scan model. Type is one of step, array, grid, spiral or
// lissajous; the other fields apply to some types only.
type Model struct {
	Type string `yaml:"type"`

	// step and array
	Axis      string    `yaml:"axis"`
	Units     string    `yaml:"units"`
	Start     float64   `yaml:"start"`
	Stop      float64   `yaml:"stop"`
	Step      float64   `yaml:"step"`
	Positions []float64 `yaml:"positions"`

	// grid, spiral and lissajous
	XAxis   string  `yaml:"x_axis"`
	YAxis   string  `yaml:"y_axis"`
	XUnits  string  `yaml:"x_units"`
	YUnits  string  `yaml:"y_units"`
	XPoints int32   `yaml:"x_points"`
	YPoints int32   `yaml:"y_points"`
	Scale   float64 `yaml:"scale"`
	Points  int32   `yaml:"points"`
	Lobes   int32   `yaml:"lobes"`
	Box     *Box    `yaml:"box"`

	Alternating bool  `yaml:"alternating"`
	Continuous  *bool `yaml:"continuous"`
}

// Box is a bounding box.
type Box struct {
	XStart  float64 `yaml:"x_start"`
	YStart  float64 `yaml:"y_start"`
	XLength float64 `yaml:"x_length"`
	YLength float64 `yaml:"y_length"`
}

// Region is one region of interest. Type is one of circle, ellipse,
// rectangle, sector, polygon, point or line.
type Region struct {
	Type     string    `yaml:"type"`
	Centre   []float64 `yaml:"centre"`
	Radius   float64   `yaml:"radius"`
	Semiaxes []float64 `yaml:"semiaxes"`
	Start    []float64 `yaml:"start"`
	Width    float64   `yaml:"width"`
	Height   float64   `yaml:"height"`
	Length   float64   `yaml:"length"`
	Angle    float64   `yaml:"angle"`
	Radii    []float64 `yaml:"radii"`
	Angles   []float64 `yaml:"angles"`
	PointsX  []float64 `yaml:"points_x"`
	PointsY  []float64 `yaml:"points_y"`
	Point    []float64 `yaml:"point"`
}

// Mutator is one mutator. The only Type is random_offset.
type Mutator struct {
	Type    string             `yaml:"type"`
	Seed    int32              `yaml:"seed"`
	Axes    []string           `yaml:"axes"`
	Offsets map[string]float64 `yaml:"offsets"`
}

// Detector is one row of the detectors table. Enabled defaults to true.
type Detector struct {
	Name          string  `yaml:"name"`
	MRI           string  `yaml:"mri"`
	Exposure      float64 `yaml:"exposure"`
	FramesPerStep int32   `yaml:"frames_per_step"`
	Enabled       *bool   `yaml:"enabled"`
}

// Load reads the scan description in the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse reads a scan description. Unknown keys are an error.
func Parse(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &c, nil
}

func orTrue(b *bool) bool { return b == nil || *b }

func (b *Box) boundingBox() *points.BoundingBox {
	if b == nil {
		return nil
	}
	return points.NewBoundingBox(b.XStart, b.YStart, b.XLength, b.YLength)
}

func (m *Model) model() (points.Model, error) {
	needTwo := func() error {
		if m.XAxis == "" || m.YAxis == "" {
			return fmt.Errorf("%w: %s model needs x_axis and y_axis", ErrInvalidConfig, m.Type)
		}
		return nil
	}
	switch m.Type {
	case "step":
		if m.Axis == "" {
			return nil, fmt.Errorf("%w: step model needs an axis", ErrInvalidConfig)
		}
		sm := points.NewAxialStepModel(m.Axis, m.Start, m.Stop, m.Step)
		sm.Units, sm.Alternating, sm.Continuous = m.Units, m.Alternating, orTrue(m.Continuous)
		return sm, nil
	case "array":
		if m.Axis == "" || len(m.Positions) == 0 {
			return nil, fmt.Errorf("%w: array model needs an axis and positions", ErrInvalidConfig)
		}
		am := points.NewAxialArrayModel(m.Axis, m.Positions...)
		am.Units, am.Alternating, am.Continuous = m.Units, m.Alternating, orTrue(m.Continuous)
		return am, nil
	case "grid":
		if err := needTwo(); err != nil {
			return nil, err
		}
		gm := points.NewTwoAxisGridPointsModel(m.XAxis, m.YAxis)
		if m.XPoints > 0 {
			gm.XAxisPoints = m.XPoints
		}
		if m.YPoints > 0 {
			gm.YAxisPoints = m.YPoints
		}
		gm.XAxisUnits, gm.YAxisUnits = m.XUnits, m.YUnits
		gm.BoundingBox = m.Box.boundingBox()
		gm.Alternating, gm.Continuous = m.Alternating, orTrue(m.Continuous)
		return gm, nil
	case "spiral":
		if err := needTwo(); err != nil {
			return nil, err
		}
		scale := m.Scale
		if scale == 0 {
			scale = 1
		}
		sp := points.NewTwoAxisSpiralModel(m.XAxis, m.YAxis, scale, m.Box.boundingBox())
		sp.XAxisUnits, sp.YAxisUnits = m.XUnits, m.YUnits
		sp.Alternating, sp.Continuous = m.Alternating, orTrue(m.Continuous)
		return sp, nil
	case "lissajous":
		if err := needTwo(); err != nil {
			return nil, err
		}
		lm := points.NewTwoAxisLissajousModel(m.XAxis, m.YAxis)
		if m.Points > 0 {
			lm.Points = m.Points
		}
		if m.Lobes > 0 {
			lm.Lobes = m.Lobes
		}
		lm.XAxisUnits, lm.YAxisUnits = m.XUnits, m.YUnits
		lm.BoundingBox = m.Box.boundingBox()
		lm.Alternating, lm.Continuous = m.Alternating, orTrue(m.Continuous)
		return lm, nil
	}
	return nil, fmt.Errorf("%w: unknown model type %q", ErrInvalidConfig, m.Type)
}

func (r *Region) roi() (points.ROI, error) {
	switch r.Type {
	case "circle":
		return &points.CircularROI{Centre: r.Centre, Radius: r.Radius}, nil
	case "ellipse":
		return &points.EllipticalROI{Centre: r.Centre, Semiaxes: r.Semiaxes, Angle: r.Angle}, nil
	case "rectangle":
		return &points.RectangularROI{Start: r.Start, Width: r.Width, Height: r.Height, Angle: r.Angle}, nil
	case "sector":
		return &points.SectorROI{Centre: r.Centre, Radii: r.Radii, Angles: r.Angles}, nil
	case "polygon":
		if len(r.PointsX) != len(r.PointsY) {
			return nil, fmt.Errorf("%w: polygon has %d x and %d y points", ErrInvalidConfig, len(r.PointsX), len(r.PointsY))
		}
		return &points.PolygonalROI{PointsX: r.PointsX, PointsY: r.PointsY}, nil
	case "point":
		return &points.PointROI{Point: r.Point}, nil
	case "line":
		return &points.LinearROI{Start: r.Start, Length: r.Length, Angle: r.Angle}, nil
	}
	return nil, fmt.Errorf("%w: unknown region type %q", ErrInvalidConfig, r.Type)
}

func (m *Mutator) mutator() (points.Mutator, error) {
	if m.Type != "random_offset" {
		return nil, fmt.Errorf("%w: unknown mutator type %q", ErrInvalidConfig, m.Type)
	}
	axes := m.Axes
	if len(axes) == 0 {
		axes = make([]string, 0, len(m.Offsets))
		for k := range m.Offsets {
			axes = append(axes, k)
		}
		slices.Sort(axes)
	}
	return points.NewRandomOffsetMutator(m.Seed, axes, m.Offsets), nil
}

// CompoundModel returns the models, regions and mutators of c.
func (c *Config) CompoundModel() (*points.CompoundModel, error) {
	cm := points.NewCompoundModel()
	for i := range c.Models {
		m, err := c.Models[i].model()
		if err != nil {
			return nil, fmt.Errorf("model %d: %w", i, err)
		}
		cm.Models = append(cm.Models, m)
	}
	for i := range c.Regions {
		r, err := c.Regions[i].roi()
		if err != nil {
			return nil, fmt.Errorf("region %d: %w", i, err)
		}
		cm.Regions = append(cm.Regions, r)
	}
	for i := range c.Mutators {
		m, err := c.Mutators[i].mutator()
		if err != nil {
			return nil, fmt.Errorf("mutator %d: %w", i, err)
		}
		cm.Mutators = append(cm.Mutators, m)
	}
	if c.Duration != 0 {
		cm.Duration = c.Duration
	}
	cm.DelayAfter = c.DelayAfter
	return cm, nil
}

// Generator returns the compound generator c describes.
func (c *Config) Generator() (*points.CompoundGenerator, error) {
	cm, err := c.CompoundModel()
	if err != nil {
		return nil, err
	}
	return cm.Generator()
}

// Parameters returns the configure parameters c describes. Axes to move
// default to the axes of every model.
func (c *Config) Parameters() (*malcolm.ConfigureParameters, error) {
	cm, err := c.CompoundModel()
	if err != nil {
		return nil, err
	}
	gen, err := cm.Generator()
	if err != nil {
		return nil, err
	}
	params := &malcolm.ConfigureParameters{
		Generator:    gen,
		AxesToMove:   c.AxesToMove,
		FileDir:      c.FileDir,
		FileTemplate: c.FileTemplate,
	}
	if len(params.AxesToMove) == 0 {
		for _, m := range cm.Models {
			params.AxesToMove = append(params.AxesToMove, m.ScanAxes()...)
		}
	}
	if len(c.Detectors) > 0 {
		infos := make([]malcolm.DetectorInfo, len(c.Detectors))
		for i, d := range c.Detectors {
			infos[i] = malcolm.DetectorInfo{
				Enabled:       orTrue(d.Enabled),
				Name:          d.Name,
				MRI:           d.MRI,
				Exposure:      d.Exposure,
				FramesPerStep: d.FramesPerStep,
			}
		}
		params.Detectors = malcolm.DetectorsTable(infos)
	}
	return params, nil
}
