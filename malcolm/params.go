package malcolm

import (
	"fmt"

	"malcolm-pva/points"
)

// Field names of the configure parameters.
const (
	ParamGenerator    = "generator"
	ParamAxesToMove   = "axesToMove"
	ParamFileDir      = "fileDir"
	ParamFileTemplate = "fileTemplate"
	ParamDetectors    = "detectors"
)

// ConfigureParameters are the parameters of the validate and configure
// methods of a scan block.
type ConfigureParameters struct {
	Generator    *points.CompoundGenerator
	AxesToMove   []string
	FileDir      string
	FileTemplate string
	// Detectors is optional.
	Detectors *Table
}

// Validate checks the parameters before they are sent.
func (p *ConfigureParameters) Validate() error {
	if p.Generator == nil {
		return fmt.Errorf("malcolm: configure parameters have no generator")
	}
	if p.FileDir == "" {
		return fmt.Errorf("malcolm: configure parameters have no file directory")
	}
	return nil
}

// ParametersFromMap reads configure parameters from the map a device
// receives. Missing optional fields stay empty.
func ParametersFromMap(m *Map) (*ConfigureParameters, error) {
	p := &ConfigureParameters{}
	v, ok := m.Get(ParamGenerator)
	if !ok {
		return nil, fmt.Errorf("malcolm: parameters have no %s", ParamGenerator)
	}
	if p.Generator, ok = v.(*points.CompoundGenerator); !ok {
		return nil, fmt.Errorf("malcolm: %s is %T, not a compound generator", ParamGenerator, v)
	}
	if v, ok := m.Get(ParamAxesToMove); ok {
		if p.AxesToMove, ok = v.([]string); !ok {
			return nil, fmt.Errorf("malcolm: %s is %T, not []string", ParamAxesToMove, v)
		}
	}
	if v, ok := m.Get(ParamFileDir); ok {
		if p.FileDir, ok = v.(string); !ok {
			return nil, fmt.Errorf("malcolm: %s is %T, not a string", ParamFileDir, v)
		}
	}
	if v, ok := m.Get(ParamFileTemplate); ok {
		if p.FileTemplate, ok = v.(string); !ok {
			return nil, fmt.Errorf("malcolm: %s is %T, not a string", ParamFileTemplate, v)
		}
	}
	if v, ok := m.Get(ParamDetectors); ok {
		if p.Detectors, ok = v.(*Table); !ok {
			return nil, fmt.Errorf("malcolm: %s is %T, not a table", ParamDetectors, v)
		}
	}
	return p, nil
}
