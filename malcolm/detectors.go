package malcolm

// Columns of the detectors table of a Malcolm scan block.
const (
	DetectorsTableColumnEnable        = "enable"
	DetectorsTableColumnName          = "name"
	DetectorsTableColumnMRI           = "mri"
	DetectorsTableColumnExposure      = "exposure"
	DetectorsTableColumnFramesPerStep = "framesPerStep"
)

// DetectorInfo is one row of the detectors table.
type DetectorInfo struct {
	Enabled       bool
	Name          string
	MRI           string
	Exposure      float64
	FramesPerStep int32
}

// DetectorsTable builds the detectors table for infos.
func DetectorsTable(infos []DetectorInfo) *Table {
	enable := make([]bool, len(infos))
	name := make([]string, len(infos))
	mri := make([]string, len(infos))
	exposure := make([]float64, len(infos))
	frames := make([]int32, len(infos))
	for i, d := range infos {
		enable[i], name[i], mri[i], exposure[i], frames[i] = d.Enabled, d.Name, d.MRI, d.Exposure, d.FramesPerStep
	}
	t := NewTable()
	// Columns are new slices of equal length, so AddColumn cannot fail.
	_ = t.AddColumn(DetectorsTableColumnEnable, enable)
	_ = t.AddColumn(DetectorsTableColumnName, name)
	_ = t.AddColumn(DetectorsTableColumnMRI, mri)
	_ = t.AddColumn(DetectorsTableColumnExposure, exposure)
	_ = t.AddColumn(DetectorsTableColumnFramesPerStep, frames)
	return t
}

// DetectorsFromTable reads the rows of a detectors table.
func DetectorsFromTable(t *Table) ([]DetectorInfo, error) {
	enable, err := Column[bool](t, DetectorsTableColumnEnable)
	if err != nil {
		return nil, err
	}
	name, err := Column[string](t, DetectorsTableColumnName)
	if err != nil {
		return nil, err
	}
	mri, err := Column[string](t, DetectorsTableColumnMRI)
	if err != nil {
		return nil, err
	}
	exposure, err := Column[float64](t, DetectorsTableColumnExposure)
	if err != nil {
		return nil, err
	}
	frames, err := Column[int32](t, DetectorsTableColumnFramesPerStep)
	if err != nil {
		return nil, err
	}
	infos := make([]DetectorInfo, t.NumRows())
	for i := range infos {
		infos[i] = DetectorInfo{Enabled: enable[i], Name: name[i], MRI: mri[i], Exposure: exposure[i], FramesPerStep: frames[i]}
	}
	return infos, nil
}
