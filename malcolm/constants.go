package malcolm

// Attributes of a Malcolm scan block.
const (
	AttributeState            = "state"
	AttributeHealth           = "health"
	AttributeBusy             = "busy"
	AttributeCompletedSteps   = "completedSteps"
	AttributeConfiguredSteps  = "configuredSteps"
	AttributeTotalSteps       = "totalSteps"
	AttributeSimultaneousAxes = "simultaneousAxes"
	AttributeAxesToMove       = "axesToMove"
	AttributeDatasets         = "datasets"
	AttributeLayout           = "layout"
	AttributeDetectors        = "detectors"
)

// Endpoints read by clients. An attribute's value lives in its "value"
// sub-field.
var (
	StateEndpoint          = []string{AttributeState, "value"}
	HealthEndpoint         = []string{AttributeHealth, "value"}
	CompletedStepsEndpoint = []string{AttributeCompletedSteps, "value"}
)

// DeviceState is the state attribute of a scan block.
type DeviceState string

const (
	StateReady       DeviceState = "Ready"
	StateArmed       DeviceState = "Armed"
	StateConfiguring DeviceState = "Configuring"
	StateRunning     DeviceState = "Running"
	StatePostRun     DeviceState = "PostRun"
	StatePaused      DeviceState = "Paused"
	StateSeeking     DeviceState = "Seeking"
	StateAborting    DeviceState = "Aborting"
	StateAborted     DeviceState = "Aborted"
	StateFault       DeviceState = "Fault"
	StateDisabling   DeviceState = "Disabling"
	StateDisabled    DeviceState = "Disabled"
	StateResetting   DeviceState = "Resetting"
)
