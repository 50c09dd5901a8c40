package trough

import "fmt"

// Indices into the 22-field measurement tuple returned by GetData.
const (
	FieldStatus = iota
	FieldVoltage
	FieldPressure
	FieldTension
	FieldArea
	FieldAreaPerChains
	FieldTemperature1
	FieldTemperature2
	FieldPotential
	FieldRadioactivity
	FieldAux1
	FieldAux2
	FieldAux3
	FieldPosition
	FieldSpeed
	FieldCompressionRate
	FieldTime
	FieldDipPosition
	FieldDipSpeed
	FieldSteppingStatus
	FieldDeviceStatus
	FieldLastError

	MeasurementFields = 22
)

var fieldNames = [MeasurementFields]string{
	"status",
	"voltage",
	"pressure",
	"tension",
	"area",
	"area-per-chain",
	"temperature1",
	"temperature2",
	"potential",
	"radioactivity",
	"aux1",
	"aux2",
	"aux3",
	"position",
	"speed",
	"compression-rate",
	"elapsed-time",
	"dip-position",
	"dip-speed",
	"stepping-status",
	"device-status",
	"last-error",
}

// FieldName returns the schema name for a measurement field index.
func FieldName(i int) string {
	if i < 0 || i >= MeasurementFields {
		return fmt.Sprintf("field%d", i)
	}
	return fieldNames[i]
}

// Measurement is one instrument sample: a fixed-width tuple of 22 coerced
// fields. Field 0 doubles as the pending-sample count when the tuple came
// back from GetData.
type Measurement Fields

// NewMeasurement validates the field count and wraps the fields.
func NewMeasurement(fields Fields) (Measurement, error) {
	if len(fields) != MeasurementFields {
		return nil, fmt.Errorf("%w: got %d", ErrMeasurementSize, len(fields))
	}
	return Measurement(fields), nil
}

// PendingCount is the number of buffered samples still waiting on the
// server after this one (field 0 of a GetData response).
func (m Measurement) PendingCount() int64 {
	return m[FieldStatus].Int()
}

func (m Measurement) Area() float64 {
	return m[FieldArea].Real()
}

func (m Measurement) Pressure() float64 {
	return m[FieldPressure].Real()
}

func (m Measurement) Tension() float64 {
	return m[FieldTension].Real()
}

// Elapsed is the sample timestamp in seconds since the measurement start.
func (m Measurement) Elapsed() float64 {
	return m[FieldTime].Real()
}

// AddTimeOffset shifts the sample's elapsed-time field in place.
func (m Measurement) AddTimeOffset(secs float64) {
	m[FieldTime] = Real(m[FieldTime].Real() + secs)
}

func (m Measurement) DeviceStatus() DeviceStatus {
	return DeviceStatus(m[FieldDeviceStatus].Int())
}

func (m Measurement) SteppingStatus() SteppingStatus {
	return SteppingStatus(m[FieldSteppingStatus].Int())
}

func (m Measurement) LastError() ErrCode {
	return ErrCode(m[FieldLastError].Int())
}

// DeviceStatus is the instrument operating mode reported at field 20.
type DeviceStatus int

const (
	DstIdle DeviceStatus = iota
	DstTensiometer
	DstCompressionIsotherm
	DstConstantArea
	DstConstantPressure
	DstManual
	DstTargetReached
	DstBarrierInit
	DstBarrierInitDone
)

var deviceStatusNames = [...]string{
	"Idle",
	"Tensiometer",
	"CompressionIsotherm",
	"ConstantArea",
	"ConstantPressure",
	"Manual",
	"TargetReached",
	"BarrierInit",
	"BarrierInitDone",
}

func (d DeviceStatus) Valid() bool {
	return d >= DstIdle && d <= DstBarrierInitDone
}

func (d DeviceStatus) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DeviceStatus(%d)", int(d))
	}
	return deviceStatusNames[d]
}

// SteppingStatus is the barrier motion direction reported at field 19.
type SteppingStatus int

const (
	StpRelax    SteppingStatus = -1
	StpStop     SteppingStatus = 0
	StpCompress SteppingStatus = 1
)

func (s SteppingStatus) Valid() bool {
	return s >= StpRelax && s <= StpCompress
}

func (s SteppingStatus) String() string {
	switch s {
	case StpRelax:
		return "Relax"
	case StpStop:
		return "Stop"
	case StpCompress:
		return "Compress"
	default:
		return fmt.Sprintf("SteppingStatus(%d)", int(s))
	}
}

// ErrCode is the trough error code reported at field 21 of a measurement
// and at field 0 of most command results.
type ErrCode int

const (
	CodeNoError               ErrCode = 0
	CodeBusy                  ErrCode = -1
	CodeCommandNotImplemented ErrCode = -2
	CodeCommunicationFailure  ErrCode = -3
	CodeConnectFailure        ErrCode = -4
	CodeConnected             ErrCode = -5
	CodeComPortNotSet         ErrCode = -6
	CodeNotConnected          ErrCode = -7
	CodeComPortCfgSaveFailure ErrCode = -8
	CodeNoServerConnection    ErrCode = -9
)

var errCodeNames = map[ErrCode]string{
	CodeNoError:               "NoError",
	CodeBusy:                  "Busy",
	CodeCommandNotImplemented: "CommandNotImplemented",
	CodeCommunicationFailure:  "CommunicationFailure",
	CodeConnectFailure:        "ConnectFailure",
	CodeConnected:             "Connected",
	CodeComPortNotSet:         "ComPortNotSet",
	CodeNotConnected:          "NotConnected",
	CodeComPortCfgSaveFailure: "ComPortCfgSaveFailure",
	CodeNoServerConnection:    "NoServerConnection",
}

func (c ErrCode) Valid() bool {
	_, ok := errCodeNames[c]
	return ok
}

func (c ErrCode) String() string {
	if name, ok := errCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrCode(%d)", int(c))
}

// MeasureMode is the parameter to the NewMeasureMode command.
type MeasureMode int

const (
	ModeIdle MeasureMode = iota
	ModeTensiometer
	ModeCompressionIsotherm
	ModeConstantArea
	ModeConstantPressure
	ModeManual
	ModeRadioAct
	ModeHysteresis
)

var measureModeNames = [...]string{
	"Idle",
	"Tensiometer",
	"CompressionIsotherm",
	"ConstantArea",
	"ConstantPressure",
	"Manual",
	"RadioAct",
	"Hysteresis",
}

func (m MeasureMode) Valid() bool {
	return m >= ModeIdle && m <= ModeHysteresis
}

func (m MeasureMode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("MeasureMode(%d)", int(m))
	}
	return measureModeNames[m]
}
