package reply

// Field order in these structs is the wire order.

type StatusReply struct {
	Status string `json:"status"`
}

type StartLinkReply struct {
	Status    string `json:"status"`
	IPAddress string `json:"ip-address"`
}

type WavelengthReply struct {
	Status      string    `json:"status"`
	Channel     []int     `json:"channel"`
	Wavelength  []float64 `json:"wavelength"`
	Calibration string    `json:"calibration"`
	// Key spelling matches what the instrument expects.
	Configuration string `json:"coniguration"`
	Mode          string `json:"mode"`
}

// ConfigureReply replays a captured configure-wlm answer field for field.
type ConfigureReply struct {
	ResultMode           string `json:"result-mode"`
	ExposureMode         string `json:"exposure-mode"`
	PulseMode            string `json:"pulse-mode"`
	Precision            string `json:"precision"`
	FastMode             string `json:"fast-mode"`
	PIDP                 string `json:"pid-p"`
	PIDI                 string `json:"pid-i"`
	PIDD                 string `json:"pid-d"`
	PIDT                 string `json:"pid-t"`
	PIDDT                string `json:"pid-dt"`
	SensitivityFactor    string `json:"sensitivity-factor"`
	UseTA                string `json:"use-ta"`
	Polarity             string `json:"polarity"`
	SensitivityDimension string `json:"sensitivity-dimension"`
	UseConstDT           string `json:"use-const-dt"`
	AutoClearHistory     string `json:"auto-clear-history"`
	Channel              []int  `json:"channel"`
}

func configureReply() ConfigureReply {
	return ConfigureReply{
		ResultMode:           StatusOK,
		ExposureMode:         StatusOK,
		PulseMode:            StatusOK,
		Precision:            StatusOK,
		FastMode:             StatusOK,
		PIDP:                 statusFailed,
		PIDI:                 statusFailed,
		PIDD:                 statusFailed,
		PIDT:                 statusFailed,
		PIDDT:                statusFailed,
		SensitivityFactor:    statusFailed,
		UseTA:                statusFailed,
		Polarity:             statusFailed,
		SensitivityDimension: statusFailed,
		UseConstDT:           statusFailed,
		AutoClearHistory:     statusFailed,
		Channel:              []int{1},
	}
}
