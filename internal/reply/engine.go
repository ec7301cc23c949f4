package reply

import (
	"errors"
	"fmt"

	"github.com/danmuck/wlmlink/internal/protocol"
)

var (
	ErrUnimplemented = errors.New("reply: unimplemented handler")
)

const (
	StatusOK       = "ok"
	StatusActive   = "active"
	StatusNoSignal = "no-signal"
	statusFailed   = "failed"
)

// Measurement is the consume side of the shared wavelength cell.
type Measurement interface {
	Consume() float64
}

// Session carries the per-connection facts some handlers need.
type Session struct {
	Seq       uint64
	LocalAddr string
}

// Engine maps request tasks to reply payloads.
type Engine struct {
	measurement Measurement
}

func NewEngine(m Measurement) *Engine {
	return &Engine{measurement: m}
}

// Build answers one request. Unknown tasks return ErrUnimplemented and no
// envelope; no error reply is synthesized.
func (e *Engine) Build(req protocol.Request, sess Session) (protocol.Envelope, error) {
	payload, err := e.payload(req, sess)
	if err != nil {
		return protocol.Envelope{}, err
	}
	return protocol.NewEnvelope(sess.Seq, req.ID, req.Task.ReplyName(), payload), nil
}

func (e *Engine) payload(req protocol.Request, sess Session) (any, error) {
	switch req.Task {
	case protocol.TaskStartLink:
		return StartLinkReply{Status: StatusOK, IPAddress: sess.LocalAddr}, nil
	case protocol.TaskSetSwitch,
		protocol.TaskWLMServerApp,
		protocol.TaskSetMeasurementOp:
		return StatusReply{Status: StatusOK}, nil
	case protocol.TaskCheckWLMServer:
		return StatusReply{Status: StatusActive}, nil
	case protocol.TaskConfigureWLM:
		return configureReply(), nil
	case protocol.TaskGetWavelength:
		return e.wavelengthReply(), nil
	case protocol.TaskUnknown:
		return nil, fmt.Errorf("%w: task %q", ErrUnimplemented, req.Name)
	default:
		return nil, fmt.Errorf("%w: task %v", ErrUnimplemented, req.Task)
	}
}

func (e *Engine) wavelengthReply() WavelengthReply {
	v := e.measurement.Consume()
	status := StatusNoSignal
	if v > 0 {
		status = StatusOK
	}
	return WavelengthReply{
		Status:        status,
		Channel:       []int{1},
		Wavelength:    []float64{v},
		Calibration:   "inactive",
		Configuration: StatusOK,
		Mode:          "fixed",
	}
}
