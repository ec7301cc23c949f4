package protocol

import (
	"bytes"
	"encoding/json"
)

// Envelope is the outbound task-1 document.
type Envelope struct {
	Message EnvelopeMessage `json:"message"`
}

type EnvelopeMessage struct {
	TaskCount      []int        `json:"task-count"`
	TransmissionID []uint64     `json:"transmission-id"`
	Transmission   Transmission `json:"transmission"`
}

type Transmission struct {
	Task1 TaskBody `json:"task1"`
}

type TaskBody struct {
	ID         any    `json:"id"`
	Name       string `json:"name"`
	Parameters any    `json:"parameters"`
}

// NewEnvelope wraps one reply payload. seq is the connection-local sequence
// number, not the peer's transmission id.
func NewEnvelope(seq uint64, id any, name string, parameters any) Envelope {
	return Envelope{
		Message: EnvelopeMessage{
			TaskCount:      []int{1},
			TransmissionID: []uint64{seq},
			Transmission: Transmission{
				Task1: TaskBody{
					ID:         id,
					Name:       name,
					Parameters: parameters,
				},
			},
		},
	}
}

// Encode renders v as compact JSON without a trailing newline.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// NewRequestDocument builds a request in the shape the instrument sends.
func NewRequestDocument(transmissionID int64, id any, name string, parameters map[string]any) map[string]any {
	if parameters == nil {
		parameters = map[string]any{}
	}
	return map[string]any{
		"message": map[string]any{
			"transmission-id": []any{transmissionID},
			"transmission": map[string]any{
				"task1": map[string]any{
					"id":         id,
					"name":       name,
					"parameters": parameters,
				},
			},
		},
	}
}
