package protocol

import (
	"encoding/json"
	"fmt"
)

// Request is the dispatch view of one decoded request document.
type Request struct {
	TransmissionID int64
	Name           string
	Task           Task
	// ID is echoed back unmodified.
	ID any
	// Parameters is passed through untouched; nil when absent.
	Parameters map[string]any
}

// ParseRequest extracts message.transmission-id[0] and
// message.transmission.task1.{id,name,parameters} from doc.
func ParseRequest(doc any) (Request, error) {
	root, err := object(doc, "document")
	if err != nil {
		return Request{}, err
	}
	message, err := objectField(root, "message")
	if err != nil {
		return Request{}, err
	}

	rawIDs, ok := message["transmission-id"]
	if !ok {
		return Request{}, missing("message.transmission-id")
	}
	ids, ok := rawIDs.([]any)
	if !ok || len(ids) == 0 {
		return Request{}, fmt.Errorf("%w: message.transmission-id must be a non-empty array", ErrStructure)
	}
	transmissionID, err := integer(ids[0])
	if err != nil {
		return Request{}, fmt.Errorf("%w: message.transmission-id[0]: %v", ErrStructure, err)
	}

	transmission, err := objectField(message, "transmission")
	if err != nil {
		return Request{}, err
	}
	task, err := objectField(transmission, "task1")
	if err != nil {
		return Request{}, err
	}
	id, ok := task["id"]
	if !ok {
		return Request{}, missing("message.transmission.task1.id")
	}
	rawName, ok := task["name"]
	if !ok {
		return Request{}, missing("message.transmission.task1.name")
	}
	name, ok := rawName.(string)
	if !ok {
		return Request{}, fmt.Errorf("%w: message.transmission.task1.name must be a string", ErrStructure)
	}

	var params map[string]any
	if raw, ok := task["parameters"]; ok && raw != nil {
		params, _ = raw.(map[string]any)
	}

	return Request{
		TransmissionID: transmissionID,
		Name:           name,
		Task:           ParseTask(name),
		ID:             id,
		Parameters:     params,
	}, nil
}

func object(v any, path string) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be an object", ErrStructure, path)
	}
	return m, nil
}

func objectField(parent map[string]any, key string) (map[string]any, error) {
	v, ok := parent[key]
	if !ok {
		return nil, missing(key)
	}
	return object(v, key)
}

func missing(path string) error {
	return fmt.Errorf("%w: missing %s", ErrStructure, path)
}

func integer(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("not an integer: %v", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
