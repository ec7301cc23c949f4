package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return doc
}

func TestParseRequest(t *testing.T) {
	doc := decode(t, `{"message":{"transmission-id":[5],"transmission":{"task1":{"id":[9],"name":"get-wavelength","parameters":{"channel":[1]}}}}}`)
	req, err := ParseRequest(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if req.TransmissionID != 5 {
		t.Fatalf("unexpected transmission id=%d", req.TransmissionID)
	}
	if req.Name != "get-wavelength" || req.Task != TaskGetWavelength {
		t.Fatalf("unexpected task name=%q task=%v", req.Name, req.Task)
	}
	id, ok := req.ID.([]any)
	if !ok || len(id) != 1 || id[0] != json.Number("9") {
		t.Fatalf("unexpected id=%#v", req.ID)
	}
	if req.Parameters == nil || req.Parameters["channel"] == nil {
		t.Fatalf("parameters should pass through: %#v", req.Parameters)
	}
}

func TestParseRequestUnknownTaskIsNotStructural(t *testing.T) {
	doc := decode(t, `{"message":{"transmission-id":[1],"transmission":{"task1":{"id":"x","name":"self-destruct"}}}}`)
	req, err := ParseRequest(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if req.Task != TaskUnknown || req.Name != "self-destruct" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Parameters != nil {
		t.Fatalf("absent parameters should be nil, got %#v", req.Parameters)
	}
}

func TestParseRequestStructuralErrors(t *testing.T) {
	cases := map[string]string{
		"not object":         `[1,2,3]`,
		"no message":         `{"msg":{}}`,
		"message not object": `{"message":"hi"}`,
		"no transmission-id": `{"message":{"transmission":{"task1":{"id":[1],"name":"start-link"}}}}`,
		"empty id array":     `{"message":{"transmission-id":[],"transmission":{"task1":{"id":[1],"name":"start-link"}}}}`,
		"non-integer id":     `{"message":{"transmission-id":[1.5],"transmission":{"task1":{"id":[1],"name":"start-link"}}}}`,
		"string id":          `{"message":{"transmission-id":["1"],"transmission":{"task1":{"id":[1],"name":"start-link"}}}}`,
		"no transmission":    `{"message":{"transmission-id":[1]}}`,
		"no task1":           `{"message":{"transmission-id":[1],"transmission":{"task2":{}}}}`,
		"no task id":         `{"message":{"transmission-id":[1],"transmission":{"task1":{"name":"start-link"}}}}`,
		"no task name":       `{"message":{"transmission-id":[1],"transmission":{"task1":{"id":[1]}}}}`,
		"numeric task name":  `{"message":{"transmission-id":[1],"transmission":{"task1":{"id":[1],"name":7}}}}`,
	}
	for name, raw := range cases {
		if _, err := ParseRequest(decode(t, raw)); !errors.Is(err, ErrStructure) {
			t.Fatalf("%s: expected ErrStructure, got %v", name, err)
		}
	}
}

func TestParseTaskClosedSet(t *testing.T) {
	for _, task := range KnownTasks() {
		if got := ParseTask(task.String()); got != task {
			t.Fatalf("ParseTask(%q) got=%v", task.String(), got)
		}
	}
	if ParseTask("get-wavelength-reply") != TaskUnknown {
		t.Fatalf("reply names are not request tasks")
	}
	if TaskConfigureWLM.ReplyName() != "configure-wlm-reply" {
		t.Fatalf("unexpected reply name=%q", TaskConfigureWLM.ReplyName())
	}
}

func TestEncodeEnvelopeCompact(t *testing.T) {
	env := NewEnvelope(3, []any{json.Number("9")}, "set-switch-reply", map[string]string{"status": "ok"})
	out, err := Encode(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"message":{"task-count":[1],"transmission-id":[3],"transmission":{"task1":{"id":[9],"name":"set-switch-reply","parameters":{"status":"ok"}}}}}`
	if string(out) != want {
		t.Fatalf("unexpected encoding:\n got=%s\nwant=%s", out, want)
	}
}

func TestEncodeDoesNotEscapeHTML(t *testing.T) {
	out, err := Encode(map[string]string{"k": "<a&b>"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(out) != `{"k":"<a&b>"}` {
		t.Fatalf("unexpected encoding: %s", out)
	}
}

func TestNewRequestDocumentParses(t *testing.T) {
	raw, err := Encode(NewRequestDocument(12, []any{4}, "start-link", nil))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	req, err := ParseRequest(decode(t, string(raw)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if req.TransmissionID != 12 || req.Task != TaskStartLink {
		t.Fatalf("unexpected request: %+v", req)
	}
}
