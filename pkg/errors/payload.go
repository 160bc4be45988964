package errors

import "encoding/json"

/*
Payload is the wire shape every failed command returns to the calling client.
The contract is total: a command either returns its result or this object,
never an uncaught error.
*/
type Payload struct {
	Error   string         `json:"error"`
	Status  string         `json:"status"`
	Kind    Kind           `json:"kind,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Payload converts the error into its boundary representation.
func (e *Error) Payload() Payload {
	return Payload{
		Error:   e.Message,
		Status:  "failed",
		Kind:    e.Kind,
		Details: e.Details,
	}
}

// PayloadJSON serializes any error to the boundary shape. Unrecognized errors
// are normalized first so the output is always machine-parseable.
func PayloadJSON(err error) string {
	data, marshalErr := json.Marshal(Normalize(err).Payload())
	if marshalErr != nil {
		return `{"error":"internal serialization failure","status":"failed","kind":"unknown"}`
	}
	return string(data)
}
