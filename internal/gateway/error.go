package gateway

import "encoding/json"

const genericMessage = "request failed"

// Error is the normalized form of any non-2xx response from the remote
// services. Error() returns only the human-readable message so callers can
// attach it to a form field as-is.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// decodeError extracts a message from the conventional error body
// {"detail":[{"msg":...}]}, falling back to a plain-string detail and then
// to a generic message. Malformed bodies never fail the decode.
func decodeError(status int, body []byte) *Error {
	return &Error{Status: status, Message: decodeDetail(body)}
}

func decodeDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return genericMessage
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
		return items[0].Msg
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil && s != "" {
		return s
	}

	return genericMessage
}
