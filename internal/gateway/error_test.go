package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "detail list with msg",
			status:  400,
			body:    `{"detail":[{"msg":"title already exists"}]}`,
			wantMsg: "title already exists",
		},
		{
			name:    "detail list takes first message",
			status:  422,
			body:    `{"detail":[{"msg":"first"},{"msg":"second"}]}`,
			wantMsg: "first",
		},
		{
			name:    "plain string detail",
			status:  404,
			body:    `{"detail":"Task not found"}`,
			wantMsg: "Task not found",
		},
		{
			name:    "malformed body falls back to generic",
			status:  500,
			body:    `<html>Internal Server Error</html>`,
			wantMsg: genericMessage,
		},
		{
			name:    "empty body",
			status:  502,
			body:    ``,
			wantMsg: genericMessage,
		},
		{
			name:    "json without detail",
			status:  400,
			body:    `{"error":"nope"}`,
			wantMsg: genericMessage,
		},
		{
			name:    "detail list without msg fields",
			status:  400,
			body:    `{"detail":[{"loc":["body","title"]}]}`,
			wantMsg: genericMessage,
		},
		{
			name:    "detail of unexpected type",
			status:  400,
			body:    `{"detail":42}`,
			wantMsg: genericMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decodeError(tt.status, []byte(tt.body))

			assert.Equal(t, tt.status, err.Status)
			assert.Equal(t, tt.wantMsg, err.Message)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}
