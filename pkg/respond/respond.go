package respond

import (
	"encoding/json"
	"net/http"
)

func JSON(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

// Detail writes an error body of the form {"detail": "message"}.
func Detail(w http.ResponseWriter, r *http.Request, code int, message string) {
	JSON(w, r, code, map[string]string{"detail": message})
}

// FieldDetail writes an error body of the form
// {"detail": [{"msg": "..."}, ...]}, one entry per message.
func FieldDetail(w http.ResponseWriter, r *http.Request, code int, messages ...string) {
	detail := make([]map[string]string, 0, len(messages))
	for _, m := range messages {
		detail = append(detail, map[string]string{"msg": m})
	}
	JSON(w, r, code, map[string]interface{}{"detail": detail})
}
