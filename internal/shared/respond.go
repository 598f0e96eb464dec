package shared

import (
	"encoding/json"
	"net/http"
)

// Envelope is the wire shape every endpoint answers with.
type Envelope struct {
	Sts  bool   `json:"sts"`
	Msg  string `json:"msg,omitempty"`
	Data any    `json:"data,omitempty"`
}

// WriteJSON serializes v with the proper content type. Encoding failures are
// swallowed; the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
