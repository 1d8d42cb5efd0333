// Package shared holds the JSON response helpers every handler uses so error
// envelopes and content types stay uniform across the API.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "legalgate/pkg/domain-errors"
)

// ErrorResponse is the JSON envelope for every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates a coded domain error into its HTTP status and
// envelope. Uncoded errors surface as 500 without leaking the cause.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code)}
	var gateErr *dErrors.GateError
	if errors.As(err, &gateErr) && code != dErrors.CodeInternal {
		resp.Message = gateErr.Message
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}
