package handler

import (
	"encoding/json"
	"net/http"

	"github.com/skycastd/skycast/internal/model"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the standard failure envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.ErrorResponse{
		Success: false,
		Error:   message,
	})
}

// writeMessage writes the standard success envelope for endpoints with no
// resource payload.
func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, model.MessageResponse{
		Success: true,
		Message: message,
	})
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeNotOwner writes the 403 response for a failed device ownership check.
func writeNotOwner(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "Unauthorized - you don't own this device")
}
