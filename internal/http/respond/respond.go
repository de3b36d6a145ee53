package respond

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/pgpay/pgpay-backend/internal/storage"
)

// Envelope is the standard API response wrapper used across handlers.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes a success or informational response using the common envelope.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Code: status, Message: message, Data: data})
}

// Error writes an error response with the shared envelope structure.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Code: status, Message: message})
}

// StoreError maps storage sentinel errors to their HTTP status. The
// fallback message covers unclassified backend failures.
func StoreError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrAlreadyExists):
		Error(w, http.StatusConflict, "already exists")
	case errors.Is(err, storage.ErrInvalidTransition):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrAlreadyVerified):
		Error(w, http.StatusBadRequest, "email is already verified")
	default:
		Error(w, http.StatusInternalServerError, fallback)
	}
}

func write(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("respond: encode payload failed: %v", err)
	}
}
