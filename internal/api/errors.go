package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/parkinglot-core/internal/parking"
)

// Error is the failure body for every route.
type Error struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Common error codes.
const (
	ErrCodeMethodNotAllowed   = "method_not_allowed"
	ErrCodeNotFound           = "not_found"
	ErrCodeUnauthorized       = "unauthorised"
	ErrCodeForbidden          = "forbidden"
	ErrCodeConflict           = "conflict"
	ErrCodeInternal           = "internal_error"
	ErrCodeValidation         = "validation_error"
	ErrCodeSlotOccupied       = "slot_occupied"
	ErrCodePreconditionFailed = "precondition_failed"
	ErrCodeInvalidCredentials = "invalid_credentials"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Error: message,
		Code:  code,
	})
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// notFoundStatus picks the status for a missing slot or reservation.
// Register reports a missing slot as 404; status lookups report 400.
type notFoundStatus int

const (
	notFoundAs404 notFoundStatus = http.StatusNotFound
	notFoundAs400 notFoundStatus = http.StatusBadRequest
)

// writeDomainError maps parking sentinels to HTTP responses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error, nf notFoundStatus) {
	switch {
	case errors.Is(err, parking.ErrValidation):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, parking.ErrSlotOccupied):
		writeError(w, http.StatusBadRequest, ErrCodeSlotOccupied, "slot already occupied")
	case errors.Is(err, parking.ErrNoVehicleAtGate):
		writeError(w, http.StatusBadRequest, ErrCodePreconditionFailed, "no vehicle detected at entry gate")
	case errors.Is(err, parking.ErrNotCheckedIn):
		writeError(w, http.StatusBadRequest, ErrCodePreconditionFailed, "not checked in")
	case errors.Is(err, parking.ErrVehicleStillPresent):
		writeError(w, http.StatusBadRequest, ErrCodePreconditionFailed, "vehicle still present in slot")
	case errors.Is(err, parking.ErrPreconditionFailed):
		writeError(w, http.StatusBadRequest, ErrCodePreconditionFailed, "precondition failed")
	case errors.Is(err, parking.ErrSlotNotFound):
		writeError(w, int(nf), ErrCodeNotFound, "slot not found")
	case errors.Is(err, parking.ErrReservationNotFound):
		writeError(w, int(nf), ErrCodeNotFound, "reservation not found")
	case errors.Is(err, parking.ErrUnauthorized):
		writeError(w, http.StatusForbidden, ErrCodeInvalidCredentials, "invalid license plate or code")
	case errors.Is(err, parking.ErrSlotExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, "slot already exists")
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
			"error", err,
		)
		writeInternalError(w, "internal server error")
	}
}
