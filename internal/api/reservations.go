package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nerrad567/parkinglot-core/internal/parking"
)

// Success messages for the reservation routes.
const (
	MessageRegistered = "Registered successfully"
	MessageCheckedIn  = "Check-in success"
)

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	SlotNumber   identifier `json:"slot_number"`
	LicensePlate string     `json:"license_plate"`
}

// RegisterResponse returns the one-time code. It is never shown again.
type RegisterResponse struct {
	Message string `json:"message"`
	OTP     string `json:"otp"`
}

// CredentialsRequest is the body of /checkin, /checkout and /status.
type CredentialsRequest struct {
	LicensePlate string     `json:"license_plate"`
	OTP          identifier `json:"otp"`
}

// MessageResponse is the body of a successful check-in or check-out.
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusResponse is the body of POST /status.
type StatusResponse struct {
	Status parking.ReservationStatus `json:"status"`
}

// identifier is a slot number or one-time code sent as a JSON string or
// number. Numbers keep their literal text.
type identifier string

// UnmarshalJSON implements json.Unmarshaler.
func (c *identifier) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = identifier(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("want a string or number: %w", err)
	}
	*c = identifier(n.String())
	return nil
}

// decodeBody decodes a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "invalid JSON body")
		return false
	}
	return true
}

// handleListSlots returns every slot.
func (s *Server) handleListSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.query.ListSlots(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err, notFoundAs404)
		return
	}
	if slots == nil {
		slots = []parking.Slot{}
	}
	writeJSON(w, http.StatusOK, slots)
}

// handleRegister reserves a slot and returns its one-time code.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	otp, err := s.engine.Register(r.Context(), string(req.SlotNumber), req.LicensePlate)
	if err != nil {
		s.writeDomainError(w, r, err, notFoundAs404)
		return
	}

	writeJSON(w, http.StatusOK, RegisterResponse{
		Message: MessageRegistered,
		OTP:     otp,
	})
}

// handleCheckIn records arrival at the entry gate.
func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.engine.CheckIn(r.Context(), req.LicensePlate, string(req.OTP)); err != nil {
		s.writeDomainError(w, r, err, notFoundAs400)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: MessageCheckedIn})
}

// handleCheckOut frees the slot. Gate trouble after the commit only
// qualifies the message.
func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.engine.CheckOut(r.Context(), req.LicensePlate, string(req.OTP))
	if err != nil {
		s.writeDomainError(w, r, err, notFoundAs400)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: result.Message()})
}

// handleListLogs returns every reservation log, latest check-in first.
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.query.ListLogs(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err, notFoundAs404)
		return
	}
	if logs == nil {
		logs = []parking.ReservationLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// handleStatus reports where a reservation is in its lifecycle.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	status, err := s.query.Status(r.Context(), req.LicensePlate, string(req.OTP))
	if err != nil {
		s.writeDomainError(w, r, err, notFoundAs400)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: status})
}
