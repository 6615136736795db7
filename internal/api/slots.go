package api

import (
	"net/http"
)

// CreateSlotRequest is the body of POST /api/v1/admin/slots.
type CreateSlotRequest struct {
	SlotNumber identifier `json:"slot_number"`
}

// handleCreateSlot adds an available slot. 409 if it already exists.
func (s *Server) handleCreateSlot(w http.ResponseWriter, r *http.Request) {
	var req CreateSlotRequest
	if !decodeBody(w, r, &req) {
		return
	}

	slot, err := s.engine.CreateSlot(r.Context(), string(req.SlotNumber))
	if err != nil {
		s.writeDomainError(w, r, err, notFoundAs404)
		return
	}

	if claims := claimsFromContext(r.Context()); claims != nil {
		s.logger.Info("slot created via admin API", "slot_number", slot.SlotNumber, "subject", claims.Subject)
	}
	writeJSON(w, http.StatusCreated, slot)
}
