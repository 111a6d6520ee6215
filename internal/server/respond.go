package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/core/services"
)

type errorResponse struct {
	Success    bool      `json:"success"`
	Error      string    `json:"error"`
	CorrectOrg model.Org `json:"correct_org,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// respondError writes the failure envelope. Every failure is a 400; only the message differs.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error()}

	var wrongOrg *services.WrongOrganizationError
	var reqErr *services.RequestError
	switch {
	case errors.As(err, &wrongOrg):
		resp.CorrectOrg = wrongOrg.Correct
		s.logger.Info("Request for wrong organization",
			requestFields(r, "correct_org", string(wrongOrg.Correct))...)
	case errors.As(err, &reqErr):
		s.logger.Info("Request rejected", requestFields(r, "error", err.Error())...)
	default:
		s.logger.Error("Request failed", requestFields(r, "error", err.Error())...)
	}

	writeJSON(w, http.StatusBadRequest, resp)
}

func (s *Server) respondMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decode reads a JSON body into v
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &services.RequestError{Kind: services.ErrMissingFields, Message: "Invalid JSON body"}
	}
	return nil
}
