package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tournevent/shipments/internal/service"
	"github.com/tournevent/shipments/pkg/courier"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error    string      `json:"error"`
	Details  string      `json:"details,omitempty"`
	Shipment interface{} `json:"shipment,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError maps the service error taxonomy onto HTTP status codes.
// Provider failures surface as 502 with the vendor detail and, for failed
// creations, the persisted shipment row.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		resp := errorResponse{Error: se.Message}
		if se.Cause != nil {
			resp.Details = se.Cause.Error()
		}
		if se.Shipment != nil {
			resp.Shipment = se.Shipment
		}
		s.writeJSON(w, statusForKind(se.Kind), resp)
		return
	}

	if pe, ok := courier.IsProviderError(err); ok {
		s.writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:   "courier request failed",
			Details: pe.Error(),
		})
		return
	}

	s.logger.Error("Internal error", zap.Error(err))
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func statusForKind(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return service.Errf(service.KindValidation, "invalid JSON body: %v", err)
	}
	return nil
}
