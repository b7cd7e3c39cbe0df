package server

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/tournevent/shipments/internal/service"
	"go.uber.org/zap"
)

// Identity headers are set by the upstream gateway after authentication;
// authentication itself lives outside this service.
const (
	headerUserID   = "X-User-Id"
	headerUserRole = "X-User-Role"
)

func identityFrom(r *http.Request) service.Identity {
	return service.Identity{
		UserID: r.Header.Get(headerUserID),
		Role:   r.Header.Get(headerUserRole),
	}
}

// requireUser rejects requests without a gateway-supplied identity.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if identityFrom(r).UserID == "" {
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
			return
		}
		next(w, r)
	}
}

// requireAdmin rejects requests whose identity lacks the admin role.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireUser(func(w http.ResponseWriter, r *http.Request) {
		if !identityFrom(r).Admin() {
			s.writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin role required"})
			return
		}
		next(w, r)
	})
}

// ============================================================================
// Shipments
// ============================================================================

func (s *Server) handleCreateShipment(w http.ResponseWriter, r *http.Request) {
	var in service.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, err)
		return
	}

	sh, err := s.svc.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sh)
}

func (s *Server) handleListShipments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := service.ListInput{
		Page:      intQuery(q.Get("page"), 1),
		Limit:     intQuery(q.Get("limit"), 20),
		Status:    q.Get("status"),
		OrderID:   q.Get("orderId"),
		CourierID: q.Get("courierId"),
	}

	shipments, total, err := s.svc.List(r.Context(), identityFrom(r), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"shipments": shipments,
		"total":     total,
		"page":      in.Page,
		"limit":     in.Limit,
	})
}

func (s *Server) handleGetShipment(w http.ResponseWriter, r *http.Request) {
	detail, err := s.svc.Get(r.Context(), identityFrom(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleUpdateShipment(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, err)
		return
	}

	sh, err := s.svc.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sh)
}

func (s *Server) handleDeleteShipment(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Couriers
// ============================================================================

func (s *Server) handleCreateCourier(w http.ResponseWriter, r *http.Request) {
	var in service.CourierInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, err)
		return
	}

	c, err := s.svc.CreateCourier(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListCouriers(w http.ResponseWriter, r *http.Request) {
	couriers, err := s.svc.ListCouriers(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"couriers": couriers})
}

func (s *Server) handleGetCourier(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.GetCourierAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCourier(w http.ResponseWriter, r *http.Request) {
	var in service.CourierInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, err)
		return
	}

	c, err := s.svc.UpdateCourier(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

// ============================================================================
// Public tracking and reconciliation
// ============================================================================

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Track(r.Context(), r.PathValue("trackingNumber"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// handleSyncShipments runs one reconciliation pass. The shared secret is
// checked before any work begins; a mismatch has no side effects.
func (s *Server) handleSyncShipments(w http.ResponseWriter, r *http.Request) {
	if !s.cronAuthorized(r) {
		s.logger.Warn("Rejected sync trigger with bad credentials",
			zap.String("remote", r.RemoteAddr))
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	report, err := s.svc.SyncAll(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) cronAuthorized(r *http.Request) bool {
	if s.cronSecret == "" {
		return false
	}

	token := r.Header.Get("X-Cron-Secret")
	if token == "" {
		auth := r.Header.Get("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cronSecret)) == 1
}

func intQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
