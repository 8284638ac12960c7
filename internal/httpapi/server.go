package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chidhvilasa/access-control-backend/internal/access/keys"
	"github.com/chidhvilasa/access-control-backend/internal/access/service"
)

type Dependencies struct {
	Logger *log.Logger
	Addr   string

	Auth        *AdminAuth
	Tokens      *service.TokenService
	Memberships *service.MembershipService
	Communities *service.CommunityService
	Events      *service.EventService
	Pis         *service.PiService
}

type Server struct {
	httpServer  *http.Server
	logger      *log.Logger
	auth        *AdminAuth
	tokens      *service.TokenService
	memberships *service.MembershipService
	communities *service.CommunityService
	events      *service.EventService
	pis         *service.PiService
}

func NewServer(d Dependencies) *Server {
	s := &Server{
		logger:      d.Logger,
		auth:        d.Auth,
		tokens:      d.Tokens,
		memberships: d.Memberships,
		communities: d.Communities,
		events:      d.Events,
		pis:         d.Pis,
	}

	r := chi.NewRouter()
	r.Use(loggingMiddleware(d.Logger))

	r.Route("/v1", func(r chi.Router) {
		// Mobile
		r.Post("/register_device", s.handleRegisterDevice)
		r.Get("/my_communities", s.handleMyCommunities)
		r.Post("/sign_token", s.handleSignToken)
		r.Get("/my_logs", s.handleMyLogs)

		// Admin
		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", s.handleAdminLogin)

			r.Group(func(r chi.Router) {
				r.Use(s.auth.Middleware)
				r.Get("/requests", s.handleAdminRequests)
				r.Post("/approve", s.handleAdminApprove)
				r.Post("/reject", s.handleAdminReject)
				r.Get("/logs", s.handleAdminLogs)
				r.Post("/communities", s.handleAdminCreateCommunity)
				r.Post("/communities/{communityID}/rotate", s.handleAdminRotateKeys)
			})
		})

		// Edge units
		r.Route("/pi", func(r chi.Router) {
			r.Get("/config", s.handlePiConfig)
			r.Post("/events", s.handlePiEvents)
			r.Post("/heartbeat", s.handlePiHeartbeat)
		})
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ── Mobile ───────────────────────────────────────────────────────────────────

type registerDeviceRequest struct {
	DeviceID    string `json:"device_id"`
	UserID      string `json:"user_id"`
	Phone       string `json:"phone"`
	Platform    string `json:"platform"`
	CommunityID string `json:"community_id"`
}

func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if req.Platform == "" {
		req.Platform = "android"
	}

	status, err := s.memberships.RegisterDevice(r.Context(), req.DeviceID, req.UserID, req.Phone, req.Platform, req.CommunityID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		s.logger.Printf("register_device error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Registration submitted",
		"status":  status,
	})
}

func (s *Server) handleMyCommunities(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Header.Get("X-Device-ID")

	comms, err := s.memberships.CommunitiesForDevice(r.Context(), deviceID)
	if err != nil {
		s.writeDeviceError(w, "my_communities", err)
		return
	}

	out := make([]communityResponse, 0, len(comms))
	for _, c := range comms {
		out = append(out, communityResponse{
			CommunityID: c.CommunityID,
			Name:        c.Name,
			Description: c.Description,
			Status:      "approved",
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type signTokenRequest struct {
	UserID      string `json:"user_id"`
	DeviceID    string `json:"device_id"`
	CommunityID string `json:"community_id"`
	Type        string `json:"type"`
}

func (s *Server) handleSignToken(w http.ResponseWriter, r *http.Request) {
	var req signTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	signed, err := s.tokens.Sign(r.Context(), req.UserID, req.DeviceID, req.CommunityID, actionFromString(req.Type))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidAction):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, service.ErrDeviceNotAuthorized):
			writeError(w, http.StatusForbidden, "device_not_authorized", "device not authorized")
		case errors.Is(err, service.ErrMembershipNotApproved):
			writeError(w, http.StatusForbidden, "not_approved", "not approved for this community")
		case errors.Is(err, keys.ErrNoActiveKeySet):
			// Community misconfiguration, not a deny.
			s.logger.Printf("sign_token: %v", err)
			writeError(w, http.StatusInternalServerError, "no_active_keyset", "no active keyset for community")
		default:
			s.logger.Printf("sign_token error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, signed)
}

func (s *Server) handleMyLogs(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Header.Get("X-Device-ID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	userID, err := s.memberships.OwnerOfDevice(r.Context(), deviceID)
	if err != nil {
		s.writeDeviceError(w, "my_logs", err)
		return
	}

	events, err := s.events.LogsForUser(r.Context(), userID, limit)
	if err != nil {
		s.logger.Printf("my_logs error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, http.StatusOK, toEventResponses(events))
}

// writeDeviceError maps the shared device-lookup failures of the mobile
// endpoints.
func (s *Server) writeDeviceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDeviceID):
		writeError(w, http.StatusBadRequest, "invalid_device_id", err.Error())
	case errors.Is(err, service.ErrDeviceNotFound):
		writeError(w, http.StatusNotFound, "device_not_found", "device not found")
	default:
		s.logger.Printf("%s error: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

// ── Admin ────────────────────────────────────────────────────────────────────

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	tok, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": tok,
		"token_type":   "bearer",
	})
}

func (s *Server) handleAdminRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := s.memberships.PendingRequests(r.Context(), r.URL.Query().Get("community_id"))
	if err != nil {
		s.logger.Printf("admin/requests error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	out := make([]membershipResponse, 0, len(pending))
	for _, m := range pending {
		out = append(out, toMembershipResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

type approveRequest struct {
	MembershipID int64 `json:"membership_id"`
}

func (s *Server) handleAdminApprove(w http.ResponseWriter, r *http.Request) {
	s.handleMembershipDecision(w, r, s.memberships.Approve, "Membership approved")
}

func (s *Server) handleAdminReject(w http.ResponseWriter, r *http.Request) {
	s.handleMembershipDecision(w, r, s.memberships.Reject, "Membership rejected")
}

func (s *Server) handleMembershipDecision(
	w http.ResponseWriter,
	r *http.Request,
	decide func(context.Context, int64, string) error,
	message string,
) {
	var req approveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	if err := decide(r.Context(), req.MembershipID, adminFrom(r.Context())); err != nil {
		if errors.Is(err, service.ErrMembershipNotFound) {
			writeError(w, http.StatusNotFound, "membership_not_found", "membership not found")
			return
		}
		s.logger.Printf("admin membership decision error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": message})
}

func (s *Server) handleAdminLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	events, err := s.events.AdminLogs(r.Context(), q.Get("community_id"), q.Get("user_id"), limit)
	if err != nil {
		s.logger.Printf("admin/logs error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, http.StatusOK, toEventResponses(events))
}

type createCommunityRequest struct {
	CommunityID string `json:"community_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleAdminCreateCommunity(w http.ResponseWriter, r *http.Request) {
	var req createCommunityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	pub, err := s.communities.Create(r.Context(), req.CommunityID, req.Name, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCommunityID):
			writeError(w, http.StatusBadRequest, "invalid_community_id", err.Error())
		case errors.Is(err, service.ErrCommunityExists):
			writeError(w, http.StatusBadRequest, "community_exists", "community already exists")
		default:
			s.logger.Printf("admin/communities error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"community_id": req.CommunityID,
		"public_key":   pub,
	})
}

func (s *Server) handleAdminRotateKeys(w http.ResponseWriter, r *http.Request) {
	communityID := chi.URLParam(r, "communityID")

	pub, err := s.communities.Rotate(r.Context(), communityID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCommunityID) {
			writeError(w, http.StatusNotFound, "community_not_found", "community not found")
			return
		}
		s.logger.Printf("admin rotate error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"community_id": communityID,
		"public_key":   pub,
	})
}

// ── Edge units ───────────────────────────────────────────────────────────────

func (s *Server) handlePiConfig(w http.ResponseWriter, r *http.Request) {
	piID := r.URL.Query().Get("pi_id")
	if piID == "" {
		writeError(w, http.StatusBadRequest, "invalid_pi_id", "pi_id is required")
		return
	}

	cfg, err := s.communities.ConfigForPi(r.Context(), piID)
	if err != nil {
		s.logger.Printf("pi/config error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePiEvents(w http.ResponseWriter, r *http.Request) {
	piID := r.URL.Query().Get("pi_id")
	if piID == "" {
		writeError(w, http.StatusBadRequest, "invalid_pi_id", "pi_id is required")
		return
	}

	var batch []service.ReportedEvent
	if err := decodeJSON(r, &batch); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	n, err := s.events.Ingest(r.Context(), piID, batch)
	if err != nil {
		s.logger.Printf("pi/events error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "logged": n})
}

type heartbeatRequest struct {
	PiID            string `json:"pi_id"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
	UptimeSeconds   uint64 `json:"uptime_s,omitempty"`
	IP              string `json:"ip,omitempty"`
}

func (s *Server) handlePiHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	if err := s.pis.Heartbeat(r.Context(), heartbeatFromRequest(req)); err != nil {
		if errors.Is(err, service.ErrInvalidPiID) {
			writeError(w, http.StatusBadRequest, "invalid_pi_id", err.Error())
			return
		}
		s.logger.Printf("pi/heartbeat error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "server_time": time.Now().UTC().Format(time.RFC3339Nano)})
}
