package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"vows/cmd/security/password"
)

const maxAuthBodyBytes = 64 << 10

// Handler wires the account endpoints to the auth Service.
type Handler struct {
	log      *slog.Logger
	svc      *Service
	audit    AuditRecorder
	throttle *loginThrottle
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler) error

// WithAudit directs security events to the given recorder.
func WithAudit(rec AuditRecorder) HandlerOption {
	return func(h *Handler) error {
		if rec == nil {
			return errors.New("auth: nil audit recorder")
		}
		h.audit = rec
		return nil
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, svc *Service, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if svc == nil {
		return nil, errors.New("auth: nil service")
	}
	h := &Handler{
		log:      log,
		svc:      svc,
		audit:    nopAudit{},
		throttle: newLoginThrottle(),
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.HandleFunc("GET /me", h.handleMe)
}

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type meResponse struct {
	User User `json:"user"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, maxAuthBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	u, err := h.svc.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	h.audit.Record(r.Context(), AuditEvent{
		Action: "auth.register", UserID: u.ID,
		IP: clientIP(r), UserAgent: r.UserAgent(),
	})
	writeJSON(w, http.StatusCreated, meResponse{User: u})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, maxAuthBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	now := time.Now()
	email := NormalizeEmail(req.Email)
	ip := clientIP(r)

	if blocked, retry := h.throttle.check(now, email, ip); blocked {
		h.audit.Record(r.Context(), AuditEvent{
			Action: "auth.login.rate_limited", IP: ip, UserAgent: r.UserAgent(),
			Meta: map[string]any{"identifier": email, "retry_after_s": int64(retry.Seconds())},
		})
		writeRateLimited(w, retry)
		return
	}

	u, tok, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.throttle.recordFailure(now, email, ip)
			h.audit.Record(r.Context(), AuditEvent{
				Action: "auth.login.failed", IP: ip, UserAgent: r.UserAgent(),
				Meta: map[string]any{"identifier": email, "reason": "invalid_credentials"},
			})
		}
		h.writeAuthError(w, r, err)
		return
	}

	h.throttle.reset(email)
	h.audit.Record(r.Context(), AuditEvent{
		Action: "auth.login.success", UserID: u.ID,
		IP: ip, UserAgent: r.UserAgent(),
		Meta: map[string]any{"identifier": email},
	})
	writeJSON(w, http.StatusOK, loginResponse{User: u, Token: tok})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), bearerToken(r)); err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	h.audit.Record(r.Context(), AuditEvent{
		Action: "auth.logout", IP: clientIP(r), UserAgent: r.UserAgent(),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.UserFromRequest(r)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: u})
}

func (h *Handler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", "a valid email is required")
	case errors.Is(err, password.ErrPasswordTooShort),
		errors.Is(err, password.ErrPasswordTooLong),
		errors.Is(err, password.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, "weak_password", "password does not meet the policy")
	case errors.Is(err, ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", "email is already registered")
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
	default:
		h.log.Error("auth error", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
