package rsvp

import (
	"errors"
	"log/slog"
	"net/http"
)

const defaultMaxBodyBytes = 1 << 20

// Authenticator resolves the requesting user from bearer credentials.
type Authenticator interface {
	AuthenticateRequest(r *http.Request) (userID string, err error)
}

// Handler exposes the public invitation page, guest submission, and the
// owner-only response listing.
type Handler struct {
	log          *slog.Logger
	svc          *Service
	auth         Authenticator
	maxBodyBytes int64
}

// NewHandler constructs an RSVP Handler.
func NewHandler(log *slog.Logger, svc *Service, auth Authenticator) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if svc == nil {
		return nil, errors.New("rsvp: nil service")
	}
	if auth == nil {
		return nil, errors.New("rsvp: nil authenticator")
	}
	return &Handler{log: log, svc: svc, auth: auth, maxBodyBytes: defaultMaxBodyBytes}, nil
}

// Register wires RSVP routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("GET /api/public/invitations/{slug}", h.handlePublicInvitation)
	mux.HandleFunc("POST /api/public/invitations/{slug}/rsvps", h.handleSubmit)
	mux.HandleFunc("GET /api/invitations/{id}/rsvps", h.handleOwnerList)
}

type submitRequest struct {
	GuestName  string `json:"guest_name"`
	Email      string `json:"email"`
	Attending  bool   `json:"attending"`
	GuestCount int    `json:"guest_count"`
	Dietary    string `json:"dietary"`
	Message    string `json:"message"`
}

type listRSVPsResponse struct {
	RSVPs []Response `json:"rsvps"`
}

func (h *Handler) handlePublicInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.PublishedBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	resp, err := h.svc.Submit(r.Context(), r.PathValue("slug"), Submission{
		GuestName:  req.GuestName,
		Email:      req.Email,
		Attending:  req.Attending,
		GuestCount: req.GuestCount,
		Dietary:    req.Dietary,
		Message:    req.Message,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleOwnerList(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.AuthenticateRequest(r)
	if err != nil || userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid credentials required")
		return
	}

	rsvps, err := h.svc.ListForOwner(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if rsvps == nil {
		rsvps = []Response{}
	}
	writeJSON(w, http.StatusOK, listRSVPsResponse{RSVPs: rsvps})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "invitation not found")
	case errors.Is(err, ErrDisabled):
		writeError(w, http.StatusForbidden, "rsvp_disabled", "this invitation does not accept responses")
	case errors.Is(err, ErrDeadlinePassed):
		writeError(w, http.StatusForbidden, "deadline_passed", "the reply deadline has passed")
	case errors.Is(err, ErrInvalidSubmission):
		writeError(w, http.StatusBadRequest, "invalid_submission", "guest name and a valid guest count are required")
	default:
		h.log.Error("rsvp service error", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
