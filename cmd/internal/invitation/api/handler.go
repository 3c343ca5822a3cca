// Package invitationapi exposes the invitation persistence REST endpoints the
// builder saves against, plus the owner dashboard listing and publish.
package invitationapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"vows/cmd/internal/invitation"
	"vows/cmd/internal/rsvp"
)

// ErrUnauthenticated is returned by an Authenticator when the request carries
// no valid credentials.
var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator resolves the requesting user from bearer credentials.
type Authenticator interface {
	AuthenticateRequest(r *http.Request) (userID string, err error)
}

// ResponseLister supplies the guest responses embedded in a single-invitation
// GET. rsvp.Store satisfies it.
type ResponseLister interface {
	ListByInvitation(ctx context.Context, invitationID string) ([]rsvp.Response, error)
}

var slugRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

const maxSlugLen = 80

// Handler wires the invitations REST surface to an invitation.Store.
type Handler struct {
	log       *slog.Logger
	cfg       Config
	store     invitation.Store
	auth      Authenticator
	responses ResponseLister

	now func() time.Time
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler) error

// WithResponses wires the guest-response lister so single-invitation GETs
// carry the invitation's RSVPs.
func WithResponses(l ResponseLister) HandlerOption {
	return func(h *Handler) error {
		if l == nil {
			return errors.New("invitationapi: nil response lister")
		}
		h.responses = l
		return nil
	}
}

// NewHandler constructs an invitations Handler.
func NewHandler(log *slog.Logger, cfg Config, store invitation.Store, auth Authenticator, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, errors.New("invitationapi: nil store")
	}
	if auth == nil {
		return nil, errors.New("invitationapi: nil authenticator")
	}
	h := &Handler{
		log:   log,
		cfg:   cfg,
		store: store,
		auth:  auth,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Register wires invitation routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /api/invitations", h.handleCreate)
	mux.HandleFunc("GET /api/invitations", h.handleList)
	mux.HandleFunc("GET /api/invitations/{id}", h.handleGet)
	mux.HandleFunc("PUT /api/invitations/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /api/invitations/{id}", h.handleDelete)
	mux.HandleFunc("POST /api/invitations/{id}/publish", h.handlePublish)
	if h.cfg.DevFakePayments {
		mux.HandleFunc("POST /api/invitations/{id}/pay", h.handleDevPay)
	}
}

// ---- handlers ----

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req saveRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	inv, err := h.store.Create(r.Context(), userID, req.toUpdate())
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	h.log.Info("invitation created", "invitation_id", inv.ID, "user_id", userID)
	writeJSON(w, http.StatusCreated, inv)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	invs, err := h.store.List(r.Context(), userID)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	if invs == nil {
		invs = []invitation.Invitation{}
	}
	writeJSON(w, http.StatusOK, listResponse{Invitations: invs})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	inv, err := h.store.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	inv.Status = inv.EffectiveStatus(h.now())

	detail := invitationDetail{Invitation: inv, RSVPs: []rsvp.Response{}}
	if h.responses != nil {
		rs, err := h.responses.ListByInvitation(r.Context(), inv.ID)
		if err != nil {
			h.log.Error("invitation rsvp listing failed", "invitation_id", inv.ID, "err", err)
			writeError(w, http.StatusInternalServerError, "internal", "internal error")
			return
		}
		if rs != nil {
			detail.RSVPs = rs
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req saveRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	inv, err := h.store.Update(r.Context(), userID, r.PathValue("id"), req.toUpdate())
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req publishRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" || len(slug) > maxSlugLen || !slugRe.MatchString(slug) {
		writeError(w, http.StatusBadRequest, "invalid_slug", "slug must be lowercase letters, digits and hyphens")
		return
	}

	inv, err := h.store.Publish(r.Context(), userID, r.PathValue("id"), slug, h.now())
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	h.log.Info("invitation published", "invitation_id", inv.ID, "slug", slug)
	writeJSON(w, http.StatusOK, inv)
}

// devPaidValidity stands in for the plan validity the checkout provider
// would attach to a real payment.
const devPaidValidity = 365 * 24 * time.Hour

// handleDevPay simulates the checkout webhook. Registered only when
// DevFakePayments is set; the ownership check still applies.
func (h *Handler) handleDevPay(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if _, err := h.store.Get(r.Context(), userID, id); err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	now := h.now()
	inv, err := h.store.MarkPaid(r.Context(), id, now, now.Add(devPaidValidity))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	h.log.Info("invitation marked paid (dev)", "invitation_id", inv.ID)
	writeJSON(w, http.StatusOK, inv)
}

// ---- helpers ----

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := h.auth.AuthenticateRequest(r)
	if err != nil || userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid credentials required")
		return "", false
	}
	return userID, true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, invitation.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", "template, both names and the wedding date are required")
	case errors.Is(err, invitation.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "invitation not found")
	case errors.Is(err, invitation.ErrNotEditable):
		writeError(w, http.StatusConflict, "not_editable", "invitation is no longer a draft")
	case errors.Is(err, invitation.ErrNotPublishable):
		writeError(w, http.StatusConflict, "not_publishable", "invitation must be paid before publishing")
	case errors.Is(err, invitation.ErrSlugTaken):
		writeError(w, http.StatusConflict, "slug_taken", "slug is already in use")
	default:
		h.log.Error("invitation store error", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
