package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/bookclurb/clurb-api/internal/authz"
	"github.com/bookclurb/clurb-api/internal/gateway"
	"github.com/bookclurb/clurb-api/internal/invite"
	"github.com/bookclurb/clurb-api/internal/membership"
	"github.com/bookclurb/clurb-api/internal/models"
)

// RemoteSender forwards invite emails to a separately deployed invite gateway.
type RemoteSender interface {
	SendClubInvite(ctx context.Context, bearer string, req models.SendInviteRequest) error
}

type InviteHandler struct {
	invites   *invite.Service
	members   *membership.Service
	validator gateway.Validator
	remote    RemoteSender
	logger    zerolog.Logger
}

// NewInviteHandler wires invite endpoints. validator answers acceptance
// checks; when nil the local invite service is used. remote may be nil.
func NewInviteHandler(invites *invite.Service, members *membership.Service, validator gateway.Validator, remote RemoteSender, logger zerolog.Logger) *InviteHandler {
	if validator == nil {
		validator = invites
	}
	return &InviteHandler{
		invites:   invites,
		members:   members,
		validator: validator,
		remote:    remote,
		logger:    logger.With().Str("handler", "invite").Logger(),
	}
}

type validateInviteRequest struct {
	InviteID string `json:"inviteId"`
	ClubID   string `json:"clubId"`
}

type createInviteRequest struct {
	Email       string `json:"email"`
	InviterName string `json:"inviterName"`
	Send        bool   `json:"send"`
}

type acceptInviteRequest struct {
	InviteID string `json:"inviteId"`
	ClubID   string `json:"clubId"`
	Name     string `json:"name"`
}

// ValidateInvite answers the signup page. Unknown or inactive invites get a
// 200 with valid=false.
func (h *InviteHandler) ValidateInvite(w http.ResponseWriter, r *http.Request) {
	var req validateInviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.InviteID) == "" || strings.TrimSpace(req.ClubID) == "" {
		http.Error(w, "Missing required fields: inviteId or clubId", http.StatusBadRequest)
		return
	}

	result, err := h.invites.ValidateInvite(r.Context(), req.InviteID, req.ClubID)
	if err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *InviteHandler) SendClubInvite(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req models.SendInviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := h.invites.Send(r.Context(), identity, req); err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Invite sent successfully",
	})
}

// CreateInvite records an invite and, when asked, emails it straight away.
func (h *InviteHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	clubID := mux.Vars(r)["clubID"]

	var req createInviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.invites.Create(r.Context(), identity, clubID, req.Email, req.InviterName)
	if err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	if !req.Send || created.Email == "" {
		writeJSON(w, http.StatusCreated, created)
		return
	}

	send := models.SendInviteRequest{
		Email:       created.Email,
		ClubID:      created.ClubID,
		ClubName:    created.ClubName,
		InviterName: created.InviterName,
		InviteID:    created.ID,
	}
	if h.remote != nil {
		bearer, _ := authz.BearerTokenFromRequest(r)
		if err := h.remote.SendClubInvite(r.Context(), bearer, send); err != nil {
			h.logger.Error().Err(err).Str("invite_id", created.ID).Msg("remote invite delivery failed")
			writeMembershipError(w, h.logger, fmt.Errorf("%w: %w", invite.ErrDeliveryFailed, err))
			return
		}
		created.Status = models.InviteStatusSent
		writeJSON(w, http.StatusCreated, created)
		return
	}

	sent, err := h.invites.Send(r.Context(), identity, send)
	if err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sent)
}

func (h *InviteHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	invites, err := h.invites.List(r.Context(), identity, mux.Vars(r)["clubID"])
	if err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"invites": invites})
}

// AcceptInvite validates the invite with the gateway and then reconciles
// membership for the caller.
func (h *InviteHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req acceptInviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.InviteID = strings.TrimSpace(req.InviteID)
	req.ClubID = strings.TrimSpace(req.ClubID)
	if req.InviteID == "" || req.ClubID == "" {
		http.Error(w, "Missing required fields: inviteId or clubId", http.StatusBadRequest)
		return
	}

	validation, err := h.validator.ValidateInvite(r.Context(), req.InviteID, req.ClubID)
	if err != nil {
		h.logger.Error().Err(err).Str("invite_id", req.InviteID).Msg("invite validation failed")
		http.Error(w, "Could not validate invite", http.StatusBadGateway)
		return
	}
	if !validation.Valid {
		msg := validation.Message
		if msg == "" {
			msg = "Invalid invite"
		}
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	validated := validation.Invite(req.InviteID)
	if validated.ClubID == "" {
		validated.ClubID = req.ClubID
	}
	if validated.ClubID != req.ClubID {
		http.Error(w, "Invite belongs to a different club", http.StatusBadRequest)
		return
	}

	if err := h.members.CompleteInviteAcceptance(r.Context(), identity, validated, req.Name); err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"clubId":   validated.ClubID,
		"clubName": validated.ClubName,
	})
}
