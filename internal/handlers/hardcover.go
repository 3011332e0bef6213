package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bookclurb/clurb-api/internal/hardcover"
	"github.com/bookclurb/clurb-api/internal/membership"
	"github.com/bookclurb/clurb-api/internal/utils"
)

// HardcoverAPI is the subset of the Hardcover client the handlers call.
type HardcoverAPI interface {
	Me(ctx context.Context, token string) (hardcover.User, error)
	SyncRating(ctx context.Context, token, isbn string, rating float64, review string) error
}

type HardcoverHandler struct {
	client  HardcoverAPI
	members *membership.Service
	sealer  *utils.TokenSealer
	logger  zerolog.Logger
}

func NewHardcoverHandler(client HardcoverAPI, members *membership.Service, sealer *utils.TokenSealer, logger zerolog.Logger) *HardcoverHandler {
	return &HardcoverHandler{
		client:  client,
		members: members,
		sealer:  sealer,
		logger:  logger.With().Str("handler", "hardcover").Logger(),
	}
}

type tokenRequest struct {
	Token string `json:"token"`
}

type syncRequest struct {
	ISBN   string   `json:"isbn"`
	Rating *float64 `json:"rating"`
	Review string   `json:"review"`
	Token  string   `json:"token,omitempty"`
}

func (h *HardcoverHandler) fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}

// TestToken checks a pasted token against the "me" query.
func (h *HardcoverHandler) TestToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, http.StatusBadRequest, err.Error())
		return
	}
	token := hardcover.CleanToken(req.Token)
	if token == "" {
		h.fail(w, http.StatusBadRequest, "Token is required")
		return
	}

	user, err := h.client.Me(r.Context(), token)
	if err != nil {
		h.logger.Info().Err(err).Msg("hardcover token rejected")
		h.fail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": user})
}

// SaveToken validates and stores the caller's token. An empty token clears it.
func (h *HardcoverHandler) SaveToken(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, http.StatusBadRequest, err.Error())
		return
	}

	token := hardcover.CleanToken(req.Token)
	if token == "" {
		if err := h.members.SetHardcoverToken(r.Context(), identity.ID, ""); err != nil {
			writeMembershipError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
		return
	}

	user, err := h.client.Me(r.Context(), token)
	if err != nil {
		h.fail(w, http.StatusBadRequest, err.Error())
		return
	}
	sealed, err := h.sealer.Seal(token)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to seal hardcover token")
		h.fail(w, http.StatusInternalServerError, "Failed to store token")
		return
	}
	if err := h.members.SetHardcoverToken(r.Context(), identity.ID, sealed); err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": user})
}

func (h *HardcoverHandler) SyncRating(w http.ResponseWriter, r *http.Request) {
	h.sync(w, r, false)
}

func (h *HardcoverHandler) SyncReview(w http.ResponseWriter, r *http.Request) {
	h.sync(w, r, true)
}

func (h *HardcoverHandler) sync(w http.ResponseWriter, r *http.Request, withReview bool) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req syncRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ISBN) == "" || req.Rating == nil {
		h.fail(w, http.StatusBadRequest, "Missing required fields: isbn or rating")
		return
	}
	if withReview && strings.TrimSpace(req.Review) == "" {
		h.fail(w, http.StatusBadRequest, "Missing required field: review")
		return
	}
	review := ""
	if withReview {
		review = strings.TrimSpace(req.Review)
	}

	token, err := h.tokenFor(r.Context(), identity.ID, req.Token)
	if err != nil {
		if errors.Is(err, membership.ErrUserNotFound) {
			h.fail(w, http.StatusBadRequest, "No Hardcover token configured")
			return
		}
		writeMembershipError(w, h.logger, err)
		return
	}
	if token == "" {
		h.fail(w, http.StatusBadRequest, "No Hardcover token configured")
		return
	}

	err = h.client.SyncRating(r.Context(), token, req.ISBN, *req.Rating, review)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	case errors.Is(err, hardcover.ErrInvalidRating):
		h.fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, hardcover.ErrBookNotFound):
		h.fail(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error().Err(err).Str("user_id", identity.ID).Str("isbn", req.ISBN).Msg("hardcover sync failed")
		h.fail(w, http.StatusBadGateway, err.Error())
	}
}

// tokenFor prefers a token from the request and falls back to the stored one.
func (h *HardcoverHandler) tokenFor(ctx context.Context, userID, explicit string) (string, error) {
	if token := hardcover.CleanToken(explicit); token != "" {
		return token, nil
	}
	profile, err := h.members.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	return h.sealer.Open(profile.HardcoverAPIToken)
}
