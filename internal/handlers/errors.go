package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/bookclurb/clurb-api/internal/invite"
	"github.com/bookclurb/clurb-api/internal/membership"
)

type errorStatus struct {
	err     error
	status  int
	message string // empty means err.Error()
}

var errorStatuses = []errorStatus{
	{membership.ErrInvalidInvite, http.StatusBadRequest, ""},
	{membership.ErrEmailMismatch, http.StatusForbidden, "This invite was sent to a different email address"},
	{membership.ErrLastAdminViolation, http.StatusConflict, "Club must have at least one admin"},
	{membership.ErrClubNotFound, http.StatusNotFound, "Club not found"},
	{membership.ErrMemberNotFound, http.StatusNotFound, "Member not found"},
	{membership.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{membership.ErrNotAdmin, http.StatusForbidden, "Only club admins can perform this action"},
	{membership.ErrInvalidRole, http.StatusBadRequest, "Invalid role"},
	{membership.ErrInvalidSettings, http.StatusBadRequest, ""},
	{membership.ErrDeleteFailed, http.StatusInternalServerError, "Failed to delete club"},
	{invite.ErrMissingFields, http.StatusBadRequest, "Missing required fields"},
	{invite.ErrInvalidEmail, http.StatusBadRequest, "Invalid email address format"},
	{invite.ErrInviteNotFound, http.StatusNotFound, "Invite not found"},
	{invite.ErrInviteNotActive, http.StatusConflict, "Invite is no longer active"},
	{invite.ErrDeliveryFailed, http.StatusBadGateway, "Failed to send invite email"},
	{membership.ErrStoreUnavailable, http.StatusServiceUnavailable, "Service temporarily unavailable"},
}

// writeMembershipError maps domain errors to status codes. Unknown errors are
// logged and reported as 500.
func writeMembershipError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	for _, es := range errorStatuses {
		if !errors.Is(err, es.err) {
			continue
		}
		if es.status >= http.StatusInternalServerError {
			logger.Error().Err(err).Int("status", es.status).Msg("request failed")
		}
		msg := es.message
		if msg == "" {
			msg = err.Error()
		}
		http.Error(w, msg, es.status)
		return
	}
	logger.Error().Err(err).Msg("unhandled error")
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
