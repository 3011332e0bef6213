package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/bookclurb/clurb-api/internal/membership"
	"github.com/bookclurb/clurb-api/internal/models"
)

// ClubDeleter runs the club deletion cascade, in-process or via Temporal.
type ClubDeleter interface {
	DeleteClub(ctx context.Context, clubID string) (membership.CascadeReport, error)
}

type ClubHandler struct {
	members *membership.Service
	deleter ClubDeleter
	logger  zerolog.Logger
}

func NewClubHandler(members *membership.Service, deleter ClubDeleter, logger zerolog.Logger) *ClubHandler {
	if deleter == nil {
		deleter = members
	}
	return &ClubHandler{
		members: members,
		deleter: deleter,
		logger:  logger.With().Str("handler", "club").Logger(),
	}
}

type addMemberRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

type deleteClubResponse struct {
	ClubID  string   `json:"clubId"`
	Deleted bool     `json:"deleted"`
	Unwound []string `json:"unwound"`
	Skipped []string `json:"skipped,omitempty"`
	Failed  []string `json:"failed,omitempty"`
}

func (h *ClubHandler) CreateClub(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var settings membership.ClubSettings
	if err := decodeJSON(w, r, &settings); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	club, err := h.members.CreateClub(r.Context(), identity, settings)
	if err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newClubResponse(club))
}

func (h *ClubHandler) GetClub(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	club, err := h.members.GetClub(r.Context(), mux.Vars(r)["clubID"])
	if err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	if !club.HasMember(identity.ID) && !club.IsPublic {
		http.Error(w, "Club not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newClubResponse(club))
}

func (h *ClubHandler) UpdateClub(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	clubID := mux.Vars(r)["clubID"]
	if _, err := h.members.RequireAdmin(r.Context(), clubID, identity.ID); err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}

	var settings membership.ClubSettings
	if err := decodeJSON(w, r, &settings); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	club, err := h.members.UpdateSettings(r.Context(), clubID, settings)
	if err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newClubResponse(club))
}

func (h *ClubHandler) DeleteClub(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	clubID := mux.Vars(r)["clubID"]
	if _, err := h.members.RequireAdmin(r.Context(), clubID, identity.ID); err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}

	report, err := h.deleter.DeleteClub(r.Context(), clubID)
	if err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	if failed := report.Err(); failed != nil {
		h.logger.Warn().Err(failed).Str("club_id", clubID).Msg("club deleted with profiles still referencing it")
	}
	writeJSON(w, http.StatusOK, deleteClubResponse{
		ClubID:  clubID,
		Deleted: true,
		Unwound: report.Unwound,
		Skipped: report.Skipped,
		Failed:  report.FailedIDs(),
	})
}

func (h *ClubHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	clubID := mux.Vars(r)["clubID"]
	if _, err := h.members.RequireAdmin(r.Context(), clubID, identity.ID); err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}

	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	club, err := h.members.AddMember(r.Context(), clubID, strings.TrimSpace(req.UserID), req.Name)
	if err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newClubResponse(club))
}

func (h *ClubHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	clubID, memberID := vars["clubID"], vars["memberID"]

	if memberID != identity.ID {
		if _, err := h.members.RequireAdmin(r.Context(), clubID, identity.ID); err != nil {
			writeMembershipError(w, h.logger, err)
			return
		}
	}
	if err := h.members.RemoveMember(r.Context(), clubID, memberID); err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetRole changes another member's role. Admins may not change their own.
func (h *ClubHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	clubID, memberID := vars["clubID"], vars["memberID"]

	if _, err := h.members.RequireAdmin(r.Context(), clubID, identity.ID); err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	if memberID == identity.ID {
		http.Error(w, "You cannot change your own role", http.StatusBadRequest)
		return
	}

	var req setRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	role, valid := models.ParseRole(req.Role)
	if !valid {
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}

	club, err := h.members.SetRole(r.Context(), clubID, memberID, role)
	if err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newClubResponse(club))
}

func (h *ClubHandler) LeaveClub(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.members.LeaveClub(r.Context(), mux.Vars(r)["clubID"], identity.ID); err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
