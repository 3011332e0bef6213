package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/bookclurb/clurb-api/internal/membership"
	"github.com/bookclurb/clurb-api/internal/models"
)

type ProfileHandler struct {
	members *membership.Service
	logger  zerolog.Logger
}

func NewProfileHandler(members *membership.Service, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{members: members, logger: logger.With().Str("handler", "profile").Logger()}
}

// profileResponse never echoes the stored Hardcover credential.
type profileResponse struct {
	ID                    string   `json:"id"`
	Clubs                 []string `json:"clubs"`
	FirstName             string   `json:"firstName,omitempty"`
	LastName              string   `json:"lastName,omitempty"`
	OnboardingCompleted   bool     `json:"onboardingCompleted"`
	OnboardingCompletedAt string   `json:"onboardingCompletedAt,omitempty"`
	HasHardcoverToken     bool     `json:"hasHardcoverToken"`
}

func newProfileResponse(id string, p models.UserProfile) profileResponse {
	clubs := []string(p.Clubs)
	if clubs == nil {
		clubs = []string{}
	}
	return profileResponse{
		ID:                    id,
		Clubs:                 clubs,
		FirstName:             p.FirstName,
		LastName:              p.LastName,
		OnboardingCompleted:   p.OnboardingCompleted,
		OnboardingCompletedAt: p.OnboardingCompletedAt,
		HasHardcoverToken:     p.HardcoverAPIToken != "",
	}
}

func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	profile, err := h.members.GetProfile(r.Context(), identity.ID)
	if err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(identity.ID, profile))
}

func (h *ProfileHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	profile, err := h.members.CompleteOnboarding(r.Context(), identity.ID)
	if err != nil {
		writeMembershipError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(identity.ID, profile))
}
