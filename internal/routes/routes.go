package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bookclurb/clurb-api/internal/handlers"
)

type Handlers struct {
	Clubs     *handlers.ClubHandler
	Invites   *handlers.InviteHandler
	Hardcover *handlers.HardcoverHandler
	Profiles  *handlers.ProfileHandler
}

// NewRouter registers the public gateway endpoints and the authenticated API.
// authenticate wraps every route that needs a caller identity.
func NewRouter(h Handlers, authenticate mux.MiddlewareFunc) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Public gateway endpoints.
	router.HandleFunc("/ValidateInvite", h.Invites.ValidateInvite).Methods(http.MethodPost)
	router.HandleFunc("/TestHardcoverToken", h.Hardcover.TestToken).Methods(http.MethodPost)

	// Authenticated gateway endpoints.
	router.Handle("/SendClubInvite", authenticate(http.HandlerFunc(h.Invites.SendClubInvite))).Methods(http.MethodPost)
	router.Handle("/SyncRatingToHardcover", authenticate(http.HandlerFunc(h.Hardcover.SyncRating))).Methods(http.MethodPost)
	router.Handle("/SyncReviewToHardcover", authenticate(http.HandlerFunc(h.Hardcover.SyncReview))).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(authenticate)

	api.HandleFunc("/invites/accept", h.Invites.AcceptInvite).Methods(http.MethodPost)

	api.HandleFunc("/clubs", h.Clubs.CreateClub).Methods(http.MethodPost)
	api.HandleFunc("/clubs/{clubID}", h.Clubs.GetClub).Methods(http.MethodGet)
	api.HandleFunc("/clubs/{clubID}", h.Clubs.UpdateClub).Methods(http.MethodPatch)
	api.HandleFunc("/clubs/{clubID}", h.Clubs.DeleteClub).Methods(http.MethodDelete)
	api.HandleFunc("/clubs/{clubID}/leave", h.Clubs.LeaveClub).Methods(http.MethodPost)
	api.HandleFunc("/clubs/{clubID}/invites", h.Invites.CreateInvite).Methods(http.MethodPost)
	api.HandleFunc("/clubs/{clubID}/invites", h.Invites.ListInvites).Methods(http.MethodGet)
	api.HandleFunc("/clubs/{clubID}/members", h.Clubs.AddMember).Methods(http.MethodPost)
	api.HandleFunc("/clubs/{clubID}/members/{memberID}", h.Clubs.RemoveMember).Methods(http.MethodDelete)
	api.HandleFunc("/clubs/{clubID}/members/{memberID}/role", h.Clubs.SetRole).Methods(http.MethodPut)

	api.HandleFunc("/me", h.Profiles.GetMe).Methods(http.MethodGet)
	api.HandleFunc("/me/onboarding", h.Profiles.CompleteOnboarding).Methods(http.MethodPost)
	api.HandleFunc("/me/hardcover-token", h.Hardcover.SaveToken).Methods(http.MethodPut)

	return router
}
