// Package invite creates club invitations, emails signup links, and answers
// validation requests from the signup flow.
package invite

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookclurb/clurb-api/internal/docstore"
	"github.com/bookclurb/clurb-api/internal/membership"
	"github.com/bookclurb/clurb-api/internal/models"
	"github.com/bookclurb/clurb-api/internal/notification"
	"github.com/bookclurb/clurb-api/internal/repository"
)

var (
	ErrMissingFields   = errors.New("missing required fields")
	ErrInvalidEmail    = errors.New("invalid email address format")
	ErrInviteNotFound  = errors.New("invite not found")
	ErrInviteNotActive = errors.New("invite is no longer active")
	ErrDeliveryFailed  = errors.New("failed to send invite email")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// AdminChecker confirms that an identity administers a club.
type AdminChecker interface {
	RequireAdmin(ctx context.Context, clubID, actorID string) (models.Club, error)
}

type Service struct {
	invites repository.InviteRepository
	admins  AdminChecker
	mailer  notification.InviteMailer
	baseURL string
	now     func() time.Time
	logger  zerolog.Logger
}

func NewService(invites repository.InviteRepository, admins AdminChecker, mailer notification.InviteMailer, baseURL string, logger zerolog.Logger) *Service {
	return &Service{
		invites: invites,
		admins:  admins,
		mailer:  mailer,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
		logger:  logger.With().Str("component", "invite_service").Logger(),
	}
}

// SignupLink is the URL a recipient follows to accept an invite.
func SignupLink(baseURL, inviteID, clubID, email string) string {
	return fmt.Sprintf("%s/signup?inviteId=%s&clubId=%s&email=%s",
		strings.TrimRight(baseURL, "/"), url.QueryEscape(inviteID), url.QueryEscape(clubID), url.QueryEscape(email))
}

// Create records a pending invite for clubID, restricted to email.
func (s *Service) Create(ctx context.Context, actor models.Identity, clubID, email, inviterName string) (models.Invite, error) {
	email = strings.TrimSpace(email)
	if strings.TrimSpace(clubID) == "" || email == "" {
		return models.Invite{}, ErrMissingFields
	}
	if !ValidEmail(email) {
		return models.Invite{}, ErrInvalidEmail
	}

	club, err := s.admins.RequireAdmin(ctx, clubID, actor.ID)
	if err != nil {
		return models.Invite{}, err
	}

	inviterName = strings.TrimSpace(inviterName)
	if inviterName == "" {
		inviterName = membership.ResolveDisplayName("", actor)
	}

	invite, err := s.invites.CreateInvite(ctx, models.Invite{
		Email:       email,
		ClubID:      clubID,
		ClubName:    club.Name,
		InviterName: inviterName,
		InvitedBy:   actor.ID,
		CreatedAt:   s.now().Unix(),
		Status:      models.InviteStatusPending,
	})
	if err != nil {
		return models.Invite{}, fmt.Errorf("%w: create invite: %w", membership.ErrStoreUnavailable, err)
	}

	s.logger.Info().Str("club_id", clubID).Str("invite_id", invite.ID).Str("invited_by", actor.ID).Msg("invite created")
	return invite, nil
}

// Send emails the signup link for an existing invite and records the outcome
// on the invite: sent on success, failed with the error text otherwise.
func (s *Service) Send(ctx context.Context, actor models.Identity, req models.SendInviteRequest) (models.Invite, error) {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.ClubID == "" || req.ClubName == "" || req.InviteID == "" {
		return models.Invite{}, ErrMissingFields
	}
	if !ValidEmail(req.Email) {
		return models.Invite{}, ErrInvalidEmail
	}
	if !docstore.ValidKey(req.ClubID) || !docstore.ValidKey(req.InviteID) {
		return models.Invite{}, ErrInviteNotFound
	}

	if _, err := s.admins.RequireAdmin(ctx, req.ClubID, actor.ID); err != nil {
		return models.Invite{}, err
	}

	stored, err := s.invites.GetInvite(ctx, req.ClubID, req.InviteID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Invite{}, ErrInviteNotFound
	}
	if err != nil {
		return models.Invite{}, fmt.Errorf("%w: read invite: %w", membership.ErrStoreUnavailable, err)
	}
	if stored.IsAccepted() {
		return models.Invite{}, ErrInviteNotActive
	}
	if !membership.EmailMatches(stored.Email, req.Email) {
		return models.Invite{}, fmt.Errorf("%w: invite is restricted to another address", ErrInvalidEmail)
	}

	log := s.logger.With().Str("club_id", req.ClubID).Str("invite_id", req.InviteID).Logger()
	link := SignupLink(s.baseURL, req.InviteID, req.ClubID, req.Email)
	sendErr := s.mailer.SendInvite(ctx, notification.InviteEmail{
		To:          req.Email,
		ClubName:    req.ClubName,
		InviterName: req.InviterName,
		SignupLink:  link,
	})
	if sendErr != nil {
		if _, err := s.invites.MarkInviteFailed(ctx, req.ClubID, req.InviteID, sendErr.Error(), s.now()); err != nil {
			log.Warn().Err(err).Msg("failed to record invite delivery failure")
		}
		return models.Invite{}, fmt.Errorf("%w: %w", ErrDeliveryFailed, sendErr)
	}

	sent, err := s.invites.MarkInviteSent(ctx, req.ClubID, req.InviteID, s.now())
	if err != nil {
		log.Warn().Err(err).Msg("invite emailed but status update failed")
		return models.Invite{}, fmt.Errorf("%w: mark invite sent: %w", membership.ErrStoreUnavailable, err)
	}
	log.Info().Msg("invite sent")
	return sent, nil
}

// ValidateInvite reports whether an invite can still be accepted. Unknown and
// inactive invites are answered with Valid=false rather than an error.
func (s *Service) ValidateInvite(ctx context.Context, inviteID, clubID string) (models.InviteValidation, error) {
	inviteID = strings.TrimSpace(inviteID)
	clubID = strings.TrimSpace(clubID)
	if inviteID == "" || clubID == "" {
		return models.InviteValidation{}, ErrMissingFields
	}
	if !docstore.ValidKey(inviteID) || !docstore.ValidKey(clubID) {
		return models.InviteValidation{Valid: false, Message: "Invite not found"}, nil
	}

	stored, err := s.invites.GetInvite(ctx, clubID, inviteID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.InviteValidation{Valid: false, Message: "Invite not found"}, nil
	}
	if err != nil {
		return models.InviteValidation{}, fmt.Errorf("%w: read invite: %w", membership.ErrStoreUnavailable, err)
	}

	if stored.Status != models.InviteStatusSent {
		return models.InviteValidation{
			Valid:   false,
			Message: fmt.Sprintf("Invite is not active. Status: %s", stored.Status),
		}, nil
	}

	return models.InviteValidation{
		Valid:       true,
		Message:     "Invite is valid and active",
		ClubID:      stored.ClubID,
		ClubName:    stored.ClubName,
		InviterName: stored.InviterName,
		Email:       stored.Email,
	}, nil
}

// List returns a club's invites, newest first, to one of its admins.
func (s *Service) List(ctx context.Context, actor models.Identity, clubID string) ([]models.Invite, error) {
	if _, err := s.admins.RequireAdmin(ctx, clubID, actor.ID); err != nil {
		return nil, err
	}
	invites, err := s.invites.ListInvitesByClub(ctx, clubID)
	if err != nil {
		return nil, fmt.Errorf("%w: list invites: %w", membership.ErrStoreUnavailable, err)
	}
	return invites, nil
}
