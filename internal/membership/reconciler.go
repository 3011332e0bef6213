package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bookclurb/clurb-api/internal/docstore"
	"github.com/bookclurb/clurb-api/internal/models"
	"github.com/bookclurb/clurb-api/internal/repository"
)

// CompleteInviteAcceptance admits identity into the invited club and mirrors
// the membership onto the user's profile, then marks the invite accepted.
//
// All checks run before the first write. Each step is its own
// compare-and-swap write; a failure leaves earlier steps committed, and
// calling again with the same identity finishes the remaining steps without
// duplicating anything.
func (s *Service) CompleteInviteAcceptance(ctx context.Context, identity models.Identity, invite models.Invite, explicitName string) error {
	clubID := strings.TrimSpace(invite.ClubID)
	inviteID := strings.TrimSpace(invite.ID)
	if clubID == "" || inviteID == "" {
		return fmt.Errorf("%w: missing club or invite id", ErrInvalidInvite)
	}
	if !docstore.ValidKey(clubID) || !docstore.ValidKey(inviteID) {
		return fmt.Errorf("%w: malformed club or invite id", ErrInvalidInvite)
	}
	if !docstore.ValidKey(identity.ID) {
		return fmt.Errorf("%w: identity has no usable id", ErrInvalidInvite)
	}
	if !mayClaim(invite.Email, identity) {
		return ErrEmailMismatch
	}

	stored, err := s.invites.GetInvite(ctx, clubID, inviteID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: invite %s does not exist", ErrInvalidInvite, inviteID)
	}
	if err != nil {
		return classify("read invite", err)
	}
	if !mayClaim(stored.Email, identity) {
		return ErrEmailMismatch
	}
	switch {
	case stored.IsAccepted() && stored.AcceptedBy != identity.ID:
		return fmt.Errorf("%w: invite was already accepted", ErrInvalidInvite)
	case !stored.IsAccepted() && stored.Status != models.InviteStatusSent:
		return fmt.Errorf("%w: invite is not active (status %s)", ErrInvalidInvite, stored.Status)
	}

	log := s.logger.With().
		Str("club_id", clubID).
		Str("invite_id", inviteID).
		Str("user_id", identity.ID).
		Logger()

	name := ResolveDisplayName(explicitName, identity)
	_, added, err := s.admitMember(ctx, clubID, s.newMember(identity.ID, name, identity.PhotoURL, models.RoleMember))
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: club %s no longer exists", ErrInvalidInvite, clubID)
	}
	if err != nil {
		return classify("add club member", err)
	}

	firstName, lastName := DeriveNames(explicitName, identity)
	if _, err := s.linkProfile(ctx, identity.ID, clubID, firstName, lastName, true); err != nil {
		log.Error().Err(err).Msg("member added to club but profile update failed")
		return classify("update user profile", err)
	}

	_, err = s.invites.MarkInviteAccepted(ctx, clubID, inviteID, identity.ID, s.now())
	switch {
	case errors.Is(err, repository.ErrInviteAlreadyAccepted), errors.Is(err, models.ErrInvalidTransition):
		return fmt.Errorf("%w: %v", ErrInvalidInvite, err)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: invite %s disappeared", ErrInvalidInvite, inviteID)
	case err != nil:
		log.Error().Err(err).Msg("membership recorded but invite status update failed")
		return classify("mark invite accepted", err)
	}

	log.Info().Bool("new_member", added).Msg("invite accepted")
	return nil
}
