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

// ClubSettings carries editable club fields. Nil pointers leave the stored
// value untouched on update.
type ClubSettings struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	CoverColor  *string `json:"coverColor,omitempty"`
	CoverImage  *string `json:"coverImage,omitempty"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
}

func (cs ClubSettings) validate() (string, error) {
	name := strings.TrimSpace(cs.Name)
	if name == "" {
		return "", fmt.Errorf("%w: club name is required", ErrInvalidSettings)
	}
	return name, nil
}

func (cs ClubSettings) apply(club *models.Club, name string) {
	club.Name = name
	if cs.Description != nil {
		club.Description = strings.TrimSpace(*cs.Description)
	}
	if cs.CoverColor != nil {
		club.CoverColor = *cs.CoverColor
	}
	if cs.CoverImage != nil {
		club.CoverImage = *cs.CoverImage
	}
	if cs.IsPublic != nil {
		club.IsPublic = *cs.IsPublic
	}
}

// CreateClub stores a new club whose only member is the creator, as admin,
// and adds it to the creator's profile.
func (s *Service) CreateClub(ctx context.Context, creator models.Identity, settings ClubSettings) (models.Club, error) {
	if !docstore.ValidKey(creator.ID) {
		return models.Club{}, fmt.Errorf("%w: creator has no usable id", ErrInvalidSettings)
	}
	name, err := settings.validate()
	if err != nil {
		return models.Club{}, err
	}

	var club models.Club
	settings.apply(&club, name)
	club.AddMember(s.newMember(creator.ID, ResolveDisplayName("", creator), creator.PhotoURL, models.RoleAdmin))

	created, err := s.clubs.CreateClub(ctx, club)
	if err != nil {
		return models.Club{}, classify("create club", err)
	}

	firstName, lastName := DeriveNames("", creator)
	if _, err := s.linkProfile(ctx, creator.ID, created.ID, firstName, lastName, false); err != nil {
		return created, classify("link club to creator profile", err)
	}

	s.logger.Info().Str("club_id", created.ID).Str("user_id", creator.ID).Msg("club created")
	return created, nil
}

func (s *Service) UpdateSettings(ctx context.Context, clubID string, settings ClubSettings) (models.Club, error) {
	name, err := settings.validate()
	if err != nil {
		return models.Club{}, err
	}
	club, err := s.clubs.MutateClub(ctx, clubID, func(club *models.Club) error {
		settings.apply(club, name)
		return nil
	})
	if err != nil {
		return models.Club{}, clubError("update club settings", err)
	}
	return club, nil
}

// AddMember adds an existing user to a club directly. The member name comes
// from name, then the user's profile.
func (s *Service) AddMember(ctx context.Context, clubID, userID, name string) (models.Club, error) {
	if !docstore.ValidKey(userID) {
		return models.Club{}, ErrUserNotFound
	}
	profile, err := s.users.GetProfile(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Club{}, ErrUserNotFound
	}
	if err != nil {
		return models.Club{}, classify("read user profile", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = profile.DisplayName()
	}
	if name == "" {
		name = defaultMemberName
	}

	club, added, err := s.admitMember(ctx, clubID, s.newMember(userID, name, "", models.RoleMember))
	if err != nil {
		return models.Club{}, clubError("add club member", err)
	}
	if _, err := s.linkProfile(ctx, userID, clubID, "", "", false); err != nil {
		return club, classify("link club to member profile", err)
	}

	s.logger.Info().Str("club_id", clubID).Str("user_id", userID).Bool("new_member", added).Msg("member added")
	return club, nil
}

// RemoveMember takes memberID out of the club and then drops the club from
// their profile. The sole admin cannot be removed. Removing someone who is
// not listed still cleans their profile.
func (s *Service) RemoveMember(ctx context.Context, clubID, memberID string) error {
	if !docstore.ValidKey(memberID) {
		return ErrMemberNotFound
	}

	_, err := s.clubs.MutateClub(ctx, clubID, func(club *models.Club) error {
		if !club.HasMember(memberID) {
			return repository.ErrNoChange
		}
		if club.IsSoleAdmin(memberID) {
			return ErrLastAdminViolation
		}
		club.RemoveMember(memberID)
		return nil
	})
	if err != nil {
		return clubError("remove club member", err)
	}

	if _, err := s.UnwindMember(ctx, clubID, memberID); err != nil {
		s.logger.Error().Err(err).Str("club_id", clubID).Str("user_id", memberID).Msg("member removed from club but profile still lists it")
		return err
	}

	s.logger.Info().Str("club_id", clubID).Str("user_id", memberID).Msg("member removed")
	return nil
}

// LeaveClub is RemoveMember applied to the caller. Leaving a club that no
// longer exists still drops the stale id from the caller's profile.
func (s *Service) LeaveClub(ctx context.Context, clubID, userID string) error {
	err := s.RemoveMember(ctx, clubID, userID)
	if !errors.Is(err, ErrClubNotFound) {
		return err
	}
	result, unwindErr := s.UnwindMember(ctx, clubID, userID)
	if unwindErr != nil {
		return unwindErr
	}
	if result == UnwindRemoved {
		return nil
	}
	return err
}
