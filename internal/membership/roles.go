package membership

import (
	"context"

	"github.com/bookclurb/clurb-api/internal/models"
	"github.com/bookclurb/clurb-api/internal/repository"
)

// SetRole changes one member's role in place. Demoting the only admin fails
// with ErrLastAdminViolation and nothing is written. Setting the role a
// member already has is a no-op.
func (s *Service) SetRole(ctx context.Context, clubID, memberID string, role models.Role) (models.Club, error) {
	if !role.IsValid() {
		return models.Club{}, ErrInvalidRole
	}

	club, err := s.clubs.MutateClub(ctx, clubID, func(club *models.Club) error {
		i := club.MemberIndex(memberID)
		if i < 0 {
			return ErrMemberNotFound
		}
		current := club.Members[i].Role
		if current == role {
			return repository.ErrNoChange
		}
		if current == models.RoleAdmin && club.AdminCount() <= 1 {
			return ErrLastAdminViolation
		}
		club.Members[i].Role = role
		return nil
	})
	if err != nil {
		return models.Club{}, clubError("set member role", err)
	}

	s.logger.Info().
		Str("club_id", clubID).
		Str("member_id", memberID).
		Str("role", string(role)).
		Msg("member role updated")
	return club, nil
}

// RequireAdmin loads the club and checks that actorID administers it.
func (s *Service) RequireAdmin(ctx context.Context, clubID, actorID string) (models.Club, error) {
	club, err := s.GetClub(ctx, clubID)
	if err != nil {
		return models.Club{}, err
	}
	if !club.IsAdmin(actorID) {
		return models.Club{}, ErrNotAdmin
	}
	return club, nil
}

func (s *Service) GetClub(ctx context.Context, clubID string) (models.Club, error) {
	club, err := s.clubs.GetClub(ctx, clubID)
	if err != nil {
		return models.Club{}, clubError("read club", err)
	}
	return club, nil
}
