// Package membership keeps club member lists and user club lists in step:
// invite acceptance, role changes, member removal and club deletion.
package membership

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookclurb/clurb-api/internal/models"
	"github.com/bookclurb/clurb-api/internal/repository"
)

const defaultCascadeConcurrency = 8

type Service struct {
	clubs   repository.ClubRepository
	users   repository.UserRepository
	invites repository.InviteRepository
	logger  zerolog.Logger

	now                func() time.Time
	cascadeConcurrency int
}

type Option func(*Service)

// WithClock overrides the time source used for joinedAt and acceptance stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCascadeConcurrency bounds how many member profiles DeleteClub unwinds at once.
func WithCascadeConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cascadeConcurrency = n
		}
	}
}

func NewService(
	clubs repository.ClubRepository,
	users repository.UserRepository,
	invites repository.InviteRepository,
	logger zerolog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		clubs:              clubs,
		users:              users,
		invites:            invites,
		logger:             logger.With().Str("component", "membership").Logger(),
		now:                time.Now,
		cascadeConcurrency: defaultCascadeConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// admitMember appends m to the club unless an entry with the same id exists.
func (s *Service) admitMember(ctx context.Context, clubID string, m models.Member) (models.Club, bool, error) {
	added := false
	club, err := s.clubs.MutateClub(ctx, clubID, func(club *models.Club) error {
		added = false
		if club.HasMember(m.ID) {
			if club.MemberCount == len(club.Members) {
				return repository.ErrNoChange
			}
			return nil
		}
		added = club.AddMember(m)
		return nil
	})
	return club, added, err
}

// linkProfile adds clubID to the user's club set. With overwrite the names
// are replaced as a pair, so a single-token name clears the stored last name.
// Otherwise names are only filled in where the profile has none.
func (s *Service) linkProfile(ctx context.Context, userID, clubID, firstName, lastName string, overwrite bool) (models.UserProfile, error) {
	return s.users.MutateProfile(ctx, userID, func(p *models.UserProfile, _ bool) error {
		p.Clubs = p.Clubs.Add(clubID)
		if overwrite && firstName != "" {
			p.FirstName, p.LastName = firstName, lastName
			return nil
		}
		if firstName != "" && p.FirstName == "" {
			p.FirstName = firstName
		}
		if lastName != "" && p.LastName == "" {
			p.LastName = lastName
		}
		return nil
	})
}

func (s *Service) newMember(id, name, photo string, role models.Role) models.Member {
	return models.Member{
		ID:       id,
		Name:     name,
		Img:      photo,
		Role:     role,
		JoinedAt: s.now().UTC().Format(time.RFC3339),
	}
}
