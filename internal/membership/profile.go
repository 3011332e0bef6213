package membership

import (
	"context"
	"errors"
	"time"

	"github.com/bookclurb/clurb-api/internal/docstore"
	"github.com/bookclurb/clurb-api/internal/models"
	"github.com/bookclurb/clurb-api/internal/repository"
)

func (s *Service) GetProfile(ctx context.Context, userID string) (models.UserProfile, error) {
	if !docstore.ValidKey(userID) {
		return models.UserProfile{}, ErrUserNotFound
	}
	profile, err := s.users.GetProfile(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.UserProfile{}, ErrUserNotFound
	}
	if err != nil {
		return models.UserProfile{}, classify("read user profile", err)
	}
	return profile, nil
}

// CompleteOnboarding flags the profile as onboarded. The first timestamp wins.
func (s *Service) CompleteOnboarding(ctx context.Context, userID string) (models.UserProfile, error) {
	if !docstore.ValidKey(userID) {
		return models.UserProfile{}, ErrUserNotFound
	}
	profile, err := s.users.MutateProfile(ctx, userID, func(p *models.UserProfile, _ bool) error {
		if p.OnboardingCompleted {
			return repository.ErrNoChange
		}
		p.OnboardingCompleted = true
		p.OnboardingCompletedAt = s.now().UTC().Format(time.RFC3339)
		return nil
	})
	if err != nil {
		return models.UserProfile{}, classify("complete onboarding", err)
	}
	return profile, nil
}

// SetHardcoverToken stores an already sealed credential; an empty token clears it.
func (s *Service) SetHardcoverToken(ctx context.Context, userID, sealed string) error {
	if !docstore.ValidKey(userID) {
		return ErrUserNotFound
	}
	_, err := s.users.MutateProfile(ctx, userID, func(p *models.UserProfile, exists bool) error {
		if !exists && sealed == "" {
			return repository.ErrNoChange
		}
		p.HardcoverAPIToken = sealed
		return nil
	})
	return classify("store hardcover token", err)
}
