package repository

import (
	"context"

	"github.com/bookclurb/clurb-api/internal/docstore"
	"github.com/bookclurb/clurb-api/internal/models"
)

type UserRepository interface {
	GetProfile(ctx context.Context, userID string) (models.UserProfile, error)
	// MutateProfile applies fn to the profile, creating it when absent.
	MutateProfile(ctx context.Context, userID string, fn func(profile *models.UserProfile, exists bool) error) (models.UserProfile, error)
}

type userRepository struct {
	store    docstore.Store
	attempts int
}

func NewUserRepository(store docstore.Store, attempts int) UserRepository {
	return &userRepository{store: store, attempts: attempts}
}

func (r *userRepository) GetProfile(ctx context.Context, userID string) (models.UserProfile, error) {
	path, err := userPath(userID)
	if err != nil {
		return models.UserProfile{}, err
	}
	profile := models.UserProfile{ID: userID}
	found, err := r.store.Get(ctx, path, &profile)
	if err != nil {
		return models.UserProfile{}, err
	}
	if !found {
		return models.UserProfile{}, ErrNotFound
	}
	return profile, nil
}

func (r *userRepository) MutateProfile(ctx context.Context, userID string, fn func(profile *models.UserProfile, exists bool) error) (models.UserProfile, error) {
	path, err := userPath(userID)
	if err != nil {
		return models.UserProfile{}, err
	}

	profile, err := docstore.Mutate(ctx, r.store, path, r.attempts, func(doc *models.UserProfile, exists bool) error {
		doc.ID = userID
		return fn(doc, exists)
	})
	if err != nil {
		return models.UserProfile{}, err
	}
	profile.ID = userID
	return profile, nil
}
