package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bookclurb/clurb-api/internal/docstore"
	"github.com/bookclurb/clurb-api/internal/models"
)

var ErrClubExists = errors.New("club already exists")

type ClubRepository interface {
	GetClub(ctx context.Context, clubID string) (models.Club, error)
	CreateClub(ctx context.Context, club models.Club) (models.Club, error)
	// MutateClub applies fn to the current club document and writes it back
	// with compare-and-swap. memberCount is resynced after fn runs.
	MutateClub(ctx context.Context, clubID string, fn func(club *models.Club) error) (models.Club, error)
	DeleteClub(ctx context.Context, clubID string) error
}

type clubRepository struct {
	store    docstore.Store
	attempts int
}

func NewClubRepository(store docstore.Store, attempts int) ClubRepository {
	return &clubRepository{store: store, attempts: attempts}
}

func (r *clubRepository) GetClub(ctx context.Context, clubID string) (models.Club, error) {
	path, err := clubPath(clubID)
	if err != nil {
		return models.Club{}, err
	}
	club := models.Club{ID: clubID}
	found, err := r.store.Get(ctx, path, &club)
	if err != nil {
		return models.Club{}, err
	}
	if !found {
		return models.Club{}, ErrNotFound
	}
	return club, nil
}

func (r *clubRepository) CreateClub(ctx context.Context, club models.Club) (models.Club, error) {
	if club.ID == "" {
		club.ID = uuid.NewString()
	}
	path, err := clubPath(club.ID)
	if err != nil {
		return models.Club{}, err
	}
	club.SyncMemberCount()

	created, err := docstore.Mutate(ctx, r.store, path, r.attempts, func(doc *models.Club, exists bool) error {
		if exists {
			return ErrClubExists
		}
		*doc = club
		return nil
	})
	if err != nil {
		return models.Club{}, err
	}
	created.ID = club.ID
	return created, nil
}

func (r *clubRepository) MutateClub(ctx context.Context, clubID string, fn func(club *models.Club) error) (models.Club, error) {
	path, err := clubPath(clubID)
	if err != nil {
		return models.Club{}, err
	}

	club, err := docstore.Mutate(ctx, r.store, path, r.attempts, func(doc *models.Club, exists bool) error {
		if !exists {
			return ErrNotFound
		}
		doc.ID = clubID
		if err := fn(doc); err != nil {
			return err
		}
		doc.SyncMemberCount()
		return nil
	})
	if err != nil {
		return models.Club{}, err
	}
	club.ID = clubID
	return club, nil
}

func (r *clubRepository) DeleteClub(ctx context.Context, clubID string) error {
	path, err := clubPath(clubID)
	if err != nil {
		return err
	}
	return r.store.Remove(ctx, path)
}
