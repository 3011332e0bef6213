package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bookclurb/clurb-api/internal/docstore"
	"github.com/bookclurb/clurb-api/internal/models"
)

var (
	ErrInviteExists          = errors.New("invite already exists")
	ErrInviteAlreadyAccepted = errors.New("invite already accepted by another user")
)

type InviteRepository interface {
	CreateInvite(ctx context.Context, invite models.Invite) (models.Invite, error)
	GetInvite(ctx context.Context, clubID, inviteID string) (models.Invite, error)
	ListInvitesByClub(ctx context.Context, clubID string) ([]models.Invite, error)
	MarkInviteSent(ctx context.Context, clubID, inviteID string, now time.Time) (models.Invite, error)
	MarkInviteFailed(ctx context.Context, clubID, inviteID, reason string, now time.Time) (models.Invite, error)
	// MarkInviteAccepted is a no-op when userID already accepted the invite.
	MarkInviteAccepted(ctx context.Context, clubID, inviteID, userID string, now time.Time) (models.Invite, error)
}

type inviteRepository struct {
	store    docstore.Store
	attempts int
}

func NewInviteRepository(store docstore.Store, attempts int) InviteRepository {
	return &inviteRepository{store: store, attempts: attempts}
}

func (r *inviteRepository) CreateInvite(ctx context.Context, invite models.Invite) (models.Invite, error) {
	if invite.ID == "" {
		invite.ID = uuid.NewString()
	}
	if invite.Status == "" {
		invite.Status = models.InviteStatusPending
	}
	path, err := invitePath(invite.ClubID, invite.ID)
	if err != nil {
		return models.Invite{}, err
	}

	return docstore.Mutate(ctx, r.store, path, r.attempts, func(doc *models.Invite, exists bool) error {
		if exists {
			return ErrInviteExists
		}
		*doc = invite
		return nil
	})
}

func (r *inviteRepository) GetInvite(ctx context.Context, clubID, inviteID string) (models.Invite, error) {
	path, err := invitePath(clubID, inviteID)
	if err != nil {
		return models.Invite{}, err
	}
	var invite models.Invite
	found, err := r.store.Get(ctx, path, &invite)
	if err != nil {
		return models.Invite{}, err
	}
	if !found {
		return models.Invite{}, ErrNotFound
	}
	normalizeInvite(&invite, clubID, inviteID)
	return invite, nil
}

func (r *inviteRepository) ListInvitesByClub(ctx context.Context, clubID string) ([]models.Invite, error) {
	parent, err := docstore.Join("club_invites", clubID)
	if err != nil {
		return nil, err
	}
	children, err := r.store.List(ctx, parent)
	if err != nil {
		return nil, err
	}

	invites := make([]models.Invite, 0, len(children))
	for id, raw := range children {
		var invite models.Invite
		if err := json.Unmarshal(raw, &invite); err != nil {
			continue
		}
		normalizeInvite(&invite, clubID, id)
		invites = append(invites, invite)
	}
	sort.Slice(invites, func(i, j int) bool {
		if invites[i].CreatedAt != invites[j].CreatedAt {
			return invites[i].CreatedAt > invites[j].CreatedAt
		}
		return invites[i].ID < invites[j].ID
	})
	return invites, nil
}

func (r *inviteRepository) MarkInviteSent(ctx context.Context, clubID, inviteID string, now time.Time) (models.Invite, error) {
	return r.transition(ctx, clubID, inviteID, func(invite *models.Invite) error {
		return invite.Advance(models.InviteStatusSent, now)
	})
}

func (r *inviteRepository) MarkInviteFailed(ctx context.Context, clubID, inviteID, reason string, now time.Time) (models.Invite, error) {
	return r.transition(ctx, clubID, inviteID, func(invite *models.Invite) error {
		if err := invite.Advance(models.InviteStatusFailed, now); err != nil {
			return err
		}
		invite.Error = reason
		return nil
	})
}

func (r *inviteRepository) MarkInviteAccepted(ctx context.Context, clubID, inviteID, userID string, now time.Time) (models.Invite, error) {
	return r.transition(ctx, clubID, inviteID, func(invite *models.Invite) error {
		if invite.IsAccepted() {
			if invite.AcceptedBy == userID {
				return ErrNoChange
			}
			return ErrInviteAlreadyAccepted
		}
		if err := invite.Advance(models.InviteStatusAccepted, now); err != nil {
			return err
		}
		invite.AcceptedBy = userID
		return nil
	})
}

func (r *inviteRepository) transition(ctx context.Context, clubID, inviteID string, fn func(*models.Invite) error) (models.Invite, error) {
	path, err := invitePath(clubID, inviteID)
	if err != nil {
		return models.Invite{}, err
	}
	invite, err := docstore.Mutate(ctx, r.store, path, r.attempts, func(doc *models.Invite, exists bool) error {
		if !exists {
			return ErrNotFound
		}
		normalizeInvite(doc, clubID, inviteID)
		return fn(doc)
	})
	if err != nil {
		return models.Invite{}, err
	}
	normalizeInvite(&invite, clubID, inviteID)
	return invite, nil
}

// normalizeInvite fills identifiers that older records only carry in their path.
func normalizeInvite(invite *models.Invite, clubID, inviteID string) {
	if invite.ID == "" {
		invite.ID = inviteID
	}
	if invite.ClubID == "" {
		invite.ClubID = clubID
	}
}
