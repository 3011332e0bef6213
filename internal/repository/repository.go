package repository

import (
	"errors"

	"github.com/bookclurb/clurb-api/internal/docstore"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrNoChange can be returned from a mutate callback to skip the write.
	ErrNoChange = docstore.ErrNoChange
)

func clubPath(clubID string) (string, error) {
	return docstore.Join("clubs", clubID)
}

func userPath(userID string) (string, error) {
	return docstore.Join("users", userID)
}

func invitePath(clubID, inviteID string) (string, error) {
	return docstore.Join("club_invites", clubID, inviteID)
}
