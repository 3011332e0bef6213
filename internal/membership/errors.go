package membership

import (
	"errors"
	"fmt"

	"github.com/bookclurb/clurb-api/internal/docstore"
	"github.com/bookclurb/clurb-api/internal/repository"
)

var (
	// ErrInvalidInvite covers invites missing identifiers, rejected upstream,
	// or already consumed by a different identity.
	ErrInvalidInvite = errors.New("invalid invite")
	// ErrEmailMismatch means the invite is restricted to another address.
	ErrEmailMismatch = errors.New("email does not match invite")
	// ErrStoreUnavailable wraps any document store failure.
	ErrStoreUnavailable = errors.New("document store unavailable")
	// ErrLastAdminViolation rejects changes that would leave a club without an admin.
	ErrLastAdminViolation = errors.New("club must keep at least one admin")
	// ErrDeleteFailed is returned when the club document could not be removed
	// after member profiles were unwound.
	ErrDeleteFailed = errors.New("club deletion failed")

	ErrClubNotFound    = errors.New("club not found")
	ErrMemberNotFound  = errors.New("member not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrNotAdmin        = errors.New("only club admins can perform this action")
	ErrInvalidRole     = errors.New("invalid role")
	ErrInvalidSettings = errors.New("invalid club settings")
)

var domainErrors = []error{
	ErrInvalidInvite, ErrEmailMismatch, ErrLastAdminViolation, ErrDeleteFailed,
	ErrClubNotFound, ErrMemberNotFound, ErrUserNotFound, ErrNotAdmin,
	ErrInvalidRole, ErrInvalidSettings,
}

// classify passes domain errors through and reports everything else as a
// store failure, keeping the cause inspectable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, domainErr := range domainErrors {
		if errors.Is(err, domainErr) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// clubError maps a missing or unaddressable club document to ErrClubNotFound.
func clubError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
		return ErrClubNotFound
	}
	return classify(op, err)
}
