package activities

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"go.temporal.io/sdk/activity"
	sdktemporal "go.temporal.io/sdk/temporal"

	"github.com/bookclurb/clurb-api/internal/membership"
	"github.com/bookclurb/clurb-api/internal/temporal"
)

// Cascade is the slice of the membership service the deletion activities drive.
type Cascade interface {
	Roster(ctx context.Context, clubID string) ([]string, error)
	UnwindMember(ctx context.Context, clubID, userID string) (membership.UnwindResult, error)
	RemoveClubDocument(ctx context.Context, clubID string) error
}

type Activities struct {
	Members Cascade
}

func (a *Activities) LoadMembersActivity(ctx context.Context, clubID string) ([]string, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Loading club roster", "clubID", clubID)

	roster, err := a.Members.Roster(ctx, clubID)
	if errors.Is(err, membership.ErrClubNotFound) {
		return nil, sdktemporal.NewNonRetryableApplicationError("club not found", temporal.ErrTypeClubNotFound, err)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load club roster")
	}
	return roster, nil
}

func (a *Activities) UnwindMemberActivity(ctx context.Context, clubID, userID string) (membership.UnwindResult, error) {
	result, err := a.Members.UnwindMember(ctx, clubID, userID)
	if err != nil {
		activity.GetLogger(ctx).Warn("Failed to unwind member profile", "clubID", clubID, "userID", userID, "error", err)
		return "", pkgerrors.Wrapf(err, "failed to unwind member %s", userID)
	}
	return result, nil
}

func (a *Activities) DeleteClubActivity(ctx context.Context, clubID string) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Removing club document", "clubID", clubID)

	err := a.Members.RemoveClubDocument(ctx, clubID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, membership.ErrClubNotFound):
		return sdktemporal.NewNonRetryableApplicationError("club not found", temporal.ErrTypeClubNotFound, err)
	default:
		return sdktemporal.NewApplicationErrorWithCause("failed to remove club document", temporal.ErrTypeDeleteFailed, err)
	}
}
