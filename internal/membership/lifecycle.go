package membership

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"

	"github.com/bookclurb/clurb-api/internal/docstore"
	"github.com/bookclurb/clurb-api/internal/models"
	"github.com/bookclurb/clurb-api/internal/repository"
)

type UnwindResult string

const (
	// UnwindRemoved means the club id was dropped from the profile.
	UnwindRemoved UnwindResult = "removed"
	// UnwindAbsent means there was nothing to remove.
	UnwindAbsent UnwindResult = "absent"
	// UnwindSkipped means the member id was empty or malformed.
	UnwindSkipped UnwindResult = "skipped"
)

// CascadeReport describes what happened to each member profile while a club
// was being deleted.
type CascadeReport struct {
	ClubID  string           `json:"clubId"`
	Unwound []string         `json:"unwound"`
	Skipped []string         `json:"skipped,omitempty"`
	Failed  map[string]error `json:"-"`
}

// Err combines the per-member failures, or returns nil.
func (r CascadeReport) Err() error {
	ids := make([]string, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var err error
	for _, id := range ids {
		err = multierr.Append(err, fmt.Errorf("unwind %s: %w", id, r.Failed[id]))
	}
	return err
}

// FailedIDs lists members whose profile still references the club.
func (r CascadeReport) FailedIDs() []string {
	ids := make([]string, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *CascadeReport) record(userID string, result UnwindResult, err error) {
	switch {
	case err != nil:
		if r.Failed == nil {
			r.Failed = make(map[string]error)
		}
		r.Failed[userID] = err
	case result == UnwindSkipped:
		r.Skipped = append(r.Skipped, userID)
	default:
		r.Unwound = append(r.Unwound, userID)
	}
}

func (r *CascadeReport) sort() {
	sort.Strings(r.Unwound)
	sort.Strings(r.Skipped)
}

// DeleteClub removes the club id from every member's profile and then removes
// the club document. Member unwinds run concurrently and are all waited for;
// individual failures are reported, not rolled back, and do not stop the
// club document from being deleted.
func (s *Service) DeleteClub(ctx context.Context, clubID string) (CascadeReport, error) {
	roster, err := s.Roster(ctx, clubID)
	if err != nil {
		return CascadeReport{ClubID: clubID}, err
	}

	report := s.CascadeRoster(ctx, clubID, roster)
	if err := s.RemoveClubDocument(ctx, clubID); err != nil {
		s.logger.Error().Err(err).Str("club_id", clubID).Msg("club document removal failed after unwinding members")
		return report, err
	}

	event := s.logger.Info()
	if failed := len(report.Failed); failed > 0 {
		event = s.logger.Warn().Strs("failed_members", report.FailedIDs())
	}
	event.Str("club_id", clubID).
		Int("unwound", len(report.Unwound)).
		Int("skipped", len(report.Skipped)).
		Msg("club deleted")
	return report, nil
}

// Roster returns the member ids of a club in document order.
func (s *Service) Roster(ctx context.Context, clubID string) ([]string, error) {
	club, err := s.GetClub(ctx, clubID)
	if err != nil {
		return nil, err
	}
	return club.MemberIDs(), nil
}

// CascadeRoster unwinds each member with bounded concurrency and waits for all.
func (s *Service) CascadeRoster(ctx context.Context, clubID string, memberIDs []string) CascadeReport {
	report := CascadeReport{ClubID: clubID, Unwound: []string{}}
	var mu sync.Mutex

	seen := make(map[string]bool, len(memberIDs))
	p := pool.New().WithMaxGoroutines(s.cascadeConcurrency)
	for _, userID := range memberIDs {
		if seen[userID] {
			continue
		}
		seen[userID] = true

		userID := userID
		p.Go(func() {
			result, err := s.UnwindMember(ctx, clubID, userID)
			mu.Lock()
			defer mu.Unlock()
			report.record(userID, result, err)
		})
	}
	p.Wait()

	report.sort()
	return report
}

// UnwindMember drops clubID from one user's profile. It never creates a
// profile that does not exist.
func (s *Service) UnwindMember(ctx context.Context, clubID, userID string) (UnwindResult, error) {
	if !docstore.ValidKey(userID) {
		s.logger.Warn().Str("club_id", clubID).Str("member_id", userID).Msg("skipping malformed member id")
		return UnwindSkipped, nil
	}

	result := UnwindAbsent
	_, err := s.users.MutateProfile(ctx, userID, func(p *models.UserProfile, exists bool) error {
		result = UnwindAbsent
		if !exists || !p.Clubs.Contains(clubID) {
			return repository.ErrNoChange
		}
		p.Clubs = p.Clubs.Remove(clubID)
		result = UnwindRemoved
		return nil
	})
	if err != nil {
		return "", classify("unwind member profile", err)
	}
	return result, nil
}

// RemoveClubDocument deletes the club document itself.
func (s *Service) RemoveClubDocument(ctx context.Context, clubID string) error {
	if err := s.clubs.DeleteClub(ctx, clubID); err != nil {
		if errors.Is(err, docstore.ErrInvalidPath) {
			return ErrClubNotFound
		}
		return fmt.Errorf("%w: %w", ErrDeleteFailed, err)
	}
	return nil
}
