package workflows

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/client"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/bookclurb/clurb-api/internal/membership"
	"github.com/bookclurb/clurb-api/internal/temporal"
	"github.com/bookclurb/clurb-api/internal/temporal/activities"
)

// ClubDeletionWorkflow unwinds every member profile in parallel, waits for all
// of them, then removes the club document. Unwind failures are reported in
// the result and do not stop the deletion.
func ClubDeletionWorkflow(ctx workflow.Context, params temporal.ClubDeletionParams) (temporal.ClubDeletionResult, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: temporal.DefaultActivityTimeout,
		RetryPolicy: &sdktemporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("Starting club deletion", "ClubID", params.ClubID, "RequestedBy", params.RequestedBy)

	var a *activities.Activities
	result := temporal.ClubDeletionResult{ClubID: params.ClubID, Unwound: []string{}}

	var roster []string
	if err := workflow.ExecuteActivity(ctx, a.LoadMembersActivity, params.ClubID).Get(ctx, &roster); err != nil {
		logger.Error("Failed to load club roster.", "error", err)
		return result, err
	}

	var ids []string
	seen := make(map[string]bool, len(roster))
	for _, id := range roster {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	futures := make([]workflow.Future, len(ids))
	for i, id := range ids {
		futures[i] = workflow.ExecuteActivity(ctx, a.UnwindMemberActivity, params.ClubID, id)
	}
	for i, future := range futures {
		var unwound membership.UnwindResult
		if err := future.Get(ctx, &unwound); err != nil {
			if result.Failed == nil {
				result.Failed = make(map[string]string)
			}
			result.Failed[ids[i]] = err.Error()
			continue
		}
		if unwound == membership.UnwindSkipped {
			result.Skipped = append(result.Skipped, ids[i])
		} else {
			result.Unwound = append(result.Unwound, ids[i])
		}
	}
	sort.Strings(result.Unwound)
	sort.Strings(result.Skipped)

	if err := workflow.ExecuteActivity(ctx, a.DeleteClubActivity, params.ClubID).Get(ctx, nil); err != nil {
		logger.Error("Failed to remove club document.", "error", err)
		return result, err
	}

	logger.Info("Club deletion completed.", "ClubID", params.ClubID, "Unwound", len(result.Unwound), "Failed", len(result.Failed))
	return result, nil
}

// Register adds the cascade workflow and its activities to a worker.
func Register(w worker.Registry, acts *activities.Activities) {
	w.RegisterWorkflow(ClubDeletionWorkflow)
	w.RegisterActivity(acts)
}

// Dispatcher runs club deletions through Temporal and waits for the outcome.
type Dispatcher struct {
	client client.Client
	logger zerolog.Logger
}

func NewDispatcher(c client.Client, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{client: c, logger: logger.With().Str("component", "club_deletion_dispatcher").Logger()}
}

func (d *Dispatcher) DeleteClub(ctx context.Context, clubID string) (membership.CascadeReport, error) {
	opts := client.StartWorkflowOptions{
		ID:        temporal.ClubDeletionWorkflowIDPrefix + clubID,
		TaskQueue: temporal.TaskQueueName,
	}
	run, err := d.client.ExecuteWorkflow(ctx, opts, ClubDeletionWorkflow, temporal.ClubDeletionParams{ClubID: clubID})
	if err != nil {
		return membership.CascadeReport{ClubID: clubID}, fmt.Errorf("%w: start club deletion: %w", membership.ErrStoreUnavailable, err)
	}
	d.logger.Info().Str("club_id", clubID).Str("run_id", run.GetRunID()).Msg("club deletion workflow started")

	var result temporal.ClubDeletionResult
	if err := run.Get(ctx, &result); err != nil {
		return reportFromResult(clubID, result), workflowError(err)
	}
	return reportFromResult(clubID, result), nil
}

func reportFromResult(clubID string, result temporal.ClubDeletionResult) membership.CascadeReport {
	report := membership.CascadeReport{ClubID: clubID, Unwound: result.Unwound, Skipped: result.Skipped}
	if report.Unwound == nil {
		report.Unwound = []string{}
	}
	for id, msg := range result.Failed {
		if report.Failed == nil {
			report.Failed = make(map[string]error, len(result.Failed))
		}
		report.Failed[id] = errors.New(msg)
	}
	return report
}

func workflowError(err error) error {
	var appErr *sdktemporal.ApplicationError
	if errors.As(err, &appErr) {
		switch appErr.Type() {
		case temporal.ErrTypeClubNotFound:
			return membership.ErrClubNotFound
		case temporal.ErrTypeDeleteFailed:
			return fmt.Errorf("%w: %w", membership.ErrDeleteFailed, err)
		}
	}
	return fmt.Errorf("%w: club deletion workflow: %w", membership.ErrStoreUnavailable, err)
}
