package temporal

import "time"

// TaskQueueName is the task queue the club deletion cascade runs on.
const TaskQueueName = "CLURB_CASCADE"

// ClubDeletionWorkflowIDPrefix keeps one running deletion per club.
const ClubDeletionWorkflowIDPrefix = "clurb-club-deletion-"

const DefaultActivityTimeout = time.Minute

// Application error types raised by cascade activities.
const (
	ErrTypeClubNotFound = "ClubNotFound"
	ErrTypeDeleteFailed = "DeleteFailed"
)

type ClubDeletionParams struct {
	ClubID      string
	RequestedBy string
}

// ClubDeletionResult is the serialisable form of a cascade report. Failed maps
// member id to the last error message.
type ClubDeletionResult struct {
	ClubID  string
	Unwound []string
	Skipped []string
	Failed  map[string]string
}
